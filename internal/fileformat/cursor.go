package fileformat

import (
	"encoding/binary"

	"github.com/nmoscene/nmofile/internal/guid"
	"github.com/nmoscene/nmofile/internal/nmoerr"
)

// cursor is a minimal DWORD-oriented byte reader shared by the Header1 and
// Data section decoders; unlike chunk.Parser it has no citation/seek model,
// Header1 and Data are simple flat records, not scene chunks.
type cursor struct {
	buf []byte
	pos int
}

func newCursor(b []byte) *cursor { return &cursor{buf: b} }

func (c *cursor) u32() (uint32, error) {
	if c.pos+4 > len(c.buf) {
		return 0, nmoerr.New(nmoerr.Eof, "unexpected end of section at offset %d", c.pos)
	}
	v := binary.LittleEndian.Uint32(c.buf[c.pos : c.pos+4])
	c.pos += 4
	return v, nil
}

func (c *cursor) guid() (guid.GUID, error) {
	d1, err := c.u32()
	if err != nil {
		return guid.Nil, err
	}
	d2, err := c.u32()
	if err != nil {
		return guid.Nil, err
	}
	return guid.GUID{D1: d1, D2: d2}, nil
}

func (c *cursor) str() (string, error) {
	n, err := c.u32()
	if err != nil {
		return "", err
	}
	if c.pos+int(n) > len(c.buf) {
		return "", nmoerr.New(nmoerr.Eof, "string of length %d overruns section at offset %d", n, c.pos)
	}
	s := string(c.buf[c.pos : c.pos+int(n)])
	c.pos += int(n)
	c.pos = alignUp4(c.pos)
	return s, nil
}

func (c *cursor) take(n int) ([]byte, error) {
	if c.pos+n > len(c.buf) {
		return nil, nmoerr.New(nmoerr.Eof, "requested %d bytes but only %d remain at offset %d", n, len(c.buf)-c.pos, c.pos)
	}
	out := c.buf[c.pos : c.pos+n]
	c.pos += n
	return out, nil
}

// rawStr reads a length-prefixed string with no trailing alignment padding,
// for the included-file tail format which is a flat byte stream, not the
// DWORD-aligned interior layout the rest of this package uses.
func (c *cursor) rawStr() (string, error) {
	n, err := c.u32()
	if err != nil {
		return "", err
	}
	b, err := c.take(int(n))
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (c *cursor) bytesRemaining() int { return len(c.buf) - c.pos }

func alignUp4(n int) int { return (n + 3) &^ 3 }

// builder is the write-side counterpart of cursor.
type builder struct {
	buf []byte
}

func (b *builder) putU32(v uint32) {
	var tmp [4]byte
	binary.LittleEndian.PutUint32(tmp[:], v)
	b.buf = append(b.buf, tmp[:]...)
}

func (b *builder) putGUID(g guid.GUID) {
	b.putU32(g.D1)
	b.putU32(g.D2)
}

func (b *builder) putStr(s string) {
	b.putU32(uint32(len(s)))
	b.buf = append(b.buf, s...)
	for len(b.buf)%4 != 0 {
		b.buf = append(b.buf, 0)
	}
}

// putRawStr writes a length-prefixed string with no alignment padding; see
// cursor.rawStr.
func (b *builder) putRawStr(s string) {
	b.putU32(uint32(len(s)))
	b.buf = append(b.buf, s...)
}

func (b *builder) bytes() []byte { return b.buf }
