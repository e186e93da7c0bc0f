package chunk

import (
	"encoding/binary"

	"github.com/nmoscene/nmofile/internal/guid"
	"github.com/nmoscene/nmofile/internal/nmoerr"
)

// encodeDwords renders c in the VERSION1 DWORD layout:
//
//	[chunk_version][class_id][data_version][data_size_dwords][option_flags]
//	[ids table?][managers table?][chunk_refs table?]
//	[data payload]
//
// Each sideband table, when present, is a DWORD-count-prefixed array. This
// is the single encoding used both for file-scope VERSION1 serialization (F)
// and for sub-chunks inlined directly into a parent's Data (E's
// read_subchunk / Writer.WriteSubchunk), since the format's sub-chunk
// framing is "the same chunk layout, nested".
func encodeDwords(c *Chunk) []uint32 {
	out := make([]uint32, 0, 5+len(c.Data)+2*len(c.IDs)+3*len(c.Managers)+len(c.ChunkRefs))
	out = append(out, uint32(c.ChunkVersion), c.ClassID, c.DataVersion, uint32(len(c.Data)), uint32(c.OptionFlags))

	if c.OptionFlags&OptIDS != 0 {
		out = append(out, uint32(len(c.IDs)))
		out = append(out, c.IDs...)
	}
	if c.OptionFlags&OptMAN != 0 {
		out = append(out, uint32(len(c.Managers)))
		for _, m := range c.Managers {
			out = append(out, m.GUID.D1, m.GUID.D2, m.Offset)
		}
	}
	if c.OptionFlags&OptCHN != 0 {
		out = append(out, uint32(len(c.ChunkRefs)))
		out = append(out, c.ChunkRefs...)
	}
	out = append(out, c.Data...)
	return out
}

// decodeDwords parses one VERSION1-framed chunk starting at buf[0] and
// returns it along with the number of DWORDs consumed.
func decodeDwords(buf []uint32) (*Chunk, int, error) {
	const headerLen = 5
	if len(buf) < headerLen {
		return nil, 0, nmoerr.New(nmoerr.Eof, "chunk header truncated: need %d dwords, have %d", headerLen, len(buf))
	}
	c := &Chunk{
		ChunkVersion: uint16(buf[0]),
		ClassID:      buf[1],
		DataVersion:  buf[2],
	}
	dataSize := buf[3]
	c.OptionFlags = OptionFlags(buf[4])
	pos := headerLen

	readTable := func() ([]uint32, error) {
		if pos >= len(buf) {
			return nil, nmoerr.New(nmoerr.Eof, "truncated sideband table count")
		}
		n := int(buf[pos])
		pos++
		if n < 0 || pos+n > len(buf) {
			return nil, nmoerr.New(nmoerr.InvalidData, "sideband table claims %d dwords past end of buffer", n)
		}
		t := buf[pos : pos+n]
		pos += n
		return t, nil
	}

	if c.OptionFlags&OptIDS != 0 {
		t, err := readTable()
		if err != nil {
			return nil, 0, err
		}
		c.IDs = append([]uint32(nil), t...)
	}
	if c.OptionFlags&OptMAN != 0 {
		if pos >= len(buf) {
			return nil, 0, nmoerr.New(nmoerr.Eof, "truncated manager table count")
		}
		n := int(buf[pos])
		pos++
		need := n * 3
		if n < 0 || pos+need > len(buf) {
			return nil, 0, nmoerr.New(nmoerr.InvalidData, "manager table claims %d entries past end of buffer", n)
		}
		c.Managers = make([]ManagerCitation, n)
		for i := 0; i < n; i++ {
			c.Managers[i] = ManagerCitation{
				GUID:   guid.New(buf[pos], buf[pos+1]),
				Offset: buf[pos+2],
			}
			pos += 3
		}
	}
	if c.OptionFlags&OptCHN != 0 {
		t, err := readTable()
		if err != nil {
			return nil, 0, err
		}
		c.ChunkRefs = append([]uint32(nil), t...)
	}

	if pos+int(dataSize) > len(buf) {
		return nil, 0, nmoerr.New(nmoerr.Eof, "data payload claims %d dwords past end of buffer", dataSize)
	}
	c.Data = append([]uint32(nil), buf[pos:pos+int(dataSize)]...)
	pos += int(dataSize)

	if err := c.Validate(); err != nil {
		return nil, 0, err
	}
	return c, pos, nil
}

// SerializeVersion1 converts c to its on-disk byte form. For chunks carrying
// a RawBytes cache (i.e. chunks that were themselves parsed and never
// mutated), the cached bytes are returned unchanged to guarantee a bit-exact
// round trip; chunks produced by Writer synthesize the layout deterministically.
func SerializeVersion1(c *Chunk) []byte {
	if c.RawBytes != nil {
		return c.RawBytes
	}
	dwords := encodeDwords(c)
	out := make([]byte, 4*len(dwords))
	for i, d := range dwords {
		binary.LittleEndian.PutUint32(out[i*4:], d)
	}
	return out
}

// ParseVersion1 decodes a VERSION1 chunk from bytes, caching the input as
// RawBytes so a subsequent SerializeVersion1 is bit-exact.
func ParseVersion1(data []byte) (*Chunk, error) {
	if len(data)%4 != 0 {
		return nil, nmoerr.New(nmoerr.InvalidData, "chunk byte length %d is not DWORD-aligned", len(data))
	}
	dwords := make([]uint32, len(data)/4)
	for i := range dwords {
		dwords[i] = binary.LittleEndian.Uint32(data[i*4:])
	}
	c, consumed, err := decodeDwords(dwords)
	if err != nil {
		return nil, err
	}
	if consumed != len(dwords) {
		return nil, nmoerr.New(nmoerr.InvalidData, "chunk encoding left %d trailing dwords", len(dwords)-consumed)
	}
	c.RawBytes = append([]byte(nil), data...)
	return c, nil
}

// ReadSubchunk reconstructs a fully-formed child chunk embedded in parent's
// Data at the given DWORD offset (used by Parser.ReadSubchunk).
func ReadSubchunk(parent *Chunk, offset uint32) (*Chunk, error) {
	if int(offset) >= len(parent.Data) {
		return nil, nmoerr.New(nmoerr.InvalidData, "sub-chunk offset %d out of range (parent has %d dwords)", offset, len(parent.Data))
	}
	child, _, err := decodeDwords(parent.Data[offset:])
	if err != nil {
		return nil, nmoerr.Wrap(nmoerr.InvalidData, err, "decoding sub-chunk at offset %d", offset)
	}
	return child, nil
}
