package chunk

import (
	"math"

	"github.com/nmoscene/nmofile/internal/guid"
	"github.com/nmoscene/nmofile/internal/nmoerr"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"
)

// Parser sequentially decodes a Chunk's Data, DWORD by DWORD, with bounds
// checking on every read.
type Parser struct {
	c       *Chunk
	cursor  int
	fileCtx ReadFileContext
}

// NewParser returns a Parser positioned at the start of c's data.
func NewParser(c *Chunk) *Parser { return &Parser{c: c} }

// SetFileContext installs an ID remap so ReadObjectID translates file-space
// IDs back to runtime space.
func (p *Parser) SetFileContext(ctx ReadFileContext) { p.fileCtx = ctx }

func (p *Parser) need(n int) error {
	if p.cursor+n > len(p.c.Data) {
		return nmoerr.New(nmoerr.Eof, "read past end of chunk data (cursor %d, need %d, have %d)", p.cursor, n, len(p.c.Data))
	}
	return nil
}

func (p *Parser) next() uint32 {
	v := p.c.Data[p.cursor]
	p.cursor++
	return v
}

// --- primitives ---

func (p *Parser) ReadByte() (byte, error) {
	if err := p.need(1); err != nil {
		return 0, err
	}
	return byte(p.next()), nil
}

func (p *Parser) ReadWord() (uint16, error) {
	if err := p.need(1); err != nil {
		return 0, err
	}
	return uint16(p.next()), nil
}

func (p *Parser) ReadDword() (uint32, error) {
	if err := p.need(1); err != nil {
		return 0, err
	}
	return p.next(), nil
}

func (p *Parser) ReadInt() (int32, error) {
	if err := p.need(1); err != nil {
		return 0, err
	}
	return int32(p.next()), nil
}

func (p *Parser) ReadFloat() (float32, error) {
	if err := p.need(1); err != nil {
		return 0, err
	}
	return math.Float32frombits(p.next()), nil
}

func (p *Parser) ReadGUID() (guid.GUID, error) {
	if err := p.need(2); err != nil {
		return guid.GUID{}, err
	}
	return guid.New(p.next(), p.next()), nil
}

func (p *Parser) dwordsFor(byteLen int) int { return (byteLen + 3) / 4 }

func (p *Parser) readRawPadded(byteLen int) ([]byte, error) {
	n := p.dwordsFor(byteLen)
	if err := p.need(n); err != nil {
		return nil, err
	}
	out := make([]byte, byteLen)
	for i := 0; i < n; i++ {
		d := p.next()
		var b [4]byte
		b[0] = byte(d)
		b[1] = byte(d >> 8)
		b[2] = byte(d >> 16)
		b[3] = byte(d >> 24)
		copy(out[i*4:], b[:min(4, byteLen-i*4)])
	}
	return out, nil
}

// ReadBytes reads exactly n raw bytes, padded to a DWORD boundary on disk.
func (p *Parser) ReadBytes(n int) ([]byte, error) { return p.readRawPadded(n) }

// ReadString reads a DWORD length (inclusive of NUL) then the NUL-terminated
// bytes, dropping the terminator.
func (p *Parser) ReadString() (string, error) {
	n, err := p.ReadDword()
	if err != nil {
		return "", err
	}
	if n == 0 {
		return "", nmoerr.New(nmoerr.InvalidData, "string length prefix is zero (must include NUL)")
	}
	raw, err := p.readRawPadded(int(n))
	if err != nil {
		return "", err
	}
	return string(raw[:len(raw)-1]), nil
}

// ReadBuffer reads a DWORD size prefix then that many payload bytes.
func (p *Parser) ReadBuffer() ([]byte, error) {
	n, err := p.ReadDword()
	if err != nil {
		return nil, err
	}
	return p.readRawPadded(int(n))
}

// ReadBufferNosize reads exactly n bytes with no size prefix.
func (p *Parser) ReadBufferNosize(n int) ([]byte, error) { return p.readRawPadded(n) }

// ReadBufferNosizeLendian16 reads n uint16 values packed two-per-DWORD.
func (p *Parser) ReadBufferNosizeLendian16(n int) ([]uint16, error) {
	dwords := (n + 1) / 2
	if err := p.need(dwords); err != nil {
		return nil, err
	}
	out := make([]uint16, n)
	for i := 0; i < dwords; i++ {
		d := p.next()
		out[i*2] = uint16(d)
		if i*2+1 < n {
			out[i*2+1] = uint16(d >> 16)
		}
	}
	return out, nil
}

// ReadDwordAsWords reads a value written by WriteDwordAsWords: low word then
// high word, each its own DWORD.
func (p *Parser) ReadDwordAsWords() (uint32, error) {
	if err := p.need(2); err != nil {
		return 0, err
	}
	lo := p.next() & 0xFFFF
	hi := p.next() & 0xFFFF
	return lo | hi<<16, nil
}

// ReadDwordArrayAsWords reads count values each encoded as in
// ReadDwordAsWords.
func (p *Parser) ReadDwordArrayAsWords(count int) ([]uint32, error) {
	out := make([]uint32, count)
	for i := range out {
		v, err := p.ReadDwordAsWords()
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// --- citations ---

// ReadObjectID reads a DWORD object ID, translating it through the file
// context (file->runtime) when one is attached.
func (p *Parser) ReadObjectID() (uint32, error) {
	id, err := p.ReadDword()
	if err != nil {
		return 0, err
	}
	if id == 0 || p.fileCtx == nil {
		return id, nil
	}
	rid, ok := p.fileCtx.ToRuntime(id)
	if !ok {
		return id, nmoerr.Warn(nmoerr.ReferenceUnresolved, "no runtime mapping for file object %d", id)
	}
	return rid, nil
}

// ReadManagerInt reads a GUID then an int, as written by WriteManagerInt.
func (p *Parser) ReadManagerInt() (guid.GUID, int32, error) {
	g, err := p.ReadGUID()
	if err != nil {
		return guid.GUID{}, 0, err
	}
	v, err := p.ReadInt()
	if err != nil {
		return guid.GUID{}, 0, err
	}
	return g, v, nil
}

// ReadManagerIntSequence reads n (GUID, int) pairs.
func (p *Parser) ReadManagerIntSequence(n int) ([]guid.GUID, []int32, error) {
	guids := make([]guid.GUID, n)
	vals := make([]int32, n)
	for i := 0; i < n; i++ {
		g, v, err := p.ReadManagerInt()
		if err != nil {
			return nil, nil, err
		}
		guids[i] = g
		vals[i] = v
	}
	return guids, vals, nil
}

// ReadIdentifier reads one raw DWORD identifier marker.
func (p *Parser) ReadIdentifier() (uint32, error) { return p.ReadDword() }

// StartReadSequence reads a sub-chunk sequence's "[sentinel][n]" preamble
// (written by Writer.StartSubchunkSequence) from the ChunkRefs table and
// returns n; if ChunkRefs does not begin with such a preamble, it returns an
// error. The cursor is neither read nor moved.
func (p *Parser) StartReadSequence() (int, error) {
	if len(p.c.ChunkRefs) < 2 || p.c.ChunkRefs[0] != SeqSentinel {
		return 0, nmoerr.New(nmoerr.InvalidData, "chunk has no formal sub-chunk sequence")
	}
	return int(p.c.ChunkRefs[1]), nil
}

// ReadSubchunk reconstructs the i-th sub-chunk referenced by the parent's
// ChunkRefs table (accounting for a leading sequence preamble, if any).
func (p *Parser) ReadSubchunk(i int) (*Chunk, error) {
	refs := p.c.ChunkRefs
	base := 0
	if len(refs) >= 2 && refs[0] == SeqSentinel {
		base = 2
	}
	idx := base + i
	if idx >= len(refs) {
		return nil, nmoerr.New(nmoerr.NotFound, "sub-chunk index %d out of range", i)
	}
	return ReadSubchunk(p.c, refs[idx])
}

// --- seeking ---

// Tell returns the current DWORD cursor.
func (p *Parser) Tell() int { return p.cursor }

// Seek sets the DWORD cursor directly.
func (p *Parser) Seek(pos int) error {
	if pos < 0 || pos > len(p.c.Data) {
		return nmoerr.New(nmoerr.InvalidArgument, "seek position %d out of range", pos)
	}
	p.cursor = pos
	return nil
}

// Skip advances the cursor by n DWORDs.
func (p *Parser) Skip(n int) error {
	if err := p.need(n); err != nil {
		return err
	}
	p.cursor += n
	return nil
}

// Remaining returns the number of unread DWORDs.
func (p *Parser) Remaining() int { return len(p.c.Data) - p.cursor }

// AtEnd reports whether the cursor has reached the end of the data.
func (p *Parser) AtEnd() bool { return p.cursor >= len(p.c.Data) }

// LockReadBuffer returns a zero-copy view of the next n DWORDs and advances
// the cursor past them.
func (p *Parser) LockReadBuffer(n int) ([]uint32, error) {
	if err := p.need(n); err != nil {
		return nil, err
	}
	out := p.c.Data[p.cursor : p.cursor+n]
	p.cursor += n
	return out, nil
}

// SeekIdentifier scans forward from the cursor for a DWORD equal to needle,
// positioning the cursor immediately after it. If the scan reaches EOF
// without a match, it wraps once from position 0 up to the original cursor
// (cycle tolerance) before reporting NotFound.
func (p *Parser) SeekIdentifier(needle uint32) error {
	start := p.cursor
	for i := p.cursor; i < len(p.c.Data); i++ {
		if p.c.Data[i] == needle {
			p.cursor = i + 1
			return nil
		}
	}
	for i := 0; i < start; i++ {
		if p.c.Data[i] == needle {
			p.cursor = i + 1
			return nil
		}
	}
	return nmoerr.New(nmoerr.NotFound, "identifier %#x not found", needle)
}

// SeekIdentifierWithSize behaves like SeekIdentifier and additionally
// returns the distance in DWORDs to the next identifier-looking boundary or
// EOF; since identifiers are indistinguishable from payload except by value,
// the "size" is simply the distance to the end of the data (callers that
// know their own framing convention interpret it further).
func (p *Parser) SeekIdentifierWithSize(needle uint32) (int, error) {
	if err := p.SeekIdentifier(needle); err != nil {
		return 0, err
	}
	return p.Remaining(), nil
}

// --- math helpers ---

// ReadVector3 reads three consecutive floats as a 3-vector.
func (p *Parser) ReadVector3() (r3.Vec, error) {
	if err := p.need(3); err != nil {
		return r3.Vec{}, err
	}
	x := math.Float32frombits(p.next())
	y := math.Float32frombits(p.next())
	z := math.Float32frombits(p.next())
	return r3.Vec{X: float64(x), Y: float64(y), Z: float64(z)}, nil
}

// ReadQuaternion reads four consecutive floats (x, y, z, w) as a quaternion.
func (p *Parser) ReadQuaternion() (quat.Number, error) {
	if err := p.need(4); err != nil {
		return quat.Number{}, err
	}
	x := math.Float32frombits(p.next())
	y := math.Float32frombits(p.next())
	z := math.Float32frombits(p.next())
	w := math.Float32frombits(p.next())
	return quat.Number{Real: float64(w), Imag: float64(x), Jmag: float64(y), Kmag: float64(z)}, nil
}

// ReadMatrix4 reads sixteen consecutive floats, row-major, as a 4x4 matrix.
func (p *Parser) ReadMatrix4() (*mat.Dense, error) {
	if err := p.need(16); err != nil {
		return nil, err
	}
	vals := make([]float64, 16)
	for i := range vals {
		vals[i] = float64(math.Float32frombits(p.next()))
	}
	return mat.NewDense(4, 4, vals), nil
}

// Color is an RGBA color with float32 channels, the stride chunk payloads
// use for lighting/material parameters.
type Color struct{ R, G, B, A float32 }

// ReadColor reads four consecutive floats as an RGBA color.
func (p *Parser) ReadColor() (Color, error) {
	if err := p.need(4); err != nil {
		return Color{}, err
	}
	r := math.Float32frombits(p.next())
	g := math.Float32frombits(p.next())
	b := math.Float32frombits(p.next())
	a := math.Float32frombits(p.next())
	return Color{R: r, G: g, B: b, A: a}, nil
}
