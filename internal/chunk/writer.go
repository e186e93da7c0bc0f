package chunk

import (
	"math"

	"github.com/nmoscene/nmofile/internal/guid"
	"github.com/nmoscene/nmofile/internal/nmoerr"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"
)

type writerState int

const (
	stateIdle writerState = iota
	stateWriting
	stateFinalized
)

const initialCapacityDwords = 100

// Writer sequentially produces a Chunk from a stream of primitive writes.
// It must be started with Start before any write, and is consumed exactly
// once by Finalize. The buffer grows by doubling from an initial 100-DWORD
// capacity, as required by the format's writer contract.
type Writer struct {
	state  writerState
	classID uint32
	chunkVersion uint16
	dataVersion  uint32

	buf []uint32

	ids      []uint32
	managers []ManagerCitation
	chunkRefs []uint32
	optFlags OptionFlags

	objSeqRemaining int
	mgrSeqRemaining int

	fileCtx WriteFileContext
}

// NewWriter returns an idle Writer.
func NewWriter() *Writer { return &Writer{} }

// Start initializes the writer for a new chunk; required before any write.
func (w *Writer) Start(classID uint32, chunkVersion uint16) {
	w.state = stateWriting
	w.classID = classID
	w.chunkVersion = chunkVersion
	w.dataVersion = 0
	w.buf = make([]uint32, 0, initialCapacityDwords)
	w.ids = nil
	w.managers = nil
	w.chunkRefs = nil
	w.optFlags = 0
	w.objSeqRemaining = 0
	w.mgrSeqRemaining = 0
}

// SetDataVersion records the payload-owner-chosen data version.
func (w *Writer) SetDataVersion(v uint32) { w.dataVersion = v }

// SetFileContext installs an ID remap to translate object-ID writes into
// file-ID space; once installed, every WriteObjectID call sets OptFILE on
// the resulting chunk.
func (w *Writer) SetFileContext(ctx WriteFileContext) { w.fileCtx = ctx }

func (w *Writer) requireWriting() error {
	if w.state != stateWriting {
		return nmoerr.New(nmoerr.InvalidArgument, "chunk writer: write called outside Writing state")
	}
	return nil
}

// ensureCap grows buf so n more elements fit, doubling capacity from the
// initial 100-DWORD floor.
func (w *Writer) ensureCap(n int) {
	if cap(w.buf)-len(w.buf) >= n {
		return
	}
	newCap := cap(w.buf)
	if newCap == 0 {
		newCap = initialCapacityDwords
	}
	for newCap-len(w.buf) < n {
		newCap *= 2
	}
	grown := make([]uint32, len(w.buf), newCap)
	copy(grown, w.buf)
	w.buf = grown
}

func (w *Writer) push(v uint32) int {
	w.ensureCap(1)
	off := len(w.buf)
	w.buf = append(w.buf, v)
	return off
}

// tell returns the current write cursor in DWORDs.
func (w *Writer) tell() int { return len(w.buf) }

// --- primitives ---

func (w *Writer) WriteByte(v byte) error {
	if err := w.requireWriting(); err != nil {
		return err
	}
	w.push(uint32(v))
	return nil
}

func (w *Writer) WriteWord(v uint16) error {
	if err := w.requireWriting(); err != nil {
		return err
	}
	w.push(uint32(v))
	return nil
}

func (w *Writer) WriteDword(v uint32) error {
	if err := w.requireWriting(); err != nil {
		return err
	}
	w.push(v)
	return nil
}

func (w *Writer) WriteInt(v int32) error {
	if err := w.requireWriting(); err != nil {
		return err
	}
	w.push(uint32(v))
	return nil
}

func (w *Writer) WriteFloat(v float32) error {
	if err := w.requireWriting(); err != nil {
		return err
	}
	w.push(math.Float32bits(v))
	return nil
}

// WriteDwordAsWords writes v's low 16 bits as one padded DWORD, then its
// high 16 bits as another padded DWORD.
func (w *Writer) WriteDwordAsWords(v uint32) error {
	if err := w.requireWriting(); err != nil {
		return err
	}
	w.push(v & 0xFFFF)
	w.push((v >> 16) & 0xFFFF)
	return nil
}

// WriteArrayDwordAsWords repeats WriteDwordAsWords for each element.
func (w *Writer) WriteArrayDwordAsWords(vals []uint32) error {
	for _, v := range vals {
		if err := w.WriteDwordAsWords(v); err != nil {
			return err
		}
	}
	return nil
}

func (w *Writer) WriteGUID(g guid.GUID) error {
	if err := w.requireWriting(); err != nil {
		return err
	}
	w.push(g.D1)
	w.push(g.D2)
	return nil
}

// WriteBytes writes raw bytes, zero-padded to a DWORD boundary.
func (w *Writer) WriteBytes(data []byte) error {
	if err := w.requireWriting(); err != nil {
		return err
	}
	w.writeRawPadded(data)
	return nil
}

func (w *Writer) writeRawPadded(data []byte) {
	n := (len(data) + 3) / 4
	w.ensureCap(n)
	for i := 0; i < n; i++ {
		var b [4]byte
		copy(b[:], data[i*4:min(len(data), (i+1)*4)])
		w.push(uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24)
	}
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// WriteString writes the DWORD length (byte count inclusive of the
// terminating NUL), then the NUL-terminated bytes, zero-padded to a DWORD
// boundary.
func (w *Writer) WriteString(s string) error {
	if err := w.requireWriting(); err != nil {
		return err
	}
	raw := append([]byte(s), 0)
	w.push(uint32(len(raw)))
	w.writeRawPadded(raw)
	return nil
}

// WriteBuffer writes a DWORD size prefix, then the payload, zero-padded.
func (w *Writer) WriteBuffer(data []byte) error {
	if err := w.requireWriting(); err != nil {
		return err
	}
	w.push(uint32(len(data)))
	w.writeRawPadded(data)
	return nil
}

// WriteBufferNosize writes only the payload, zero-padded; the caller must
// remember the length to read it back.
func (w *Writer) WriteBufferNosize(data []byte) error {
	if err := w.requireWriting(); err != nil {
		return err
	}
	w.writeRawPadded(data)
	return nil
}

// WriteBufferNosizeLendian16 packs pairs of uint16 into DWORDs (lo word,
// then hi word), with no size prefix.
func (w *Writer) WriteBufferNosizeLendian16(buf []uint16) error {
	if err := w.requireWriting(); err != nil {
		return err
	}
	for i := 0; i < len(buf); i += 2 {
		lo := uint32(buf[i])
		var hi uint32
		if i+1 < len(buf) {
			hi = uint32(buf[i+1])
		}
		w.push(lo | hi<<16)
	}
	return nil
}

// WriteArrayLendian writes "[total_bytes][elem_count][data...]" then pads to
// a DWORD boundary.
func (w *Writer) WriteArrayLendian(elemCount, elemSize int, data []byte) error {
	if err := w.requireWriting(); err != nil {
		return err
	}
	w.push(uint32(elemCount * elemSize))
	w.push(uint32(elemCount))
	w.writeRawPadded(data)
	return nil
}

// WriteArrayLendian16 is WriteArrayLendian for uint16 elements, additionally
// applying the 16-bit pair swap used by WriteBufferNosizeLendian16.
func (w *Writer) WriteArrayLendian16(data []uint16) error {
	if err := w.requireWriting(); err != nil {
		return err
	}
	w.push(uint32(len(data) * 2))
	w.push(uint32(len(data)))
	return w.WriteBufferNosizeLendian16(data)
}

// --- citations ---

// WriteObjectID writes id (remapped through the file context if one is
// installed) as a DWORD, tracking the write offset in the ID-citation
// sideband. Writing ID 0 emits the DWORD without tracking it.
func (w *Writer) WriteObjectID(id uint32) error {
	if err := w.requireWriting(); err != nil {
		return err
	}
	out := id
	if id != 0 && w.fileCtx != nil {
		fid, ok := w.fileCtx.ToFile(id)
		if !ok {
			return nmoerr.New(nmoerr.ReferenceUnresolved, "no file-ID mapping for runtime object %d", id)
		}
		out = fid
	}
	off := w.push(out)
	if id != 0 {
		if w.objSeqRemaining == 0 {
			w.ids = append(w.ids, uint32(off))
		} else {
			w.objSeqRemaining--
		}
		w.optFlags |= OptIDS
	}
	if w.fileCtx != nil {
		w.optFlags |= OptFILE
	}
	return nil
}

// StartObjectSequence emits a sequence-marker sentinel into the ID list and
// the count n at the next write position; subsequent WriteObjectID calls (up
// to n of them) are tracked in compact form, without a per-element offset.
func (w *Writer) StartObjectSequence(n int) error {
	if err := w.requireWriting(); err != nil {
		return err
	}
	countOff := w.tell()
	w.push(uint32(n))
	w.ids = append(w.ids, SeqSentinel, uint32(countOff))
	w.objSeqRemaining = n
	w.optFlags |= OptIDS
	return nil
}

// StartManagerSequence mirrors StartObjectSequence for manager citations.
func (w *Writer) StartManagerSequence(n int) error {
	if err := w.requireWriting(); err != nil {
		return err
	}
	countOff := w.tell()
	w.push(uint32(n))
	w.ids = append(w.ids, SeqSentinel, uint32(countOff))
	w.mgrSeqRemaining = n
	w.optFlags |= OptIDS
	return nil
}

// WriteManagerInt writes a manager GUID then an int value, recording the
// value's offset and owning GUID in the manager-citation sideband.
func (w *Writer) WriteManagerInt(g guid.GUID, value int32) error {
	if err := w.requireWriting(); err != nil {
		return err
	}
	if err := w.WriteGUID(g); err != nil {
		return err
	}
	off := w.push(uint32(value))
	w.managers = append(w.managers, ManagerCitation{GUID: g, Offset: uint32(off)})
	w.optFlags |= OptMAN
	if w.mgrSeqRemaining > 0 {
		w.mgrSeqRemaining--
	}
	return nil
}

// WriteIdentifier emits a single DWORD marker used for later random-access
// seeking; identifiers carry no sideband entry, they are found by literal
// value match.
func (w *Writer) WriteIdentifier(id uint32) error {
	if err := w.requireWriting(); err != nil {
		return err
	}
	w.push(id)
	return nil
}

// StartSubchunkSequence emits a "[sentinel][n]" preamble into the sub-chunk
// reference table; subsequent WriteSubchunk calls append only their offset.
func (w *Writer) StartSubchunkSequence(n int) error {
	if err := w.requireWriting(); err != nil {
		return err
	}
	w.chunkRefs = append(w.chunkRefs, SeqSentinel, uint32(n))
	w.optFlags |= OptCHN
	return nil
}

// WriteSubchunk inlines child's full encoding into the parent's payload at
// the current cursor and records the start offset in the sub-chunk
// reference table (bare form if StartSubchunkSequence was not called).
func (w *Writer) WriteSubchunk(child *Chunk) error {
	if err := w.requireWriting(); err != nil {
		return err
	}
	off := w.tell()
	encoded := encodeDwords(child)
	w.ensureCap(len(encoded))
	w.buf = append(w.buf, encoded...)
	w.chunkRefs = append(w.chunkRefs, uint32(off))
	w.optFlags |= OptCHN
	return nil
}

// --- math helpers ---

// WriteVector3 writes a 3-vector as three consecutive floats, the write-side
// counterpart of Parser.ReadVector3.
func (w *Writer) WriteVector3(v r3.Vec) error {
	if err := w.requireWriting(); err != nil {
		return err
	}
	w.push(math.Float32bits(float32(v.X)))
	w.push(math.Float32bits(float32(v.Y)))
	w.push(math.Float32bits(float32(v.Z)))
	return nil
}

// WriteQuaternion writes a quaternion as four consecutive floats (x, y, z,
// w), the write-side counterpart of Parser.ReadQuaternion.
func (w *Writer) WriteQuaternion(q quat.Number) error {
	if err := w.requireWriting(); err != nil {
		return err
	}
	w.push(math.Float32bits(float32(q.Imag)))
	w.push(math.Float32bits(float32(q.Jmag)))
	w.push(math.Float32bits(float32(q.Kmag)))
	w.push(math.Float32bits(float32(q.Real)))
	return nil
}

// WriteMatrix4 writes a 4x4 matrix row-major as sixteen consecutive floats,
// the write-side counterpart of Parser.ReadMatrix4.
func (w *Writer) WriteMatrix4(m *mat.Dense) error {
	if err := w.requireWriting(); err != nil {
		return err
	}
	rows, cols := m.Dims()
	if rows != 4 || cols != 4 {
		return nmoerr.New(nmoerr.InvalidArgument, "chunk writer: WriteMatrix4 requires a 4x4 matrix, got %dx%d", rows, cols)
	}
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			w.push(math.Float32bits(float32(m.At(i, j))))
		}
	}
	return nil
}

// WriteColor writes an RGBA color as four consecutive floats, the write-side
// counterpart of Parser.ReadColor.
func (w *Writer) WriteColor(c Color) error {
	if err := w.requireWriting(); err != nil {
		return err
	}
	w.push(math.Float32bits(c.R))
	w.push(math.Float32bits(c.G))
	w.push(math.Float32bits(c.B))
	w.push(math.Float32bits(c.A))
	return nil
}

// LockWriteBuffer reserves n DWORDs and returns a mutable view into the
// buffer for direct fill (e.g. bulk copy of an already-packed array).
func (w *Writer) LockWriteBuffer(dwords int) ([]uint32, error) {
	if err := w.requireWriting(); err != nil {
		return nil, err
	}
	off := w.tell()
	w.ensureCap(dwords)
	w.buf = w.buf[:len(w.buf)+dwords]
	return w.buf[off : off+dwords], nil
}

// Finalize consumes the writer and returns a chunk with frozen sidebands.
func (w *Writer) Finalize() (*Chunk, error) {
	if w.state != stateWriting {
		return nil, nmoerr.New(nmoerr.InvalidArgument, "chunk writer: Finalize called outside Writing state")
	}
	c := &Chunk{
		ClassID:      w.classID,
		ChunkVersion: w.chunkVersion,
		DataVersion:  w.dataVersion,
		OptionFlags:  w.optFlags,
		Data:         append([]uint32(nil), w.buf...),
		IDs:          append([]uint32(nil), w.ids...),
		Managers:     append([]ManagerCitation(nil), w.managers...),
		ChunkRefs:    append([]uint32(nil), w.chunkRefs...),
	}
	w.state = stateFinalized
	return c, nil
}
