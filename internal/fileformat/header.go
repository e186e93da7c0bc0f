// Package fileformat implements the header/Header1/Data section codecs (G):
// the fixed-layout file header, the compressed Header1 metadata block
// (object descriptors, plugin dependencies, included-file index) and the
// compressed Data section (manager blobs + object chunks), plus the
// raw-DEFLATE compression helper shared by both compressed sections.
package fileformat

import (
	"encoding/binary"
	"io"

	"github.com/nmoscene/nmofile/internal/nmoerr"
)

// Signature is the fixed 8-byte file magic.
var Signature = [8]byte{'N', 'e', 'm', 'o', ' ', 'F', 'i', 0}

// MaxFileVersion is the highest file_version this codec understands.
const MaxFileVersion = 10

// legacyHeaderVersionCutoff is the file_version below which the header is
// the short, 32-byte legacy layout (spec: "32 bytes when file_version < 5").
const legacyHeaderVersionCutoff = 5

const (
	fullHeaderSize   = 64
	legacyHeaderSize = 32
)

// Header is the fixed-layout file header (spec data model / §4.5 table).
type Header struct {
	CRC             uint32
	Hdr1PackSize    uint32
	Hdr1UnpackSize  uint32
	DataPackSize    uint32
	DataUnpackSize  uint32
	ProductVersion  uint32
	ProductBuild    uint32
	FileVersion     uint32
	FileVersion2    uint32
	FileWriteMode   uint32
	ObjectCount     uint32
	ManagerCount    uint32
	MaxIDSaved      uint32
	CKVersion       uint32
	legacy          bool // true if this header was parsed in the 32-byte layout
}

// Save flag bits (spec §6).
const (
	SaveDefault          uint32 = 0
	SaveAsObjects        uint32 = 1
	SaveCompressed       uint32 = 2
	SaveSequentialIDs    uint32 = 4
	SaveIncludeManagers  uint32 = 8
	SaveValidateBefore   uint32 = 16
)

// WriteMode bits gating per-section compression (file_write_mode field).
// pack_size == unpack_size is the actual decoder signal for "stored
// uncompressed"; these bits only control what the saver does.
const (
	CompressHeader uint32 = 1 << 0
	CompressData   uint32 = 1 << 1
)

// ReadHeader decodes the file header from r. It reads the full 64-byte
// layout when at least that many bytes are available, otherwise falls back
// to the legacy 32-byte layout (see legacyHeaderVersionCutoff): the two
// layouts can't be disambiguated by file_version before they're read, since
// file_version itself lives past byte 32, so available length is the tie-break.
func ReadHeader(r io.Reader) (*Header, error) {
	buf := make([]byte, fullHeaderSize)
	n, err := io.ReadFull(r, buf)
	if err != nil && err != io.ErrUnexpectedEOF {
		return nil, nmoerr.Wrap(nmoerr.IoError, err, "reading file header")
	}
	if n < legacyHeaderSize {
		return nil, nmoerr.New(nmoerr.Eof, "file header truncated: got %d bytes, need at least %d", n, legacyHeaderSize)
	}
	var sig [8]byte
	copy(sig[:], buf[0:8])
	if sig != Signature {
		return nil, nmoerr.New(nmoerr.InvalidData, "bad file signature %q", sig)
	}

	h := &Header{
		CRC:            binary.LittleEndian.Uint32(buf[8:12]),
		Hdr1PackSize:   binary.LittleEndian.Uint32(buf[12:16]),
		Hdr1UnpackSize: binary.LittleEndian.Uint32(buf[16:20]),
		DataPackSize:   binary.LittleEndian.Uint32(buf[20:24]),
		DataUnpackSize: binary.LittleEndian.Uint32(buf[24:28]),
		ProductVersion: binary.LittleEndian.Uint32(buf[28:32]),
	}
	if n < fullHeaderSize {
		h.legacy = true
		h.FileVersion = legacyHeaderVersionCutoff - 1
		return h, validateHeader(h)
	}
	h.ProductBuild = binary.LittleEndian.Uint32(buf[32:36])
	h.FileVersion = binary.LittleEndian.Uint32(buf[36:40])
	h.FileVersion2 = binary.LittleEndian.Uint32(buf[40:44])
	h.FileWriteMode = binary.LittleEndian.Uint32(buf[44:48])
	h.ObjectCount = binary.LittleEndian.Uint32(buf[48:52])
	h.ManagerCount = binary.LittleEndian.Uint32(buf[52:56])
	h.MaxIDSaved = binary.LittleEndian.Uint32(buf[56:60])
	h.CKVersion = binary.LittleEndian.Uint32(buf[60:64])
	return h, validateHeader(h)
}

func validateHeader(h *Header) error {
	if h.FileVersion > MaxFileVersion {
		return nmoerr.New(nmoerr.ValidationFailed, "file_version %d exceeds max %d", h.FileVersion, MaxFileVersion)
	}
	const absurd = 1 << 30 // 1 GiB; generous bound against corrupt size fields
	for name, v := range map[string]uint32{
		"hdr1_pack_size": h.Hdr1PackSize, "hdr1_unpack_size": h.Hdr1UnpackSize,
		"data_pack_size": h.DataPackSize, "data_unpack_size": h.DataUnpackSize,
	} {
		if v > absurd {
			return nmoerr.New(nmoerr.ValidationFailed, "%s = %d exceeds sanity bound", name, v)
		}
	}
	return nil
}

// WriteHeader encodes h in the full 64-byte layout; the legacy 32-byte
// layout is a read-only compatibility path, writers always emit current
// format.
func WriteHeader(w io.Writer, h *Header) error {
	buf := make([]byte, fullHeaderSize)
	copy(buf[0:8], Signature[:])
	binary.LittleEndian.PutUint32(buf[8:12], h.CRC)
	binary.LittleEndian.PutUint32(buf[12:16], h.Hdr1PackSize)
	binary.LittleEndian.PutUint32(buf[16:20], h.Hdr1UnpackSize)
	binary.LittleEndian.PutUint32(buf[20:24], h.DataPackSize)
	binary.LittleEndian.PutUint32(buf[24:28], h.DataUnpackSize)
	binary.LittleEndian.PutUint32(buf[28:32], h.ProductVersion)
	binary.LittleEndian.PutUint32(buf[32:36], h.ProductBuild)
	binary.LittleEndian.PutUint32(buf[36:40], h.FileVersion)
	binary.LittleEndian.PutUint32(buf[40:44], h.FileVersion2)
	binary.LittleEndian.PutUint32(buf[44:48], h.FileWriteMode)
	binary.LittleEndian.PutUint32(buf[48:52], h.ObjectCount)
	binary.LittleEndian.PutUint32(buf[52:56], h.ManagerCount)
	binary.LittleEndian.PutUint32(buf[56:60], h.MaxIDSaved)
	binary.LittleEndian.PutUint32(buf[60:64], h.CKVersion)
	if _, err := w.Write(buf); err != nil {
		return nmoerr.Wrap(nmoerr.IoError, err, "writing file header")
	}
	return nil
}

// IsLegacy reports whether h was decoded from the short 32-byte layout.
func (h *Header) IsLegacy() bool { return h.legacy }
