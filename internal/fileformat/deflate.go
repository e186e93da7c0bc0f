package fileformat

import (
	"bytes"
	"io"

	"github.com/klauspost/compress/flate"
	"github.com/orcaman/writerseeker"

	"github.com/nmoscene/nmofile/internal/nmoerr"
)

// Deflate compresses data with raw DEFLATE (no zlib/gzip framing), matching
// the format's miniz-compatible Header1/Data compression.
func Deflate(data []byte) ([]byte, error) {
	var ws writerseeker.WriterSeeker
	fw, err := flate.NewWriter(&ws, flate.BestCompression)
	if err != nil {
		return nil, nmoerr.Wrap(nmoerr.IoError, err, "creating deflate writer")
	}
	if _, err := fw.Write(data); err != nil {
		return nil, nmoerr.Wrap(nmoerr.IoError, err, "deflating")
	}
	if err := fw.Close(); err != nil {
		return nil, nmoerr.Wrap(nmoerr.IoError, err, "closing deflate writer")
	}
	out, err := io.ReadAll(ws.Reader())
	if err != nil {
		return nil, nmoerr.Wrap(nmoerr.IoError, err, "reading deflated buffer")
	}
	return out, nil
}

// Inflate decompresses raw-DEFLATE data, verifying the result matches
// unpackSize exactly (the pack/unpack size pair recorded in Header).
func Inflate(data []byte, unpackSize uint32) ([]byte, error) {
	fr := flate.NewReader(bytes.NewReader(data))
	defer fr.Close()
	out, err := io.ReadAll(fr)
	if err != nil {
		return nil, nmoerr.Wrap(nmoerr.IoError, err, "inflating")
	}
	if uint32(len(out)) != unpackSize {
		return nil, nmoerr.New(nmoerr.InvalidData, "inflated size %d does not match expected %d", len(out), unpackSize)
	}
	return out, nil
}
