package fileformat

import "github.com/nmoscene/nmofile/internal/nmoerr"

// IncludedFilePayload pairs an included file's name with its bytes, as
// carried in the file tail (distinct from Header1's IncludedFile index
// entry, which records only name and size).
type IncludedFilePayload struct {
	Name string
	Data []byte
}

// EncodeIncludedFiles serializes the file tail: one
// [name_len][name_bytes][size][payload_bytes] record per file, concatenated
// in order after the Data section.
func EncodeIncludedFiles(files []IncludedFilePayload) []byte {
	b := &builder{}
	for _, f := range files {
		b.putRawStr(f.Name)
		b.putU32(uint32(len(f.Data)))
		b.buf = append(b.buf, f.Data...)
	}
	return b.bytes()
}

// DecodeIncludedFiles parses the file tail produced by EncodeIncludedFiles.
// count comes from Header1's included-file index length.
func DecodeIncludedFiles(data []byte, count int) ([]IncludedFilePayload, error) {
	c := newCursor(data)
	out := make([]IncludedFilePayload, 0, count)
	for i := 0; i < count; i++ {
		name, err := c.rawStr()
		if err != nil {
			return nil, nmoerr.Wrap(nmoerr.InvalidData, err, "reading included file %d name", i)
		}
		size, err := c.u32()
		if err != nil {
			return nil, nmoerr.Wrap(nmoerr.InvalidData, err, "reading included file %d size", i)
		}
		payload, err := c.take(int(size))
		if err != nil {
			return nil, nmoerr.Wrap(nmoerr.InvalidData, err, "reading included file %d payload", i)
		}
		out = append(out, IncludedFilePayload{Name: name, Data: append([]byte(nil), payload...)})
	}
	return out, nil
}
