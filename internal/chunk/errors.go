package chunk

import "github.com/nmoscene/nmofile/internal/nmoerr"

func invalidOffset(kind string, off, n uint32) error {
	return nmoerr.New(nmoerr.InvalidData, "%s offset %d out of range (data has %d dwords)", kind, off, n)
}
