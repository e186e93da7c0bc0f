package fileformat

import (
	"github.com/nmoscene/nmofile/internal/chunk"
	"github.com/nmoscene/nmofile/internal/guid"
	"github.com/nmoscene/nmofile/internal/nmoerr"
)

// ManagerBlob is one manager's opaque per-save chunk, keyed by its GUID.
type ManagerBlob struct {
	GUID  guid.GUID
	Chunk *chunk.Chunk
}

// ObjectRecord is one object's chunk plus the identity fields the Data
// section layout needs alongside it (the object_id field is only present
// on disk when file_version < 7). A reference-only object (Chunk == nil)
// writes data_size=0 and no chunk body, per spec §4.12 phase 5.
type ObjectRecord struct {
	ObjectID uint32
	Chunk    *chunk.Chunk
}

// Data is the decoded Data section: manager blobs followed by object chunks,
// in on-disk order.
type Data struct {
	Managers []ManagerBlob
	Objects  []ObjectRecord
}

// EncodeData serializes d per spec §4.5: manager blobs first (each
// `[guid.d1, guid.d2, data_size_bytes, chunk_bytes]`), then object chunks
// (`[object_id, data_size, chunk_bytes]` below file_version 7, `[data_size,
// chunk_bytes]` from file_version 7 on, since object IDs become authoritative
// in Header1 at file_version 8 and the object_id field is redundant earlier
// than that but still dropped starting at 7).
func EncodeData(d *Data, fileVersion uint32) []byte {
	b := &builder{}

	for _, m := range d.Managers {
		chunkBytes := chunk.SerializeVersion1(m.Chunk)
		b.putGUID(m.GUID)
		b.putU32(uint32(len(chunkBytes)))
		b.buf = append(b.buf, chunkBytes...)
	}

	for _, o := range d.Objects {
		var chunkBytes []byte
		if o.Chunk != nil {
			chunkBytes = chunk.SerializeVersion1(o.Chunk)
		}
		if fileVersion < 7 {
			b.putU32(o.ObjectID)
		}
		b.putU32(uint32(len(chunkBytes)))
		b.buf = append(b.buf, chunkBytes...)
	}

	return b.bytes()
}

// DecodeData parses the Data section laid out by EncodeData. managerCount
// and objectCount come from the file header / Header1 object descriptor
// count, since the Data section itself carries no top-level counts.
func DecodeData(data []byte, managerCount, objectCount int, fileVersion uint32) (*Data, error) {
	c := newCursor(data)
	out := &Data{
		Managers: make([]ManagerBlob, 0, managerCount),
		Objects:  make([]ObjectRecord, 0, objectCount),
	}

	for i := 0; i < managerCount; i++ {
		g, err := c.guid()
		if err != nil {
			return nil, nmoerr.Wrap(nmoerr.InvalidData, err, "reading manager %d guid", i)
		}
		size, err := c.u32()
		if err != nil {
			return nil, nmoerr.Wrap(nmoerr.InvalidData, err, "reading manager %d chunk size", i)
		}
		chunkBytes, err := c.take(int(size))
		if err != nil {
			return nil, nmoerr.Wrap(nmoerr.InvalidData, err, "reading manager %d chunk bytes", i)
		}
		ck, err := chunk.ParseVersion1(chunkBytes)
		if err != nil {
			return nil, nmoerr.Wrap(nmoerr.InvalidData, err, "parsing manager %d chunk", i)
		}
		out.Managers = append(out.Managers, ManagerBlob{GUID: g, Chunk: ck})
	}

	for i := 0; i < objectCount; i++ {
		var objID uint32
		var err error
		if fileVersion < 7 {
			if objID, err = c.u32(); err != nil {
				return nil, nmoerr.Wrap(nmoerr.InvalidData, err, "reading object %d id", i)
			}
		}
		size, err := c.u32()
		if err != nil {
			return nil, nmoerr.Wrap(nmoerr.InvalidData, err, "reading object %d chunk size", i)
		}
		chunkBytes, err := c.take(int(size))
		if err != nil {
			return nil, nmoerr.Wrap(nmoerr.InvalidData, err, "reading object %d chunk bytes", i)
		}
		var ck *chunk.Chunk
		if size > 0 {
			ck, err = chunk.ParseVersion1(chunkBytes)
			if err != nil {
				return nil, nmoerr.Wrap(nmoerr.InvalidData, err, "parsing object %d chunk", i)
			}
		}
		out.Objects = append(out.Objects, ObjectRecord{ObjectID: objID, Chunk: ck})
	}

	return out, nil
}
