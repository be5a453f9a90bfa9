// Package region reads sector-based world region archives (.mca) and
// extracts block boxes from a set of them.
package region

import (
	"encoding/binary"
	"fmt"
	"strings"

	"omevox/define"
	"omevox/nbt"
)

const (
	SectorSize = 4096
	// ChunksPerSide is the width of a region in chunks.
	ChunksPerSide = 32

	headerSize = 2 * SectorSize
)

const (
	compressionGzip = 1
	compressionZlib = 2
	compressionNone = 3
	// set on the compression byte when the chunk lives in an external .mcc file
	externalFlag = 0x80
)

type location struct {
	offset  uint32
	sectors uint8
}

// Archive is one region file held in memory. It is safe for concurrent reads.
type Archive struct {
	Name       string
	data       []byte
	locations  [ChunksPerSide * ChunksPerSide]location
	timestamps [ChunksPerSide * ChunksPerSide]uint32
}

// Open validates the header of a region archive. Pre-sector archives are
// reported as define.ErrLegacyArchiveUnsupported.
func Open(name string, data []byte) (*Archive, error) {
	if strings.HasSuffix(strings.ToLower(name), ".mcr") || (len(data) >= 2 && data[0] == 0x1f && data[1] == 0x8b) {
		return nil, fmt.Errorf("%w: %s", define.ErrLegacyArchiveUnsupported, name)
	}
	if len(data) < headerSize {
		return nil, fmt.Errorf("%w: region %s is %d bytes, header needs %d", define.ErrMalformedTag, name, len(data), headerSize)
	}
	a := &Archive{Name: name, data: data}
	for i := range a.locations {
		v := binary.BigEndian.Uint32(data[i*4:])
		a.locations[i] = location{offset: v >> 8, sectors: uint8(v)}
		a.timestamps[i] = binary.BigEndian.Uint32(data[SectorSize+i*4:])
	}
	return a, nil
}

func slot(cx, cz int) int {
	return (cx & (ChunksPerSide - 1)) + (cz&(ChunksPerSide-1))*ChunksPerSide
}

// Has reports whether the chunk at region-local (or world) chunk
// coordinates is stored.
func (a *Archive) Has(cx, cz int) bool {
	return a.locations[slot(cx, cz)].offset != 0
}

// Timestamp is the last modification time of a chunk, in epoch seconds.
func (a *Archive) Timestamp(cx, cz int) uint32 {
	return a.timestamps[slot(cx, cz)]
}

// ReadChunk decodes the tag tree of one chunk. Chunk coordinates are taken
// modulo the region size. An absent chunk yields (nil, nil).
func (a *Archive) ReadChunk(cx, cz int) (*nbt.Compound, error) {
	loc := a.locations[slot(cx, cz)]
	if loc.offset == 0 {
		return nil, nil
	}
	start := int(loc.offset) * SectorSize
	if start+5 > len(a.data) {
		return nil, fmt.Errorf("%w: chunk %d,%d points past the end of %s", define.ErrMalformedTag, cx, cz, a.Name)
	}
	length := int(binary.BigEndian.Uint32(a.data[start:]))
	if length < 1 || start+4+length > len(a.data) {
		return nil, fmt.Errorf("%w: chunk %d,%d has bad length %d", define.ErrMalformedTag, cx, cz, length)
	}
	compression := a.data[start+4]
	payload := a.data[start+5 : start+4+length]
	if compression&externalFlag != 0 {
		return nil, fmt.Errorf("%w: chunk %d,%d is stored externally", define.ErrUnsupportedFormat, cx, cz)
	}

	var raw []byte
	var err error
	switch compression {
	case compressionGzip:
		raw, err = nbt.Gunzip(payload)
	case compressionZlib:
		raw, err = nbt.Inflate(payload)
	case compressionNone:
		raw = payload
	default:
		// unknown schemes are read as raw trees
		raw = payload
	}
	if err != nil {
		return nil, fmt.Errorf("%w: chunk %d,%d: %v", define.ErrMalformedTag, cx, cz, err)
	}
	_, root, err := nbt.DecodeRaw(raw)
	if err != nil {
		return nil, err
	}
	return root, nil
}

// Builder assembles region files, mostly for fixtures and exports.
type Builder struct {
	chunks map[int][]byte
}

func NewBuilder() *Builder {
	return &Builder{chunks: map[int][]byte{}}
}

// Put stores root at the chunk slot, zlib compressed.
func (b *Builder) Put(cx, cz int, root *nbt.Compound) error {
	raw, err := nbt.Encode("", root)
	if err != nil {
		return err
	}
	b.chunks[slot(cx, cz)] = nbt.Deflate(raw)
	return nil
}

func (b *Builder) Bytes() []byte {
	out := make([]byte, headerSize)
	for i := 0; i < ChunksPerSide*ChunksPerSide; i++ {
		payload, ok := b.chunks[i]
		if !ok {
			continue
		}
		offset := len(out) / SectorSize
		body := make([]byte, 5+len(payload))
		binary.BigEndian.PutUint32(body, uint32(len(payload)+1))
		body[4] = compressionZlib
		copy(body[5:], payload)
		sectors := (len(body) + SectorSize - 1) / SectorSize
		out = append(out, body...)
		out = append(out, make([]byte, sectors*SectorSize-len(body))...)
		binary.BigEndian.PutUint32(out[i*4:], uint32(offset)<<8|uint32(sectors))
	}
	return out
}
