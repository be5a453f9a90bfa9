package bdump

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"sort"
	"strconv"

	"github.com/andybalholm/brotli"

	"omevox/builder/define"
)

// Placement is one block of a BDX file. Name is a block name without
// states, Data its legacy data value.
type Placement struct {
	Pos  define.Pos
	Name string
	Data uint16
}

// SplitBlockName is the inverse of BlockName: a "data" state becomes the
// data value and any other state is dropped.
func SplitBlockName(id string) (string, uint16) {
	b := define.ParseBlockDescribe(id)
	var data uint16
	if v, ok := b.Properties()["data"]; ok {
		if n, err := strconv.ParseUint(v, 10, 16); err == nil {
			data = uint16(n)
		}
	}
	return b.BaseName(), data
}

// Encode writes placements as an unsigned BDX file. Placements are sorted
// x, then y, then z so the brush only moves forward within a column.
func Encode(author string, blocks []Placement) ([]byte, error) {
	sorted := append([]Placement(nil), blocks...)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i].Pos, sorted[j].Pos
		if a[0] != b[0] {
			return a[0] < b[0]
		}
		if a[1] != b[1] {
			return a[1] < b[1]
		}
		return a[2] < b[2]
	})

	var body bytes.Buffer
	body.WriteString(innerMagic)
	body.WriteString(author)
	body.WriteByte(0)

	pool := map[string]uint16{}
	brush := define.Pos{}
	var scratch [4]byte
	for _, p := range sorted {
		id, ok := pool[p.Name]
		if !ok {
			if len(pool) > 0xffff {
				return nil, fmt.Errorf("bdx: more than %d distinct block names", 0xffff)
			}
			id = uint16(len(pool))
			pool[p.Name] = id
			body.WriteByte(1)
			body.WriteString(p.Name)
			body.WriteByte(0)
		}
		for axis := 0; axis < 3; axis++ {
			delta := int32(p.Pos[axis] - brush[axis])
			if delta == 0 {
				continue
			}
			// signed 32 bit moves: 21 x, 23 y, 25 z
			body.WriteByte(byte(21 + 2*axis))
			binary.BigEndian.PutUint32(scratch[:], uint32(delta))
			body.Write(scratch[:])
		}
		brush = p.Pos
		body.WriteByte(7)
		binary.BigEndian.PutUint16(scratch[:2], id)
		body.Write(scratch[:2])
		binary.BigEndian.PutUint16(scratch[:2], p.Data)
		body.Write(scratch[:2])
	}
	body.WriteByte(opEnd)

	var out bytes.Buffer
	out.WriteString(outerMagic)
	w := brotli.NewWriterLevel(&out, brotli.DefaultCompression)
	if _, err := w.Write(body.Bytes()); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}
