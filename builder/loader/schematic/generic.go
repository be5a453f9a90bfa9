package schematic

import (
	"fmt"

	"omevox/builder/volume"
	"omevox/define"
	"omevox/nbt"
	"omevox/packed"
)

var (
	paletteKeys = []string{"Palette", "palette", "BlockStatePalette", "block_palette"}
	blockKeys   = []string{"BlockData", "BlockStates", "Data", "data", "Blocks", "blocks"}
)

const genericMaxDepth = 16

func genericDims(c *nbt.Compound) (volume.Dims, bool) {
	if d, err := dims(c); err == nil {
		return d, true
	}
	for _, k := range []string{"Size", "size"} {
		if v, ok := vec3(c, k); ok {
			return volume.Dims{Width: abs(v[0]), Height: abs(v[1]), Length: abs(v[2])}, true
		}
		if l, ok := c.List(k); ok && len(l.Items) == 3 {
			var v [3]int
			for i, item := range l.Items {
				n, _ := nbt.Number(item)
				v[i] = int(n)
			}
			return volume.Dims{Width: v[0], Height: v[1], Length: v[2]}, true
		}
	}
	return volume.Dims{}, false
}

func genericParts(c *nbt.Compound) (nbt.Tag, nbt.Tag, bool) {
	var palette, blocks nbt.Tag
	for _, k := range paletteKeys {
		if t, ok := c.Get(k); ok && (t.Type() == nbt.TagCompound || t.Type() == nbt.TagList) {
			palette = t
			break
		}
	}
	for _, k := range blockKeys {
		if t, ok := c.Get(k); ok && (t.Type() == nbt.TagByteArray || t.Type() == nbt.TagLongArray || t.Type() == nbt.TagIntArray) {
			blocks = t
			break
		}
	}
	return palette, blocks, palette != nil && blocks != nil
}

// findGeneric searches depth first for a compound carrying a palette, a
// block array and dimensions.
func findGeneric(c *nbt.Compound, depth int) *nbt.Compound {
	if depth > genericMaxDepth {
		return nil
	}
	if _, _, ok := genericParts(c); ok {
		if _, ok := genericDims(c); ok {
			return c
		}
	}
	for _, name := range c.Names() {
		t, _ := c.Get(name)
		switch v := t.(type) {
		case *nbt.Compound:
			if found := findGeneric(v, depth+1); found != nil {
				return found
			}
		case *nbt.List:
			for _, item := range v.Items {
				if ic, ok := item.(*nbt.Compound); ok {
					if found := findGeneric(ic, depth+1); found != nil {
						return found
					}
				}
			}
		}
	}
	return nil
}

func (s *session) generic(c *nbt.Compound) (*Result, error) {
	d, _ := genericDims(c)
	if err := d.Check(); err != nil {
		return nil, err
	}
	paletteTag, blocksTag, _ := genericParts(c)
	pb := newPaletteBuilder()
	remap, err := readPalette(paletteTag, pb)
	if err != nil {
		return nil, err
	}
	total := d.Volume()
	var locals []uint32
	switch v := blocksTag.(type) {
	case nbt.ByteArray:
		if len(v) < total {
			err = fmt.Errorf("%w: %d index bytes for %d voxels", define.ErrMalformedTag, len(v), total)
			break
		}
		locals, err = packed.DecodeVarints(v, total)
	case nbt.LongArray:
		locals, err = packed.Decode(v, total, packed.BitsFor(len(remap), 2))
	case nbt.IntArray:
		if len(v) < total {
			err = fmt.Errorf("%w: %d indices for %d voxels", define.ErrMalformedTag, len(v), total)
			break
		}
		locals = make([]uint32, total)
		for i := range locals {
			locals[i] = uint32(v[i])
		}
	}
	if err != nil {
		return nil, err
	}
	vol, err := s.fill(d, locals, remap)
	if err != nil {
		return nil, err
	}
	vol.Palette = pb.ids
	return &Result{Volume: vol, Offset: offsetOf(c), BlockEntities: blockEntities(c)}, nil
}
