package schematic

import (
	"fmt"

	"omevox/builder/volume"
	"omevox/define"
	"omevox/nbt"
	"omevox/packed"
)

// legacyFlat reads Blocks/Data byte arrays, merging the optional 4 bit
// AddBlocks nibbles into a 12 bit id. Voxels become legacy_<id>:<data>.
func (s *session) legacyFlat(c *nbt.Compound) (*Result, error) {
	d, err := dims(c)
	if err != nil {
		return nil, err
	}
	total := d.Volume()
	blocks, _ := c.ByteArray("Blocks")
	if len(blocks) < total {
		return nil, fmt.Errorf("%w: %d block bytes for %d voxels", define.ErrMalformedTag, len(blocks), total)
	}
	data, _ := c.ByteArray("Data")
	add, ok := c.ByteArray("AddBlocks")
	if !ok {
		add, _ = c.ByteArray("Add")
	}
	// some writers store one add byte per voxel rather than packed nibbles
	addPerVoxel := len(add) >= total && len(add) > (total+1)/2

	vol := volume.NewPaletteVolume(d)
	pb := newPaletteBuilder()
	cache := map[uint32]uint32{}
	for i := 0; i < total; i++ {
		if err := s.tick(i, total); err != nil {
			return nil, err
		}
		id := uint32(blocks[i])
		switch {
		case addPerVoxel:
			id |= uint32(add[i]&0x0f) << 8
		case i>>1 < len(add):
			nib := add[i>>1]
			if i&1 == 0 {
				id |= uint32(nib&0x0f) << 8
			} else {
				id |= uint32(nib&0xf0) << 4
			}
		}
		var meta uint32
		if i < len(data) {
			meta = uint32(data[i] & 0x0f)
		}
		if id == 0 {
			continue
		}
		key := id<<4 | meta
		g, ok := cache[key]
		if !ok {
			g = pb.id(LegacyKey(int(id), int(meta)))
			cache[key] = g
		}
		vol.Indices[i] = g
	}
	s.finish(total)
	vol.Palette = pb.ids
	return &Result{Volume: vol, Offset: offsetOf(c), BlockEntities: blockEntities(c)}, nil
}

// LegacyKey is the synthetic id used for numeric block ids.
func LegacyKey(id, data int) string {
	return fmt.Sprintf("legacy_%d:%d", id, data)
}

// paletteVarint reads a Palette plus a LEB128 index array. meta holds the
// dimensions, blocks the Palette and BlockData/Data keys.
func (s *session) paletteVarint(meta, blocks *nbt.Compound) (*Result, error) {
	d, err := dims(meta)
	if err != nil {
		return nil, err
	}
	paletteTag, _ := blocks.Get("Palette")
	pb := newPaletteBuilder()
	remap, err := readPalette(paletteTag, pb)
	if err != nil {
		return nil, err
	}
	raw, ok := blocks.ByteArray("BlockData")
	if !ok {
		raw, _ = blocks.ByteArray("Data")
	}
	total := d.Volume()
	if len(raw) < total {
		return nil, fmt.Errorf("%w: %d index bytes for %d voxels", define.ErrMalformedTag, len(raw), total)
	}
	locals, err := packed.DecodeVarints(raw, total)
	if err != nil {
		return nil, err
	}
	vol, err := s.fill(d, locals, remap)
	if err != nil {
		return nil, err
	}
	vol.Palette = pb.ids
	return &Result{Volume: vol, Offset: offsetOf(meta), BlockEntities: blockEntities(meta, blocks)}, nil
}

// paletteLongArray reads a Palette plus a spanning packed BlockStates array.
func (s *session) paletteLongArray(c *nbt.Compound) (*Result, error) {
	d, err := dims(c)
	if err != nil {
		return nil, err
	}
	paletteTag, _ := c.Get("Palette")
	pb := newPaletteBuilder()
	remap, err := readPalette(paletteTag, pb)
	if err != nil {
		return nil, err
	}
	words, _ := c.LongArray("BlockStates")
	total := d.Volume()
	locals, err := packed.Decode(words, total, packed.BitsFor(len(remap), 2))
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

func (s *session) fill(d volume.Dims, locals []uint32, remap []uint32) (*volume.PaletteVolume, error) {
	vol := volume.NewPaletteVolume(d)
	total := d.Volume()
	for i := 0; i < total; i++ {
		if err := s.tick(i, total); err != nil {
			return nil, err
		}
		g, err := lookup(remap, locals[i])
		if err != nil {
			return nil, err
		}
		vol.Indices[i] = g
	}
	s.finish(total)
	return vol, nil
}
