package region

import (
	"fmt"

	"omevox/builder/define"
	"omevox/builder/loader/schematic"
	errs "omevox/define"
	"omevox/nbt"
	"omevox/packed"
)

const (
	sectionVolume  = 16 * 16 * 16
	minSectionBits = 4
)

// Section is a 16x16x16 cube of a chunk column. A nil indices slice means
// every cell is palette[0].
type Section struct {
	palette []string
	indices []uint32
}

func sectionIndex(x, y, z int) int {
	return y<<8 | z<<4 | x
}

// Block returns the id at section-local coordinates.
func (s *Section) Block(x, y, z int) string {
	if s == nil || len(s.palette) == 0 {
		return define.AirBlock.String()
	}
	if s.indices == nil {
		return s.palette[0]
	}
	i := s.indices[sectionIndex(x, y, z)]
	if int(i) >= len(s.palette) {
		return define.AirBlock.String()
	}
	return s.palette[i]
}

// Empty reports whether the section holds only air.
func (s *Section) Empty() bool {
	if s == nil {
		return true
	}
	for _, id := range s.palette {
		if !define.IsAir(id) {
			return false
		}
	}
	return true
}

// Chunk is a decoded 16 wide column of sections keyed by section Y.
type Chunk struct {
	X, Z     int
	sections map[int]*Section
}

// Block returns the id at chunk-local x,z and world y. Missing sections are air.
func (c *Chunk) Block(x, y, z int) string {
	if c == nil {
		return define.AirBlock.String()
	}
	return c.sections[y>>4].Block(x&15, y&15, z&15)
}

// SectionYs lists the populated section indices.
func (c *Chunk) SectionYs() []int {
	out := make([]int, 0, len(c.sections))
	for y := range c.sections {
		out = append(out, y)
	}
	return out
}

// ParseChunk decodes a chunk root in any of the three known layouts:
// top-level sections with block_states, Level.Sections with Palette and
// BlockStates, or Level.Sections with numeric Blocks/Data arrays.
func ParseChunk(root *nbt.Compound) (*Chunk, error) {
	c := &Chunk{sections: map[int]*Section{}}
	holder := root
	if level, ok := root.Compound("Level"); ok {
		holder = level
	}
	if x, ok := holder.Number("xPos"); ok {
		c.X = int(x)
	}
	if z, ok := holder.Number("zPos"); ok {
		c.Z = int(z)
	}
	list, ok := holder.List("sections")
	if !ok {
		list, ok = holder.List("Sections")
	}
	if !ok {
		return c, nil
	}
	for _, item := range list.Items {
		sc, ok := item.(*nbt.Compound)
		if !ok {
			return nil, fmt.Errorf("%w: section is %v", errs.ErrMalformedTag, item.Type())
		}
		y, _ := sc.Number("Y")
		sec, err := parseSection(sc)
		if err != nil {
			return nil, fmt.Errorf("section %d: %w", y, err)
		}
		if sec != nil {
			c.sections[int(int8(y))] = sec
		}
	}
	return c, nil
}

func parseSection(sc *nbt.Compound) (*Section, error) {
	if states, ok := sc.Compound("block_states"); ok {
		pal, _ := states.List("palette")
		words, _ := states.LongArray("data")
		return paletteSection(pal, words)
	}
	if pal, ok := sc.List("Palette"); ok {
		words, _ := sc.LongArray("BlockStates")
		return paletteSection(pal, words)
	}
	if blocks, ok := sc.ByteArray("Blocks"); ok {
		add, _ := sc.ByteArray("Add")
		data, _ := sc.ByteArray("Data")
		return legacySection(blocks, add, data)
	}
	// lighting-only sections
	return nil, nil
}

func paletteSection(pal *nbt.List, words []int64) (*Section, error) {
	if pal == nil || len(pal.Items) == 0 {
		return nil, nil
	}
	s := &Section{palette: make([]string, len(pal.Items))}
	for i, item := range pal.Items {
		id, err := schematic.PaletteEntry(item)
		if err != nil {
			return nil, err
		}
		s.palette[i] = id
	}
	if len(s.palette) == 1 {
		return s, nil
	}
	bits := packed.BitsFor(len(s.palette), minSectionBits)
	var err error
	// 1.16 and later stop entries at word boundaries, which needs more words
	// whenever 64 is not a multiple of the width.
	if len(words) >= packed.AlignedWords(sectionVolume, bits) && packed.AlignedWords(sectionVolume, bits) != packed.SpanningWords(sectionVolume, bits) {
		s.indices, err = packed.DecodeAligned(words, sectionVolume, bits)
	} else {
		s.indices, err = packed.Decode(words, sectionVolume, bits)
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}

func nibble(arr []byte, i int) byte {
	if i>>1 >= len(arr) {
		return 0
	}
	if i&1 == 0 {
		return arr[i>>1] & 0x0f
	}
	return arr[i>>1] >> 4
}

func legacySection(blocks, add, data []byte) (*Section, error) {
	if len(blocks) < sectionVolume {
		return nil, fmt.Errorf("%w: %d block bytes in section", errs.ErrMalformedTag, len(blocks))
	}
	s := &Section{
		palette: []string{define.AirBlock.String()},
		indices: make([]uint32, sectionVolume),
	}
	seen := map[int]uint32{}
	for i := 0; i < sectionVolume; i++ {
		id := int(blocks[i]) | int(nibble(add, i))<<8
		if id == 0 {
			continue
		}
		key := id<<4 | int(nibble(data, i))
		p, ok := seen[key]
		if !ok {
			p = uint32(len(s.palette))
			s.palette = append(s.palette, schematic.LegacyKey(id, key&0x0f))
			seen[key] = p
		}
		s.indices[i] = p
	}
	return s, nil
}
