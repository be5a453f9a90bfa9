// Package structure builds .mcstructure files from placement commands.
package structure

import (
	"fmt"
	"sort"
	"strconv"

	"omevox/builder/define"
	errs "omevox/define"
	"omevox/nbt"
)

const (
	// MaxHorizontal caps width and length.
	MaxHorizontal = 250
	FormatVersion = 1
	// BlockVersion is the block state version stamped on palette entries.
	BlockVersion = 17959425

	noBlock = -1
)

// State is one typed block state.
type State struct {
	Key   string
	Value nbt.Tag
}

type PaletteEntry struct {
	Name   string
	States []State
}

// File is a structure in Bedrock layout: index = x*(h*l) + y*l + z. Layer
// 1 (waterlogging) is always empty.
type File struct {
	Size    [3]int32
	Layers  [2][]int32
	Palette []PaletteEntry
	Origin  [3]int32
}

// typedState converts a textual state value: true/false become Byte,
// integers Int, everything else String.
func typedState(v string) nbt.Tag {
	switch v {
	case "true":
		return nbt.Byte(1)
	case "false":
		return nbt.Byte(0)
	}
	if n, err := strconv.ParseInt(v, 10, 32); err == nil {
		return nbt.Int(int32(n))
	}
	return nbt.String(v)
}

// NewPaletteEntry splits a block id into a name and typed, key sorted states.
func NewPaletteEntry(id string) PaletteEntry {
	b := define.ParseBlockDescribe(id)
	props := b.Properties()
	keys := make([]string, 0, len(props))
	for k := range props {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	e := PaletteEntry{Name: b.Name}
	for _, k := range keys {
		e.States = append(e.States, State{Key: k, Value: typedState(props[k])})
	}
	return e
}

func (f *File) index(x, y, z int32) int {
	return int(x*(f.Size[1]*f.Size[2]) + y*f.Size[2] + z)
}

// Build paints cmds into a structure sized to their bounding box. Air
// commands clear cells. The bounding box minimum becomes the origin.
func Build(cmds []define.Command) (*File, error) {
	var lo, hi define.Pos
	found := false
	for _, c := range cmds {
		if define.IsAir(c.Block) {
			continue
		}
		if !found {
			lo, hi, found = c.Min, c.Max, true
			continue
		}
		for a := 0; a < 3; a++ {
			lo[a] = min(lo[a], c.Min[a])
			hi[a] = max(hi[a], c.Max[a])
		}
	}
	if !found {
		return nil, fmt.Errorf("%w: no blocks to place", errs.ErrEmptyResult)
	}
	f := &File{Origin: [3]int32{int32(lo[0]), int32(lo[1]), int32(lo[2])}}
	for a := 0; a < 3; a++ {
		f.Size[a] = int32(hi[a]-lo[a]) + 1
	}
	if f.Size[0] > MaxHorizontal || f.Size[2] > MaxHorizontal {
		return nil, fmt.Errorf("%w: structure is %dx%d, limit is %d", errs.ErrBoundsExceeded, f.Size[0], f.Size[2], MaxHorizontal)
	}
	total := int(f.Size[0]) * int(f.Size[1]) * int(f.Size[2])
	for l := range f.Layers {
		f.Layers[l] = make([]int32, total)
		for i := range f.Layers[l] {
			f.Layers[l][i] = noBlock
		}
	}

	palette := map[string]int32{}
	for _, c := range cmds {
		var k int32 = noBlock
		if !define.IsAir(c.Block) {
			id := define.Canonical(c.Block)
			var ok bool
			if k, ok = palette[id]; !ok {
				k = int32(len(f.Palette))
				f.Palette = append(f.Palette, NewPaletteEntry(id))
				palette[id] = k
			}
		}
		for x := c.Min[0]; x <= c.Max[0]; x++ {
			for y := c.Min[1]; y <= c.Max[1]; y++ {
				for z := c.Min[2]; z <= c.Max[2]; z++ {
					f.Layers[0][f.index(int32(x-lo[0]), int32(y-lo[1]), int32(z-lo[2]))] = k
				}
			}
		}
	}
	return f, nil
}

// Blocks counts filled cells of layer 0.
func (f *File) Blocks() int {
	n := 0
	for _, k := range f.Layers[0] {
		if k != noBlock {
			n++
		}
	}
	return n
}

// At returns the palette entry at structure coordinates, nil if empty.
func (f *File) At(x, y, z int32) *PaletteEntry {
	k := f.Layers[0][f.index(x, y, z)]
	if k == noBlock {
		return nil
	}
	return &f.Palette[k]
}

func intList(vs ...int32) *nbt.List {
	items := make([]nbt.Tag, len(vs))
	for i, v := range vs {
		items[i] = nbt.Int(v)
	}
	return nbt.NewList(nbt.TagInt, items...)
}

// Tree returns the tag tree of the file.
func (f *File) Tree() *nbt.Compound {
	layers := nbt.NewList(nbt.TagList, intList(f.Layers[0]...), intList(f.Layers[1]...))
	blocks := make([]nbt.Tag, len(f.Palette))
	for i, e := range f.Palette {
		states := nbt.NewCompound()
		for _, s := range e.States {
			states.Set(s.Key, s.Value)
		}
		blocks[i] = nbt.NewCompound().
			Set("name", nbt.String(e.Name)).
			Set("states", states).
			Set("version", nbt.Int(BlockVersion))
	}
	palette := nbt.NewCompound().Set("default", nbt.NewCompound().
		Set("block_palette", nbt.NewList(nbt.TagCompound, blocks...)).
		Set("block_position_data", nbt.NewCompound()))

	return nbt.NewCompound().
		Set("format_version", nbt.Int(FormatVersion)).
		Set("size", intList(f.Size[:]...)).
		Set("structure", nbt.NewCompound().
			Set("block_indices", layers).
			Set("entities", nbt.NewList(nbt.TagCompound)).
			Set("palette", palette)).
		Set("structure_world_origin", intList(f.Origin[:]...))
}

// Encode writes the little-endian structure file.
func (f *File) Encode() ([]byte, error) {
	return nbt.EncodeLittle("", f.Tree(), 64+len(f.Layers[0])*8)
}
