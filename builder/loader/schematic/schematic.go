// Package schematic turns the schematic family of tag-tree files into one
// palette volume.
package schematic

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"omevox/builder/volume"
	"omevox/define"
	"omevox/nbt"
)

type Kind string

const (
	KindLegacyFlat       Kind = "legacy_flat"
	KindPaletteLongArray Kind = "palette_long_array"
	KindPaletteByteArray Kind = "palette_byte_array"
	KindPaletteNested    Kind = "palette_nested"
	KindMultiRegion      Kind = "multi_region"
	KindGeneric          Kind = "generic"
)

// progressEvery is how many voxels pass between progress calls and
// cancellation checks.
const progressEvery = 1 << 16

type Options struct {
	// Progress is called with voxels done and total, may be nil.
	Progress func(done, total int)
	Log      logrus.FieldLogger
}

type Result struct {
	Format        Kind
	Volume        *volume.PaletteVolume
	Offset        [3]int
	DataVersion   int
	BlockEntities []*nbt.Compound
}

// Ingest decompresses and decodes data, then normalizes it.
func Ingest(ctx context.Context, data []byte, opts Options) (*Result, error) {
	_, root, err := nbt.Decode(data)
	if err != nil {
		return nil, err
	}
	return IngestTree(ctx, root, opts)
}

// IngestTree normalizes an already decoded root.
func IngestTree(ctx context.Context, root *nbt.Compound, opts Options) (*Result, error) {
	if opts.Log == nil {
		opts.Log = logrus.StandardLogger()
	}
	root = unwrap(root)
	kind, node := Classify(root)
	if node == nil {
		return nil, fmt.Errorf("%w: no palette and block array found", define.ErrUnsupportedFormat)
	}
	opts.Log.WithField("format", kind).Debug("schematic classified")
	s := &session{ctx: ctx, opts: opts}
	var res *Result
	var err error
	switch kind {
	case KindLegacyFlat:
		res, err = s.legacyFlat(node)
	case KindPaletteByteArray:
		res, err = s.paletteVarint(node, node)
	case KindPaletteNested:
		blocks, _ := node.Compound("Blocks")
		res, err = s.paletteVarint(node, blocks)
	case KindPaletteLongArray:
		res, err = s.paletteLongArray(node)
	case KindMultiRegion:
		res, err = s.multiRegion(node)
	case KindGeneric:
		res, err = s.generic(node)
	}
	if err != nil {
		return nil, err
	}
	res.Format = kind
	if v, ok := node.Number("DataVersion"); ok {
		res.DataVersion = int(v)
	}
	return res, nil
}

// unwrap steps into a lone "Schematic" child, the newest palette layout
// nests everything there.
func unwrap(root *nbt.Compound) *nbt.Compound {
	if root.Len() == 1 {
		if inner, ok := root.Compound("Schematic"); ok {
			return inner
		}
	}
	return root
}

// Classify names the layout of root by the keys it carries. The returned
// compound is the one holding the data, nil if nothing matched.
func Classify(root *nbt.Compound) (Kind, *nbt.Compound) {
	if regions, ok := root.Compound("Regions"); ok && regions.Len() > 0 {
		return KindMultiRegion, root
	}
	if blocks, ok := root.Compound("Blocks"); ok && blocks.Has("Palette") && blocks.Has("Data") {
		return KindPaletteNested, root
	}
	if root.Has("Palette") {
		if _, ok := root.LongArray("BlockStates"); ok {
			return KindPaletteLongArray, root
		}
		if _, ok := root.ByteArray("BlockData"); ok {
			return KindPaletteByteArray, root
		}
	}
	if _, ok := root.ByteArray("Blocks"); ok && root.Has("Width") {
		return KindLegacyFlat, root
	}
	if node := findGeneric(root, 0); node != nil {
		return KindGeneric, node
	}
	return "", nil
}

type session struct {
	ctx  context.Context
	opts Options
}

// tick reports progress and checks cancellation every progressEvery voxels.
func (s *session) tick(done, total int) error {
	if done%progressEvery != 0 {
		return nil
	}
	if s.opts.Progress != nil {
		s.opts.Progress(done, total)
	}
	return define.CheckContext(s.ctx)
}

func (s *session) finish(total int) {
	if s.opts.Progress != nil {
		s.opts.Progress(total, total)
	}
}

func dims(c *nbt.Compound) (volume.Dims, error) {
	w, okW := c.Number("Width")
	h, okH := c.Number("Height")
	l, okL := c.Number("Length")
	if !okW || !okH || !okL {
		return volume.Dims{}, fmt.Errorf("%w: missing Width/Height/Length", define.ErrUnsupportedFormat)
	}
	var axes [3]int
	for i, v := range [3]int64{w, h, l} {
		switch {
		case v >= 0 && v <= 0xffff:
			axes[i] = int(v)
		case v < 0 && v >= -0x8000:
			// shorts above 32767 are stored negative
			axes[i] = int(uint16(v))
		default:
			return volume.Dims{}, fmt.Errorf("%w: dimension %d out of range", define.ErrMalformedTag, v)
		}
	}
	d := volume.Dims{Width: axes[0], Height: axes[1], Length: axes[2]}
	return d, d.Check()
}

func offsetOf(c *nbt.Compound) [3]int {
	var off [3]int
	if arr, ok := c.IntArray("Offset"); ok && len(arr) >= 3 {
		return [3]int{int(arr[0]), int(arr[1]), int(arr[2])}
	}
	for i, k := range []string{"WEOffsetX", "WEOffsetY", "WEOffsetZ"} {
		if v, ok := c.Number(k); ok {
			off[i] = int(v)
		}
	}
	return off
}

func blockEntities(cs ...*nbt.Compound) []*nbt.Compound {
	var out []*nbt.Compound
	for _, c := range cs {
		if c == nil {
			continue
		}
		for _, key := range []string{"BlockEntities", "TileEntities"} {
			l, ok := c.List(key)
			if !ok {
				continue
			}
			for _, item := range l.Items {
				if be, ok := item.(*nbt.Compound); ok {
					out = append(out, be)
				}
			}
		}
	}
	return out
}
