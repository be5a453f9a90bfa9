package schematic

import (
	"fmt"

	"github.com/brentp/intintmap"

	"omevox/builder/volume"
	"omevox/define"
	"omevox/nbt"
	"omevox/packed"
)

type region struct {
	name    string
	pos     [3]int
	size    [3]int
	palette *nbt.List
	states  []int64
}

func (r *region) dims() volume.Dims {
	return volume.Dims{Width: abs(r.size[0]), Height: abs(r.size[1]), Length: abs(r.size[2])}
}

// world maps a local coordinate on one axis. A negative size means the
// axis was stored reflected.
func (r *region) world(axis, local int) int {
	s := r.size[axis]
	if s < 0 {
		return r.pos[axis] + (-s - 1 - local)
	}
	return r.pos[axis] + local
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func vec3(c *nbt.Compound, name string) ([3]int, bool) {
	if v, ok := c.Compound(name); ok {
		x, okX := v.Number("x")
		y, okY := v.Number("y")
		z, okZ := v.Number("z")
		return [3]int{int(x), int(y), int(z)}, okX && okY && okZ
	}
	if arr, ok := c.IntArray(name); ok && len(arr) >= 3 {
		return [3]int{int(arr[0]), int(arr[1]), int(arr[2])}, true
	}
	return [3]int{}, false
}

func readRegions(regions *nbt.Compound) ([]*region, error) {
	out := make([]*region, 0, regions.Len())
	for _, name := range regions.Names() {
		rc, ok := regions.Compound(name)
		if !ok {
			continue
		}
		r := &region{name: name}
		if r.pos, ok = vec3(rc, "Position"); !ok {
			return nil, fmt.Errorf("%w: region %q has no Position", define.ErrMalformedTag, name)
		}
		if r.size, ok = vec3(rc, "Size"); !ok {
			return nil, fmt.Errorf("%w: region %q has no Size", define.ErrMalformedTag, name)
		}
		if r.palette, ok = rc.List("BlockStatePalette"); !ok {
			return nil, fmt.Errorf("%w: region %q has no BlockStatePalette", define.ErrMalformedTag, name)
		}
		r.states, _ = rc.LongArray("BlockStates")
		out = append(out, r)
	}
	return out, nil
}

// multiRegion merges every region into one volume spanning their union.
// Regions are applied in stored order and the last one to write a cell
// wins, air included.
func (s *session) multiRegion(c *nbt.Compound) (*Result, error) {
	regionsTag, _ := c.Compound("Regions")
	regions, err := readRegions(regionsTag)
	if err != nil {
		return nil, err
	}
	if len(regions) == 0 {
		return nil, fmt.Errorf("%w: empty Regions", define.ErrUnsupportedFormat)
	}
	var min, max [3]int
	total := 0
	// sizes are checked against the stored words before anything is allocated
	for i, r := range regions {
		rd := r.dims()
		if err := rd.Check(); err != nil {
			return nil, fmt.Errorf("region %q: %w", r.name, err)
		}
		if need := packed.SpanningWords(rd.Volume(), packed.BitsFor(len(r.palette.Items), 2)); len(r.states) < need {
			return nil, fmt.Errorf("%w: region %q has %d of %d BlockStates words", define.ErrMalformedTag, r.name, len(r.states), need)
		}
		total += rd.Volume()
		for a := 0; a < 3; a++ {
			lo, hi := r.pos[a], r.pos[a]+abs(r.size[a])-1
			if i == 0 || lo < min[a] {
				min[a] = lo
			}
			if i == 0 || hi > max[a] {
				max[a] = hi
			}
		}
	}
	d := volume.Dims{Width: max[0] - min[0] + 1, Height: max[1] - min[1] + 1, Length: max[2] - min[2] + 1}
	if err := d.Check(); err != nil {
		return nil, err
	}
	vol := volume.NewPaletteVolume(d)
	pb := newPaletteBuilder()
	var entities []*nbt.Compound
	done := 0
	for _, r := range regions {
		remap := intintmap.New(len(r.palette.Items)+1, 0.75)
		for local, item := range r.palette.Items {
			name, err := PaletteEntry(item)
			if err != nil {
				return nil, fmt.Errorf("region %q: %w", r.name, err)
			}
			remap.Put(int64(local), int64(pb.id(name)))
		}
		rd := r.dims()
		n := rd.Volume()
		locals, err := packed.Decode(r.states, n, packed.BitsFor(len(r.palette.Items), 2))
		if err != nil {
			return nil, fmt.Errorf("region %q: %w", r.name, err)
		}
		for i := 0; i < n; i++ {
			if err := s.tick(done, total); err != nil {
				return nil, err
			}
			done++
			g, ok := remap.Get(int64(locals[i]))
			if !ok {
				return nil, fmt.Errorf("%w: region %q palette index %d out of %d", define.ErrMalformedTag, r.name, locals[i], len(r.palette.Items))
			}
			x, y, z := rd.Coords(i)
			wx, wy, wz := r.world(0, x)-min[0], r.world(1, y)-min[1], r.world(2, z)-min[2]
			vol.Indices[d.Index(wx, wy, wz)] = uint32(g)
		}
		if rc, ok := regionsTag.Compound(r.name); ok {
			entities = append(entities, blockEntities(rc)...)
		}
	}
	s.finish(total)
	vol.Palette = pb.ids
	return &Result{Volume: vol, Offset: min, BlockEntities: entities}, nil
}
