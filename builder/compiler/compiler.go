// Package compiler turns a volume into setblock/fill commands by greedy
// box merging.
package compiler

import (
	"context"
	"fmt"
	"sort"

	"omevox/builder/define"
	"omevox/builder/transform"
	"omevox/builder/volume"
	errs "omevox/define"
)

const progressEvery = 1 << 16

type Options struct {
	// Relative prints coordinates as ~dx ~dy ~dz from the minimum
	// occupied voxel.
	Relative bool
	// Offset is added to every coordinate.
	Offset   define.Pos
	Progress func(done, total int)
	// BelowBoundsBarriers are compiled first, merged per Y level.
	BelowBoundsBarriers []define.Pos
}

// grid is the volume flattened to palette indices, 0 being air or null.
type grid struct {
	d       volume.Dims
	cells   []uint32
	palette []string
	visited []bool
	min     define.Pos
	any     bool
}

func snapshot(ctx context.Context, v volume.Volume) (*grid, error) {
	d := v.Dims()
	total := d.Volume()
	g := &grid{d: d, cells: make([]uint32, total), palette: []string{""}, visited: make([]bool, total)}
	index := map[string]uint32{}
	for i := 0; i < total; i++ {
		if i%progressEvery == 0 {
			if err := errs.CheckContext(ctx); err != nil {
				return nil, err
			}
		}
		id := v.Block(i)
		if define.IsAir(id) {
			continue
		}
		k, ok := index[id]
		if !ok {
			k = uint32(len(g.palette))
			g.palette = append(g.palette, id)
			index[id] = k
		}
		g.cells[i] = k
		x, y, z := d.Coords(i)
		p := define.Pos{define.PE(x), define.PE(y), define.PE(z)}
		if !g.any {
			g.min, g.any = p, true
		}
		for a := 0; a < 3; a++ {
			if p[a] < g.min[a] {
				g.min[a] = p[a]
			}
		}
	}
	return g, nil
}

func (g *grid) free(x, y, z int, k uint32) bool {
	i := g.d.Index(x, y, z)
	return g.cells[i] == k && !g.visited[i]
}

func (g *grid) rowFree(x0, x1, y, z int, k uint32) bool {
	for x := x0; x <= x1; x++ {
		if !g.free(x, y, z, k) {
			return false
		}
	}
	return true
}

func (g *grid) rectFree(x0, x1, y, z0, z1 int, k uint32) bool {
	for z := z0; z <= z1; z++ {
		if !g.rowFree(x0, x1, y, z, k) {
			return false
		}
	}
	return true
}

// grow expands the box at (x, y, z) along X, then Z over the whole X run,
// then Y over the whole rectangle, and marks it visited.
func (g *grid) grow(x, y, z int) (x1, y1, z1 int) {
	k := g.cells[g.d.Index(x, y, z)]
	x1, y1, z1 = x, y, z
	for x1+1 < g.d.Width && g.free(x1+1, y, z, k) {
		x1++
	}
	for z1+1 < g.d.Length && g.rowFree(x, x1, y, z1+1, k) {
		z1++
	}
	for y1+1 < g.d.Height && g.rectFree(x, x1, y1+1, z, z1, k) {
		y1++
	}
	for yy := y; yy <= y1; yy++ {
		for zz := z; zz <= z1; zz++ {
			for xx := x; xx <= x1; xx++ {
				g.visited[g.d.Index(xx, yy, zz)] = true
			}
		}
	}
	return
}

type placer struct {
	opts Options
	base define.Pos
}

func (p placer) command(min, max define.Pos, block string) define.Command {
	for a := 0; a < 3; a++ {
		min[a] += p.opts.Offset[a] - p.base[a]
		max[a] += p.opts.Offset[a] - p.base[a]
	}
	c := define.NewCommand(min, max, block)
	c.Relative = p.opts.Relative
	return c
}

// Compile emits commands in scan order (X fastest, then Z, then Y). Air and
// null voxels are never placed. The output is deterministic for a given
// volume and options.
func Compile(ctx context.Context, v volume.Volume, opts Options) ([]define.Command, error) {
	report := opts.Progress
	if report == nil {
		report = func(int, int) {}
	}
	g, err := snapshot(ctx, v)
	if err != nil {
		return nil, err
	}
	p := placer{opts: opts}
	if opts.Relative && g.any {
		p.base = g.min
	}

	cmds := barriers(opts.BelowBoundsBarriers, p)
	total := g.d.Volume()
	for i := 0; i < total; i++ {
		if i%progressEvery == 0 {
			if err := errs.CheckContext(ctx); err != nil {
				return nil, err
			}
			report(i, total)
		}
		if g.cells[i] == 0 || g.visited[i] {
			continue
		}
		x, y, z := g.d.Coords(i)
		x1, y1, z1 := g.grow(x, y, z)
		cmds = append(cmds, p.command(
			define.Pos{define.PE(x), define.PE(y), define.PE(z)},
			define.Pos{define.PE(x1), define.PE(y1), define.PE(z1)},
			g.palette[g.cells[i]],
		))
	}
	report(total, total)
	if len(cmds) == 0 {
		return nil, fmt.Errorf("%w: volume has no placeable blocks", errs.ErrEmptyResult)
	}
	return cmds, nil
}

// Barriers compiles below-bounds barrier positions on their own, merged
// into rectangles one Y level at a time. Relative and Offset apply as in
// Compile, with positions taken as already relative.
func Barriers(points []define.Pos, opts Options) []define.Command {
	return barriers(points, placer{opts: opts})
}

func barriers(points []define.Pos, p placer) []define.Command {
	if len(points) == 0 {
		return nil
	}
	levels := map[define.PE]map[[2]define.PE]bool{}
	for _, pt := range points {
		if levels[pt[1]] == nil {
			levels[pt[1]] = map[[2]define.PE]bool{}
		}
		levels[pt[1]][[2]define.PE{pt[0], pt[2]}] = true
	}
	ys := make([]int, 0, len(levels))
	for y := range levels {
		ys = append(ys, int(y))
	}
	sort.Ints(ys)

	var out []define.Command
	for _, yi := range ys {
		y := define.PE(yi)
		set := levels[y]
		cells := make([][2]define.PE, 0, len(set))
		for c := range set {
			cells = append(cells, c)
		}
		sort.Slice(cells, func(i, j int) bool {
			if cells[i][1] != cells[j][1] {
				return cells[i][1] < cells[j][1]
			}
			return cells[i][0] < cells[j][0]
		})
		for _, c := range cells {
			if !set[c] {
				continue
			}
			x0, z0 := c[0], c[1]
			x1, z1 := x0, z0
			for set[[2]define.PE{x1 + 1, z0}] {
				x1++
			}
		grow:
			for {
				for x := x0; x <= x1; x++ {
					if !set[[2]define.PE{x, z1 + 1}] {
						break grow
					}
				}
				z1++
			}
			for z := z0; z <= z1; z++ {
				for x := x0; x <= x1; x++ {
					delete(set, [2]define.PE{x, z})
				}
			}
			out = append(out, p.command(define.Pos{x0, y, z0}, define.Pos{x1, y, z1}, transform.Barrier))
		}
	}
	return out
}
