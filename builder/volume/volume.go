// Package volume holds the accessor every stage of the pipeline reads from.
// Voxels are addressed by index = x + z*Width + y*Width*Length.
package volume

import (
	"fmt"

	"omevox/builder/define"
	errs "omevox/define"
)

// MaxVoxels caps a dense volume. Indices are four bytes each, so this is 1 GiB.
const MaxVoxels = 1 << 28

type Dims struct {
	Width, Height, Length int
}

// Check rejects negative axes and sizes above MaxVoxels. It never
// multiplies past the cap, so absurd header values cannot overflow.
func (d Dims) Check() error {
	if d.Width < 0 || d.Height < 0 || d.Length < 0 {
		return fmt.Errorf("%w: negative size %dx%dx%d", errs.ErrMalformedTag, d.Width, d.Height, d.Length)
	}
	n := 1
	for _, a := range [3]int{d.Width, d.Height, d.Length} {
		if a == 0 {
			return nil
		}
		if a > MaxVoxels/n {
			return fmt.Errorf("%w: size %dx%dx%d is above %d voxels", errs.ErrBoundsExceeded, d.Width, d.Height, d.Length, MaxVoxels)
		}
		n *= a
	}
	return nil
}

func (d Dims) Volume() int {
	return d.Width * d.Height * d.Length
}

func (d Dims) Index(x, y, z int) int {
	return x + z*d.Width + y*d.Width*d.Length
}

func (d Dims) Coords(index int) (x, y, z int) {
	plane := d.Width * d.Length
	y = index / plane
	rem := index % plane
	return rem % d.Width, y, rem / d.Width
}

func (d Dims) Contains(x, y, z int) bool {
	return x >= 0 && y >= 0 && z >= 0 && x < d.Width && y < d.Height && z < d.Length
}

// Volume yields the block id at an index, "" meaning no block.
type Volume interface {
	Dims() Dims
	Block(index int) string
}

// At reads (x, y, z), returning "" outside the volume.
func At(v Volume, x, y, z int) string {
	d := v.Dims()
	if !d.Contains(x, y, z) {
		return ""
	}
	return v.Block(d.Index(x, y, z))
}

// Func adapts a lookup function.
type Func struct {
	Size   Dims
	Lookup func(index int) string
}

func (f Func) Dims() Dims { return f.Size }

func (f Func) Block(index int) string { return f.Lookup(index) }

// PaletteVolume is a dense index array over a palette. Index 0 is air.
type PaletteVolume struct {
	Size    Dims
	Palette []string
	Indices []uint32
}

func NewPaletteVolume(d Dims) *PaletteVolume {
	return &PaletteVolume{
		Size:    d,
		Palette: []string{define.AirBlock.String()},
		Indices: make([]uint32, d.Volume()),
	}
}

func (p *PaletteVolume) Dims() Dims { return p.Size }

func (p *PaletteVolume) Block(index int) string {
	if index < 0 || index >= len(p.Indices) {
		return ""
	}
	i := p.Indices[index]
	if int(i) >= len(p.Palette) {
		return ""
	}
	return p.Palette[i]
}

// Window is a sub-box of Base starting at Origin, clipped to Base.
type Window struct {
	Base   Volume
	Origin [3]int
	Size   Dims
}

func NewWindow(base Volume, origin [3]int, size Dims) *Window {
	bd := base.Dims()
	clip := func(o, s, max int) int {
		if o+s > max {
			s = max - o
		}
		if s < 0 {
			s = 0
		}
		return s
	}
	return &Window{
		Base:   base,
		Origin: origin,
		Size: Dims{
			Width:  clip(origin[0], size.Width, bd.Width),
			Height: clip(origin[1], size.Height, bd.Height),
			Length: clip(origin[2], size.Length, bd.Length),
		},
	}
}

func (w *Window) Dims() Dims { return w.Size }

func (w *Window) Block(index int) string {
	x, y, z := w.Size.Coords(index)
	return At(w.Base, x+w.Origin[0], y+w.Origin[1], z+w.Origin[2])
}

// Occupied counts voxels that are not air or null.
func Occupied(v Volume) int {
	n := 0
	total := v.Dims().Volume()
	for i := 0; i < total; i++ {
		if !define.IsAir(v.Block(i)) {
			n++
		}
	}
	return n
}

// Equal compares dimensions and every voxel, treating air and null alike.
func Equal(a, b Volume) bool {
	if a.Dims() != b.Dims() {
		return false
	}
	total := a.Dims().Volume()
	for i := 0; i < total; i++ {
		x, y := a.Block(i), b.Block(i)
		if define.IsAir(x) && define.IsAir(y) {
			continue
		}
		if x != y {
			return false
		}
	}
	return true
}
