// Package transform wraps volumes in lazy geometric views. No transform
// copies voxels; each accessor maps its coordinates back to the source.
package transform

import (
	"fmt"

	"omevox/builder/volume"
)

// NormalizeDegrees maps any multiple of 90 into [0, 360).
func NormalizeDegrees(deg int) (int, error) {
	if deg%90 != 0 {
		return 0, fmt.Errorf("rotation %d is not a multiple of 90", deg)
	}
	deg %= 360
	if deg < 0 {
		deg += 360
	}
	return deg, nil
}

// RotatedDims swaps width and length for quarter turns.
func RotatedDims(d volume.Dims, deg int) volume.Dims {
	if deg == 90 || deg == 270 {
		return volume.Dims{Width: d.Length, Height: d.Height, Length: d.Width}
	}
	return d
}

// RotatePoint maps a source (x, z) in a volume of dims d to the rotated view.
func RotatePoint(x, z int, d volume.Dims, deg int) (int, int) {
	switch deg {
	case 90:
		return d.Length - 1 - z, x
	case 180:
		return d.Width - 1 - x, d.Length - 1 - z
	case 270:
		return z, d.Width - 1 - x
	}
	return x, z
}

// unrotatePoint maps a rotated (x, z) back to the source of dims d.
func unrotatePoint(x, z int, d volume.Dims, deg int) (int, int) {
	switch deg {
	case 90:
		return z, d.Length - 1 - x
	case 180:
		return d.Width - 1 - x, d.Length - 1 - z
	case 270:
		return d.Width - 1 - z, x
	}
	return x, z
}

type Rotated struct {
	src  volume.Volume
	deg  int
	dims volume.Dims
	memo *tokenMemo
}

// Rotate turns v clockwise (seen from above) by deg, a multiple of 90.
func Rotate(v volume.Volume, deg int) (volume.Volume, error) {
	deg, err := NormalizeDegrees(deg)
	if err != nil {
		return nil, err
	}
	if deg == 0 {
		return v, nil
	}
	r := &Rotated{src: v, deg: deg, dims: RotatedDims(v.Dims(), deg)}
	r.memo = newTokenMemo(func(id string) string { return RotateState(id, deg) })
	return r, nil
}

func (r *Rotated) Dims() volume.Dims { return r.dims }

func (r *Rotated) Block(index int) string {
	x, y, z := r.dims.Coords(index)
	sd := r.src.Dims()
	sx, sz := unrotatePoint(x, z, sd, r.deg)
	return r.memo.get(r.src.Block(sd.Index(sx, y, sz)))
}
