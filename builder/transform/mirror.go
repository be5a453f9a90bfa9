package transform

import (
	"fmt"
	"strings"

	"omevox/builder/volume"
)

type Axes uint8

const (
	AxisX Axes = 1 << iota
	AxisY
	AxisZ
)

// ParseAxes reads a set like "x", "xz" or "x,y".
func ParseAxes(s string) (Axes, error) {
	var a Axes
	for _, r := range strings.ToLower(s) {
		switch r {
		case 'x':
			a |= AxisX
		case 'y':
			a |= AxisY
		case 'z':
			a |= AxisZ
		case ',', ' ':
		default:
			return 0, fmt.Errorf("unknown mirror axis %q", r)
		}
	}
	return a, nil
}

// MirrorPoint reflects a coordinate about the volume's own extent.
func MirrorPoint(x, y, z int, d volume.Dims, axes Axes) (int, int, int) {
	if axes&AxisX != 0 {
		x = d.Width - 1 - x
	}
	if axes&AxisY != 0 {
		y = d.Height - 1 - y
	}
	if axes&AxisZ != 0 {
		z = d.Length - 1 - z
	}
	return x, y, z
}

type Mirrored struct {
	src  volume.Volume
	axes Axes
	memo *tokenMemo
}

func Mirror(v volume.Volume, axes Axes) volume.Volume {
	if axes == 0 {
		return v
	}
	m := &Mirrored{src: v, axes: axes}
	m.memo = newTokenMemo(func(id string) string { return MirrorState(id, axes) })
	return m
}

func (m *Mirrored) Dims() volume.Dims { return m.src.Dims() }

func (m *Mirrored) Block(index int) string {
	d := m.src.Dims()
	x, y, z := d.Coords(index)
	x, y, z = MirrorPoint(x, y, z, d, m.axes)
	return m.memo.get(m.src.Block(d.Index(x, y, z)))
}
