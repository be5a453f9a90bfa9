package transform

import (
	"omevox/builder/define"
	"omevox/builder/volume"
)

type Options struct {
	Rotate     int
	Mirror     Axes
	Hollow     bool
	Classifier *Classifier
	Gravity    bool
}

type Output struct {
	Volume              volume.Volume
	BelowBoundsBarriers []define.Pos
}

// Apply composes rotate, mirror, hollow and gravity in that order.
func Apply(v volume.Volume, opts Options) (*Output, error) {
	v, err := Rotate(v, opts.Rotate)
	if err != nil {
		return nil, err
	}
	v = Mirror(v, opts.Mirror)
	if opts.Hollow {
		v = Hollow(v, opts.Classifier)
	}
	out := &Output{Volume: v}
	if opts.Gravity {
		s := Gravity(v)
		out.Volume = s
		out.BelowBoundsBarriers = s.BelowBoundsBarriers
	}
	return out, nil
}
