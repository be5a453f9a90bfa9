package stream

import (
	"omevox/builder/define"
	"omevox/builder/ir"
	"omevox/builder/transform"
	"omevox/builder/volume"
)

// Stage wraps a source into another.
type Stage func(Source) Source

// Chain applies stages left to right.
func Chain(src Source, stages ...Stage) Source {
	for _, st := range stages {
		src = st(src)
	}
	return src
}

// relay subscribes to src and forwards through a new emitter, letting the
// caller rewrite metadata and blocks. A nil block result drops the block.
func relay(src Source, meta func(Metadata) Metadata, block func(Block) (Block, bool)) Source {
	out := NewEmitter()
	src.OnMetadata(func(m Metadata) { out.Metadata(meta(m)) })
	src.OnBlock(func(b Block) {
		if nb, ok := block(b); ok {
			out.Block(nb)
		}
	})
	src.OnComplete(out.Complete)
	src.OnError(out.Error)
	return out
}

// Rotate turns blocks clockwise by deg. Upstream metadata arrives before
// any block, so the source dims are known when blocks are mapped.
func Rotate(deg int) (Stage, error) {
	deg, err := transform.NormalizeDegrees(deg)
	if err != nil {
		return nil, err
	}
	return func(src Source) Source {
		var d volume.Dims
		return relay(src, func(m Metadata) Metadata {
			d = m.Dims
			m.Dims = transform.RotatedDims(m.Dims, deg)
			return m
		}, func(b Block) (Block, bool) {
			b.X, b.Z = transform.RotatePoint(b.X, b.Z, d, deg)
			b.ID = transform.RotateState(b.ID, deg)
			return b, true
		})
	}, nil
}

func Mirror(axes transform.Axes) Stage {
	return func(src Source) Source {
		var d volume.Dims
		return relay(src, func(m Metadata) Metadata {
			d = m.Dims
			return m
		}, func(b Block) (Block, bool) {
			b.X, b.Y, b.Z = transform.MirrorPoint(b.X, b.Y, b.Z, d, axes)
			b.ID = transform.MirrorState(b.ID, axes)
			return b, true
		})
	}
}

// Translate moves the origin, block coordinates stay relative.
func Translate(dx, dy, dz int) Stage {
	return func(src Source) Source {
		return relay(src, func(m Metadata) Metadata {
			m.Origin[0] += define.PE(dx)
			m.Origin[1] += define.PE(dy)
			m.Origin[2] += define.PE(dz)
			return m
		}, func(b Block) (Block, bool) { return b, true })
	}
}

// Map rewrites block ids; an air or empty result drops the block.
func Map(fn func(string) string) Stage {
	return func(src Source) Source {
		return relay(src, func(m Metadata) Metadata { return m }, func(b Block) (Block, bool) {
			b.ID = fn(b.ID)
			return b, !define.IsAir(b.ID)
		})
	}
}

// buffered collects the whole upstream into an IR, then hands the
// materialized volume to finish, which emits on out.
func buffered(src Source, finish func(v volume.Volume, m Metadata, out *Emitter)) Source {
	out := NewEmitter()
	var m Metadata
	store := ir.NewIR(nil)
	src.OnMetadata(func(md Metadata) {
		m = md
		store.Fix(define.Pos{}, md.Dims)
	})
	src.OnBlock(func(b Block) {
		store.SetBlockString(define.PE(b.X), define.PE(b.Y), define.PE(b.Z), b.ID)
	})
	src.OnError(out.Error)
	src.OnComplete(func() {
		finish(store, m, out)
	})
	return out
}

func emitVolume(v volume.Volume, yShift int, out *Emitter) {
	d := v.Dims()
	total := d.Volume()
	for i := 0; i < total; i++ {
		id := v.Block(i)
		if define.IsAir(id) {
			continue
		}
		x, y, z := d.Coords(i)
		out.Block(Block{X: x, Y: y + yShift, Z: z, ID: id})
	}
}

// Hollow buffers until completion; the check needs all six neighbours.
func Hollow(cls *transform.Classifier) Stage {
	return func(src Source) Source {
		return buffered(src, func(v volume.Volume, m Metadata, out *Emitter) {
			out.Metadata(m)
			emitVolume(transform.Hollow(v, cls), 0, out)
			out.Complete()
		})
	}
}

// Gravity buffers until completion. When a barrier is needed under the
// bottom layer the box grows by one block downwards.
func Gravity() Stage {
	return func(src Source) Source {
		return buffered(src, func(v volume.Volume, m Metadata, out *Emitter) {
			s := transform.Gravity(v)
			shift := 0
			if len(s.BelowBoundsBarriers) > 0 {
				shift = 1
				m.Dims.Height++
				m.Origin[1]--
			}
			out.Metadata(m)
			for _, p := range s.BelowBoundsBarriers {
				out.Block(Block{X: int(p[0]), Y: 0, Z: int(p[2]), ID: transform.Barrier})
			}
			emitVolume(s, shift, out)
			out.Complete()
		})
	}
}
