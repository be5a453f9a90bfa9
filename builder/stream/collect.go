package stream

import (
	"context"

	"omevox/builder/define"
	"omevox/builder/ir"
	errs "omevox/define"
)

// Collector materializes a source into an IR positioned at the origin.
type Collector struct {
	store *ir.IR
	meta  Metadata
	done  chan struct{}
	err   error
}

func Collect(src Source) *Collector {
	c := &Collector{store: ir.NewIR(nil), done: make(chan struct{})}
	src.OnMetadata(func(m Metadata) {
		c.meta = m
		c.store.Fix(define.Pos{}, m.Dims)
	})
	src.OnBlock(func(b Block) {
		c.store.SetBlockString(define.PE(b.X), define.PE(b.Y), define.PE(b.Z), b.ID)
	})
	src.OnComplete(func() { close(c.done) })
	src.OnError(func(err error) {
		c.err = err
		close(c.done)
	})
	return c
}

// Wait blocks until the source finishes. The IR is indexed from zero;
// origin is where its index 0 sits in the world.
func (c *Collector) Wait(ctx context.Context) (*ir.IR, define.Pos, error) {
	select {
	case <-c.done:
	case <-ctx.Done():
		return nil, define.Pos{}, errs.CheckContext(ctx)
	}
	if c.err != nil {
		return nil, define.Pos{}, c.err
	}
	return c.store, c.meta.Origin, nil
}
