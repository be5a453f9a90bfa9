// Package stream carries voxels as push events for sources that decode
// incrementally, such as region extraction.
package stream

import (
	"errors"
	"sync"

	"omevox/builder/define"
	"omevox/builder/volume"
)

// ErrNoMetadata is delivered when a source completes without metadata.
var ErrNoMetadata = errors.New("stream: completed before metadata")

// Metadata describes the box blocks are addressed in. Block coordinates
// are relative to Origin.
type Metadata struct {
	Dims   volume.Dims
	Origin define.Pos
}

type Block struct {
	X, Y, Z int
	ID      string
}

type Source interface {
	OnMetadata(func(Metadata))
	OnBlock(func(Block))
	OnComplete(func())
	OnError(func(error))
}

// Emitter is a Source fed by its owner. Delivery is synchronous and in
// call order: blocks emitted before metadata wait in a queue, and only one
// of Complete or Error is ever delivered.
type Emitter struct {
	mu         sync.Mutex
	metaFns    []func(Metadata)
	blockFns   []func(Block)
	completeFn []func()
	errorFns   []func(error)

	meta    *Metadata
	pending []Block
	done    bool
}

func NewEmitter() *Emitter {
	return &Emitter{}
}

func (e *Emitter) OnMetadata(fn func(Metadata)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.metaFns = append(e.metaFns, fn)
}

func (e *Emitter) OnBlock(fn func(Block)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.blockFns = append(e.blockFns, fn)
}

func (e *Emitter) OnComplete(fn func()) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.completeFn = append(e.completeFn, fn)
}

func (e *Emitter) OnError(fn func(error)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.errorFns = append(e.errorFns, fn)
}

// Metadata is delivered once; later calls are ignored.
func (e *Emitter) Metadata(m Metadata) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.done || e.meta != nil {
		return
	}
	e.meta = &m
	for _, fn := range e.metaFns {
		fn(m)
	}
	for _, b := range e.pending {
		e.deliver(b)
	}
	e.pending = nil
}

func (e *Emitter) Block(b Block) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.done {
		return
	}
	if e.meta == nil {
		e.pending = append(e.pending, b)
		return
	}
	e.deliver(b)
}

func (e *Emitter) deliver(b Block) {
	for _, fn := range e.blockFns {
		fn(b)
	}
}

func (e *Emitter) Complete() {
	e.mu.Lock()
	if e.done {
		e.mu.Unlock()
		return
	}
	if e.meta == nil {
		e.mu.Unlock()
		e.Error(ErrNoMetadata)
		return
	}
	defer e.mu.Unlock()
	e.done = true
	for _, fn := range e.completeFn {
		fn()
	}
}

func (e *Emitter) Error(err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.done {
		return
	}
	e.done = true
	e.pending = nil
	for _, fn := range e.errorFns {
		fn(err)
	}
}
