package ir

import (
	"sort"

	. "omevox/builder/define"
	"omevox/builder/ir/subChunk"
)

// Chunk is a 16 wide column of sub chunks keyed by Y>>4, so negative
// heights work.
type Chunk struct {
	Sub  map[PE]subChunk.SubChunk
	X, Z PE
	T    subChunk.SubChunk
}

func NewChunk(ChunkX, ChunkZ PE, Template subChunk.SubChunk) *Chunk {
	return &Chunk{Sub: make(map[PE]subChunk.SubChunk), X: ChunkX << 4, Z: ChunkZ << 4, T: Template}
}

func (chunk *Chunk) SetBlockByID(X, Y, Z PE, blk BLOCKID) {
	layerI := Y >> 4
	sub, ok := chunk.Sub[layerI]
	if !ok {
		sub = chunk.T.New()
		chunk.Sub[layerI] = sub
	}
	sub.Set(uint8(X&0xf), uint8(Y&0xf), uint8(Z&0xf), blk)
}

func (chunk *Chunk) GetBlockID(X, Y, Z PE) BLOCKID {
	sub, ok := chunk.Sub[Y>>4]
	if !ok {
		return AIRBLK
	}
	return sub.Get(uint8(X&0xf), uint8(Y&0xf), uint8(Z&0xf))
}

// GetOps lists every non-air block, bottom layer first.
func (chunk *Chunk) GetOps(ID2Block BlockID2BlockDescribeMapping) *OpsGroup {
	Ops := make([]*BlockOp, 0, 4096)
	OpsPtr := &Ops
	g := &OpsGroup{
		NormalOps: OpsPtr,
		Palette:   ID2Block,
	}
	layers := make([]PE, 0, len(chunk.Sub))
	for layerI := range chunk.Sub {
		layers = append(layers, layerI)
	}
	sort.Slice(layers, func(i, j int) bool { return layers[i] < layers[j] })
	for _, layerI := range layers {
		sub := chunk.Sub[layerI]
		sub.Finish()
		sub.GetOps(chunk.X, layerI<<4, chunk.Z, OpsPtr)
	}
	return g
}
