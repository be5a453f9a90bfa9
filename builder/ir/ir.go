package ir

import (
	"omevox/builder/define"
	"omevox/builder/ir/subChunk"
	"omevox/builder/ir/subChunk/plain"
	"omevox/builder/volume"
)

// IR is a sparse, chunked block store. It grows in every direction and
// doubles as a volume.Volume over its bounding box (or a fixed window set
// with Fix).
type IR struct {
	Template subChunk.SubChunk
	Chunks   map[[2]define.PE]*Chunk
	Block2ID define.BlockDescribe2BlockIDMapping
	ID2Block define.BlockID2BlockDescribeMapping
	Counter  int

	min, max define.Pos
	hasAny   bool
	fixed    bool
	origin   define.Pos
	size     volume.Dims
}

func NewIR(Template subChunk.SubChunk) *IR {
	if Template == nil {
		Template = &plain.Storage{}
	}
	ir := &IR{
		Template: Template,
		Chunks:   make(map[[2]define.PE]*Chunk),
		Block2ID: define.NewBlock2IDMapping(),
		ID2Block: define.NewID2BlockMapping(),
	}
	return ir
}

func (ir *IR) chunkAt(X, Z define.PE, create bool) *Chunk {
	ChunkX, ChunkZ := X>>4, Z>>4
	c, hasK := ir.Chunks[[2]define.PE{ChunkX, ChunkZ}]
	if !hasK && create {
		c = NewChunk(ChunkX, ChunkZ, ir.Template)
		ir.Chunks[[2]define.PE{ChunkX, ChunkZ}] = c
	}
	return c
}

func (ir *IR) grow(X, Y, Z define.PE) {
	p := define.Pos{X, Y, Z}
	if !ir.hasAny {
		ir.min, ir.max, ir.hasAny = p, p, true
		return
	}
	for a := 0; a < 3; a++ {
		if p[a] < ir.min[a] {
			ir.min[a] = p[a]
		}
		if p[a] > ir.max[a] {
			ir.max[a] = p[a]
		}
	}
}

func (ir *IR) SetBlockByID(X, Y, Z define.PE, blk define.BLOCKID) {
	ir.Counter += 1
	ir.chunkAt(X, Z, true).SetBlockByID(X, Y, Z, blk)
	if blk != define.AIRBLK {
		ir.grow(X, Y, Z)
	}
}

func (ir *IR) BlockID(blk define.BlockDescribe) define.BLOCKID {
	blkID, hasK := ir.Block2ID[blk]
	if !hasK {
		blkID = define.BLOCKID(len(ir.ID2Block))
		ir.ID2Block = append(ir.ID2Block, blk)
		ir.Block2ID[blk] = blkID
	}
	return blkID
}

// SetBlock stores blk; air ids clear the position.
func (ir *IR) SetBlock(X, Y, Z define.PE, blk define.BlockDescribe) {
	if define.IsAir(blk.String()) {
		ir.SetBlockByID(X, Y, Z, define.AIRBLK)
		return
	}
	ir.SetBlockByID(X, Y, Z, ir.BlockID(blk))
}

func (ir *IR) SetBlockString(X, Y, Z define.PE, id string) {
	if define.IsAir(id) {
		ir.SetBlockByID(X, Y, Z, define.AIRBLK)
		return
	}
	ir.SetBlock(X, Y, Z, define.ParseBlockDescribe(id))
}

func (ir *IR) GetBlockID(X, Y, Z define.PE) define.BLOCKID {
	c := ir.chunkAt(X, Z, false)
	if c == nil {
		return define.AIRBLK
	}
	return c.GetBlockID(X, Y, Z)
}

// GetBlock returns the id at a world position, "" for air.
func (ir *IR) GetBlock(X, Y, Z define.PE) string {
	id := ir.GetBlockID(X, Y, Z)
	if id == define.AIRBLK || int(id) >= len(ir.ID2Block) {
		return ""
	}
	return ir.ID2Block[id].String()
}

// Bounds is the box of every non-air block written so far.
func (ir *IR) Bounds() (min, max define.Pos, ok bool) {
	return ir.min, ir.max, ir.hasAny
}

// Fix pins the volume view to size blocks starting at origin, instead of
// the bounding box.
func (ir *IR) Fix(origin define.Pos, size volume.Dims) {
	ir.fixed, ir.origin, ir.size = true, origin, size
}

// Origin is the world position of volume index 0.
func (ir *IR) Origin() define.Pos {
	if ir.fixed {
		return ir.origin
	}
	return ir.min
}

func (ir *IR) Dims() volume.Dims {
	if ir.fixed {
		return ir.size
	}
	if !ir.hasAny {
		return volume.Dims{}
	}
	return volume.Dims{
		Width:  int(ir.max[0]-ir.min[0]) + 1,
		Height: int(ir.max[1]-ir.min[1]) + 1,
		Length: int(ir.max[2]-ir.min[2]) + 1,
	}
}

func (ir *IR) Block(index int) string {
	x, y, z := ir.Dims().Coords(index)
	o := ir.Origin()
	return ir.GetBlock(o[0]+define.PE(x), o[1]+define.PE(y), o[2]+define.PE(z))
}

// FromVolume copies every non-air voxel of v into a new IR, v's index 0
// landing on origin.
func FromVolume(v volume.Volume, origin define.Pos) *IR {
	ir := NewIR(nil)
	d := v.Dims()
	total := d.Volume()
	for i := 0; i < total; i++ {
		id := v.Block(i)
		if define.IsAir(id) {
			continue
		}
		x, y, z := d.Coords(i)
		ir.SetBlockString(origin[0]+define.PE(x), origin[1]+define.PE(y), origin[2]+define.PE(z), id)
	}
	ir.Fix(origin, d)
	return ir
}

type AnchoredChunk struct {
	C       *Chunk
	MovePos [2]define.PE
}

// GetAnchoredChunk orders chunks for walking: groups of 2x2 chunks are
// visited in a snake, each group preceded by an anchor entry (C == nil)
// at its center.
func (ir *IR) GetAnchoredChunk() []AnchoredChunk {
	groups := make(ChunkGroups)
	for _, c := range ir.Chunks {
		groups.AddChunk(c)
	}
	anchoredChunks := make([]AnchoredChunk, 0)
	for _, cs := range groups.Order() {
		anchoredChunks = append(anchoredChunks, AnchoredChunk{
			MovePos: [2]define.PE{cs.CenterX, cs.CenterZ},
		})
		for _, c := range cs.Order() {
			anchoredChunks = append(anchoredChunks, AnchoredChunk{
				C:       c,
				MovePos: [2]define.PE{cs.CenterX, cs.CenterZ},
			})
		}
	}
	return anchoredChunks
}
