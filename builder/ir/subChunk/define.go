package subChunk

import . "omevox/builder/define"

// SubChunk stores the ids of a 16x16x16 cube. GetOps appends every non-air
// block, shifted by X, Y, Z, after Finish has been called.
type SubChunk interface {
	New() SubChunk
	Set(X, Y, Z uint8, blk BLOCKID)
	Get(X, Y, Z uint8) BLOCKID
	GetOps(X, Y, Z PE, Ops *[]*BlockOp)
	Finish()
}
