package plain

import (
	. "omevox/builder/define"
	"omevox/builder/ir/subChunk"
)

const ConvertThres = 16 * 16

type SparseBlock struct {
	x, y, z uint8
	blk     BLOCKID
}

// Storage keeps up to ConvertThres writes as a list, then switches to a
// dense array. Later writes to a position shadow earlier ones.
type Storage struct {
	elements     uint16
	SparseMatrix []*SparseBlock
	DenseMatrix  *[16 * 16 * 16]BLOCKID
}

func denseIndex(X, Y, Z uint8) int {
	return int(uint16(X) | uint16(Y)<<8 | uint16(Z)<<4)
}

func (s *Storage) New() subChunk.SubChunk {
	return &Storage{
		SparseMatrix: make([]*SparseBlock, 0),
	}
}

func (s *Storage) Set(X, Y, Z uint8, blk BLOCKID) {
	if s.DenseMatrix != nil {
		s.DenseMatrix[denseIndex(X, Y, Z)] = blk
		return
	}
	s.elements += 1
	if s.elements < ConvertThres {
		s.SparseMatrix = append(s.SparseMatrix, &SparseBlock{X, Y, Z, blk})
		return
	}
	s.DenseMatrix = &[16 * 16 * 16]BLOCKID{}
	for _, sBlk := range s.SparseMatrix {
		s.DenseMatrix[denseIndex(sBlk.x, sBlk.y, sBlk.z)] = sBlk.blk
	}
	s.SparseMatrix = nil
	s.DenseMatrix[denseIndex(X, Y, Z)] = blk
}

func (s *Storage) Get(X, Y, Z uint8) BLOCKID {
	if s.DenseMatrix != nil {
		return s.DenseMatrix[denseIndex(X, Y, Z)]
	}
	for i := len(s.SparseMatrix) - 1; i >= 0; i-- {
		sBlk := s.SparseMatrix[i]
		if sBlk.x == X && sBlk.y == Y && sBlk.z == Z {
			return sBlk.blk
		}
	}
	return AIRBLK
}

func (s *Storage) Finish() {
}

func (s *Storage) GetOps(X, Y, Z PE, Ops *[]*BlockOp) {
	if s.DenseMatrix == nil {
		seen := make(map[int]bool, len(s.SparseMatrix))
		for i := len(s.SparseMatrix) - 1; i >= 0; i-- {
			sBlk := s.SparseMatrix[i]
			k := denseIndex(sBlk.x, sBlk.y, sBlk.z)
			if seen[k] {
				continue
			}
			seen[k] = true
			if sBlk.blk == AIRBLK {
				continue
			}
			*Ops = append(*Ops, &BlockOp{
				Pos:     Pos{X + PE(sBlk.x), Y + PE(sBlk.y), Z + PE(sBlk.z)},
				BlockID: sBlk.blk,
			})
		}
		return
	}
	for pos, blk := range s.DenseMatrix {
		if blk != AIRBLK {
			*Ops = append(*Ops, &BlockOp{
				Pos: Pos{
					X + PE(pos&0xf),
					Y + PE((pos>>8)&0xf),
					Z + PE((pos>>4)&0xf),
				},
				BlockID: blk,
			})
		}
	}
}
