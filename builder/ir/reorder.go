package ir

import (
	"sort"

	"omevox/builder/define"
)

func uniqueSorted(m []int) []int {
	d := make([]int, 0, len(m))
	seen := make(map[int]bool, len(m))
	for _, v := range m {
		if !seen[v] {
			seen[v] = true
			d = append(d, v)
		}
	}
	sort.Ints(d)
	return d
}

// ChunkGroup is the set of chunks sharing one 32x32 block cell.
type ChunkGroup struct {
	CenterX define.PE
	CenterZ define.PE
	Chunks  []*Chunk
}

func (cs *ChunkGroup) dist(c *Chunk) int64 {
	dx := int64(c.X - cs.CenterX)
	dz := int64(c.Z - cs.CenterZ)
	return dx*dx + dz*dz
}

// Order sorts chunks by distance from the group center, ties by position.
func (cs *ChunkGroup) Order() []*Chunk {
	sort.Slice(cs.Chunks, func(i, j int) bool {
		a, b := cs.Chunks[i], cs.Chunks[j]
		da, db := cs.dist(a), cs.dist(b)
		if da != db {
			return da < db
		}
		if a.X != b.X {
			return a.X < b.X
		}
		return a.Z < b.Z
	})
	return cs.Chunks
}

type ChunkGroups map[[2]define.PE]*ChunkGroup

func (s ChunkGroups) AddChunk(c *Chunk) {
	GX := c.X >> 5
	GZ := c.Z >> 5
	g, hasK := s[[2]define.PE{GX, GZ}]
	if !hasK {
		g = &ChunkGroup{
			CenterX: GX<<5 + 1<<4,
			CenterZ: GZ<<5 + 1<<4,
			Chunks:  make([]*Chunk, 0),
		}
		s[[2]define.PE{GX, GZ}] = g
	}
	g.Chunks = append(g.Chunks, c)
}

// Order walks groups column by column along X, alternating Z direction.
func (s ChunkGroups) Order() []*ChunkGroup {
	groups := make([]*ChunkGroup, 0, len(s))
	XS := make([]int, 0, len(s))
	ZS := make([]int, 0, len(s))
	for pos := range s {
		XS = append(XS, int(pos[0]))
		ZS = append(ZS, int(pos[1]))
	}
	XS = uniqueSorted(XS)
	ZS = uniqueSorted(ZS)
	for turn, X := range XS {
		for i := range ZS {
			Z := ZS[i]
			if turn%2 == 1 {
				Z = ZS[len(ZS)-1-i]
			}
			if g, hasK := s[[2]define.PE{define.PE(X), define.PE(Z)}]; hasK {
				groups = append(groups, g)
			}
		}
	}
	return groups
}
