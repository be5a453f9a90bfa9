package region

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/sirupsen/logrus"

	"omevox/builder/define"
	"omevox/builder/stream"
	"omevox/builder/volume"
	errs "omevox/define"
)

// Provider hands out region archives by region coordinates. An absent
// region is (nil, nil).
type Provider interface {
	Archive(rx, rz int) (*Archive, error)
}

// DirProvider reads r.<x>.<z>.mca files from a directory.
type DirProvider struct {
	Dir string
}

func RegionFileName(rx, rz int) string {
	return fmt.Sprintf("r.%d.%d.mca", rx, rz)
}

func (p DirProvider) Archive(rx, rz int) (*Archive, error) {
	name := RegionFileName(rx, rz)
	data, err := os.ReadFile(filepath.Join(p.Dir, name))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return Open(name, data)
}

// MemoryProvider serves region bytes keyed by region coordinates.
type MemoryProvider map[[2]int][]byte

func (p MemoryProvider) Archive(rx, rz int) (*Archive, error) {
	data, ok := p[[2]int{rx, rz}]
	if !ok {
		return nil, nil
	}
	return Open(RegionFileName(rx, rz), data)
}

// Box is an inclusive world-space block range.
type Box struct {
	Min, Max define.Pos
}

func NewBox(a, b define.Pos) Box {
	box := Box{Min: a, Max: b}
	for i := 0; i < 3; i++ {
		if box.Min[i] > box.Max[i] {
			box.Min[i], box.Max[i] = box.Max[i], box.Min[i]
		}
	}
	return box
}

func (b Box) Dims() volume.Dims {
	return volume.Dims{
		Width:  int(b.Max[0]-b.Min[0]) + 1,
		Height: int(b.Max[1]-b.Min[1]) + 1,
		Length: int(b.Max[2]-b.Min[2]) + 1,
	}
}

// World resolves blocks across region archives. Archives and decoded
// chunks are cached for the lifetime of the World, so one World should
// serve one job.
type World struct {
	provider Provider
	log      logrus.FieldLogger

	mu       sync.Mutex
	archives map[[2]int]*Archive
	chunks   map[[2]int]*Chunk
}

func NewWorld(p Provider, log logrus.FieldLogger) *World {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &World{
		provider: p,
		log:      log,
		archives: map[[2]int]*Archive{},
		chunks:   map[[2]int]*Chunk{},
	}
}

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

func (w *World) archive(rx, rz int) *Archive {
	key := [2]int{rx, rz}
	if a, ok := w.archives[key]; ok {
		return a
	}
	a, err := w.provider.Archive(rx, rz)
	if err != nil {
		w.log.WithFields(logrus.Fields{
			"region": RegionFileName(rx, rz),
		}).WithError(fmt.Errorf("%w: %v", errs.ErrRegionUnavailable, err)).Warn("region unreadable, treated as air")
		a = nil
	}
	w.archives[key] = a
	return a
}

// Chunk returns the decoded chunk at chunk coordinates, nil when absent or
// unreadable. Read failures are logged, never returned.
func (w *World) Chunk(cx, cz int) *Chunk {
	w.mu.Lock()
	defer w.mu.Unlock()
	key := [2]int{cx, cz}
	if c, ok := w.chunks[key]; ok {
		return c
	}
	var c *Chunk
	if a := w.archive(floorDiv(cx, ChunksPerSide), floorDiv(cz, ChunksPerSide)); a != nil {
		root, err := a.ReadChunk(cx, cz)
		if err == nil && root != nil {
			c, err = ParseChunk(root)
		}
		if err != nil {
			w.log.WithFields(logrus.Fields{
				"region": a.Name,
				"chunk":  fmt.Sprintf("%d,%d", cx, cz),
			}).WithError(fmt.Errorf("%w: %v", errs.ErrRegionUnavailable, err)).Warn("chunk unreadable, treated as air")
			c = nil
		}
	}
	w.chunks[key] = c
	return c
}

// Chunks counts the chunks read so far that held data.
func (w *World) Chunks() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	n := 0
	for _, c := range w.chunks {
		if c != nil {
			n++
		}
	}
	return n
}

// BlockAt returns the id at world coordinates. Anything missing is air.
func (w *World) BlockAt(x, y, z int) string {
	return w.Chunk(floorDiv(x, 16), floorDiv(z, 16)).Block(x&15, y, z&15)
}

// Extract streams the non-air blocks of box into e: metadata first, then
// blocks chunk by chunk relative to box.Min, then completion. On
// cancellation e receives the error, which is also returned.
func (w *World) Extract(ctx context.Context, box Box, e *stream.Emitter) error {
	box = NewBox(box.Min, box.Max)
	e.Metadata(stream.Metadata{Dims: box.Dims(), Origin: box.Min})

	minX, minY, minZ := int(box.Min[0]), int(box.Min[1]), int(box.Min[2])
	maxX, maxY, maxZ := int(box.Max[0]), int(box.Max[1]), int(box.Max[2])
	for cz := floorDiv(minZ, 16); cz <= floorDiv(maxZ, 16); cz++ {
		for cx := floorDiv(minX, 16); cx <= floorDiv(maxX, 16); cx++ {
			if err := errs.CheckContext(ctx); err != nil {
				e.Error(err)
				return err
			}
			c := w.Chunk(cx, cz)
			if c == nil {
				continue
			}
			x0, x1 := max(minX, cx*16), min(maxX, cx*16+15)
			z0, z1 := max(minZ, cz*16), min(maxZ, cz*16+15)
			for y := minY; y <= maxY; y++ {
				sec := c.sections[y>>4]
				if sec.Empty() {
					// jump to the last row of this section
					y |= 15
					continue
				}
				for z := z0; z <= z1; z++ {
					for x := x0; x <= x1; x++ {
						id := sec.Block(x&15, y&15, z&15)
						if define.IsAir(id) {
							continue
						}
						e.Block(stream.Block{X: x - minX, Y: y - minY, Z: z - minZ, ID: id})
					}
				}
			}
		}
	}
	e.Complete()
	return nil
}
