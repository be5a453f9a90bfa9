// Package builder runs conversion jobs: it detects the input format, loads
// it into a volume, translates and transforms it, and hands it to one of
// the output writers.
package builder

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"omevox/builder/compiler"
	"omevox/builder/define"
	"omevox/builder/ir"
	"omevox/builder/loader/bdump"
	"omevox/builder/loader/region"
	"omevox/builder/loader/schematic"
	"omevox/builder/pack"
	"omevox/builder/stream"
	"omevox/builder/structure"
	"omevox/builder/transform"
	"omevox/builder/translator"
	"omevox/builder/volume"
	"omevox/builder/worker"
	errs "omevox/define"
)

type InputKind string

const (
	InputSchematic InputKind = "schematic"
	InputBDX       InputKind = "bdx"
	InputRegion    InputKind = "region"
)

const (
	OutputCommands  = "commands"
	OutputStructure = "structure"
	OutputPack      = "pack"
	OutputScript    = "script"
	OutputBDX       = "bdx"
)

// ErrNoBox is returned for region input without an extraction box.
var ErrNoBox = errors.New("region input needs a box")

// Request describes one conversion. Data holds the input file; Dir, when
// set, points at a world's region directory instead.
type Request struct {
	Name string `json:"name"`
	Data []byte `json:"-"`
	Dir  string `json:"dir,omitempty"`
	// Box is the inclusive world box extracted from region input.
	Box *[2]define.Pos `json:"box,omitempty"`

	Output    string `json:"output"`
	Translate bool   `json:"translate"`
	Rotate    int    `json:"rotate,omitempty"`
	Mirror    string `json:"mirror,omitempty"`
	Hollow    bool   `json:"hollow,omitempty"`
	Gravity   bool   `json:"gravity,omitempty"`

	Relative bool       `json:"relative,omitempty"`
	Offset   define.Pos `json:"offset,omitempty"`

	PackName    string `json:"pack_name,omitempty"`
	Description string `json:"description,omitempty"`
	Namespace   string `json:"namespace,omitempty"`
	ChunkEdge   int    `json:"chunk_edge,omitempty"`
	BatchSize   int    `json:"batch_size,omitempty"`
	Author      string `json:"author,omitempty"`
}

type Output struct {
	Input     InputKind
	Format    string
	// Data is the file to write: command text, a structure, a zipped pack,
	// a script or a BDX file.
	Data      []byte
	Commands  []define.Command
	Structure *structure.File
	Pack      *pack.Report
	Dims      volume.Dims
	Blocks    int
}

// Processor holds what outlives a single job: the rule table, the hollow
// classifier and the pack defaults.
type Processor struct {
	Rules      *translator.Rules
	Classifier *transform.Classifier
	Log        logrus.FieldLogger
	Workers    int
	Namespace  string
	ChunkEdge  int
	BatchSize  int
}

// loaded is an ingested volume and the world position of its index 0.
type loaded struct {
	kind   InputKind
	v      volume.Volume
	origin define.Pos
}

type job struct {
	p      *Processor
	req    Request
	report errs.Reporter
	log    logrus.FieldLogger
}

func (j *job) fail(stage string, err error) error {
	j.report.Report(stage, fmt.Sprintf("failed: %v", err))
	j.log.WithField("stage", stage).WithError(err).Warn("conversion failed")
	return &errs.StageError{Stage: stage, Err: err}
}

func (j *job) progress(stage string) func(done, total int) {
	last := -1
	return func(done, total int) {
		if total <= 0 {
			return
		}
		pct := done * 100 / total
		if pct == last {
			return
		}
		last = pct
		j.report.Report(stage, fmt.Sprintf("%d%% (%d/%d)", pct, done, total))
	}
}

// Convert runs req through the pipeline. Errors are *define.StageError and
// are reported before they are returned; nothing is produced on failure.
func (p *Processor) Convert(ctx context.Context, req Request, report errs.Reporter) (*Output, error) {
	log := p.Log
	if log == nil {
		log = logrus.StandardLogger()
	}
	if req.Output == "" {
		req.Output = OutputCommands
	}
	j := &job{p: p, req: req, report: errs.OrNop(report), log: log.WithField("input", req.Name)}

	kind, err := Detect(req)
	if err != nil {
		return nil, j.fail(errs.StageDetect, err)
	}
	j.report.Report(errs.StageDetect, string(kind))

	in, err := j.ingest(ctx, kind)
	if err != nil {
		stage := errs.StageIngest
		if kind == InputRegion {
			stage = errs.StageExtract
		}
		return nil, j.fail(stage, err)
	}
	d := in.v.Dims()
	j.report.Report(errs.StageIngest, fmt.Sprintf("%dx%dx%d", d.Width, d.Height, d.Length))

	v := in.v
	// BDX files already use target edition names; region input is
	// translated while it streams.
	if req.Translate && kind == InputSchematic {
		s, err := p.session()
		if err != nil {
			return nil, j.fail(errs.StageTranslate, err)
		}
		v = s.Volume(v)
		j.report.Report(errs.StageTranslate, "rules applied")
	}

	mirror, err := transform.ParseAxes(req.Mirror)
	if err != nil {
		return nil, j.fail(errs.StageTransform, err)
	}
	t, err := transform.Apply(v, transform.Options{
		Rotate:     req.Rotate,
		Mirror:     mirror,
		Hollow:     req.Hollow,
		Classifier: p.Classifier,
		Gravity:    req.Gravity,
	})
	if err != nil {
		return nil, j.fail(errs.StageTransform, err)
	}
	if len(t.BelowBoundsBarriers) > 0 {
		j.report.Report(errs.StageTransform, fmt.Sprintf("%d barriers below bounds", len(t.BelowBoundsBarriers)))
	}

	out, err := j.emit(ctx, in, t)
	if err != nil {
		return nil, err
	}
	out.Input = kind
	out.Format = req.Output
	out.Dims = t.Volume.Dims()
	j.log.WithFields(logrus.Fields{"output": req.Output, "bytes": len(out.Data)}).Info("conversion done")
	return out, nil
}

func (p *Processor) session() (*translator.Session, error) {
	rules := p.Rules
	if rules == nil {
		var err error
		if rules, err = translator.DefaultRules(); err != nil {
			return nil, err
		}
	}
	return translator.NewSession(rules), nil
}

// Detect picks the loader for req: a region directory or archive, a BDX
// file, or anything else as a schematic.
func Detect(req Request) (InputKind, error) {
	if req.Dir != "" {
		return InputRegion, nil
	}
	if len(req.Data) == 0 {
		return "", fmt.Errorf("%w: empty input", errs.ErrUnsupportedFormat)
	}
	if bdump.IsBDX(req.Data) {
		return InputBDX, nil
	}
	switch strings.ToLower(filepath.Ext(req.Name)) {
	case ".mca", ".mcr":
		return InputRegion, nil
	}
	return InputSchematic, nil
}

// RegionCoords reads the region position out of an "r.X.Z.mca" name; any
// other name is region 0, 0.
func RegionCoords(name string) (int, int) {
	parts := strings.Split(filepath.Base(name), ".")
	if len(parts) != 4 || parts[0] != "r" {
		return 0, 0
	}
	rx, errX := strconv.Atoi(parts[1])
	rz, errZ := strconv.Atoi(parts[2])
	if errX != nil || errZ != nil {
		return 0, 0
	}
	return rx, rz
}

func (j *job) ingest(ctx context.Context, kind InputKind) (*loaded, error) {
	switch kind {
	case InputBDX:
		target := ir.NewIR(nil)
		info, err := bdump.Load(ctx, j.req.Data, target, bdump.Options{Log: j.log, Reporter: j.report})
		if err != nil {
			return nil, err
		}
		if info.Blocks == 0 {
			return nil, fmt.Errorf("%w: bdx places no blocks", errs.ErrEmptyResult)
		}
		return &loaded{kind: kind, v: target, origin: target.Origin()}, nil
	case InputRegion:
		return j.extract(ctx)
	}
	res, err := schematic.Ingest(ctx, j.req.Data, schematic.Options{
		Progress: j.progress(errs.StageIngest),
		Log:      j.log,
	})
	if err != nil {
		return nil, err
	}
	j.log.WithField("format", res.Format).Debug("schematic ingested")
	return &loaded{kind: kind, v: res.Volume}, nil
}

func (j *job) extract(ctx context.Context) (*loaded, error) {
	if j.req.Box == nil {
		return nil, ErrNoBox
	}
	var provider region.Provider
	if j.req.Dir != "" {
		provider = region.DirProvider{Dir: j.req.Dir}
	} else {
		// fail early on a bad header instead of degrading to air
		if _, err := region.Open(j.req.Name, j.req.Data); err != nil {
			return nil, err
		}
		rx, rz := RegionCoords(j.req.Name)
		provider = region.MemoryProvider{{rx, rz}: j.req.Data}
	}
	world := region.NewWorld(provider, j.log)

	e := stream.NewEmitter()
	var src stream.Source = e
	if j.req.Translate {
		s, err := j.p.session()
		if err != nil {
			return nil, err
		}
		src = stream.Chain(e, stream.Map(s.Translate))
	}
	c := stream.Collect(src)
	box := region.NewBox(j.req.Box[0], j.req.Box[1])
	go world.Extract(ctx, box, e)
	store, origin, err := c.Wait(ctx)
	if err != nil {
		return nil, err
	}
	j.report.Report(errs.StageExtract, fmt.Sprintf("%d chunks read", world.Chunks()))
	return &loaded{kind: InputRegion, v: store, origin: origin}, nil
}

func (j *job) emit(ctx context.Context, in *loaded, t *transform.Output) (*Output, error) {
	req := j.req
	// world position of the volume's corner
	offset := define.Pos{
		in.origin[0] + req.Offset[0],
		in.origin[1] + req.Offset[1],
		in.origin[2] + req.Offset[2],
	}
	switch req.Output {
	case OutputCommands:
		commandOffset := offset
		if req.Relative {
			// relative output starts at the lowest occupied voxel
			commandOffset = req.Offset
		}
		cmds, err := compiler.Compile(ctx, t.Volume, compiler.Options{
			Relative:            req.Relative,
			Offset:              commandOffset,
			Progress:            j.progress(errs.StageCompile),
			BelowBoundsBarriers: t.BelowBoundsBarriers,
		})
		if err != nil {
			return nil, j.fail(errs.StageCompile, err)
		}
		return &Output{Data: []byte(compiler.Text(cmds)), Commands: cmds, Blocks: cells(cmds)}, nil
	case OutputStructure:
		cmds, err := compiler.Compile(ctx, t.Volume, compiler.Options{
			Offset:              offset,
			Progress:            j.progress(errs.StageCompile),
			BelowBoundsBarriers: t.BelowBoundsBarriers,
		})
		if err != nil {
			return nil, j.fail(errs.StageCompile, err)
		}
		f, err := structure.Build(cmds)
		if err != nil {
			return nil, j.fail(errs.StageStructure, err)
		}
		data, err := f.Encode()
		if err != nil {
			return nil, j.fail(errs.StageStructure, err)
		}
		j.report.Report(errs.StageStructure, fmt.Sprintf("%d blocks, %d palette entries", f.Blocks(), len(f.Palette)))
		return &Output{Data: data, Commands: cmds, Structure: f, Blocks: f.Blocks()}, nil
	case OutputPack:
		data, rep, err := pack.Assemble(ctx, t.Volume, pack.Options{
			Name:                req.PackName,
			Description:         req.Description,
			Namespace:           firstNonEmpty(req.Namespace, j.p.Namespace),
			ChunkEdge:           firstPositive(req.ChunkEdge, j.p.ChunkEdge),
			BatchSize:           firstPositive(req.BatchSize, j.p.BatchSize),
			Workers:             j.p.Workers,
			BelowBoundsBarriers: t.BelowBoundsBarriers,
			Progress:            j.progress(errs.StagePack),
		})
		if err != nil {
			return nil, j.fail(errs.StagePack, err)
		}
		j.report.Report(errs.StagePack, fmt.Sprintf("%d structures, %d functions", rep.Structures, rep.Functions))
		return &Output{Data: data, Pack: rep, Blocks: rep.Blocks}, nil
	case OutputScript, OutputBDX:
		placed := ir.FromVolume(t.Volume, offset)
		if _, _, ok := placed.Bounds(); !ok {
			return nil, j.fail(errs.StageCompile, fmt.Errorf("%w: volume has no placeable blocks", errs.ErrEmptyResult))
		}
		if req.Output == OutputScript {
			var buf bytes.Buffer
			w := worker.NewScriptWorker(&buf)
			if err := worker.Run(ctx, placed, w, j.report); err != nil {
				return nil, j.fail(errs.StageCompile, err)
			}
			if err := w.Err(); err != nil {
				return nil, j.fail(errs.StageCompile, err)
			}
			return &Output{Data: buf.Bytes(), Blocks: w.BlockCounter}, nil
		}
		w := &worker.BDXWorker{Author: req.Author}
		if err := worker.Run(ctx, placed, w, j.report); err != nil {
			return nil, j.fail(errs.StageCompile, err)
		}
		data, err := w.Bytes()
		if err != nil {
			return nil, j.fail(errs.StageCompile, err)
		}
		return &Output{Data: data, Blocks: w.Placed()}, nil
	}
	return nil, j.fail(errs.StageCompile, fmt.Errorf("unknown output %q", req.Output))
}

func cells(cmds []define.Command) int {
	n := 0
	for _, c := range cmds {
		n += c.Cells()
	}
	return n
}

func firstNonEmpty(a, b string) string {
	if a != "" {
		return a
	}
	return b
}

func firstPositive(a, b int) int {
	if a > 0 {
		return a
	}
	return b
}
