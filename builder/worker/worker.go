// Package worker walks an IR chunk by chunk and hands the placements to a
// sink: a command script, a BDX file or a log.
package worker

import (
	"bufio"
	"context"
	"fmt"
	"io"

	"github.com/sirupsen/logrus"

	"omevox/builder/define"
	"omevox/builder/ir"
	"omevox/builder/loader/bdump"
	errs "omevox/define"
)

// MoveHeight is the Y the walker teleports to between chunk groups.
const MoveHeight = 128

type Worker interface {
	Move(X, Z define.PE)
	LaunchOpsGroup(opsGroup *define.OpsGroup)
	NotifyStart()
	Notify(info string)
	NotifyEnd()
}

// Run feeds every chunk of structure to w in walking order: each 2x2
// chunk group is preceded by a move to its centre.
func Run(ctx context.Context, structure *ir.IR, w Worker, report errs.Reporter) error {
	report = errs.OrNop(report)
	anchoredChunks := structure.GetAnchoredChunk()
	w.NotifyStart()
	chunks := 0
	for _, c := range anchoredChunks {
		if c.C == nil {
			chunks++
		}
	}
	group := 0
	for _, c := range anchoredChunks {
		if err := errs.CheckContext(ctx); err != nil {
			return err
		}
		if c.C == nil {
			group++
			w.Move(c.MovePos[0], c.MovePos[1])
			hint := fmt.Sprintf("chunk group [%v]/[%v]", group, chunks)
			w.Notify(hint)
			report.Report(errs.StageCompile, hint)
			continue
		}
		w.LaunchOpsGroup(c.C.GetOps(structure.ID2Block))
	}
	w.NotifyEnd()
	return nil
}

// ScriptWorker writes a teleport + setblock script, one command per line.
type ScriptWorker struct {
	out          *bufio.Writer
	err          error
	OpCounter    int
	BlockCounter int
}

func NewScriptWorker(out io.Writer) *ScriptWorker {
	return &ScriptWorker{out: bufio.NewWriter(out)}
}

func (w *ScriptWorker) line(format string, args ...interface{}) {
	if w.err != nil {
		return
	}
	_, w.err = fmt.Fprintf(w.out, format+"\n", args...)
}

func (w *ScriptWorker) NotifyStart() {
	w.OpCounter = 0
	w.BlockCounter = 0
}

func (w *ScriptWorker) Notify(info string) {
	w.line("# %s", info)
}

func (w *ScriptWorker) NotifyEnd() {
	if w.err == nil {
		w.err = w.out.Flush()
	}
}

func (w *ScriptWorker) Move(X, Z define.PE) {
	w.line("tp @s %v %v %v", X, MoveHeight, Z)
}

func (w *ScriptWorker) LaunchOpsGroup(opsGroup *define.OpsGroup) {
	for _, op := range *opsGroup.NormalOps {
		w.OpCounter++
		w.BlockCounter++
		blk := opsGroup.Palette[op.BlockID]
		w.line("setblock %d %d %d %v", op.Pos[0], op.Pos[1], op.Pos[2], blk.String())
	}
}

// Err is the first write error, if any.
func (w *ScriptWorker) Err() error {
	return w.err
}

// BDXWorker collects placements and encodes them as a BDX file at the end.
type BDXWorker struct {
	Author string
	blocks []bdump.Placement
	data   []byte
	err    error
}

func (w *BDXWorker) NotifyStart() { w.blocks = w.blocks[:0] }

func (w *BDXWorker) Notify(string) {}

func (w *BDXWorker) Move(X, Z define.PE) {}

func (w *BDXWorker) LaunchOpsGroup(opsGroup *define.OpsGroup) {
	for _, op := range *opsGroup.NormalOps {
		name, data := bdump.SplitBlockName(opsGroup.Palette[op.BlockID].String())
		w.blocks = append(w.blocks, bdump.Placement{Pos: op.Pos, Name: name, Data: data})
	}
}

func (w *BDXWorker) NotifyEnd() {
	w.data, w.err = bdump.Encode(w.Author, w.blocks)
}

// Placed is the number of blocks collected.
func (w *BDXWorker) Placed() int {
	return len(w.blocks)
}

// Bytes returns the encoded file once NotifyEnd has run.
func (w *BDXWorker) Bytes() ([]byte, error) {
	return w.data, w.err
}

// DebugWorker only counts and logs.
type DebugWorker struct {
	Log          logrus.FieldLogger
	OpCounter    int
	BlockCounter int
	Moves        int
}

func (w *DebugWorker) NotifyStart() {
	w.Log.Info("task start")
	w.BlockCounter = 0
	w.OpCounter = 0
	w.Moves = 0
}

func (w *DebugWorker) Notify(info string) {
	w.Log.Debug(info)
}

func (w *DebugWorker) NotifyEnd() {
	w.Log.WithFields(logrus.Fields{"ops": w.OpCounter, "blocks": w.BlockCounter}).Info("task accomplished")
}

func (w *DebugWorker) Move(X, Z define.PE) {
	w.Moves++
	w.Log.Debugf("tp @s %v %v %v", X, MoveHeight, Z)
}

func (w *DebugWorker) LaunchOpsGroup(opsGroup *define.OpsGroup) {
	w.OpCounter += len(*opsGroup.NormalOps)
	w.BlockCounter += len(*opsGroup.NormalOps)
}
