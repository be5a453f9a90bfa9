package worker

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"omevox/builder/define"
	"omevox/builder/ir"
	"omevox/builder/loader/bdump"
	errs "omevox/define"
)

func sample() *ir.IR {
	s := ir.NewIR(nil)
	s.SetBlockString(0, 0, 0, "minecraft:stone")
	s.SetBlockString(1, 2, 3, "minecraft:wool[color=red]")
	s.SetBlockString(40, 5, 40, "minecraft:dirt")
	return s
}

func TestScriptWorker(t *testing.T) {
	var out bytes.Buffer
	w := NewScriptWorker(&out)
	var stages []string
	report := errs.ReportFn(func(stage, msg string) { stages = append(stages, stage) })
	require.NoError(t, Run(context.Background(), sample(), w, report))
	require.NoError(t, w.Err())

	text := out.String()
	assert.Equal(t, 3, w.BlockCounter)
	assert.Contains(t, text, "setblock 0 0 0 minecraft:stone\n")
	assert.Contains(t, text, "setblock 1 2 3 minecraft:wool[color=red]\n")
	assert.Contains(t, text, "setblock 40 5 40 minecraft:dirt\n")
	// two chunk groups, each preceded by a move
	assert.Equal(t, 2, strings.Count(text, "tp @s "))
	assert.Len(t, stages, 2)
	first := strings.SplitN(text, "\n", 2)[0]
	assert.True(t, strings.HasPrefix(first, "tp @s "), first)
}

func TestBDXWorkerLoadsBack(t *testing.T) {
	w := &BDXWorker{Author: "tester"}
	require.NoError(t, Run(context.Background(), sample(), w, nil))
	data, err := w.Bytes()
	require.NoError(t, err)
	require.True(t, bdump.IsBDX(data))

	back := ir.NewIR(nil)
	logger, _ := test.NewNullLogger()
	info, err := bdump.Load(context.Background(), data, back, bdump.Options{Log: logger})
	require.NoError(t, err)
	assert.Equal(t, "tester", info.Author)
	assert.Equal(t, 3, info.Blocks)
	// states other than data do not survive the format
	assert.Equal(t, "minecraft:wool", back.GetBlock(1, 2, 3))
	assert.Equal(t, "minecraft:dirt", back.GetBlock(40, 5, 40))
}

func TestDebugWorkerCounts(t *testing.T) {
	logger, hook := test.NewNullLogger()
	w := &DebugWorker{Log: logger}
	require.NoError(t, Run(context.Background(), sample(), w, nil))
	assert.Equal(t, 3, w.BlockCounter)
	assert.Equal(t, 2, w.Moves)
	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, "task accomplished", hook.LastEntry().Message)
}

func TestRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	logger, _ := test.NewNullLogger()
	w := &DebugWorker{Log: logger}
	err := Run(ctx, sample(), w, nil)
	assert.ErrorIs(t, err, errs.ErrCancelled)
	assert.Zero(t, w.BlockCounter)
}

func TestMoveUsesFixedHeight(t *testing.T) {
	var out bytes.Buffer
	w := NewScriptWorker(&out)
	w.Move(define.PE(-8), define.PE(24))
	w.NotifyEnd()
	assert.Equal(t, "tp @s -8 128 24\n", out.String())
}
