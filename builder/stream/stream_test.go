package stream

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"omevox/builder/define"
	"omevox/builder/transform"
	"omevox/builder/volume"
	errs "omevox/define"
)

func feed(e *Emitter, v volume.Volume, origin define.Pos) {
	e.Metadata(Metadata{Dims: v.Dims(), Origin: origin})
	emitVolume(v, 0, e)
	e.Complete()
}

func TestMetadataPrecedesQueuedBlocks(t *testing.T) {
	e := NewEmitter()
	var events []string
	e.OnMetadata(func(Metadata) { events = append(events, "meta") })
	e.OnBlock(func(b Block) { events = append(events, b.ID) })
	e.OnComplete(func() { events = append(events, "complete") })
	e.OnError(func(error) { events = append(events, "error") })

	e.Block(Block{ID: "a"})
	e.Block(Block{ID: "b"})
	e.Metadata(Metadata{Dims: volume.Dims{Width: 1, Height: 1, Length: 1}})
	e.Block(Block{ID: "c"})
	e.Complete()
	e.Complete()
	e.Error(errors.New("late"))
	e.Block(Block{ID: "d"})

	assert.Equal(t, []string{"meta", "a", "b", "c", "complete"}, events)
}

func TestCompleteWithoutMetadataIsAnError(t *testing.T) {
	e := NewEmitter()
	c := Collect(e)
	e.Block(Block{ID: "minecraft:stone"})
	e.Complete()
	_, _, err := c.Wait(context.Background())
	assert.ErrorIs(t, err, ErrNoMetadata)
}

func TestChainMatchesLazyTransforms(t *testing.T) {
	d := volume.Dims{Width: 3, Height: 2, Length: 4}
	src := volume.Func{Size: d, Lookup: func(i int) string {
		switch i % 3 {
		case 0:
			return "minecraft:furnace[facing=north]"
		case 1:
			return "minecraft:oak_stairs[facing=east,half=bottom]"
		}
		return ""
	}}
	e := NewEmitter()
	rot, err := Rotate(90)
	require.NoError(t, err)
	c := Collect(Chain(e, rot, Mirror(transform.AxisX|transform.AxisY), Translate(10, 0, -5)))
	feed(e, src, define.Pos{1, 2, 3})

	got, origin, err := c.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, define.Pos{11, 2, -2}, origin)

	want, err := transform.Apply(src, transform.Options{Rotate: 90, Mirror: transform.AxisX | transform.AxisY})
	require.NoError(t, err)
	assert.True(t, volume.Equal(want.Volume, got))
}

func TestMapDropsAir(t *testing.T) {
	e := NewEmitter()
	c := Collect(Chain(e, Map(func(id string) string {
		if id == "minecraft:moving_piston" {
			return ""
		}
		return id
	})))
	d := volume.Dims{Width: 2, Height: 1, Length: 1}
	feed(e, volume.Func{Size: d, Lookup: func(i int) string {
		if i == 0 {
			return "minecraft:moving_piston"
		}
		return "minecraft:stone"
	}}, define.Pos{})
	got, _, err := c.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "", got.Block(0))
	assert.Equal(t, "minecraft:stone", got.Block(1))
}

func TestHollowStage(t *testing.T) {
	d := volume.Dims{Width: 3, Height: 3, Length: 3}
	e := NewEmitter()
	c := Collect(Chain(e, Hollow(nil)))
	feed(e, volume.Func{Size: d, Lookup: func(int) string { return "minecraft:stone" }}, define.Pos{})
	got, _, err := c.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 26, volume.Occupied(got))
	assert.Equal(t, "", volume.At(got, 1, 1, 1))
}

func TestGravityStageGrowsDownwards(t *testing.T) {
	d := volume.Dims{Width: 1, Height: 2, Length: 1}
	e := NewEmitter()
	c := Collect(Chain(e, Gravity()))
	feed(e, volume.Func{Size: d, Lookup: func(i int) string {
		if i == 0 {
			return "minecraft:sand"
		}
		return "minecraft:gravel"
	}}, define.Pos{0, 64, 0})
	got, origin, err := c.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, define.Pos{0, 63, 0}, origin)
	assert.Equal(t, volume.Dims{Width: 1, Height: 3, Length: 1}, got.Dims())
	assert.Equal(t, transform.Barrier, volume.At(got, 0, 0, 0))
	assert.Equal(t, "minecraft:sand", volume.At(got, 0, 1, 0))
	assert.Equal(t, "minecraft:gravel", volume.At(got, 0, 2, 0))
}

func TestErrorPropagatesThroughChain(t *testing.T) {
	e := NewEmitter()
	c := Collect(Chain(e, Mirror(transform.AxisX), Hollow(nil)))
	e.Metadata(Metadata{Dims: volume.Dims{Width: 1, Height: 1, Length: 1}})
	e.Error(errs.ErrMalformedTag)
	_, _, err := c.Wait(context.Background())
	assert.ErrorIs(t, err, errs.ErrMalformedTag)
}

func TestWaitHonoursContext(t *testing.T) {
	c := Collect(NewEmitter())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err := c.Wait(ctx)
	assert.ErrorIs(t, err, errs.ErrCancelled)
}
