package transform

import (
	"strconv"
	"strings"
	"sync"
)

// tokenMemo caches per-id rewrites for one accessor.
type tokenMemo struct {
	m  sync.Map
	fn func(string) string
}

func newTokenMemo(fn func(string) string) *tokenMemo {
	return &tokenMemo{fn: fn}
}

func (t *tokenMemo) get(id string) string {
	if id == "" || !strings.Contains(id, "[") {
		return id
	}
	if v, ok := t.m.Load(id); ok {
		return v.(string)
	}
	out := t.fn(id)
	t.m.Store(id, out)
	return out
}

// rewriteStates applies fn to every key=value pair of id, keeping order.
func rewriteStates(id string, fn func(k, v string) string) string {
	open := strings.IndexByte(id, '[')
	if open < 0 || !strings.HasSuffix(id, "]") {
		return id
	}
	pairs := strings.Split(id[open+1:len(id)-1], ",")
	for i, kv := range pairs {
		k, v, ok := strings.Cut(kv, "=")
		if !ok {
			continue
		}
		pairs[i] = k + "=" + fn(k, v)
	}
	return id[:open+1] + strings.Join(pairs, ",") + "]"
}

var facingCycle = []string{"north", "east", "south", "west"}

func rotateFacing(v string, steps int) string {
	for i, f := range facingCycle {
		if f == v {
			return facingCycle[(i+steps)%4]
		}
	}
	return v
}

// RotateState rewrites facing, axis and sign rotation tokens for a
// clockwise rotation of deg degrees (already normalized).
func RotateState(id string, deg int) string {
	steps := deg / 90
	if steps == 0 {
		return id
	}
	return rewriteStates(id, func(k, v string) string {
		switch k {
		case "facing":
			return rotateFacing(v, steps)
		case "axis":
			if steps%2 == 1 {
				switch v {
				case "x":
					return "z"
				case "z":
					return "x"
				}
			}
		case "rotation":
			if n, err := strconv.Atoi(v); err == nil {
				return strconv.Itoa((n + 4*steps) % 16)
			}
		}
		return v
	})
}

var mirrorPairs = map[Axes]map[string]map[string]string{
	AxisX: {"facing": {"east": "west", "west": "east"}},
	AxisY: {
		"half":   {"top": "bottom", "bottom": "top"},
		"type":   {"top": "bottom", "bottom": "top"},
		"facing": {"up": "down", "down": "up"},
	},
	AxisZ: {"facing": {"north": "south", "south": "north"}},
}

// MirrorState swaps the paired tokens of every axis in axes.
func MirrorState(id string, axes Axes) string {
	for _, axis := range []Axes{AxisX, AxisY, AxisZ} {
		if axes&axis == 0 {
			continue
		}
		pairs := mirrorPairs[axis]
		id = rewriteStates(id, func(k, v string) string {
			if swap, ok := pairs[k][v]; ok {
				return swap
			}
			return v
		})
	}
	return id
}
