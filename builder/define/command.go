package define

import (
	"fmt"
	"strings"
)

type CommandKind uint8

const (
	CommandSet CommandKind = iota
	CommandFill
)

func (k CommandKind) String() string {
	if k == CommandFill {
		return "fill"
	}
	return "setblock"
}

// Command places Block over the closed box [Min, Max].
type Command struct {
	Kind     CommandKind
	Min, Max Pos
	Block    string
	// Relative coordinates are printed with a '~' prefix.
	Relative bool
}

func NewCommand(min, max Pos, block string) Command {
	kind := CommandFill
	if min == max {
		kind = CommandSet
	}
	return Command{Kind: kind, Min: min, Max: max, Block: block}
}

func (c Command) Cells() int {
	n := 1
	for a := 0; a < 3; a++ {
		n *= int(c.Max[a]-c.Min[a]) + 1
	}
	return n
}

func (c Command) coord(v PE) string {
	if c.Relative {
		return fmt.Sprintf("~%d", v)
	}
	return fmt.Sprintf("%d", v)
}

func (c Command) String() string {
	var sb strings.Builder
	sb.WriteString(c.Kind.String())
	for _, v := range c.Min {
		sb.WriteByte(' ')
		sb.WriteString(c.coord(v))
	}
	if c.Kind == CommandFill {
		for _, v := range c.Max {
			sb.WriteByte(' ')
			sb.WriteString(c.coord(v))
		}
	}
	sb.WriteByte(' ')
	sb.WriteString(c.Block)
	return sb.String()
}
