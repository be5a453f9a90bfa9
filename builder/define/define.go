package define

import (
	"sort"
	"strings"
)

type BLOCKID int32
type PE int32
type Pos [3]PE

// BlockDescribe is a block id split into its namespaced name and canonical
// state string ("k1=v1,k2=v2", keys sorted, no brackets). It is comparable
// and used as a palette key.
type BlockDescribe struct {
	Name   string
	States string
}

const DefaultNamespace = "minecraft"

var AirBlock = BlockDescribe{Name: DefaultNamespace + ":air"}

type BlockDescribe2BlockIDMapping map[BlockDescribe]BLOCKID

func NewBlock2IDMapping() BlockDescribe2BlockIDMapping {
	r := make(BlockDescribe2BlockIDMapping)
	r[AirBlock] = AIRBLK
	return r
}

type BlockID2BlockDescribeMapping []BlockDescribe

func NewID2BlockMapping() BlockID2BlockDescribeMapping {
	r := make(BlockID2BlockDescribeMapping, 1, 32)
	r[AIRBLK] = AirBlock
	return r
}

const (
	AIRBLK  = BLOCKID(0)
	SKIPBLK = BLOCKID(-1)
)

type BlockOp struct {
	Pos     Pos
	BlockID BLOCKID
}

type OpsGroup struct {
	NormalOps *[]*BlockOp
	Palette   BlockID2BlockDescribeMapping
}

// NormalizeName lowercases name and adds the default namespace if missing.
func NormalizeName(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return ""
	}
	if !strings.Contains(name, ":") {
		return DefaultNamespace + ":" + name
	}
	return name
}

// ParseBlockDescribe splits "ns:name[k=v,...]" and canonicalizes both parts.
func ParseBlockDescribe(id string) BlockDescribe {
	id = strings.TrimSpace(id)
	name, states := id, ""
	if i := strings.IndexByte(id, '['); i >= 0 {
		name = id[:i]
		states = strings.TrimSuffix(id[i+1:], "]")
	}
	return NewBlockDescribe(name, ParseStates(states))
}

// NewBlockDescribe builds a canonical describe from a name and property map.
func NewBlockDescribe(name string, props map[string]string) BlockDescribe {
	return BlockDescribe{Name: NormalizeName(name), States: FormatStates(props)}
}

// ParseStates reads "k=v,k2=v2". Entries without '=' are dropped.
func ParseStates(s string) map[string]string {
	props := map[string]string{}
	if s == "" {
		return props
	}
	for _, kv := range strings.Split(s, ",") {
		k, v, ok := strings.Cut(kv, "=")
		if !ok {
			continue
		}
		k = strings.TrimSpace(k)
		if k == "" {
			continue
		}
		props[k] = strings.Trim(strings.TrimSpace(v), `"`)
	}
	return props
}

// FormatStates serializes props sorted by key.
func FormatStates(props map[string]string) string {
	if len(props) == 0 {
		return ""
	}
	keys := make([]string, 0, len(props))
	for k := range props {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var sb strings.Builder
	for i, k := range keys {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(k)
		sb.WriteByte('=')
		sb.WriteString(props[k])
	}
	return sb.String()
}

func (b BlockDescribe) Properties() map[string]string {
	return ParseStates(b.States)
}

func (b BlockDescribe) String() string {
	if b.States == "" {
		return b.Name
	}
	return b.Name + "[" + b.States + "]"
}

// BaseName is the name without namespace.
func (b BlockDescribe) BaseName() string {
	if i := strings.IndexByte(b.Name, ':'); i >= 0 {
		return b.Name[i+1:]
	}
	return b.Name
}

// Canonical rewrites id into its canonical form; "" stays "".
func Canonical(id string) string {
	if id == "" {
		return ""
	}
	return ParseBlockDescribe(id).String()
}

// IsAir reports whether id is null or one of the air blocks, in any namespace.
func IsAir(id string) bool {
	if id == "" {
		return true
	}
	b := ParseBlockDescribe(id)
	switch b.BaseName() {
	case "", "air", "cave_air", "void_air":
		return true
	}
	return false
}
