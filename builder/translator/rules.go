package translator

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strconv"

	"github.com/muhammadmuzzammil1998/jsonc"

	"omevox/builder/define"
)

//go:embed data/java_to_bedrock.jsonc
var defaultRulesData []byte

//go:embed data/legacy_ids.jsonc
var legacyIDsData []byte

// Props is a property map whose JSON values may be strings, numbers or
// booleans; all are kept as their text.
type Props map[string]string

func scalar(v interface{}) (string, error) {
	switch x := v.(type) {
	case string:
		return x, nil
	case bool:
		return strconv.FormatBool(x), nil
	case json.Number:
		return x.String(), nil
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64), nil
	}
	return "", fmt.Errorf("property value %v is not a scalar", v)
}

func decode(data []byte, v interface{}) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	return dec.Decode(v)
}

func (p *Props) UnmarshalJSON(data []byte) error {
	var raw map[string]interface{}
	if err := decode(data, &raw); err != nil {
		return err
	}
	*p = make(Props, len(raw))
	for k, v := range raw {
		s, err := scalar(v)
		if err != nil {
			return fmt.Errorf("%s: %w", k, err)
		}
		(*p)[k] = s
	}
	return nil
}

// Remap substitutes a property value, either by position (List, the
// source value parsed as an index) or by key (Map).
type Remap struct {
	List []string
	Map  map[string]string
}

func (r *Remap) UnmarshalJSON(data []byte) error {
	var raw interface{}
	if err := decode(data, &raw); err != nil {
		return err
	}
	switch v := raw.(type) {
	case []interface{}:
		r.List = make([]string, len(v))
		for i, item := range v {
			s, err := scalar(item)
			if err != nil {
				return err
			}
			r.List[i] = s
		}
	case map[string]interface{}:
		r.Map = make(map[string]string, len(v))
		for k, item := range v {
			s, err := scalar(item)
			if err != nil {
				return err
			}
			r.Map[k] = s
		}
	default:
		return fmt.Errorf("remap must be an array or object, got %T", raw)
	}
	return nil
}

func (r Remap) Apply(v string) string {
	if r.Map != nil {
		if out, ok := r.Map[v]; ok {
			return out
		}
		return v
	}
	if i, err := strconv.Atoi(v); err == nil && i >= 0 && i < len(r.List) {
		return r.List[i]
	}
	return v
}

// Ops is the property post-processing shared by rules and mapping leaves.
type Ops struct {
	Additions Props             `json:"additions"`
	Removals  []string          `json:"removals"`
	Renames   map[string]string `json:"renames"`
	Remaps    map[string]Remap  `json:"remaps"`
}

// merge overlays o on top of base.
func (base Ops) merge(o Ops) Ops {
	out := Ops{
		Additions: Props{},
		Removals:  append(append([]string{}, base.Removals...), o.Removals...),
		Renames:   map[string]string{},
		Remaps:    map[string]Remap{},
	}
	for k, v := range base.Additions {
		out.Additions[k] = v
	}
	for k, v := range o.Additions {
		out.Additions[k] = v
	}
	for k, v := range base.Renames {
		out.Renames[k] = v
	}
	for k, v := range o.Renames {
		out.Renames[k] = v
	}
	for k, v := range base.Remaps {
		out.Remaps[k] = v
	}
	for k, v := range o.Remaps {
		out.Remaps[k] = v
	}
	return out
}

type Leaf struct {
	Name string `json:"name"`
	Ops
}

// Node is one level of a mapping: either a leaf or children keyed by the
// value of the next identifier property, "def" being the fallback.
type Node struct {
	Leaf     *Leaf
	Children map[string]*Node
}

func (n *Node) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err == nil {
		n.Leaf = &Leaf{Name: name}
		return nil
	}
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(data, &probe); err != nil {
		return err
	}
	if raw, ok := probe["name"]; ok {
		var s string
		if json.Unmarshal(raw, &s) == nil {
			n.Leaf = &Leaf{}
			return json.Unmarshal(data, n.Leaf)
		}
	}
	n.Children = make(map[string]*Node, len(probe))
	for k, raw := range probe {
		child := &Node{}
		if err := json.Unmarshal(raw, child); err != nil {
			return fmt.Errorf("mapping %q: %w", k, err)
		}
		n.Children[k] = child
	}
	return nil
}

// Identifier accepts a single key or a list of keys.
type Identifier []string

func (id *Identifier) UnmarshalJSON(data []byte) error {
	var one string
	if err := json.Unmarshal(data, &one); err == nil {
		*id = Identifier{one}
		return nil
	}
	var many []string
	if err := json.Unmarshal(data, &many); err != nil {
		return err
	}
	*id = many
	return nil
}

type Rule struct {
	Name       string     `json:"name"`
	Defaults   Props      `json:"defaults"`
	Identifier Identifier `json:"identifier"`
	Mapping    *Node      `json:"mapping"`
	Ops
}

// Rules maps normalized source names to their rule, plus the numeric id
// table used for legacy_<id>:<data> keys.
type Rules struct {
	byName map[string]*Rule
	legacy map[string]string
}

// ParseRules reads a JSONC object of name -> rule.
func ParseRules(data []byte) (*Rules, error) {
	var raw map[string]*Rule
	if err := json.Unmarshal(jsonc.ToJSON(data), &raw); err != nil {
		return nil, fmt.Errorf("translator: parse rules: %w", err)
	}
	r := &Rules{byName: make(map[string]*Rule, len(raw))}
	for name, rule := range raw {
		if rule == nil {
			continue
		}
		r.byName[define.NormalizeName(name)] = rule
	}
	legacy, err := parseLegacy(legacyIDsData)
	if err != nil {
		return nil, err
	}
	r.legacy = legacy
	return r, nil
}

func parseLegacy(data []byte) (map[string]string, error) {
	var legacy map[string]string
	if err := json.Unmarshal(jsonc.ToJSON(data), &legacy); err != nil {
		return nil, fmt.Errorf("translator: parse legacy ids: %w", err)
	}
	return legacy, nil
}

// LoadRules reads a rule file, or the embedded table when path is empty.
func LoadRules(path string) (*Rules, error) {
	if path == "" {
		return DefaultRules()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseRules(data)
}

func DefaultRules() (*Rules, error) {
	return ParseRules(defaultRulesData)
}

// Names lists every source name with a rule, sorted.
func (r *Rules) Names() []string {
	out := make([]string, 0, len(r.byName))
	for name := range r.byName {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
