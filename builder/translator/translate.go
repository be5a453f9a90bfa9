// Package translator rewrites source edition block ids into the target
// edition vocabulary using a rule table.
package translator

import (
	"strings"

	"omevox/builder/define"
)

// blacklist holds block internals that never exist as placeable blocks.
var blacklist = map[string]bool{
	"minecraft:moving_piston":               true,
	"minecraft:moving_block":                true,
	"minecraft:piston_arm_collision":        true,
	"minecraft:sticky_piston_arm_collision": true,
}

const legacyPrefix = "legacy_"

// resolveLegacy turns legacy_<id>:<data> into a flattened id, trying the
// exact data value first and then data 0. Unknown ids resolve to "".
func (r *Rules) resolveLegacy(name string) (string, bool) {
	if !strings.HasPrefix(name, legacyPrefix) {
		return "", false
	}
	key := strings.TrimPrefix(name, legacyPrefix)
	if id, ok := r.legacy[key]; ok {
		return id, true
	}
	if i := strings.IndexByte(key, ':'); i >= 0 {
		if id, ok := r.legacy[key[:i]+":0"]; ok {
			return id, true
		}
	}
	return "", true
}

// Translate maps one id. "" means the voxel is omitted.
func (r *Rules) Translate(id string) string {
	if define.IsAir(id) {
		return ""
	}
	b := define.ParseBlockDescribe(id)
	if flat, ok := r.resolveLegacy(b.Name); ok {
		if flat == "" {
			return ""
		}
		b = define.ParseBlockDescribe(flat)
	}
	if define.IsAir(b.Name) || blacklist[b.Name] {
		return ""
	}
	rule, ok := r.byName[b.Name]
	if !ok {
		return b.Name
	}
	props := b.Properties()

	for k, v := range rule.Defaults {
		if _, set := props[k]; !set {
			props[k] = v
		}
	}

	name := rule.Name
	if name == "" {
		name = b.Name
	}
	ops := rule.Ops
	if rule.Mapping != nil {
		if leaf := walk(rule.Mapping, rule.Identifier, props); leaf != nil {
			if leaf.Name != "" {
				name = leaf.Name
			}
			ops = ops.merge(leaf.Ops)
		}
	}
	for _, k := range rule.Identifier {
		delete(props, k)
	}

	for _, k := range ops.Removals {
		delete(props, k)
	}
	out := make(map[string]string, len(props)+len(ops.Additions))
	for k, v := range props {
		if nk, ok := ops.Renames[k]; ok {
			k = nk
		}
		if rm, ok := ops.Remaps[k]; ok {
			v = rm.Apply(v)
		}
		out[k] = v
	}
	for k, v := range ops.Additions {
		out[k] = v
	}

	name = define.NormalizeName(name)
	if define.IsAir(name) || blacklist[name] {
		return ""
	}
	return define.NewBlockDescribe(name, out).String()
}

// walk descends one level per identifier key, taking the child for the
// property value or "def". A missing branch yields nil.
func walk(n *Node, keys []string, props map[string]string) *Leaf {
	for _, k := range keys {
		if n.Leaf != nil {
			break
		}
		child, ok := n.Children[props[k]]
		if !ok {
			child, ok = n.Children["def"]
		}
		if !ok {
			return nil
		}
		n = child
	}
	if n.Leaf == nil {
		if def, ok := n.Children["def"]; ok {
			return def.Leaf
		}
	}
	return n.Leaf
}
