package nbt

// Compound keeps its children in insertion order so that re-encoding and
// iteration (e.g. over the regions of a multi-region file) are deterministic.
type Compound struct {
	names  []string
	values map[string]Tag
}

func NewCompound() *Compound {
	return &Compound{values: make(map[string]Tag)}
}

func (c *Compound) Len() int {
	if c == nil {
		return 0
	}
	return len(c.names)
}

// Names returns the child names in insertion order.
func (c *Compound) Names() []string {
	if c == nil {
		return nil
	}
	out := make([]string, len(c.names))
	copy(out, c.names)
	return out
}

func (c *Compound) Get(name string) (Tag, bool) {
	if c == nil {
		return nil, false
	}
	t, ok := c.values[name]
	return t, ok
}

func (c *Compound) Has(name string) bool {
	_, ok := c.Get(name)
	return ok
}

// Set adds or replaces a child. Replacing keeps the original position.
func (c *Compound) Set(name string, t Tag) *Compound {
	if c.values == nil {
		c.values = make(map[string]Tag)
	}
	if _, ok := c.values[name]; !ok {
		c.names = append(c.names, name)
	}
	c.values[name] = t
	return c
}

func (c *Compound) Compound(name string) (*Compound, bool) {
	t, _ := c.Get(name)
	v, ok := t.(*Compound)
	return v, ok
}

func (c *Compound) List(name string) (*List, bool) {
	t, _ := c.Get(name)
	v, ok := t.(*List)
	return v, ok
}

func (c *Compound) String(name string) (string, bool) {
	t, _ := c.Get(name)
	v, ok := t.(String)
	return string(v), ok
}

func (c *Compound) ByteArray(name string) ([]byte, bool) {
	t, _ := c.Get(name)
	v, ok := t.(ByteArray)
	return []byte(v), ok
}

func (c *Compound) IntArray(name string) ([]int32, bool) {
	t, _ := c.Get(name)
	v, ok := t.(IntArray)
	return []int32(v), ok
}

func (c *Compound) LongArray(name string) ([]int64, bool) {
	t, _ := c.Get(name)
	v, ok := t.(LongArray)
	return []int64(v), ok
}

// Number reads any integer child widened to int64.
func (c *Compound) Number(name string) (int64, bool) {
	t, ok := c.Get(name)
	if !ok {
		return 0, false
	}
	return Number(t)
}
