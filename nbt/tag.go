package nbt

import "fmt"

// TagType is the type byte that prefixes every named tag.
type TagType byte

const (
	TagEnd TagType = iota
	TagByte
	TagShort
	TagInt
	TagLong
	TagFloat
	TagDouble
	TagByteArray
	TagString
	TagList
	TagCompound
	TagIntArray
	TagLongArray
)

var tagNames = [...]string{
	"TAG_End", "TAG_Byte", "TAG_Short", "TAG_Int", "TAG_Long", "TAG_Float", "TAG_Double",
	"TAG_Byte_Array", "TAG_String", "TAG_List", "TAG_Compound", "TAG_Int_Array", "TAG_Long_Array",
}

func (t TagType) String() string {
	if int(t) < len(tagNames) {
		return tagNames[t]
	}
	return fmt.Sprintf("TAG_Unknown(%d)", byte(t))
}

// Tag is one payload of the tree. The concrete types below are the only
// implementations; code switching over a Tag should handle every one of them.
type Tag interface {
	Type() TagType
}

type (
	End       struct{}
	Byte      int8
	Short     int16
	Int       int32
	Long      int64
	Float     float32
	Double    float64
	ByteArray []byte
	String    string
	IntArray  []int32
	LongArray []int64
)

// List is a homogeneous sequence. Elem is kept even when Items is empty
// since it is part of the wire format.
type List struct {
	Elem  TagType
	Items []Tag
}

func (End) Type() TagType       { return TagEnd }
func (Byte) Type() TagType      { return TagByte }
func (Short) Type() TagType     { return TagShort }
func (Int) Type() TagType       { return TagInt }
func (Long) Type() TagType      { return TagLong }
func (Float) Type() TagType     { return TagFloat }
func (Double) Type() TagType    { return TagDouble }
func (ByteArray) Type() TagType { return TagByteArray }
func (String) Type() TagType    { return TagString }
func (*List) Type() TagType     { return TagList }
func (*Compound) Type() TagType { return TagCompound }
func (IntArray) Type() TagType  { return TagIntArray }
func (LongArray) Type() TagType { return TagLongArray }

// NewList builds a list, taking the element type from the first item.
// An empty list gets elem as its element type.
func NewList(elem TagType, items ...Tag) *List {
	if len(items) > 0 {
		elem = items[0].Type()
	}
	return &List{Elem: elem, Items: items}
}

// Number widens any integer tag to int64.
func Number(t Tag) (int64, bool) {
	switch v := t.(type) {
	case Byte:
		return int64(v), true
	case Short:
		return int64(v), true
	case Int:
		return int64(v), true
	case Long:
		return int64(v), true
	}
	return 0, false
}

// Text returns a printable form of scalar tags, used for block properties.
func Text(t Tag) (string, bool) {
	switch v := t.(type) {
	case String:
		return string(v), true
	case Byte, Short, Int, Long:
		n, _ := Number(v)
		return fmt.Sprint(n), true
	case Float:
		return fmt.Sprint(float32(v)), true
	case Double:
		return fmt.Sprint(float64(v)), true
	}
	return "", false
}
