package aamp

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/wildbits/wildbits/yamlutil"
)

var ErrInvalidText = errors.New("invalid AAMP text")

var vectorTags = map[Type]string{
	TypeVec2:  "!vec2",
	TypeVec3:  "!vec3",
	TypeVec4:  "!vec4",
	TypeColor: "!color",
	TypeQuat:  "!quat",
}

var stringTags = map[Type]string{
	TypeString32:  "!str32",
	TypeString64:  "!str64",
	TypeString256: "!str256",
}

var bufferTags = map[Type]string{
	TypeBufferInt:    "!buffer_int",
	TypeBufferU32:    "!buffer_u32",
	TypeBufferF32:    "!buffer_f32",
	TypeBufferBinary: "!buffer_binary",
}

const curveValues = 32

// ToText renders the document as YAML. Names missing from names are guessed
// from their parent; unresolved hashes are written as integer keys.
func (pio *ParameterIO) ToText(names *NameTable) (string, error) {
	root := pio.Root
	if root == nil {
		root = &ParameterList{}
	}
	rootNode, err := listNode(root, "param_root", names)
	if err != nil {
		return "", err
	}

	typeName := pio.Type
	if typeName == "" {
		typeName = "xml"
	}
	doc := &yaml.Node{Kind: yaml.MappingNode, Tag: "!io", Content: []*yaml.Node{
		yamlutil.Scalar("!!str", "version"), yamlutil.Scalar("!!int", strconv.FormatUint(uint64(pio.Version), 10)),
		yamlutil.Scalar("!!str", "type"), yamlutil.Scalar("!!str", typeName),
		yamlutil.Scalar("!!str", "param_root"), rootNode,
	}}

	out, err := yaml.Marshal(doc)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// keyNode names hash, trying the parent-derived guesses first.
func keyNode(hash uint32, parent string, index int, names *NameTable) (*yaml.Node, string) {
	if name, ok := names.Guess(hash, parent, index); ok {
		return yamlutil.Scalar("!!str", name), name
	}
	return yamlutil.Scalar("!!int", strconv.FormatUint(uint64(hash), 10)), ""
}

func listNode(l *ParameterList, name string, names *NameTable) (*yaml.Node, error) {
	objects := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	for i, o := range l.Objects {
		key, objName := keyNode(o.Hash, name, i, names)
		value, err := objectNode(o.Object, objName, names)
		if err != nil {
			return nil, err
		}
		objects.Content = append(objects.Content, key, value)
	}

	lists := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	for i, child := range l.Lists {
		key, childName := keyNode(child.Hash, name, i, names)
		value, err := listNode(child.List, childName, names)
		if err != nil {
			return nil, err
		}
		lists.Content = append(lists.Content, key, value)
	}

	return &yaml.Node{Kind: yaml.MappingNode, Tag: "!list", Content: []*yaml.Node{
		yamlutil.Scalar("!!str", "objects"), objects,
		yamlutil.Scalar("!!str", "lists"), lists,
	}}, nil
}

func objectNode(o *ParameterObject, name string, names *NameTable) (*yaml.Node, error) {
	node := &yaml.Node{Kind: yaml.MappingNode, Tag: "!obj"}
	for i, p := range o.Params {
		key, _ := keyNode(p.Hash, name, i, names)
		value, err := paramNode(p.Param)
		if err != nil {
			return nil, fmt.Errorf("parameter %s: %w", key.Value, err)
		}
		node.Content = append(node.Content, key, value)
	}
	return node, nil
}

func uintNode(v uint32) *yaml.Node {
	return yamlutil.Scalar("!!int", strconv.FormatUint(uint64(v), 10))
}

func paramNode(p Parameter) (*yaml.Node, error) {
	if err := validate(p); err != nil {
		return nil, err
	}

	switch v := p.Value.(type) {
	case bool:
		return yamlutil.Scalar("!!bool", strconv.FormatBool(v)), nil
	case float32:
		return yamlutil.Scalar("!!float", yamlutil.FormatFloat(float64(v), 32)), nil
	case int32:
		return yamlutil.Scalar("!!int", strconv.FormatInt(int64(v), 10)), nil
	case uint32:
		return yamlutil.Scalar("!u", fmt.Sprintf("0x%x", v)), nil
	case Vec2:
		return yamlutil.Float32s(vectorTags[p.Type], v[:]), nil
	case Vec3:
		return yamlutil.Float32s(vectorTags[p.Type], v[:]), nil
	case Vec4:
		return yamlutil.Float32s(vectorTags[p.Type], v[:]), nil
	case string:
		if tag, ok := stringTags[p.Type]; ok {
			return yamlutil.Scalar(tag, v), nil
		}
		return yamlutil.Scalar("!!str", v), nil
	case []Curve:
		items := make([]*yaml.Node, 0, len(v)*curveValues)
		for _, c := range v {
			items = append(items, uintNode(c.A), uintNode(c.B))
			items = append(items, yamlutil.Float32s("", c.Floats[:]).Content...)
		}
		return yamlutil.FlowSeq("!curve", items...), nil
	case []int32:
		items := make([]*yaml.Node, len(v))
		for i, x := range v {
			items[i] = yamlutil.Scalar("!!int", strconv.FormatInt(int64(x), 10))
		}
		return yamlutil.FlowSeq(bufferTags[p.Type], items...), nil
	case []uint32:
		items := make([]*yaml.Node, len(v))
		for i, x := range v {
			items[i] = uintNode(x)
		}
		return yamlutil.FlowSeq(bufferTags[p.Type], items...), nil
	case []float32:
		return yamlutil.Float32s(bufferTags[p.Type], v), nil
	case []byte:
		items := make([]*yaml.Node, len(v))
		for i, x := range v {
			items[i] = uintNode(uint32(x))
		}
		return yamlutil.FlowSeq(bufferTags[p.Type], items...), nil
	}
	return nil, fmt.Errorf("%w: %T", ErrBadValue, p.Value)
}

// validate checks that the Go value matches the parameter type.
func validate(p Parameter) error {
	if p.Type.isString() {
		_, ok := p.Value.(string)
		return valueErr(ok, p)
	}
	_, _, err := encodeValue(p)
	return err
}

// FromText parses YAML written by ToText. Every string key is recorded in
// names.
func FromText(text string, names *NameTable) (*ParameterIO, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal([]byte(text), &doc); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidText, err)
	}
	top := yamlutil.Root(&doc)
	if top == nil || top.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("%w: expected a parameter document", ErrInvalidText)
	}

	pio := &ParameterIO{Type: "xml"}
	for i := 0; i+1 < len(top.Content); i += 2 {
		key, value := top.Content[i].Value, top.Content[i+1]
		switch key {
		case "version":
			v, err := strconv.ParseUint(value.Value, 0, 32)
			if err != nil {
				return nil, textErr(value, err)
			}
			pio.Version = uint32(v)
		case "type":
			pio.Type = value.Value
		case "param_root":
			root, err := listFromNode(value, names, 0)
			if err != nil {
				return nil, err
			}
			pio.Root = root
		}
	}
	if pio.Root == nil {
		return nil, fmt.Errorf("%w: missing param_root", ErrInvalidText)
	}
	return pio, nil
}

func textErr(node *yaml.Node, err error) error {
	return fmt.Errorf("%w: line %d: %w", ErrInvalidText, node.Line, err)
}

func keyHash(node *yaml.Node, names *NameTable) (uint32, error) {
	if node.ShortTag() == "!!int" {
		v, err := strconv.ParseUint(node.Value, 0, 32)
		if err != nil {
			return 0, textErr(node, err)
		}
		return uint32(v), nil
	}
	return names.Add(node.Value), nil
}

func listFromNode(node *yaml.Node, names *NameTable, depth int) (*ParameterList, error) {
	if depth > maxDepth {
		return nil, textErr(node, errors.New("nesting too deep"))
	}
	if node.Kind != yaml.MappingNode {
		return nil, textErr(node, errors.New("expected a list"))
	}

	l := &ParameterList{}
	for i := 0; i+1 < len(node.Content); i += 2 {
		section, children := node.Content[i].Value, node.Content[i+1]
		if children.Kind != yaml.MappingNode {
			return nil, textErr(children, fmt.Errorf("expected a mapping for %s", section))
		}
		for j := 0; j+1 < len(children.Content); j += 2 {
			hash, err := keyHash(children.Content[j], names)
			if err != nil {
				return nil, err
			}
			switch section {
			case "objects":
				obj, err := objectFromNode(children.Content[j+1], names)
				if err != nil {
					return nil, err
				}
				l.Objects = append(l.Objects, ObjectEntry{Hash: hash, Object: obj})
			case "lists":
				child, err := listFromNode(children.Content[j+1], names, depth+1)
				if err != nil {
					return nil, err
				}
				l.Lists = append(l.Lists, ListEntry{Hash: hash, List: child})
			default:
				return nil, textErr(node.Content[i], fmt.Errorf("unknown list section %s", section))
			}
		}
	}
	return l, nil
}

func objectFromNode(node *yaml.Node, names *NameTable) (*ParameterObject, error) {
	if node.Kind != yaml.MappingNode {
		return nil, textErr(node, errors.New("expected an object"))
	}
	o := &ParameterObject{}
	for i := 0; i+1 < len(node.Content); i += 2 {
		hash, err := keyHash(node.Content[i], names)
		if err != nil {
			return nil, err
		}
		p, err := paramFromNode(node.Content[i+1])
		if err != nil {
			return nil, textErr(node.Content[i+1], err)
		}
		o.Params = append(o.Params, ParamEntry{Hash: hash, Param: p})
	}
	return o, nil
}

func tagType(tags map[Type]string, tag string) (Type, bool) {
	for t, s := range tags {
		if s == tag {
			return t, true
		}
	}
	return 0, false
}

func parseUints(node *yaml.Node, bits int) ([]uint64, error) {
	out := make([]uint64, len(node.Content))
	for i, item := range node.Content {
		v, err := strconv.ParseUint(item.Value, 0, bits)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func paramFromNode(node *yaml.Node) (Parameter, error) {
	tag := node.ShortTag()
	value := node.Value

	if t, ok := tagType(vectorTags, tag); ok {
		f, err := yamlutil.ParseFloat32s(node)
		if err != nil {
			return Parameter{}, err
		}
		want := t.vectorLen()
		if len(f) != want {
			return Parameter{}, fmt.Errorf("%s needs %d values, got %d", tag, want, len(f))
		}
		switch want {
		case 2:
			return Parameter{Type: t, Value: Vec2(f)}, nil
		case 3:
			return Parameter{Type: t, Value: Vec3(f)}, nil
		}
		return Parameter{Type: t, Value: Vec4(f)}, nil
	}
	if t, ok := tagType(stringTags, tag); ok {
		return Parameter{Type: t, Value: value}, nil
	}

	switch tag {
	case "!!bool":
		return Parameter{Type: TypeBool, Value: strings.EqualFold(value, "true")}, nil
	case "!!float":
		f, err := yamlutil.ParseFloat(value, 32)
		return Parameter{Type: TypeF32, Value: float32(f)}, err
	case "!!int":
		v, err := strconv.ParseInt(value, 0, 32)
		return Parameter{Type: TypeInt, Value: int32(v)}, err
	case "!!str":
		return Parameter{Type: TypeStringRef, Value: value}, nil
	case "!u":
		v, err := strconv.ParseUint(value, 0, 32)
		return Parameter{Type: TypeU32, Value: uint32(v)}, err

	case "!curve":
		n := len(node.Content) / curveValues
		if n < 1 || n > 4 || len(node.Content)%curveValues != 0 {
			return Parameter{}, fmt.Errorf("curves need 1 to 4 groups of %d values", curveValues)
		}
		curves := make([]Curve, n)
		for i := range curves {
			group := node.Content[i*curveValues : (i+1)*curveValues]
			ab, err := parseUints(&yaml.Node{Content: group[:2]}, 32)
			if err != nil {
				return Parameter{}, err
			}
			f, err := yamlutil.ParseFloat32s(&yaml.Node{Content: group[2:]})
			if err != nil {
				return Parameter{}, err
			}
			curves[i].A, curves[i].B = uint32(ab[0]), uint32(ab[1])
			copy(curves[i].Floats[:], f)
		}
		return Parameter{Type: TypeCurve1 + Type(n-1), Value: curves}, nil

	case "!buffer_int":
		v := make([]int32, len(node.Content))
		for i, item := range node.Content {
			x, err := strconv.ParseInt(item.Value, 0, 32)
			if err != nil {
				return Parameter{}, err
			}
			v[i] = int32(x)
		}
		return Parameter{Type: TypeBufferInt, Value: v}, nil
	case "!buffer_u32":
		raw, err := parseUints(node, 32)
		v := make([]uint32, len(raw))
		for i, x := range raw {
			v[i] = uint32(x)
		}
		return Parameter{Type: TypeBufferU32, Value: v}, err
	case "!buffer_f32":
		v, err := yamlutil.ParseFloat32s(node)
		return Parameter{Type: TypeBufferF32, Value: v}, err
	case "!buffer_binary":
		raw, err := parseUints(node, 8)
		v := make([]byte, len(raw))
		for i, x := range raw {
			v[i] = byte(x)
		}
		return Parameter{Type: TypeBufferBinary, Value: v}, err
	}
	return Parameter{}, fmt.Errorf("unknown parameter tag %s", tag)
}
