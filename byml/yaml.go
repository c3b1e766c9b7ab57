package byml

import (
	"encoding/base64"
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/wildbits/wildbits/yamlutil"
)

const (
	tagUInt   = "!u"
	tagInt64  = "!l"
	tagUInt64 = "!ul"
	tagDouble = "!f64"
)

var ErrInvalidText = errors.New("invalid BYML text")

// ToText renders root as YAML. Types without a YAML equivalent carry a local
// tag: !u for uint32, !l for int64, !ul for uint64 and !f64 for float64.
func ToText(root any) (string, error) {
	node, err := toNode(root)
	if err != nil {
		return "", err
	}
	out, err := yaml.Marshal(node)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

func isScalar(v any) bool {
	switch v.(type) {
	case Hash, Array, []byte, string:
		return false
	}
	return true
}

func toNode(v any) (*yaml.Node, error) {
	switch n := v.(type) {
	case Hash:
		keys := make([]string, 0, len(n))
		for k := range n {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		node := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
		for _, k := range keys {
			child, err := toNode(n[k])
			if err != nil {
				return nil, err
			}
			node.Content = append(node.Content, yamlutil.Scalar("!!str", k), child)
		}
		return node, nil

	case Array:
		node := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
		flow := len(n) > 0 && len(n) <= 8
		for _, item := range n {
			child, err := toNode(item)
			if err != nil {
				return nil, err
			}
			flow = flow && isScalar(item)
			node.Content = append(node.Content, child)
		}
		if flow {
			node.Style = yaml.FlowStyle
		}
		return node, nil

	case string:
		return yamlutil.Scalar("!!str", n), nil
	case []byte:
		return yamlutil.Scalar("!!binary", base64.StdEncoding.EncodeToString(n)), nil
	case bool:
		return yamlutil.Scalar("!!bool", strconv.FormatBool(n)), nil
	case int32:
		return yamlutil.Scalar("!!int", strconv.FormatInt(int64(n), 10)), nil
	case float32:
		return yamlutil.Scalar("!!float", yamlutil.FormatFloat(float64(n), 32)), nil
	case uint32:
		return yamlutil.Scalar(tagUInt, fmt.Sprintf("0x%08x", n)), nil
	case int64:
		return yamlutil.Scalar(tagInt64, strconv.FormatInt(n, 10)), nil
	case uint64:
		return yamlutil.Scalar(tagUInt64, strconv.FormatUint(n, 10)), nil
	case float64:
		return yamlutil.Scalar(tagDouble, yamlutil.FormatFloat(n, 64)), nil
	case nil:
		return yamlutil.Scalar("!!null", "null"), nil
	}
	return nil, fmt.Errorf("%w: %T", ErrUnsupported, v)
}

// FromText parses YAML produced by ToText (or edited from it).
func FromText(text string) (any, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal([]byte(text), &doc); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidText, err)
	}
	top := yamlutil.Root(&doc)
	if top == nil {
		return nil, nil
	}
	root, err := fromNode(top, 0)
	if err != nil {
		return nil, err
	}
	switch root.(type) {
	case Hash, Array, nil:
		return root, nil
	}
	return nil, fmt.Errorf("%w: root must be a mapping or a sequence", ErrInvalidText)
}

func fromNode(node *yaml.Node, depth int) (any, error) {
	if depth > maxDepth {
		return nil, fmt.Errorf("%w: nesting too deep", ErrInvalidText)
	}

	switch node.Kind {
	case yaml.AliasNode:
		return fromNode(node.Alias, depth+1)

	case yaml.MappingNode:
		hash := make(Hash, len(node.Content)/2)
		for i := 0; i+1 < len(node.Content); i += 2 {
			v, err := fromNode(node.Content[i+1], depth+1)
			if err != nil {
				return nil, err
			}
			hash[node.Content[i].Value] = v
		}
		return hash, nil

	case yaml.SequenceNode:
		arr := make(Array, len(node.Content))
		for i, child := range node.Content {
			v, err := fromNode(child, depth+1)
			if err != nil {
				return nil, err
			}
			arr[i] = v
		}
		return arr, nil

	case yaml.ScalarNode:
		v, err := fromScalar(node)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %w", ErrInvalidText, node.Line, err)
		}
		return v, nil
	}
	return nil, fmt.Errorf("%w: line %d: unexpected node", ErrInvalidText, node.Line)
}

func fromScalar(node *yaml.Node) (any, error) {
	value := node.Value
	switch tag := node.ShortTag(); tag {
	case "!!str":
		return value, nil
	case "!!null":
		return nil, nil
	case "!!bool":
		return strings.EqualFold(value, "true"), nil
	case "!!int":
		v, err := strconv.ParseInt(value, 0, 64)
		if err != nil {
			return nil, err
		}
		if v < math.MinInt32 || v > math.MaxInt32 {
			return v, nil
		}
		return int32(v), nil
	case "!!float":
		v, err := yamlutil.ParseFloat(value, 32)
		return float32(v), err
	case "!!binary":
		return base64.StdEncoding.DecodeString(strings.Join(strings.Fields(value), ""))
	case tagUInt:
		v, err := strconv.ParseUint(value, 0, 32)
		return uint32(v), err
	case tagInt64:
		return strconv.ParseInt(value, 0, 64)
	case tagUInt64:
		return strconv.ParseUint(value, 0, 64)
	case tagDouble:
		return yamlutil.ParseFloat(value, 64)
	default:
		return nil, fmt.Errorf("unknown tag %s", tag)
	}
}
