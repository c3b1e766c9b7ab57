package yamlutil

import (
	"math"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Scalar builds a scalar node. The encoder drops tags that the value resolves
// to anyway and quotes strings that would otherwise read as another type.
func Scalar(tag, value string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: tag, Value: value}
}

// FlowSeq builds a single-line sequence node.
func FlowSeq(tag string, items ...*yaml.Node) *yaml.Node {
	return &yaml.Node{Kind: yaml.SequenceNode, Tag: tag, Style: yaml.FlowStyle, Content: items}
}

// FormatFloat writes f so that YAML reads it back as a float.
func FormatFloat(f float64, bits int) string {
	switch {
	case math.IsInf(f, 1):
		return ".inf"
	case math.IsInf(f, -1):
		return "-.inf"
	case math.IsNaN(f):
		return ".nan"
	}
	s := strconv.FormatFloat(f, 'g', -1, bits)
	if !strings.ContainsAny(s, ".e") {
		s += ".0"
	}
	return s
}

// ParseFloat reads a YAML float, including the .inf and .nan forms.
func ParseFloat(s string, bits int) (float64, error) {
	switch strings.ToLower(s) {
	case ".inf", "+.inf":
		return math.Inf(1), nil
	case "-.inf":
		return math.Inf(-1), nil
	case ".nan":
		return math.NaN(), nil
	}
	return strconv.ParseFloat(s, bits)
}

// Float32s formats a vector as a flow sequence.
func Float32s(tag string, values []float32) *yaml.Node {
	items := make([]*yaml.Node, len(values))
	for i, v := range values {
		items[i] = Scalar("!!float", FormatFloat(float64(v), 32))
	}
	return FlowSeq(tag, items...)
}

// ParseFloat32s reads every item of a sequence node as a float.
func ParseFloat32s(node *yaml.Node) ([]float32, error) {
	out := make([]float32, len(node.Content))
	for i, item := range node.Content {
		v, err := ParseFloat(item.Value, 32)
		if err != nil {
			return nil, err
		}
		out[i] = float32(v)
	}
	return out, nil
}

// Root returns the top node of a parsed document, or nil for an empty one.
func Root(doc *yaml.Node) *yaml.Node {
	if doc.Kind == yaml.DocumentNode {
		if len(doc.Content) == 0 {
			return nil
		}
		return doc.Content[0]
	}
	if doc.Kind == 0 {
		return nil
	}
	return doc
}
