package msyt

import (
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/wildbits/wildbits/yamlutil"
)

var ErrInvalidText = errors.New("invalid MSYT text")

type textControl struct {
	Group  uint16 `yaml:"group"`
	Type   uint16 `yaml:"type"`
	Params string `yaml:"params,omitempty"`
}

type textContent struct {
	Text    *string      `yaml:"text,omitempty"`
	Control *textControl `yaml:"control,omitempty"`
	End     *textControl `yaml:"end,omitempty"`
}

type textEntry struct {
	Attributes string        `yaml:"attributes,omitempty"`
	Style      uint32        `yaml:"style,omitempty"`
	Contents   []textContent `yaml:"contents"`
}

type textDocument struct {
	GroupCount    uint32    `yaml:"group_count"`
	AttributeSize uint32    `yaml:"attribute_size,omitempty"`
	Entries       yaml.Node `yaml:"entries"`
}

// ToText renders the messages as YAML, keyed by label in message order.
func (m *Msbt) ToText() (string, error) {
	doc := textDocument{
		GroupCount:    m.GroupCount,
		AttributeSize: m.AttributeSize,
		Entries:       yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"},
	}
	for _, e := range m.Entries {
		te := textEntry{Style: e.Style, Contents: []textContent{}}
		if m.AttributeSize > 0 {
			te.Attributes = hex.EncodeToString(e.Attribute)
		}
		for _, c := range e.Contents {
			switch {
			case c.Control == nil:
				text := c.Text
				te.Contents = append(te.Contents, textContent{Text: &text})
			case c.Control.End:
				te.Contents = append(te.Contents, textContent{End: &textControl{Group: c.Control.Group, Type: c.Control.Type}})
			default:
				te.Contents = append(te.Contents, textContent{Control: &textControl{
					Group:  c.Control.Group,
					Type:   c.Control.Type,
					Params: hex.EncodeToString(c.Control.Params),
				}})
			}
		}

		var value yaml.Node
		if err := value.Encode(te); err != nil {
			return "", err
		}
		doc.Entries.Content = append(doc.Entries.Content, yamlutil.Scalar("!!str", e.Label), &value)
	}

	out, err := yaml.Marshal(&doc)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// FromText parses YAML messages into a new UTF-16 file.
func FromText(text string, order binary.ByteOrder) (*Msbt, error) {
	m := New(order)
	if err := m.SetText(text); err != nil {
		return nil, err
	}
	return m, nil
}

// SetText replaces the messages with the ones in text. Encoding, byte order
// and unknown sections are kept.
func (m *Msbt) SetText(text string) error {
	var doc textDocument
	if err := yaml.Unmarshal([]byte(text), &doc); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidText, err)
	}
	if doc.Entries.Kind != yaml.MappingNode {
		return fmt.Errorf("%w: entries must be a mapping", ErrInvalidText)
	}
	if doc.GroupCount == 0 {
		return fmt.Errorf("%w: group_count must be positive", ErrInvalidText)
	}

	entries := make([]Entry, 0, len(doc.Entries.Content)/2)
	seen := map[string]bool{}
	for i := 0; i+1 < len(doc.Entries.Content); i += 2 {
		key, value := doc.Entries.Content[i], doc.Entries.Content[i+1]
		if len(key.Value) > 0xFF {
			return fmt.Errorf("%w: line %d: label too long", ErrInvalidText, key.Line)
		}
		if seen[key.Value] {
			return fmt.Errorf("%w: line %d: duplicate label %s", ErrInvalidText, key.Line, key.Value)
		}
		seen[key.Value] = true

		var te textEntry
		if err := value.Decode(&te); err != nil {
			return fmt.Errorf("%w: line %d: %w", ErrInvalidText, value.Line, err)
		}
		e, err := te.entry(key.Value, doc.AttributeSize)
		if err != nil {
			return fmt.Errorf("%w: line %d: %w", ErrInvalidText, value.Line, err)
		}
		entries = append(entries, e)
	}

	m.GroupCount = doc.GroupCount
	m.AttributeSize = doc.AttributeSize
	m.Entries = entries
	return nil
}

func (te textEntry) entry(label string, attributeSize uint32) (Entry, error) {
	e := Entry{Label: label, Style: te.Style}
	if te.Attributes != "" {
		attr, err := hex.DecodeString(te.Attributes)
		if err != nil {
			return e, err
		}
		if uint32(len(attr)) > attributeSize {
			return e, fmt.Errorf("attributes of %s exceed %d bytes", label, attributeSize)
		}
		e.Attribute = attr
	}

	for _, c := range te.Contents {
		switch {
		case c.Text != nil:
			e.Contents = append(e.Contents, Content{Text: *c.Text})
		case c.Control != nil:
			params, err := hex.DecodeString(c.Control.Params)
			if err != nil {
				return e, err
			}
			e.Contents = append(e.Contents, Content{Control: &Control{
				Group:  c.Control.Group,
				Type:   c.Control.Type,
				Params: params,
			}})
		case c.End != nil:
			e.Contents = append(e.Contents, Content{Control: &Control{Group: c.End.Group, Type: c.End.Type, End: true}})
		default:
			return e, fmt.Errorf("empty content in %s", label)
		}
	}
	return e, nil
}
