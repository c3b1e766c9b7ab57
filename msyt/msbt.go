package msyt

import (
	"encoding/binary"
	"errors"
	"fmt"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/unicode"
)

const (
	Magic = "MsgStdBn"

	headerSize        = 0x20
	sectionHeaderSize = 0x10
	labelHashKey      = 0x492
	controlStart      = 0x0E
	controlEnd        = 0x0F
)

var (
	ErrInvalidHeader = errors.New("invalid MSBT header")
	ErrCorrupt       = errors.New("corrupt MSBT file")
)

// Control is an inline control code of a message. End tags close the control
// with the same group and type and carry no parameters.
type Control struct {
	Group  uint16
	Type   uint16
	Params []byte
	End    bool
}

// Content is one run of a message: either text or a control code.
type Content struct {
	Text    string
	Control *Control
}

// Entry is a labelled message.
type Entry struct {
	Label     string
	Attribute []byte
	Style     uint32
	Contents  []Content
}

type section struct {
	magic string
	raw   []byte // only kept for sections this package does not interpret
}

// Msbt is a message file. Entries are kept in message index order.
type Msbt struct {
	Order      binary.ByteOrder
	UTF16      bool
	Version    uint8
	GroupCount uint32
	// AttributeSize is the size of every entry attribute, 0 without ATR1 data.
	AttributeSize uint32
	Entries       []Entry

	attrExtra []byte
	sections  []section
}

// IsMsbt reports whether data starts with the MSBT magic.
func IsMsbt(data []byte) bool {
	return len(data) >= len(Magic) && string(data[:len(Magic)]) == Magic
}

// New creates an empty UTF-16 message file with the usual sections.
func New(order binary.ByteOrder) *Msbt {
	return &Msbt{
		Order:      order,
		UTF16:      true,
		Version:    3,
		GroupCount: 101,
		sections:   []section{{magic: "LBL1"}, {magic: "ATR1"}, {magic: "TSY1"}, {magic: "TXT2"}},
	}
}

func (m *Msbt) textEncoding() encoding.Encoding {
	if !m.UTF16 {
		return unicode.UTF8
	}
	if m.Order == binary.BigEndian {
		return unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM)
	}
	return unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM)
}

type byteOrder interface {
	binary.ByteOrder
	binary.AppendByteOrder
}

func (m *Msbt) order() byteOrder {
	if m.Order == binary.BigEndian {
		return binary.BigEndian
	}
	return binary.LittleEndian
}

// LabelHash is the LBL1 group of label.
func LabelHash(label string, groups uint32) uint32 {
	var h uint32
	for i := 0; i < len(label); i++ {
		h = h*labelHashKey + uint32(label[i])
	}
	if groups == 0 {
		return 0
	}
	return h % groups
}

// Parse reads a message file in either byte order.
func Parse(data []byte) (*Msbt, error) {
	if len(data) < headerSize || !IsMsbt(data) {
		return nil, ErrInvalidHeader
	}
	m := &Msbt{}
	switch {
	case data[8] == 0xFE && data[9] == 0xFF:
		m.Order = binary.BigEndian
	case data[8] == 0xFF && data[9] == 0xFE:
		m.Order = binary.LittleEndian
	default:
		return nil, fmt.Errorf("%w: bad byte order mark", ErrInvalidHeader)
	}
	m.UTF16 = data[0x0C] == 1
	m.Version = data[0x0D]
	count := int(m.Order.Uint16(data[0x0E:]))

	var labels map[int]string
	var styles []uint32
	var attrs [][]byte
	var texts [][]Content

	pos := headerSize
	for i := 0; i < count; i++ {
		if pos+sectionHeaderSize > len(data) {
			return nil, fmt.Errorf("%w: section %d out of bounds", ErrCorrupt, i)
		}
		magic := string(data[pos : pos+4])
		size := int(m.Order.Uint32(data[pos+4:]))
		start := pos + sectionHeaderSize
		if start+size > len(data) {
			return nil, fmt.Errorf("%w: section %s out of bounds", ErrCorrupt, magic)
		}
		body := data[start : start+size]

		var err error
		switch magic {
		case "LBL1":
			labels, err = m.parseLabels(body)
		case "ATR1":
			attrs, err = m.parseAttributes(body)
		case "TSY1":
			styles = make([]uint32, len(body)/4)
			for j := range styles {
				styles[j] = m.Order.Uint32(body[j*4:])
			}
		case "TXT2":
			texts, err = m.parseTexts(body)
		}
		if err != nil {
			return nil, err
		}

		s := section{magic: magic}
		switch magic {
		case "LBL1", "ATR1", "TSY1", "TXT2":
		default:
			s.raw = append([]byte(nil), body...)
		}
		m.sections = append(m.sections, s)

		pos = start + size
		pos += (16 - pos%16) % 16
	}

	m.Entries = make([]Entry, len(texts))
	for i := range m.Entries {
		e := &m.Entries[i]
		e.Label = labels[i]
		e.Contents = texts[i]
		if i < len(styles) {
			e.Style = styles[i]
		}
		if i < len(attrs) {
			e.Attribute = attrs[i]
		}
	}
	return m, nil
}

func (m *Msbt) parseLabels(body []byte) (map[int]string, error) {
	if len(body) < 4 {
		return nil, fmt.Errorf("%w: LBL1 too short", ErrCorrupt)
	}
	m.GroupCount = m.Order.Uint32(body)
	if 4+int(m.GroupCount)*8 > len(body) {
		return nil, fmt.Errorf("%w: LBL1 groups out of bounds", ErrCorrupt)
	}

	labels := map[int]string{}
	for g := 0; g < int(m.GroupCount); g++ {
		n := int(m.Order.Uint32(body[4+g*8:]))
		pos := int(m.Order.Uint32(body[8+g*8:]))
		for j := 0; j < n; j++ {
			if pos >= len(body) {
				return nil, fmt.Errorf("%w: label out of bounds", ErrCorrupt)
			}
			l := int(body[pos])
			if pos+1+l+4 > len(body) {
				return nil, fmt.Errorf("%w: label out of bounds", ErrCorrupt)
			}
			label := string(body[pos+1 : pos+1+l])
			labels[int(m.Order.Uint32(body[pos+1+l:]))] = label
			pos += 1 + l + 4
		}
	}
	return labels, nil
}

func (m *Msbt) parseAttributes(body []byte) ([][]byte, error) {
	if len(body) < 8 {
		return nil, fmt.Errorf("%w: ATR1 too short", ErrCorrupt)
	}
	n := int(m.Order.Uint32(body))
	m.AttributeSize = m.Order.Uint32(body[4:])
	end := 8 + n*int(m.AttributeSize)
	if end > len(body) {
		return nil, fmt.Errorf("%w: ATR1 out of bounds", ErrCorrupt)
	}
	attrs := make([][]byte, n)
	for i := range attrs {
		at := 8 + i*int(m.AttributeSize)
		attrs[i] = append([]byte(nil), body[at:at+int(m.AttributeSize)]...)
	}
	if end < len(body) {
		m.attrExtra = append([]byte(nil), body[end:]...)
	}
	return attrs, nil
}

func (m *Msbt) parseTexts(body []byte) ([][]Content, error) {
	if len(body) < 4 {
		return nil, fmt.Errorf("%w: TXT2 too short", ErrCorrupt)
	}
	n := int(m.Order.Uint32(body))
	if 4+n*4 > len(body) {
		return nil, fmt.Errorf("%w: TXT2 offsets out of bounds", ErrCorrupt)
	}
	texts := make([][]Content, n)
	for i := range texts {
		start := int(m.Order.Uint32(body[4+i*4:]))
		end := len(body)
		if i+1 < n {
			end = int(m.Order.Uint32(body[8+i*4:]))
		}
		if start > end || end > len(body) {
			return nil, fmt.Errorf("%w: message %d out of bounds", ErrCorrupt, i)
		}
		contents, err := m.parseMessage(body[start:end])
		if err != nil {
			return nil, fmt.Errorf("message %d: %w", i, err)
		}
		texts[i] = contents
	}
	return texts, nil
}

func (m *Msbt) parseMessage(raw []byte) ([]Content, error) {
	unit := 1
	if m.UTF16 {
		unit = 2
	}
	codeAt := func(i int) uint16 {
		if unit == 2 {
			return m.Order.Uint16(raw[i:])
		}
		return uint16(raw[i])
	}
	dec := m.textEncoding().NewDecoder()

	var contents []Content
	var text []byte
	flush := func() error {
		if len(text) == 0 {
			return nil
		}
		s, err := dec.Bytes(text)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrCorrupt, err)
		}
		contents = append(contents, Content{Text: string(s)})
		text = text[:0]
		return nil
	}

	for i := 0; i+unit <= len(raw); {
		switch c := codeAt(i); c {
		case 0:
			return contents, flush()
		case controlStart, controlEnd:
			if err := flush(); err != nil {
				return nil, err
			}
			i += unit
			fields := 2
			if c == controlStart {
				fields = 3
			}
			if i+fields*2 > len(raw) {
				return nil, fmt.Errorf("%w: truncated control code", ErrCorrupt)
			}
			ctrl := &Control{
				Group: m.Order.Uint16(raw[i:]),
				Type:  m.Order.Uint16(raw[i+2:]),
				End:   c == controlEnd,
			}
			i += fields * 2
			if c == controlStart {
				size := int(m.Order.Uint16(raw[i-2:]))
				if i+size > len(raw) {
					return nil, fmt.Errorf("%w: truncated control parameters", ErrCorrupt)
				}
				ctrl.Params = append([]byte{}, raw[i:i+size]...)
				i += size
			}
			contents = append(contents, Content{Control: ctrl})
		default:
			text = append(text, raw[i:i+unit]...)
			i += unit
		}
	}
	return contents, flush()
}

// Bytes serialises the file, keeping the section order it was parsed with.
func (m *Msbt) Bytes() ([]byte, error) {
	o := m.order()
	out := make([]byte, headerSize)
	copy(out, Magic)
	o.PutUint16(out[8:], 0xFEFF)
	if m.UTF16 {
		out[0x0C] = 1
	}
	out[0x0D] = m.Version
	o.PutUint16(out[0x0E:], uint16(len(m.sections)))

	for _, s := range m.sections {
		var body []byte
		var err error
		switch s.magic {
		case "LBL1":
			body = m.labelSection()
		case "ATR1":
			body = m.attributeSection()
		case "TSY1":
			for _, e := range m.Entries {
				body = o.AppendUint32(body, e.Style)
			}
		case "TXT2":
			body, err = m.textSection()
		default:
			body = s.raw
		}
		if err != nil {
			return nil, err
		}

		head := make([]byte, sectionHeaderSize)
		copy(head, s.magic)
		o.PutUint32(head[4:], uint32(len(body)))
		out = append(out, head...)
		out = append(out, body...)
		for len(out)%16 != 0 {
			out = append(out, 0xAB)
		}
	}

	o.PutUint32(out[0x12:], uint32(len(out)))
	return out, nil
}

func (m *Msbt) labelSection() []byte {
	o := m.order()
	groups := make([][]int, m.GroupCount)
	for i, e := range m.Entries {
		g := LabelHash(e.Label, m.GroupCount)
		groups[g] = append(groups[g], i)
	}

	body := o.AppendUint32(nil, m.GroupCount)
	table := len(body)
	body = append(body, make([]byte, 8*len(groups))...)
	for g, members := range groups {
		o.PutUint32(body[table+g*8:], uint32(len(members)))
		o.PutUint32(body[table+g*8+4:], uint32(len(body)))
		for _, i := range members {
			label := m.Entries[i].Label
			body = append(body, byte(len(label)))
			body = append(body, label...)
			body = o.AppendUint32(body, uint32(i))
		}
	}
	return body
}

func (m *Msbt) attributeSection() []byte {
	o := m.order()
	body := o.AppendUint32(nil, uint32(len(m.Entries)))
	body = o.AppendUint32(body, m.AttributeSize)
	for _, e := range m.Entries {
		attr := make([]byte, m.AttributeSize)
		copy(attr, e.Attribute)
		body = append(body, attr...)
	}
	return append(body, m.attrExtra...)
}

func (m *Msbt) textSection() ([]byte, error) {
	o := m.order()
	enc := m.textEncoding().NewEncoder()
	unit := func(b []byte, c uint16) []byte {
		if m.UTF16 {
			return o.AppendUint16(b, c)
		}
		return append(b, byte(c))
	}

	body := o.AppendUint32(nil, uint32(len(m.Entries)))
	body = append(body, make([]byte, 4*len(m.Entries))...)
	for i, e := range m.Entries {
		o.PutUint32(body[4+i*4:], uint32(len(body)))
		for _, c := range e.Contents {
			if c.Control == nil {
				encoded, err := enc.Bytes([]byte(c.Text))
				if err != nil {
					return nil, fmt.Errorf("message %s: %w", e.Label, err)
				}
				body = append(body, encoded...)
				continue
			}
			ctrl := c.Control
			if ctrl.End {
				body = unit(body, controlEnd)
				body = o.AppendUint16(body, ctrl.Group)
				body = o.AppendUint16(body, ctrl.Type)
				continue
			}
			body = unit(body, controlStart)
			body = o.AppendUint16(body, ctrl.Group)
			body = o.AppendUint16(body, ctrl.Type)
			body = o.AppendUint16(body, uint16(len(ctrl.Params)))
			body = append(body, ctrl.Params...)
		}
		body = unit(body, 0)
	}
	return body, nil
}

// Labels returns the labels in message order.
func (m *Msbt) Labels() []string {
	labels := make([]string, len(m.Entries))
	for i, e := range m.Entries {
		labels[i] = e.Label
	}
	return labels
}
