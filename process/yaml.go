package process

import (
	"encoding/binary"
	"fmt"

	"github.com/wildbits/wildbits/aamp"
	"github.com/wildbits/wildbits/byml"
	"github.com/wildbits/wildbits/fileio"
	"github.com/wildbits/wildbits/msyt"
)

type DocumentKind int

const (
	KindAamp DocumentKind = iota
	KindByml
	KindMsbt
)

func (k DocumentKind) String() string {
	switch k {
	case KindAamp:
		return "aamp"
	case KindByml:
		return "byml"
	}
	return "msbt"
}

// Document is a binary file with an editable YAML form.
type Document struct {
	Kind  DocumentKind
	Order binary.ByteOrder

	pio   *aamp.ParameterIO
	root  any
	msbt  *msyt.Msbt
	names *aamp.NameTable
}

// DocumentFromBinary detects the format of data, which may be compressed,
// and parses it. AAMP hashes are resolved through names.
func DocumentFromBinary(data []byte, names *aamp.NameTable) (*Document, error) {
	data, err := fileio.DecompressIf(data)
	if err != nil {
		return nil, err
	}

	doc := &Document{names: names}
	switch {
	case aamp.IsAamp(data):
		doc.Kind, doc.Order = KindAamp, binary.LittleEndian
		seedFileNames(names)
		if doc.pio, err = aamp.Parse(data); err != nil {
			return nil, fmt.Errorf("%w: AAMP: %w", ErrParse, err)
		}
	case byml.IsByml(data):
		doc.Kind = KindByml
		if doc.root, doc.Order, err = byml.Parse(data); err != nil {
			return nil, fmt.Errorf("%w: BYML: %w", ErrParse, err)
		}
	case msyt.IsMsbt(data):
		doc.Kind = KindMsbt
		if doc.msbt, err = msyt.Parse(data); err != nil {
			return nil, fmt.Errorf("%w: MSBT: %w", ErrParse, err)
		}
		doc.Order = doc.msbt.Order
	default:
		return nil, ErrUnknownFormat
	}
	return doc, nil
}

// numbered children of parameter lists are named File0, File1...
func seedFileNames(names *aamp.NameTable) {
	if _, ok := names.Lookup(aamp.HashName("File0")); !ok {
		names.AddNumbered("File", 10000)
	}
}

func (d *Document) BigEndian() bool {
	return d.Order == binary.BigEndian
}

func (d *Document) ToText() (string, error) {
	switch d.Kind {
	case KindAamp:
		return d.pio.ToText(d.names)
	case KindByml:
		return byml.ToText(d.root)
	}
	return d.msbt.ToText()
}

// Update replaces the contents with text. The document is left as it was
// when text does not parse.
func (d *Document) Update(text string) error {
	switch d.Kind {
	case KindAamp:
		pio, err := aamp.FromText(text, d.names)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidYAML, err)
		}
		d.pio = pio
	case KindByml:
		root, err := byml.FromText(text)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidYAML, err)
		}
		d.root = root
	case KindMsbt:
		if err := d.msbt.SetText(text); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidYAML, err)
		}
	}
	return nil
}

// ToBinary serialises the document in its byte order; BYML as version 2.
func (d *Document) ToBinary() ([]byte, error) {
	switch d.Kind {
	case KindAamp:
		return d.pio.Bytes()
	case KindByml:
		return byml.Bytes(d.root, d.Order, 2)
	}
	return d.msbt.Bytes()
}
