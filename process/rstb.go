package process

import (
	"encoding/binary"
	"strconv"

	"go.uber.org/zap"

	"github.com/wildbits/wildbits/db"
	"github.com/wildbits/wildbits/fileio"
	"github.com/wildbits/wildbits/rstb"
)

// resources present in every stock table, used to detect the byte order
var rstbProbes = []string{
	"EventFlow/PictureMemory.bfevfl",
	"Camera/Demo648_0/C04-0.bcamanim",
	"Effect/FldObj_ScaffoldIronParts_A_01.esetlist",
	"Physics/TeraMeshRigidBody/MainField/9-8.hktmrb",
}

type RstbDocument struct {
	Table *rstb.Table
	Order binary.ByteOrder
}

func (d *RstbDocument) BigEndian() bool {
	return d.Order == binary.BigEndian
}

// OpenRstb reads the table at path.
func OpenRstb(path string) (*RstbDocument, error) {
	data, err := fileio.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseRstb(data)
}

// ParseRstb tries big then little endian and keeps the first byte order in
// which one of the stock probe resources resolves.
func ParseRstb(data []byte) (*RstbDocument, error) {
	for _, order := range []binary.ByteOrder{binary.BigEndian, binary.LittleEndian} {
		table, err := rstb.Parse(data, order)
		if err != nil {
			zap.S().Debugf("not a %v RSTB - %v", order, err)
			continue
		}
		for _, probe := range rstbProbes {
			if table.IsInTable(probe) {
				zap.S().Debugf("RSTB detected as %v, %v entries", order, len(table.CRC)+len(table.Names))
				return &RstbDocument{Table: table, Order: order}, nil
			}
		}
	}
	return nil, ErrInvalidRstb
}

// View renders the entries for the editor, hashes resolved through names
// where possible.
func (d *RstbDocument) View(names *db.NameTable) map[string]uint32 {
	view := make(map[string]uint32, len(d.Table.CRC)+len(d.Table.Names))
	for hash, size := range d.Table.CRC {
		if name, ok := names.Lookup(hash); ok {
			view[name] = size
		} else {
			view[strconv.FormatUint(uint64(hash), 10)] = size
		}
	}
	for name, size := range d.Table.Names {
		view[name] = size
	}
	return view
}

// Save writes the table in its byte order, compressed as path implies.
func (d *RstbDocument) Save(path string) error {
	data, err := fileio.CompressForPath(path, d.Table.Bytes(d.Order))
	if err != nil {
		return err
	}
	return fileio.WriteFile(path, data)
}

// Export writes the text dump of the table.
func (d *RstbDocument) Export(path string) error {
	text, err := d.Table.ToText()
	if err != nil {
		return err
	}
	return fileio.WriteFile(path, []byte(text))
}

// CalcSize computes the table value of the file at path, 0 when the
// resource type is unknown.
func (d *RstbDocument) CalcSize(path string) (uint32, error) {
	data, err := fileio.ReadFile(path)
	if err != nil {
		return 0, err
	}
	if data, err = fileio.DecompressIf(data); err != nil {
		return 0, err
	}
	size, _ := rstb.CalculateSize(path, data, d.Order, true)
	return size, nil
}

// SetSize sets the entry of path and makes the name known.
func (d *RstbDocument) SetSize(names *db.NameTable, path string, size uint32) {
	d.Table.SetSize(path, size)
	names.Insert(path)
}

func (d *RstbDocument) DeleteEntry(path string) {
	d.Table.Delete(path)
}
