package rstb

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/magiconair/properties"
)

// ToText dumps the table as a properties file: CRC entries keyed by their
// 0x-prefixed hash, name entries keyed by name.
func (t *Table) ToText() (string, error) {
	p := properties.NewProperties()
	p.DisableExpansion = true

	crcs := make([]uint32, 0, len(t.CRC))
	for crc := range t.CRC {
		crcs = append(crcs, crc)
	}
	sort.Slice(crcs, func(i, j int) bool { return crcs[i] < crcs[j] })
	for _, crc := range crcs {
		if _, _, err := p.Set(fmt.Sprintf("0x%08X", crc), strconv.FormatUint(uint64(t.CRC[crc]), 10)); err != nil {
			return "", err
		}
	}

	names := make([]string, 0, len(t.Names))
	for name := range t.Names {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if _, _, err := p.Set(name, strconv.FormatUint(uint64(t.Names[name]), 10)); err != nil {
			return "", err
		}
	}

	var b strings.Builder
	if _, err := p.Write(&b, properties.UTF8); err != nil {
		return "", err
	}
	return b.String(), nil
}

// FromText reads a dump written by ToText.
func FromText(text string) (*Table, error) {
	p, err := properties.LoadString(text)
	if err != nil {
		return nil, err
	}

	t := New()
	for _, key := range p.Keys() {
		value, _ := p.Get(key)
		size, err := strconv.ParseUint(strings.TrimSpace(value), 0, 32)
		if err != nil {
			return nil, fmt.Errorf("%w: bad size for %s", ErrCorrupt, key)
		}

		if len(key) == 10 && strings.HasPrefix(key, "0x") {
			if crc, err := strconv.ParseUint(key[2:], 16, 32); err == nil {
				t.CRC[uint32(crc)] = uint32(size)
				continue
			}
		}
		t.Names[key] = uint32(size)
	}

	return t, nil
}
