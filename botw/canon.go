package botw

import (
	"path"
	"strings"
)

const aocPrefix = "Aoc/0010/"

// content roots of the supported mod layouts, ordered from most to least specific
var contentRoots = []struct {
	marker string
	aoc    bool
}{
	{"01007EF00011E000/romfs/", false},
	{"01007EF00011E001/romfs/", true},
	{"01007EF00011E002/romfs/", true},
	{"01007EF00011F001/romfs/", true},
	{"01007EF00011F002/romfs/", true},
	{"content/", false},
	{"aoc/0010/", true},
	{"aoc/content/0010/", true},
	{"romfs/", false},
}

// CanonName returns the resource name of a file inside a mod directory, or
// false when the path is not below a known content root.
func CanonName(file string) (string, bool) {
	file = strings.ReplaceAll(file, "\\", "/")
	best := -1 // end of the matched root
	var aoc bool
	var rest string
	for _, root := range contentRoots {
		i := strings.LastIndex(file, root.marker)
		if i < 0 || (i > 0 && file[i-1] != '/') {
			continue
		}
		if end := i + len(root.marker); end > best {
			best, aoc, rest = end, root.aoc, file[end:]
		}
	}
	if best < 0 || rest == "" {
		return "", false
	}
	if aoc {
		rest = aocPrefix + rest
	}
	return normaliseExt(rest), true
}

// CanonNameWithoutRoot returns the resource name of an archive entry.
func CanonNameWithoutRoot(name string) string {
	name = strings.TrimPrefix(strings.ReplaceAll(name, "\\", "/"), "/")
	if strings.HasPrefix(name, "Aoc/0010/") || strings.HasPrefix(name, "aoc/0010/") {
		name = aocPrefix + name[len(aocPrefix):]
	}
	return normaliseExt(name)
}

// normaliseExt drops the "s" of Yaz0 extensions such as .sbactorpack.
func normaliseExt(name string) string {
	ext := path.Ext(name)
	if strings.HasPrefix(ext, ".s") && ext != ".sarc" && len(ext) > 2 {
		return strings.TrimSuffix(name, ext) + "." + ext[2:]
	}
	return name
}
