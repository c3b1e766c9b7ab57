package botw

import (
	"path"
	"strings"
)

var aampExts = []string{
	"baiprog", "baslist", "bas", "bassetting", "batcl", "batcllist", "bawareness",
	"bawntable", "bbonectrl", "bchemical", "bchmres", "bdemo", "bdgnenv", "bdmgparam",
	"bdrop", "bgapkginfo", "bgapkglist", "bgenv", "bglght", "bgmsconf", "bgparamlist",
	"bgsdw", "bksky", "blifecondition", "blod", "bmodellist", "bmscdef", "bmscinfo",
	"bnetfp", "bphyscharcon", "bphyscontact", "bphysics", "bphyslayer", "bphysmaterial",
	"bphyssb", "bphyssubmat", "bptclconf", "brecipe", "brgbw", "brgcon", "brgconfig",
	"brgconfiglist", "bsfbt", "bsft", "bshop", "bumii", "bvege", "bactcapt", "bxml",
}

var bymlExts = []string{
	"bgdata", "bgsvdata", "baischedule", "baniminfo", "bquestpack", "byml", "mubin",
}

var sarcExts = []string{
	"sarc", "pack", "bactorpack", "bmodelsh", "beventpack", "stera", "stats",
	"blarc", "bfarc", "genvb", "bgenv", "farc", "ssarc", "sblarc", "sbfarc",
}

var (
	aampSet = withCompressed(aampExts)
	bymlSet = withCompressed(bymlExts)
	sarcSet = withCompressed(sarcExts)
)

// withCompressed adds the Yaz0 variant ("s" prefix) of every extension.
func withCompressed(exts []string) map[string]bool {
	set := make(map[string]bool, len(exts)*2)
	for _, ext := range exts {
		set[ext] = true
		set["s"+ext] = true
	}
	return set
}

// Ext returns the extension of name without the dot.
func Ext(name string) string {
	return strings.TrimPrefix(path.Ext(name), ".")
}

func IsAampExt(ext string) bool { return aampSet[ext] }

func IsBymlExt(ext string) bool { return bymlSet[ext] }

func IsSarcExt(ext string) bool { return sarcSet[ext] }

// IsYamlExt reports whether files with ext have an editable text form.
func IsYamlExt(ext string) bool {
	return aampSet[ext] || bymlSet[ext] || ext == "msbt"
}
