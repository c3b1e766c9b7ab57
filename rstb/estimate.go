package rstb

import "strings"

type band struct {
	upTo   int
	factor float64
}

// bands for texture archives, then for model archives
var (
	texBands = []band{
		{100, 9}, {2000, 7}, {3000, 5}, {4000, 4}, {8500, 3}, {12000, 2},
		{17000, 1.75}, {30000, 1.5}, {45000, 1.3}, {100000, 1.2}, {150000, 1.1},
		{200000, 1.07}, {250000, 1.045}, {300000, 1.035}, {600000, 1.03},
		{1000000, 1.015}, {1800000, 1.009}, {4500000, 1.005}, {6000000, 1.002},
	}
	modelBands = []band{
		{500, 7}, {750, 4}, {2000, 3}, {400000, 1.75}, {600000, 1.7},
		{1500000, 1.6}, {3000000, 1.5},
	}
)

var aampBands = map[string]struct {
	bands []band
	rest  float64
}{
	"baiprog":     {[]band{{380, 7}, {400, 6}, {450, 5.5}, {600, 5}, {1000, 4}, {1750, 3.5}}, 3},
	"bgparamlist": {[]band{{100, 20}, {150, 12}, {250, 10}, {350, 8}, {450, 7}}, 6},
	"bdrop":       {[]band{{200, 8.5}, {250, 7}, {350, 6}, {450, 5.25}, {850, 4.5}}, 4},
	"bxml":        {[]band{{350, 6}, {450, 5}, {550, 4.5}, {650, 4}, {800, 3.5}}, 3},
	"brecipe":     {[]band{{100, 12.5}, {160, 8.5}, {200, 7.5}, {215, 7}}, 6.5},
	"bshop":       {[]band{{200, 7.25}, {400, 6}, {500, 5}}, 4.05},
	"bas":         {[]band{{100, 20}, {200, 12.5}, {300, 10}, {600, 8}, {1500, 6}, {2000, 5.5}, {15000, 5}}, 4.5},
	"baslist":     {[]band{{100, 15}, {200, 10}, {300, 8}, {500, 6}, {800, 5}, {4000, 4}}, 3.5},
}

func scale(size int, bands []band, rest float64) uint32 {
	for _, b := range bands {
		if size <= b.upTo {
			return uint32(float64(size) * b.factor)
		}
	}
	return uint32(float64(size) * rest)
}

// guessBfresSize estimates the loaded size of a model archive; texture
// archives carry ".Tex" in their name.
func guessBfresSize(size int, name string) uint32 {
	if strings.Contains(name, ".Tex") {
		return scale(size, texBands, 1.0015)
	}
	return scale(size, modelBands, 1.25)
}

// guessAampSize estimates the loaded size of a parameter file; 0 for kinds
// without a known heuristic.
func guessAampSize(size int, ext string) uint32 {
	kind, ok := aampBands[ext]
	if !ok {
		return 0
	}
	return scale(size, kind.bands, kind.rest)
}
