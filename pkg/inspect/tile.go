// Package inspect renders tileset layer queries for one tile against a
// PostGIS database and formats the results for terminal display.
package inspect

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// webMercatorWorld is the width of the web mercator plane in meters.
const webMercatorWorld = 40075016.68557849

// tilePattern matches a z/x/y coordinate of non-negative integers.
var tilePattern = regexp.MustCompile(`^\d+/\d+/\d+$`)

// Tile is a single z/x/y tile coordinate.
type Tile struct {
	Z int
	X int
	Y int
}

// ParseTile parses a "z/x/y" coordinate string. Anything that does not
// match digits/digits/digits is rejected.
func ParseTile(s string) (Tile, error) {
	if !tilePattern.MatchString(s) {
		return Tile{}, fmt.Errorf("invalid tile coordinate %q, expected the form z/x/y", s)
	}
	parts := strings.Split(s, "/")
	z, _ := strconv.Atoi(parts[0])
	x, _ := strconv.Atoi(parts[1])
	y, _ := strconv.Atoi(parts[2])
	return Tile{Z: z, X: x, Y: y}, nil
}

func (t Tile) String() string {
	return fmt.Sprintf("%d/%d/%d", t.Z, t.X, t.Y)
}

// ScaleDenominator returns the standard web mercator scale denominator at
// this tile's zoom level (the value the z(!scale_denominator!) token maps
// back to a zoom from).
func (t Tile) ScaleDenominator() float64 {
	return 559082264.028717 / math.Pow(2, float64(t.Z))
}

// PixelSize returns the width of one 256th of this tile in meters.
func (t Tile) PixelSize() float64 {
	return webMercatorWorld / math.Pow(2, float64(t.Z)) / 256
}
