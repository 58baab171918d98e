package inspect

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTile(t *testing.T) {
	type testCase struct {
		input string
		want  Tile
		ok    bool
	}
	tests := []testCase{
		{"0/0/0", Tile{0, 0, 0}, true},
		{"14/8529/5974", Tile{14, 8529, 5974}, true},
		{"3/01/002", Tile{3, 1, 2}, true},
		{"", Tile{}, false},
		{"14/8529", Tile{}, false},
		{"14/8529/5974/1", Tile{}, false},
		{"-1/0/0", Tile{}, false},
		{"a/b/c", Tile{}, false},
		{"14/85 29/5974", Tile{}, false},
		{"14/8529/5974 ", Tile{}, false},
	}
	for _, tt := range tests {
		test := tt
		t.Run(test.input, func(t *testing.T) {
			tile, err := ParseTile(test.input)
			if !test.ok {
				assert.NotNil(t, err)
				return
			}
			require.Nil(t, err)
			assert.Equal(t, test.want, tile)
		})
	}
}

func TestTileString(t *testing.T) {
	assert.Equal(t, "14/8529/5974", Tile{14, 8529, 5974}.String())
}

func TestScaleDenominator(t *testing.T) {
	assert.InDelta(t, 559082264.028717, Tile{Z: 0}.ScaleDenominator(), 1e-3)
	assert.InDelta(t, 559082264.028717/16384, Tile{Z: 14}.ScaleDenominator(), 1e-3)
}

func TestPixelSize(t *testing.T) {
	assert.InDelta(t, 156543.033928, Tile{Z: 0}.PixelSize(), 1e-3)
	assert.InDelta(t, 156543.033928/2, Tile{Z: 1}.PixelSize(), 1e-3)
}
