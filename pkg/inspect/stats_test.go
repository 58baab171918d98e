package inspect

import (
	"bytes"
	"io"
	"testing"

	gziplib "github.com/klauspost/compress/gzip"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/mvt"
	"github.com/paulmach/orb/geojson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flightaware/tileset-inspect/pkg/tileset"
)

func TestMVTQueryWithFeatureID(t *testing.T) {
	ts := testTileset()
	gen := NewGenerator(ts, nil, false, Capabilities{UseFeatureID: true, UseTileEnvelope: true})
	query := gen.MVTQuery(ts.Layers[0], Tile{Z: 14, X: 8529, Y: 5974})

	assert.Contains(t, query, "SELECT ST_AsMVT(tile.*, 'water', 4096, 'geometry', 'osm_id')")
	assert.Contains(t, query, "ST_AsMVTGeom(geometry, ST_TileEnvelope(14, 8529, 5974), 4096) AS geometry")
	assert.Contains(t, query, "layer_water(ST_TileEnvelope(14, 8529, 5974), 14)")
	assert.NotContains(t, query, "!bbox!")
}

func TestMVTQueryWithoutFeatureID(t *testing.T) {
	ts := testTileset()

	// no key field declared
	gen := NewGenerator(ts, nil, false, Capabilities{UseFeatureID: true, UseTileEnvelope: true})
	query := gen.MVTQuery(ts.Layers[2], Tile{Z: 0, X: 0, Y: 0})
	assert.Contains(t, query, "SELECT ST_AsMVT(tile.*, 'housenumber', 4096, 'geometry')")

	// key field declared but the server is too old for feature ids
	gen = NewGenerator(ts, nil, false, Capabilities{})
	query = gen.MVTQuery(ts.Layers[0], Tile{Z: 0, X: 0, Y: 0})
	assert.Contains(t, query, "SELECT ST_AsMVT(tile.*, 'water', 4096, 'geometry')")
	assert.Contains(t, query, "TileBBox(0, 0, 0)")
}

func TestMVTQueryBufferSize(t *testing.T) {
	ts := testTileset()
	buffered := &tileset.Layer{
		ID:         "place",
		BufferSize: 128,
		Datasource: tileset.Datasource{
			Query:         "(SELECT osm_id, geometry FROM layer_place(!bbox!, z(!scale_denominator!))) AS t",
			GeometryField: "geometry",
		},
	}
	gen := NewGenerator(ts, nil, false, Capabilities{UseTileEnvelope: true})
	query := gen.MVTQuery(buffered, Tile{Z: 5, X: 10, Y: 11})
	assert.Contains(t, query, "ST_AsMVTGeom(geometry, ST_TileEnvelope(5, 10, 11), 4096, 128) AS geometry")
}

func TestStatsFor(t *testing.T) {
	fc := geojson.NewFeatureCollection()
	fc.Append(geojson.NewFeature(orb.Point{512, 512}))
	fc.Append(geojson.NewFeature(orb.Point{1024, 256}))
	data, err := mvt.Marshal(mvt.NewLayers(map[string]*geojson.FeatureCollection{"water": fc}))
	require.Nil(t, err)

	stats, err := StatsFor("water", data)
	require.Nil(t, err)
	assert.Equal(t, "water", stats.Layer)
	assert.Equal(t, 2, stats.Features)
	assert.Equal(t, len(data), stats.MVTBytes)
	assert.Greater(t, stats.GzipBytes, 0)
}

func TestStatsForEmptyLayer(t *testing.T) {
	stats, err := StatsFor("water", nil)
	require.Nil(t, err)
	assert.Equal(t, 0, stats.Features)
	assert.Equal(t, 0, stats.MVTBytes)
}

func TestStatsResultSet(t *testing.T) {
	rs := StatsResultSet([]LayerStats{
		{Layer: "water", Features: 12, MVTBytes: 2048, GzipBytes: 900},
		{Layer: "place", Features: 3, MVTBytes: 512, GzipBytes: 300},
	})
	assert.Equal(t, []string{"layer", "features", "mvt bytes", "gzip bytes"}, rs.Columns)
	require.Len(t, rs.Rows, 3)
	assert.Equal(t, []any{"(total)", 15, 2560, 1200}, rs.Rows[2])
}

func TestGzipRoundTrip(t *testing.T) {
	data := []byte("not much of a tile, but compressible compressible compressible")
	output, err := Gzip(data)
	require.Nil(t, err)

	r, err := gziplib.NewReader(bytes.NewBuffer(output))
	require.Nil(t, err)
	input, err := io.ReadAll(r)
	require.Nil(t, err)
	assert.Equal(t, data, input)
}

func TestTilesetMetadata(t *testing.T) {
	ts := &tileset.Tileset{
		ID:          "test",
		Name:        "Test Tiles",
		Attribution: "nobody",
		Version:     "1.0.0",
		MinZoom:     0,
		MaxZoom:     14,
		Bounds:      []float64{-180, -85.0511, 180, 85.0511},
		Center:      []float64{-12.2, 28.3, 4},
		Layers: []*tileset.Layer{
			{ID: "water", Fields: map[string]any{"class": "water class"}},
		},
	}
	meta := tilesetMetadata(ts)
	assert.Equal(t, "Test Tiles", meta["name"])
	assert.Equal(t, "pbf", meta["format"])
	assert.Equal(t, "1.0.0", meta["version"])
	assert.Equal(t, "0", meta["minzoom"])
	assert.Equal(t, "14", meta["maxzoom"])
	assert.Equal(t, "-12.200000,28.300000,4", meta["center"])
	assert.Contains(t, meta["json"], `"water"`)
	assert.Contains(t, meta["json"], "water class")
}

func TestTilesetMetadataFallbackName(t *testing.T) {
	meta := tilesetMetadata(&tileset.Tileset{ID: "fallback"})
	assert.Equal(t, "fallback", meta["name"])
}
