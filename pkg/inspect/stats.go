package inspect

import (
	"fmt"
	"strings"

	"github.com/paulmach/orb/encoding/mvt"

	"github.com/flightaware/tileset-inspect/pkg/tileset"
)

// mvtExtent is the tile coordinate extent used when asking the server to
// encode a layer.
const mvtExtent = 4096

// LayerStats summarizes one layer's encoded form at a tile coordinate.
type LayerStats struct {
	Layer     string
	Features  int
	MVTBytes  int
	GzipBytes int
}

// MVTQuery renders a query that has the server encode the layer as a
// Mapbox Vector Tile. The geometry column is rewritten into an
// ST_AsMVTGeom call clipped to the tile envelope, reusing the same
// textual substitution as the display path. On servers with feature-id
// support the layer's key field is passed through as the feature id.
func (g *Generator) MVTQuery(layer *tileset.Layer, tile Tile) string {
	query := g.LayerQuery(layer, tile, false)
	geomField := layer.Datasource.GeometryField
	envelope := fmt.Sprintf("%s(%d, %d, %d)", g.TileEnvelope(), tile.Z, tile.X, tile.Y)
	mvtGeom := fmt.Sprintf("ST_AsMVTGeom(%s, %s, %d) AS %s", geomField, envelope, mvtExtent, geomField)
	if layer.BufferSize > 0 {
		mvtGeom = fmt.Sprintf("ST_AsMVTGeom(%s, %s, %d, %d) AS %s",
			geomField, envelope, mvtExtent, layer.BufferSize, geomField)
	}
	inner := WrapQuery(strings.ReplaceAll(query, geomField, mvtGeom))

	keyField := layer.Datasource.KeyField
	if g.caps.UseFeatureID && keyField != "" {
		return fmt.Sprintf("SELECT ST_AsMVT(tile.*, '%s', %d, '%s', '%s') FROM (%s) AS tile",
			layer.ID, mvtExtent, geomField, keyField, inner)
	}
	return fmt.Sprintf("SELECT ST_AsMVT(tile.*, '%s', %d, '%s') FROM (%s) AS tile",
		layer.ID, mvtExtent, geomField, inner)
}

// StatsFor decodes an encoded layer fragment and measures it.
func StatsFor(layerID string, data []byte) (LayerStats, error) {
	stats := LayerStats{
		Layer:    layerID,
		MVTBytes: len(data),
	}
	compressed, err := Gzip(data)
	if err != nil {
		return stats, fmt.Errorf("compressing layer %s: %w", layerID, err)
	}
	stats.GzipBytes = len(compressed)

	layers, err := mvt.Unmarshal(data)
	if err != nil {
		return stats, fmt.Errorf("decoding layer %s: %w", layerID, err)
	}
	for _, l := range layers {
		stats.Features += len(l.Features)
	}
	return stats, nil
}

// StatsResultSet arranges the per-layer statistics as one table with a
// total row for the assembled tile.
func StatsResultSet(stats []LayerStats) *ResultSet {
	rs := &ResultSet{Columns: []string{"layer", "features", "mvt bytes", "gzip bytes"}}
	var features, mvtBytes, gzipBytes int
	for _, s := range stats {
		rs.Rows = append(rs.Rows, []any{s.Layer, s.Features, s.MVTBytes, s.GzipBytes})
		features += s.Features
		mvtBytes += s.MVTBytes
		gzipBytes += s.GzipBytes
	}
	rs.Rows = append(rs.Rows, []any{"(total)", features, mvtBytes, gzipBytes})
	return rs
}
