package inspect

import (
	"encoding/json"
	"fmt"
	"os"
	"path"
	"strconv"
	"strings"

	"github.com/twpayne/go-mbtiles"

	"github.com/flightaware/tileset-inspect/pkg/tileset"
)

// SaveTile writes one gzip-compressed tile into a fresh mbtiles archive so
// it can be opened in a binary tile viewer. Metadata is derived from the
// tileset definition. An existing file at filename is truncated.
func SaveTile(filename string, ts *tileset.Tileset, tile Tile, data []byte) error {
	// sqlite3 relies on you to create the file first
	if err := os.MkdirAll(path.Dir(filename), 0755); err != nil {
		return err
	}
	if _, err := os.Create(filename); err != nil {
		return err
	}
	writer, err := mbtiles.NewWriter(filename)
	if err != nil {
		return fmt.Errorf("error creating writer: %w", err)
	}
	defer writer.Close()
	if err := writer.CreateTiles(); err != nil {
		return fmt.Errorf("error creating tiles table: %w", err)
	}
	if err := writer.CreateMetadata(); err != nil {
		return fmt.Errorf("error creating metadata table: %w", err)
	}
	for name, value := range tilesetMetadata(ts) {
		if err := writer.InsertMetadata(name, value); err != nil {
			return fmt.Errorf("error writing metadata %s: %w", name, err)
		}
	}
	if err := writer.InsertTile(tile.Z, tile.X, tile.Y, data); err != nil {
		return fmt.Errorf("error writing tile %s: %w", tile, err)
	}
	return nil
}

// tilesetMetadata generates the (name,value) metadata pairs for the
// archive. name and format are required by the mbtiles spec; the json
// field lists the vector layers so viewers can enumerate them.
func tilesetMetadata(ts *tileset.Tileset) map[string]string {
	meta := map[string]string{
		"name":   ts.Name,
		"format": "pbf",
		"type":   "baselayer",
	}
	if ts.Name == "" {
		meta["name"] = ts.ID
	}
	if ts.Description != "" {
		meta["description"] = ts.Description
	}
	if ts.Attribution != "" {
		meta["attribution"] = ts.Attribution
	}
	if ts.Version != "" {
		meta["version"] = ts.Version
	}
	meta["minzoom"] = strconv.Itoa(ts.MinZoom)
	meta["maxzoom"] = strconv.Itoa(ts.MaxZoom)
	if ts.Bounds != nil {
		meta["bounds"] = strings.Join(floatToString(ts.Bounds), ",")
	}
	if len(ts.Center) == 2 || len(ts.Center) == 3 {
		center := strings.Join(floatToString(ts.Center[:2]), ",")
		if len(ts.Center) == 3 {
			center += fmt.Sprintf(",%d", int(ts.Center[2]))
		}
		meta["center"] = center
	}
	if metaJSON, err := json.Marshal(metadataJSON(ts)); err == nil {
		meta["json"] = string(metaJSON)
	}
	return meta
}

// metadataJSON builds the vector_layers entry from the tileset layers.
func metadataJSON(ts *tileset.Tileset) *mbtiles.MetadataJson {
	layers := make([]mbtiles.MetadataJsonVectorLayer, 0, len(ts.Layers))
	for _, layer := range ts.Layers {
		l := layer
		fields := map[string]string{}
		for name, desc := range l.Fields {
			if s, ok := desc.(string); ok {
				fields[name] = s
			} else {
				fields[name] = ""
			}
		}
		minzoom := ts.MinZoom
		maxzoom := ts.MaxZoom
		layers = append(layers, mbtiles.MetadataJsonVectorLayer{
			ID:      &l.ID,
			Fields:  fields,
			MinZoom: &minzoom,
			MaxZoom: &maxzoom,
		})
	}
	return &mbtiles.MetadataJson{VectorLayers: layers}
}

func floatToString(input []float64) []string {
	out := make([]string, len(input))
	for i := range input {
		out[i] = fmt.Sprintf("%f", input[i])
	}
	return out
}
