// Package tileset loads OpenMapTiles-style tileset definitions from disk.
//
// A tileset file is a YAML document with a top-level "tileset" mapping that
// names the layers making up the tileset. Each layer is stored in its own
// YAML file, referenced relative to the tileset file, and carries the
// datasource query used to populate that layer from PostGIS.
package tileset

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Tileset is a parsed tileset definition with all layer files resolved.
type Tileset struct {
	ID          string
	Name        string
	Description string
	Attribution string
	Version     string
	Languages   []string
	MinZoom     int
	MaxZoom     int
	Bounds      []float64
	Center      []float64
	Layers      []*Layer
}

// Layer is a single named layer with its datasource query.
type Layer struct {
	ID          string         `yaml:"id"`
	Description string         `yaml:"description"`
	BufferSize  int            `yaml:"buffer_size"`
	Fields      map[string]any `yaml:"fields"`
	Datasource  Datasource     `yaml:"datasource"`
}

// Datasource describes how a layer's rows are produced.
// Query is a SQL template containing substitution tokens (see pkg/inspect).
type Datasource struct {
	Query               string `yaml:"query"`
	KeyField            string `yaml:"key_field"`
	KeyFieldAsAttribute bool   `yaml:"key_field_as_attribute"`
	GeometryField       string `yaml:"geometry_field"`
	SRID                string `yaml:"srid"`
}

type tilesetFile struct {
	Tileset struct {
		ID          string     `yaml:"id"`
		Name        string     `yaml:"name"`
		Description string     `yaml:"description"`
		Attribution string     `yaml:"attribution"`
		Version     string     `yaml:"version"`
		Languages   []string   `yaml:"languages"`
		MinZoom     int        `yaml:"minzoom"`
		MaxZoom     int        `yaml:"maxzoom"`
		Bounds      []float64  `yaml:"bounds"`
		Center      []float64  `yaml:"center"`
		Layers      []layerRef `yaml:"layers"`
	} `yaml:"tileset"`
}

type layerRef struct {
	File string `yaml:"file"`
}

type layerFile struct {
	Layer Layer `yaml:"layer"`
}

// Parse reads a tileset definition and every layer file it references.
func Parse(path string) (*Tileset, error) {
	var tf tilesetFile
	if err := decodeYAML(path, &tf); err != nil {
		return nil, err
	}
	def := tf.Tileset
	ts := &Tileset{
		ID:          def.ID,
		Name:        def.Name,
		Description: def.Description,
		Attribution: def.Attribution,
		Version:     def.Version,
		Languages:   def.Languages,
		MinZoom:     def.MinZoom,
		MaxZoom:     def.MaxZoom,
		Bounds:      def.Bounds,
		Center:      def.Center,
	}
	dir := filepath.Dir(path)
	seen := map[string]bool{}
	for _, ref := range def.Layers {
		if ref.File == "" {
			return nil, fmt.Errorf("tileset %s: layer entry without a file reference", path)
		}
		layer, err := parseLayer(filepath.Join(dir, ref.File))
		if err != nil {
			return nil, err
		}
		if seen[layer.ID] {
			return nil, fmt.Errorf("tileset %s: duplicate layer id %q", path, layer.ID)
		}
		seen[layer.ID] = true
		ts.Layers = append(ts.Layers, layer)
	}
	return ts, nil
}

// parseLayer loads one layer file and applies datasource defaults.
func parseLayer(path string) (*Layer, error) {
	var lf layerFile
	if err := decodeYAML(path, &lf); err != nil {
		return nil, err
	}
	layer := lf.Layer
	if layer.ID == "" {
		return nil, fmt.Errorf("layer %s: missing id", path)
	}
	if layer.Datasource.Query == "" {
		return nil, fmt.Errorf("layer %s: datasource has no query", path)
	}
	if layer.Datasource.GeometryField == "" {
		layer.Datasource.GeometryField = "geometry"
	}
	return &layer, nil
}

func decodeYAML(path string, v any) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()
	if err := yaml.NewDecoder(f).Decode(v); err != nil {
		return fmt.Errorf("decoding %s: %w", path, err)
	}
	return nil
}
