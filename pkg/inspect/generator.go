package inspect

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/flightaware/tileset-inspect/pkg/tileset"
)

// Substitution tokens understood inside a layer's datasource query.
// These are replaced textually; the query is never parsed as SQL, so a
// template that uses a token in an unexpected position is passed through
// to the database as-is.
const (
	tokenBBox          = "!bbox!"
	tokenZoom          = "z(!scale_denominator!)"
	tokenScaleDenom    = "!scale_denominator!"
	tokenPixelWidth    = "!pixel_width!"
	tokenPixelHeight   = "!pixel_height!"
	tokenNameLanguages = "{name_languages}"
)

// nullLanguages is substituted for {name_languages} when name columns are
// not requested.
const nullLanguages = "NULL AS languages"

// Generator renders per-layer tile queries for one tileset.
type Generator struct {
	tileset  *tileset.Tileset
	layerIDs []string
	exclude  bool
	caps     Capabilities
}

// NewGenerator creates a Generator. layerIDs restricts rendering to those
// layers, or with exclude set, to every layer except those. An empty
// layerIDs selects all layers regardless of exclude.
func NewGenerator(ts *tileset.Tileset, layerIDs []string, exclude bool, caps Capabilities) *Generator {
	return &Generator{
		tileset:  ts,
		layerIDs: layerIDs,
		exclude:  exclude,
		caps:     caps,
	}
}

// Layers returns the selected layers in tileset order.
func (g *Generator) Layers() []*tileset.Layer {
	if len(g.layerIDs) == 0 {
		return g.tileset.Layers
	}
	requested := map[string]bool{}
	for _, id := range g.layerIDs {
		requested[id] = true
	}
	layers := make([]*tileset.Layer, 0, len(g.tileset.Layers))
	for _, layer := range g.tileset.Layers {
		if requested[layer.ID] != g.exclude {
			layers = append(layers, layer)
		}
	}
	return layers
}

// TileEnvelope returns the name of the SQL function producing a tile's
// bounding geometry. PostGIS 3 ships ST_TileEnvelope; older servers rely
// on the TileBBox helper installed with the tileset schema.
func (g *Generator) TileEnvelope() string {
	if g.caps.UseTileEnvelope {
		return "ST_TileEnvelope"
	}
	return "TileBBox"
}

// LayerQuery renders the layer's datasource query for one tile. When
// showNames is set the {name_languages} token expands to per-language name
// columns from the tileset's declared languages; otherwise it becomes a
// null placeholder column.
func (g *Generator) LayerQuery(layer *tileset.Layer, tile Tile, showNames bool) string {
	languages := nullLanguages
	if showNames {
		languages = LanguagesToSQL(g.tileset.Languages)
	}
	query := strings.ReplaceAll(layer.Datasource.Query, tokenNameLanguages, languages)
	envelope := fmt.Sprintf("%s(%d, %d, %d)", g.TileEnvelope(), tile.Z, tile.X, tile.Y)
	return SubstituteTokens(query, envelope, tile)
}

// SubstituteTokens replaces the tile tokens in a query template with the
// envelope expression and zoom-derived literals. The zoom form
// z(!scale_denominator!) must be replaced before the bare denominator
// token it contains.
func SubstituteTokens(query, envelope string, tile Tile) string {
	query = strings.ReplaceAll(query, tokenBBox, envelope)
	query = strings.ReplaceAll(query, tokenZoom, strconv.Itoa(tile.Z))
	query = strings.ReplaceAll(query, tokenScaleDenom, formatFloat(tile.ScaleDenominator()))
	query = strings.ReplaceAll(query, tokenPixelWidth, formatFloat(tile.PixelSize()))
	query = strings.ReplaceAll(query, tokenPixelHeight, formatFloat(tile.PixelSize()))
	return query
}

// LanguagesToSQL builds the name-column expression for a language list.
func LanguagesToSQL(languages []string) string {
	if len(languages) == 0 {
		return nullLanguages
	}
	parts := make([]string, 0, len(languages))
	for _, lang := range languages {
		parts = append(parts, fmt.Sprintf(`NULLIF(tags->'name:%s', '') AS "name:%s"`, lang, lang))
	}
	return strings.Join(parts, ", ")
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
