package main

import (
	"context"
	"fmt"
	"os"

	"github.com/alexflint/go-arg"
	"github.com/rs/zerolog"

	"github.com/flightaware/tileset-inspect/pkg/inspect"
	"github.com/flightaware/tileset-inspect/pkg/tileset"
)

var version = "dev"

type Args struct {
	Tileset       string   `arg:"positional,required" help:"tileset definition yaml file"`
	Tile          string   `arg:"positional,required" help:"tile coordinate as zoom/x/y"`
	Layers        []string `arg:"--layer,separate" help:"limit processing to this layer (repeatable)"`
	ExcludeLayers bool     `arg:"--exclude-layers" help:"process all layers except the ones given with --layer"`
	ShowNames     bool     `arg:"--show-names" help:"expand name columns for every tileset language"`
	ShowGeometry  bool     `arg:"--show-geometry" help:"print geometries as WKT instead of a type(size) summary"`
	Stats         bool     `arg:"--stats" help:"also report encoded size and feature count per layer"`
	Output        string   `arg:"-o,--output" help:"save the encoded tile to this mbtiles file"`
	Verbose       bool     `arg:"-v,--verbose" help:"log server settings and rendered queries"`
	PgHost        string   `arg:"--pghost,env:POSTGRES_HOST" default:"localhost" help:"postgres host"`
	PgPort        int      `arg:"--pgport,env:POSTGRES_PORT" default:"5432" help:"postgres port"`
	DbName        string   `arg:"--dbname,env:POSTGRES_DB" default:"openmaptiles" help:"postgres database name"`
	User          string   `arg:"--user,env:POSTGRES_USER" default:"openmaptiles" help:"postgres user"`
	Password      string   `arg:"--password,env:POSTGRES_PASSWORD" default:"openmaptiles" help:"postgres password"`
}

func (Args) Description() string {
	return "print the rows a tileset's layer queries would produce for one tile, as text tables"
}

func (Args) Version() string {
	return "tileset-inspect " + version
}

func main() {
	var args Args
	p := arg.MustParse(&args)

	// reject a bad coordinate before touching the database
	tile, err := inspect.ParseTile(args.Tile)
	if err != nil {
		p.Fail(err.Error())
	}

	level := zerolog.InfoLevel
	if args.Verbose {
		level = zerolog.DebugLevel
	}
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(level).With().Timestamp().Logger()

	ts, err := tileset.Parse(args.Tileset)
	if err != nil {
		log.Fatal().Err(err).Msg("loading tileset")
	}

	ctx := context.Background()
	sess, err := inspect.Connect(ctx, inspect.ConnConfig{
		Host:     args.PgHost,
		Port:     args.PgPort,
		Database: args.DbName,
		User:     args.User,
		Password: args.Password,
	}, log)
	if err != nil {
		log.Fatal().Err(err).Msg("database connection")
	}
	defer sess.Close(ctx)

	if err := sess.LogSettings(ctx); err != nil {
		log.Fatal().Err(err).Msg("server settings")
	}
	pgisVersion, err := sess.PostGISVersion(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("postgis version")
	}
	caps, err := inspect.CapabilitiesFor(pgisVersion)
	if err != nil {
		log.Fatal().Err(err).Msg("postgis version")
	}
	log.Debug().Str("postgis", pgisVersion).
		Bool("feature_id", caps.UseFeatureID).
		Bool("tile_envelope", caps.UseTileEnvelope).
		Msg("capabilities")

	gen := inspect.NewGenerator(ts, args.Layers, args.ExcludeLayers, caps)
	for _, layer := range gen.Layers() {
		query := gen.LayerQuery(layer, tile, args.ShowNames)
		query = inspect.GeometryDisplay(query, layer.Datasource.GeometryField, args.ShowGeometry)
		query = inspect.WrapQuery(query)
		log.Debug().Str("layer", layer.ID).Str("query", query).Msg("rendered query")

		rs, err := sess.FetchResultSet(ctx, query, layer.Datasource.KeyField, layer.Datasource.GeometryField)
		if err != nil {
			log.Fatal().Err(err).Str("layer", layer.ID).Msg("layer query")
		}
		if len(rs.Rows) == 0 {
			fmt.Printf("======= No data in layer %s =======\n", layer.ID)
			continue
		}
		fmt.Printf("======= Layer %s =======\n", layer.ID)
		if err := inspect.RenderTable(os.Stdout, rs); err != nil {
			log.Fatal().Err(err).Msg("rendering table")
		}
	}

	if args.Stats || args.Output != "" {
		encodeTile(ctx, args, log, gen, ts, tile, sess)
	}
}

// encodeTile asks the server to encode each selected layer as MVT, prints
// the size summary, and optionally captures the assembled tile into an
// mbtiles file for viewer inspection.
func encodeTile(ctx context.Context, args Args, log zerolog.Logger, gen *inspect.Generator,
	ts *tileset.Tileset, tile inspect.Tile, sess *inspect.Session) {
	var stats []inspect.LayerStats
	var tileData []byte
	for _, layer := range gen.Layers() {
		query := gen.MVTQuery(layer, tile)
		log.Debug().Str("layer", layer.ID).Str("query", query).Msg("mvt query")
		data, err := sess.FetchTile(ctx, query)
		if err != nil {
			log.Fatal().Err(err).Str("layer", layer.ID).Msg("mvt query")
		}
		s, err := inspect.StatsFor(layer.ID, data)
		if err != nil {
			log.Fatal().Err(err).Str("layer", layer.ID).Msg("mvt decode")
		}
		stats = append(stats, s)
		// layer fragments concatenate into one valid tile
		tileData = append(tileData, data...)
	}

	if args.Stats {
		fmt.Printf("======= Tile %s =======\n", tile)
		if err := inspect.RenderTable(os.Stdout, inspect.StatsResultSet(stats)); err != nil {
			log.Fatal().Err(err).Msg("rendering table")
		}
	}
	if args.Output != "" {
		compressed, err := inspect.Gzip(tileData)
		if err != nil {
			log.Fatal().Err(err).Msg("compressing tile")
		}
		if err := inspect.SaveTile(args.Output, ts, tile, compressed); err != nil {
			log.Fatal().Err(err).Msg("saving tile")
		}
		log.Info().Str("file", args.Output).Int("bytes", len(compressed)).Msg("tile saved")
	}
}
