package inspect

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

// settingNames are the server settings reported as connection diagnostics.
var settingNames = []string{
	"effective_cache_size",
	"jit",
	"maintenance_work_mem",
	"max_connections",
	"max_parallel_workers_per_gather",
	"shared_buffers",
	"work_mem",
}

// ConnConfig holds the resolved PostgreSQL connection parameters.
type ConnConfig struct {
	Host     string
	Port     int
	Database string
	User     string
	Password string
}

// DSN renders the config as a keyword/value connection string.
func (c ConnConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d dbname=%s user=%s password=%s",
		c.Host, c.Port, c.Database, c.User, c.Password)
}

// Capabilities are the version-dependent SQL features available on the
// connected server.
type Capabilities struct {
	// UseFeatureID enables the ST_AsMVT feature-id parameter.
	UseFeatureID bool
	// UseTileEnvelope selects ST_TileEnvelope over the TileBBox helper.
	UseTileEnvelope bool
}

// ParsePostGISVersion extracts the major and minor version from a
// postgis_lib_version() string such as "3.3.2".
func ParsePostGISVersion(version string) (major, minor int, err error) {
	parts := strings.SplitN(strings.TrimSpace(version), ".", 3)
	if len(parts) < 2 {
		return 0, 0, fmt.Errorf("unparseable postgis version %q", version)
	}
	major, err = strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, fmt.Errorf("unparseable postgis version %q", version)
	}
	minor, err = strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, fmt.Errorf("unparseable postgis version %q", version)
	}
	return major, minor, nil
}

// CapabilitiesFor derives the capability set for a PostGIS version string.
// Versions below 2.5 are rejected outright since the tile queries depend
// on functions introduced there.
func CapabilitiesFor(version string) (Capabilities, error) {
	major, minor, err := ParsePostGISVersion(version)
	if err != nil {
		return Capabilities{}, err
	}
	if major < 2 || (major == 2 && minor < 5) {
		return Capabilities{}, fmt.Errorf("postgis %s is too old, 2.5 or later is required", version)
	}
	return Capabilities{
		UseFeatureID:    major >= 3,
		UseTileEnvelope: major >= 3,
	}, nil
}

// Session is one open database connection.
type Session struct {
	conn *pgx.Conn
	log  zerolog.Logger
}

// Connect opens a single connection to the configured server.
func Connect(ctx context.Context, cfg ConnConfig, log zerolog.Logger) (*Session, error) {
	conn, err := pgx.Connect(ctx, cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("connecting to %s:%d/%s: %w", cfg.Host, cfg.Port, cfg.Database, err)
	}
	log.Debug().Str("host", cfg.Host).Int("port", cfg.Port).Str("dbname", cfg.Database).Msg("connected")
	return &Session{conn: conn, log: log}, nil
}

// Close releases the connection.
func (s *Session) Close(ctx context.Context) {
	if err := s.conn.Close(ctx); err != nil {
		s.log.Warn().Err(err).Msg("closing connection")
	}
}

// LogSettings reads a fixed set of server settings plus the server version
// and logs them as diagnostics.
func (s *Session) LogSettings(ctx context.Context) error {
	var serverVersion string
	if err := s.conn.QueryRow(ctx, "SELECT version()").Scan(&serverVersion); err != nil {
		return fmt.Errorf("reading server version: %w", err)
	}
	s.log.Info().Str("server", serverVersion).Msg("postgres")

	rows, err := s.conn.Query(ctx,
		"SELECT name, setting, COALESCE(unit, '') FROM pg_settings WHERE name = ANY($1) ORDER BY name",
		settingNames)
	if err != nil {
		return fmt.Errorf("reading server settings: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var name, setting, unit string
		if err := rows.Scan(&name, &setting, &unit); err != nil {
			return err
		}
		s.log.Debug().Str("setting", name).Str("value", setting+unit).Msg("server setting")
	}
	return rows.Err()
}

// PostGISVersion returns the server's PostGIS library version string.
func (s *Session) PostGISVersion(ctx context.Context) (string, error) {
	var version string
	if err := s.conn.QueryRow(ctx, "SELECT postgis_lib_version()").Scan(&version); err != nil {
		return "", fmt.Errorf("reading postgis version (is the extension installed?): %w", err)
	}
	return version, nil
}

// FetchResultSet runs a rendered layer query and materializes every row,
// with columns reordered for display.
func (s *Session) FetchResultSet(ctx context.Context, query, keyField, geomField string) (*ResultSet, error) {
	rows, err := s.conn.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("layer query failed: %w", err)
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()
	columns := make([]string, len(fields))
	for i, fd := range fields {
		columns[i] = fd.Name
	}
	order := orderColumns(columns, keyField, geomField)

	rs := &ResultSet{Columns: permute(columns, order)}
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, err
		}
		rs.Rows = append(rs.Rows, permute(values, order))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("layer query failed: %w", err)
	}
	return rs, nil
}

// FetchTile runs an ST_AsMVT query and returns the encoded layer bytes.
func (s *Session) FetchTile(ctx context.Context, query string) ([]byte, error) {
	var data []byte
	if err := s.conn.QueryRow(ctx, query).Scan(&data); err != nil {
		return nil, fmt.Errorf("tile query failed: %w", err)
	}
	return data, nil
}
