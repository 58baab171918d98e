package inspect

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"golang.org/x/exp/slices"
)

// ResultSet holds the materialized rows of one layer query in display
// order.
type ResultSet struct {
	Columns []string
	Rows    [][]any
}

// GeometryDisplay rewrites the geometry column in a rendered query into a
// printable expression: the full WKT when showGeometry is set, otherwise a
// compact "TYPE(bytes)" summary. The replacement is textual and hits every
// occurrence of the column name; templates are trusted not to reuse it
// elsewhere.
func GeometryDisplay(query, geomField string, showGeometry bool) string {
	var repl string
	if showGeometry {
		repl = fmt.Sprintf("ST_AsText(%s) AS %s", geomField, geomField)
	} else {
		repl = fmt.Sprintf("GeometryType(%s) || '(' || ST_MemSize(%s) || ')' AS %s",
			geomField, geomField, geomField)
	}
	return strings.ReplaceAll(query, geomField, repl)
}

// WrapQuery turns a datasource query into an executable statement.
// Tileset queries are conventionally written "(SELECT ...) AS t" and only
// need the outer SELECT; bare queries get wrapped and aliased.
func WrapQuery(query string) string {
	query = strings.TrimSuffix(strings.TrimSpace(query), ";")
	if strings.HasPrefix(query, "(") {
		return "SELECT * FROM " + query
	}
	return fmt.Sprintf("SELECT * FROM (%s) AS t", query)
}

// orderColumns returns the display permutation of a column list: regular
// columns sorted by name, then the key field, then the geometry field.
func orderColumns(columns []string, keyField, geomField string) []int {
	bucket := func(name string) int {
		switch {
		case name == geomField:
			return 2
		case keyField != "" && name == keyField:
			return 1
		}
		return 0
	}
	order := make([]int, len(columns))
	for i := range order {
		order[i] = i
	}
	slices.SortStableFunc(order, func(a, b int) int {
		if d := bucket(columns[a]) - bucket(columns[b]); d != 0 {
			return d
		}
		return strings.Compare(columns[a], columns[b])
	})
	return order
}

func permute[T any](values []T, order []int) []T {
	out := make([]T, len(values))
	for i, idx := range order {
		out[i] = values[idx]
	}
	return out
}

// RenderTable writes the result set as an aligned text table.
func RenderTable(w io.Writer, rs *ResultSet) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(rs.Columns, "\t"))
	rules := make([]string, len(rs.Columns))
	for i, col := range rs.Columns {
		rules[i] = strings.Repeat("-", len(col))
	}
	fmt.Fprintln(tw, strings.Join(rules, "\t"))
	for _, row := range rs.Rows {
		cells := make([]string, len(row))
		for i, v := range row {
			cells[i] = renderValue(v)
		}
		fmt.Fprintln(tw, strings.Join(cells, "\t"))
	}
	return tw.Flush()
}

// renderValue formats a single cell. NULL prints as an empty cell and raw
// byte values are summarized rather than dumped.
func renderValue(v any) string {
	switch v := v.(type) {
	case nil:
		return ""
	case []byte:
		return fmt.Sprintf("<%d bytes>", len(v))
	case string:
		return v
	default:
		return fmt.Sprintf("%v", v)
	}
}
