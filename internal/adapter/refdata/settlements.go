package refdata

import (
	"context"
	"database/sql"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	_ "github.com/duckdb/duckdb-go/v2"

	"github.com/couchcryptid/quake-data-etl/internal/domain"
)

// ErrNoSettlements means the table produced no usable rows after filtering.
var ErrNoSettlements = errors.New("no settlements left after filtering")

// SettlementFilter selects the rows that are indexed.
type SettlementFilter struct {
	// Country is an ISO-3166 alpha-2 code; empty keeps every country.
	Country  string
	Features domain.FeatureSet
}

func (f SettlementFilter) keep(s domain.Settlement) bool {
	if f.Country != "" && !strings.EqualFold(s.CountryCode, f.Country) {
		return false
	}
	return f.Features.Len() == 0 || f.Features.Contains(s.FeatureCode)
}

// settlementRow is one raw row before validation. Optional columns are
// empty strings when absent.
type settlementRow struct {
	geonameID, name, lat, lon, country, feature, population string
}

// settlement validates a row. ok is false for rows missing a name or
// carrying unusable coordinates.
func (r settlementRow) settlement() (domain.Settlement, bool) {
	name := strings.TrimSpace(r.name)
	if name == "" {
		return domain.Settlement{}, false
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(r.lat), 64)
	if err != nil || math.IsNaN(lat) || lat < -90 || lat > 90 {
		return domain.Settlement{}, false
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(r.lon), 64)
	if err != nil || math.IsNaN(lon) || lon < -180 || lon > 180 {
		return domain.Settlement{}, false
	}

	s := domain.Settlement{
		Name:        name,
		Lat:         lat,
		Lon:         lon,
		CountryCode: strings.ToUpper(strings.TrimSpace(r.country)),
		FeatureCode: domain.FeatureCode(strings.ToUpper(strings.TrimSpace(r.feature))),
	}
	if id, err := strconv.ParseInt(strings.TrimSpace(r.geonameID), 10, 64); err == nil {
		s.GeonameID = id
	}
	// Population is informational; a missing value does not drop the row.
	if p, err := strconv.ParseFloat(strings.TrimSpace(r.population), 64); err == nil && p > 0 {
		s.Population = int64(p)
	}
	return s, true
}

// collect validates and filters rows, returning the kept settlements and
// the number of dropped rows.
func collect(rows []settlementRow, f SettlementFilter) ([]domain.Settlement, int) {
	out := make([]domain.Settlement, 0, len(rows))
	dropped := 0
	for _, r := range rows {
		s, ok := r.settlement()
		if !ok {
			dropped++
			continue
		}
		if f.keep(s) {
			out = append(out, s)
		}
	}
	return out, dropped
}

var requiredColumns = []string{"name", "latitude", "longitude"}

// readDelimited parses a header-led CSV or TSV table. The delimiter is the
// one that occurs more often in the header line.
func readDelimited(r io.Reader) ([]settlementRow, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read settlements: %w", err)
	}
	text := strings.TrimPrefix(string(data), "\ufeff")
	header, _, _ := strings.Cut(text, "\n")

	cr := csv.NewReader(strings.NewReader(text))
	cr.Comma = ','
	if strings.Count(header, "\t") > strings.Count(header, ",") {
		cr.Comma = '\t'
		// GeoNames dumps contain bare quotes inside names.
		cr.LazyQuotes = true
	}
	cr.FieldsPerRecord = -1
	cr.ReuseRecord = true

	head, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read settlements header: %w", err)
	}
	cols := make(map[string]int, len(head))
	for i, h := range head {
		cols[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, c := range requiredColumns {
		if _, ok := cols[c]; !ok {
			return nil, fmt.Errorf("settlements header missing column %q", c)
		}
	}

	field := func(rec []string, col string) string {
		i, ok := cols[col]
		if !ok || i >= len(rec) {
			return ""
		}
		return rec[i]
	}

	var rows []settlementRow
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read settlements: %w", err)
		}
		rows = append(rows, settlementRow{
			geonameID:  field(rec, "geonameid"),
			name:       field(rec, "name"),
			lat:        field(rec, "latitude"),
			lon:        field(rec, "longitude"),
			country:    field(rec, "country_code"),
			feature:    field(rec, "feature_code"),
			population: field(rec, "population"),
		})
	}
	return rows, nil
}

// readParquet reads the table through an in-memory DuckDB connection.
// Every column is cast to text so validation matches the delimited path.
func readParquet(ctx context.Context, path string) ([]settlementRow, error) {
	db, err := sql.Open("duckdb", "")
	if err != nil {
		return nil, fmt.Errorf("open duckdb: %w", err)
	}
	defer db.Close()

	src := "read_parquet('" + strings.ReplaceAll(path, "'", "''") + "')"
	cols, err := parquetColumns(ctx, db, src)
	if err != nil {
		return nil, err
	}
	for _, c := range requiredColumns {
		if _, ok := cols[c]; !ok {
			return nil, fmt.Errorf("settlements parquet missing column %q", c)
		}
	}
	sel := func(col string) string {
		if _, ok := cols[col]; !ok {
			return "''"
		}
		return "coalesce(CAST(\"" + col + "\" AS VARCHAR), '')"
	}

	query := "SELECT " + strings.Join([]string{
		sel("geonameid"), sel("name"), sel("latitude"), sel("longitude"),
		sel("country_code"), sel("feature_code"), sel("population"),
	}, ", ") + " FROM " + src

	rs, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query settlements parquet: %w", err)
	}
	defer rs.Close()

	var rows []settlementRow
	for rs.Next() {
		var r settlementRow
		if err := rs.Scan(&r.geonameID, &r.name, &r.lat, &r.lon, &r.country, &r.feature, &r.population); err != nil {
			return nil, fmt.Errorf("scan settlement row: %w", err)
		}
		rows = append(rows, r)
	}
	if err := rs.Err(); err != nil {
		return nil, fmt.Errorf("iterate settlements parquet: %w", err)
	}
	return rows, nil
}

func parquetColumns(ctx context.Context, db *sql.DB, src string) (map[string]struct{}, error) {
	rs, err := db.QueryContext(ctx, "DESCRIBE SELECT * FROM "+src)
	if err != nil {
		return nil, fmt.Errorf("describe settlements parquet: %w", err)
	}
	defer rs.Close()

	names, err := rs.Columns()
	if err != nil {
		return nil, fmt.Errorf("describe settlements parquet: %w", err)
	}
	cols := make(map[string]struct{})
	for rs.Next() {
		vals := make([]sql.NullString, len(names))
		ptrs := make([]any, len(names))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rs.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("describe settlements parquet: %w", err)
		}
		// column_name is the first DESCRIBE column.
		cols[strings.ToLower(vals[0].String)] = struct{}{}
	}
	return cols, rs.Err()
}
