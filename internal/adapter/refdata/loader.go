// Package refdata loads the immutable reference data the scoring engine is
// built from: the settlement table, the land polygons and the attenuation
// coefficients.
package refdata

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/couchcryptid/quake-data-etl/internal/adapter/objectstore"
	"github.com/couchcryptid/quake-data-etl/internal/domain"
	"github.com/couchcryptid/quake-data-etl/internal/geo"
	"github.com/couchcryptid/quake-data-etl/internal/scoring"
)

// Sources names where each reference object lives.
type Sources struct {
	SettlementsURI  string
	LandURI         string
	LandAxisOrder   geo.AxisOrder
	CoefficientsURI string
	Filter          SettlementFilter
}

// Reference is the loaded reference data.
type Reference struct {
	Settlements []domain.Settlement
	Land        *geo.LandMask
	Model       scoring.AttenuationModel
}

// Loader reads reference objects from an object store.
type Loader struct {
	store  *objectstore.Store
	logger *slog.Logger
}

// NewLoader creates a Loader over the given store.
func NewLoader(store *objectstore.Store, logger *slog.Logger) *Loader {
	return &Loader{store: store, logger: logger}
}

// Load reads all three objects concurrently. Any failure is returned and
// the partial result discarded.
func (l *Loader) Load(ctx context.Context, src Sources) (*Reference, error) {
	var ref Reference
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s, err := l.Settlements(gctx, src.SettlementsURI, src.Filter)
		ref.Settlements = s
		return err
	})
	g.Go(func() error {
		m, err := l.LandMask(gctx, src.LandURI, src.LandAxisOrder)
		ref.Land = m
		return err
	})
	g.Go(func() error {
		m, err := l.Coefficients(gctx, src.CoefficientsURI)
		ref.Model = m
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &ref, nil
}

// Settlements loads, validates and filters the settlement table.
func (l *Loader) Settlements(ctx context.Context, uri string, f SettlementFilter) ([]domain.Settlement, error) {
	var (
		rows []settlementRow
		err  error
	)
	if objectstore.Ext(uri) == ".parquet" {
		path, cleanup, lerr := l.store.LocalFile(ctx, uri)
		if lerr != nil {
			return nil, fmt.Errorf("settlements: %w", lerr)
		}
		defer cleanup()
		rows, err = readParquet(ctx, path)
	} else {
		rc, oerr := l.store.Open(ctx, uri)
		if oerr != nil {
			return nil, fmt.Errorf("settlements: %w", oerr)
		}
		defer rc.Close()
		rows, err = readDelimited(rc)
	}
	if err != nil {
		return nil, fmt.Errorf("settlements %s: %w", uri, err)
	}

	out, dropped := collect(rows, f)
	if len(out) == 0 {
		return nil, fmt.Errorf("settlements %s: %w", uri, ErrNoSettlements)
	}
	l.logger.Info("settlements loaded",
		"uri", uri,
		"rows", len(rows),
		"dropped", dropped,
		"indexed", len(out),
		"country", f.Country,
		"features", f.Features.String(),
	)
	return out, nil
}

// LandMask loads the land polygons.
func (l *Loader) LandMask(ctx context.Context, uri string, order geo.AxisOrder) (*geo.LandMask, error) {
	data, err := l.store.ReadAll(ctx, uri)
	if err != nil {
		return nil, fmt.Errorf("land mask: %w", err)
	}
	m, err := geo.DecodeLandMask(data, order)
	if err != nil {
		return nil, fmt.Errorf("land mask %s: %w", uri, err)
	}
	l.logger.Info("land mask loaded", "uri", uri, "polygons", m.Len(), "axis_order", order.String())
	return m, nil
}

// coefficientsFile detects missing keys, which plain float fields would
// silently read as zero.
type coefficientsFile struct {
	C1 *float64 `json:"c1"`
	A5 *float64 `json:"a5"`
	A6 *float64 `json:"a6"`
	A7 *float64 `json:"a7"`
}

// Coefficients loads the attenuation coefficients JSON object.
func (l *Loader) Coefficients(ctx context.Context, uri string) (scoring.AttenuationModel, error) {
	data, err := l.store.ReadAll(ctx, uri)
	if err != nil {
		return scoring.AttenuationModel{}, fmt.Errorf("coefficients: %w", err)
	}
	c, err := decodeCoefficients(data)
	if err != nil {
		return scoring.AttenuationModel{}, fmt.Errorf("coefficients %s: %w", uri, err)
	}
	m, err := scoring.NewAttenuationModel(c)
	if err != nil {
		return scoring.AttenuationModel{}, fmt.Errorf("coefficients %s: %w", uri, err)
	}
	l.logger.Info("coefficients loaded", "uri", uri, "c1", c.C1, "a5", c.A5, "a6", c.A6, "a7", c.A7)
	return m, nil
}

func decodeCoefficients(data []byte) (domain.Coefficients, error) {
	var f coefficientsFile
	if err := json.NewDecoder(bytes.NewReader(data)).Decode(&f); err != nil {
		return domain.Coefficients{}, fmt.Errorf("decode: %w", err)
	}
	fields := []struct {
		name string
		v    *float64
	}{
		{"c1", f.C1}, {"a5", f.A5}, {"a6", f.A6}, {"a7", f.A7},
	}
	for _, fld := range fields {
		if fld.v == nil {
			return domain.Coefficients{}, fmt.Errorf("missing key %q", fld.name)
		}
	}
	return domain.Coefficients{C1: *f.C1, A5: *f.A5, A6: *f.A6, A7: *f.A7}, nil
}
