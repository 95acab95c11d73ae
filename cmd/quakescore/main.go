// Command quakescore scores one hypothetical event against the configured
// reference data and prints S, the TTL, the danger radius and the
// settlements that fall inside it. Reference data locations come from the
// same environment variables as the ETL service. With -event, a stored
// event is read from BOLT_PATH and rescored instead.
//
// Usage:
//
//	go run ./cmd/quakescore -lat 36.2197 -lon 36.2042 -depth 8.5 -mw 6.2
//	go run ./cmd/quakescore -lat 40.85 -lon 27.90 -depth 12 -ml 4.1 -json
//	go run ./cmd/quakescore -event eq-b38c9810fe1fc308
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"strings"
	"time"

	boltstore "github.com/couchcryptid/quake-data-etl/internal/adapter/bolt"
	"github.com/couchcryptid/quake-data-etl/internal/adapter/objectstore"
	"github.com/couchcryptid/quake-data-etl/internal/adapter/refdata"
	"github.com/couchcryptid/quake-data-etl/internal/config"
	"github.com/couchcryptid/quake-data-etl/internal/domain"
	"github.com/couchcryptid/quake-data-etl/internal/geo"
	"github.com/couchcryptid/quake-data-etl/internal/observability"
	"github.com/couchcryptid/quake-data-etl/internal/scoring"
)

// eventFlags are the hypothetical event's parameters. NaN marks an unset
// magnitude.
type eventFlags struct {
	lat, lon, depth float64
	mw, ml          float64
	origin          string
}

func (f eventFlags) event() (domain.SeismicEvent, error) {
	if math.IsNaN(f.lat) || math.IsNaN(f.lon) {
		return domain.SeismicEvent{}, fmt.Errorf("-lat and -lon are required")
	}
	if f.depth < 0 {
		return domain.SeismicEvent{}, fmt.Errorf("-depth must not be negative")
	}

	origin := time.Now().In(domain.Turkey)
	if f.origin != "" {
		t, err := time.ParseInLocation("2006.01.02 15:04:05", f.origin, domain.Turkey)
		if err != nil {
			return domain.SeismicEvent{}, fmt.Errorf("-origin: %w", err)
		}
		origin = t
	}

	ev := domain.SeismicEvent{
		ID:       "hypothetical",
		Date:     origin.Format(domain.DateLayout),
		Time:     origin.Format("15:04:05"),
		Origin:   origin,
		Lat:      f.lat,
		Lon:      f.lon,
		DepthKm:  f.depth,
		Location: "HYPOTHETICAL",
	}
	if !math.IsNaN(f.mw) {
		mw := f.mw
		ev.Mw = &mw
	}
	if !math.IsNaN(f.ml) {
		ml := f.ml
		ev.ML = &ml
	}
	if ev.Mw == nil && ev.ML == nil {
		return domain.SeismicEvent{}, fmt.Errorf("one of -mw or -ml is required")
	}
	return ev, nil
}

// storedEvent reads an event written by the ETL service. The service must
// not hold the database open.
func storedEvent(path, id string) (domain.SeismicEvent, error) {
	store, err := boltstore.Open(path)
	if err != nil {
		return domain.SeismicEvent{}, err
	}
	defer store.Close()
	return store.Get(context.Background(), id)
}

func main() {
	var f eventFlags
	flag.Float64Var(&f.lat, "lat", math.NaN(), "epicentre latitude in degrees")
	flag.Float64Var(&f.lon, "lon", math.NaN(), "epicentre longitude in degrees")
	flag.Float64Var(&f.depth, "depth", 10, "focal depth in km")
	flag.Float64Var(&f.mw, "mw", math.NaN(), "moment magnitude")
	flag.Float64Var(&f.ml, "ml", math.NaN(), "local magnitude, used when -mw is not set")
	flag.StringVar(&f.origin, "origin", "", `origin time "YYYY.MM.DD HH:MM:SS" in observatory time (default now)`)
	eventID := flag.String("event", "", "rescore the stored event with this ID instead of the flag values")
	asJSON := flag.Bool("json", false, "print the enriched event as JSON")
	verbose := flag.Bool("v", false, "log reference data loading")
	flag.Parse()

	var ev domain.SeismicEvent
	var err error
	if *eventID == "" {
		if ev, err = f.event(); err != nil {
			fmt.Fprintln(os.Stderr, "quakescore:", err)
			flag.Usage()
			os.Exit(2)
		}
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "quakescore: config:", err)
		os.Exit(1)
	}
	if *eventID != "" {
		if ev, err = storedEvent(cfg.BoltPath, *eventID); err != nil {
			fmt.Fprintln(os.Stderr, "quakescore:", err)
			os.Exit(1)
		}
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	if *verbose {
		if logger, err = observability.NewLogger("debug", "text"); err != nil {
			fmt.Fprintln(os.Stderr, "quakescore:", err)
			os.Exit(1)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.RefDataTimeout)
	defer cancel()
	ref, err := refdata.NewLoader(objectstore.New(cfg.RefDataTimeout), logger).Load(ctx, refdata.Sources{
		SettlementsURI:  cfg.SettlementsURI,
		LandURI:         cfg.LandURI,
		LandAxisOrder:   cfg.LandAxisOrder,
		CoefficientsURI: cfg.CoefficientsURI,
		Filter:          refdata.SettlementFilter{Country: cfg.SettlementCountry, Features: cfg.SettlementIndexCodes},
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, "quakescore:", err)
		os.Exit(1)
	}

	index := geo.NewSettlementIndex(ref.Settlements,
		geo.WithAffectedFeatures(cfg.AffectedFeatureCodes),
		geo.WithCountry(cfg.SettlementCountry),
	)
	engine := scoring.NewEngine(index, ref.Land, ref.Model, cfg.TTL)

	sc, err := engine.Score(ev)
	if err != nil {
		fmt.Fprintln(os.Stderr, "quakescore:", err)
		os.Exit(1)
	}
	a, err := engine.Assess(ev)
	if err != nil {
		fmt.Fprintln(os.Stderr, "quakescore:", err)
		os.Exit(1)
	}
	enriched := ev.WithAssessment(a)

	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(enriched); err != nil {
			fmt.Fprintln(os.Stderr, "quakescore:", err)
			os.Exit(1)
		}
		return
	}
	printReport(os.Stdout, enriched, sc)
}

func printReport(w io.Writer, ev domain.SeismicEvent, sc scoring.Score) {
	affected := "none"
	if len(ev.PossiblyAffected) > 0 {
		affected = strings.Join(ev.PossiblyAffected, ", ")
	}
	fmt.Fprintf(w, "magnitude          %.1f\n", sc.Magnitude)
	fmt.Fprintf(w, "nearest settlement %s (%.1f km)\n", sc.NearestName, sc.DistanceKm)
	fmt.Fprintf(w, "hypocentral dist.  %.1f km (effective %.1f km)\n", sc.HypocentralKm, sc.EffectiveKm)
	fmt.Fprintf(w, "offshore           %t (factor %.2f)\n", sc.Offshore, sc.OffshoreFactor)
	fmt.Fprintf(w, "beta, a7           %.4f, %.4f\n", sc.Beta, sc.A7)
	fmt.Fprintf(w, "S                  %.3f (fatal risk: %t)\n", sc.S, ev.IsFatalRisk)
	fmt.Fprintf(w, "TTL                %s (expires %s)\n",
		time.Duration(ev.TTLSeconds)*time.Second,
		time.Unix(ev.TTLEpochSeconds, 0).In(domain.Turkey).Format(time.RFC3339))
	fmt.Fprintf(w, "danger radius      %.1f km\n", ev.DangerRadiusKm)
	fmt.Fprintf(w, "possibly affected  %s\n", affected)
}
