package config

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/biter777/countries"
	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
	"github.com/robfig/cron/v3"
	"golang.org/x/text/encoding/htmlindex"

	"github.com/couchcryptid/quake-data-etl/internal/adapter/koeri"
	"github.com/couchcryptid/quake-data-etl/internal/domain"
	"github.com/couchcryptid/quake-data-etl/internal/geo"
	"github.com/couchcryptid/quake-data-etl/internal/observability"
	"github.com/couchcryptid/quake-data-etl/internal/scoring"
)

// Event sinks.
const (
	SinkBolt  = "bolt"
	SinkKafka = "kafka"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	FeedURL     string
	FeedTimeout time.Duration
	FeedCharset string

	SettlementsURI       string
	SettlementCountry    string
	SettlementIndexCodes domain.FeatureSet
	AffectedFeatureCodes domain.FeatureSet
	LandURI              string
	LandAxisOrder        geo.AxisOrder
	CoefficientsURI      string
	RefDataTimeout       time.Duration

	EventSink    string
	BoltPath     string
	KafkaBrokers []string
	KafkaTopic   string
	BatchSize    int

	// RunSchedule is a cron expression; empty means run once and exit.
	RunSchedule string
	TTL         scoring.TTLCurve

	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	batchSize, err := sharedcfg.ParseBatchSize()
	if err != nil {
		return nil, err
	}

	feedTimeout, err := parseDuration("FEED_TIMEOUT", "15s")
	if err != nil {
		return nil, err
	}
	refTimeout, err := parseDuration("REFDATA_TIMEOUT", "60s")
	if err != nil {
		return nil, err
	}

	indexCodes, err := parseFeatures("SETTLEMENT_INDEX_CODES", domain.DefaultIndexFeatures)
	if err != nil {
		return nil, err
	}
	affectedCodes, err := parseFeatures("AFFECTED_FEATURE_CODES", domain.DefaultAffectedFeatures)
	if err != nil {
		return nil, err
	}

	axis, err := geo.ParseAxisOrder(sharedcfg.EnvOrDefault("LAND_AXIS_ORDER", "auto"))
	if err != nil {
		return nil, fmt.Errorf("invalid LAND_AXIS_ORDER: %w", err)
	}

	s50, err := parseFloat("TTL_S50", scoring.DefaultS50)
	if err != nil {
		return nil, err
	}
	steepness, err := parseFloat("TTL_STEEPNESS", scoring.DefaultSteepness)
	if err != nil {
		return nil, err
	}
	if steepness <= 0 {
		return nil, errors.New("TTL_STEEPNESS must be positive")
	}

	cfg := &Config{
		FeedURL:     sharedcfg.EnvOrDefault("FEED_URL", koeri.DefaultURL),
		FeedTimeout: feedTimeout,
		FeedCharset: strings.ToLower(sharedcfg.EnvOrDefault("FEED_CHARSET", "windows-1254")),

		SettlementsURI:       sharedcfg.EnvOrDefault("SETTLEMENTS_URI", "data/settlements_tr.tsv"),
		SettlementCountry:    strings.ToUpper(sharedcfg.EnvOrDefault("SETTLEMENT_COUNTRY", "TR")),
		SettlementIndexCodes: indexCodes,
		AffectedFeatureCodes: affectedCodes,
		LandURI:              sharedcfg.EnvOrDefault("LAND_URI", "data/land.geojson"),
		LandAxisOrder:        axis,
		CoefficientsURI:      sharedcfg.EnvOrDefault("COEFFICIENTS_URI", "data/coefficients.json"),
		RefDataTimeout:       refTimeout,

		EventSink:    strings.ToLower(sharedcfg.EnvOrDefault("EVENT_SINK", SinkBolt)),
		BoltPath:     sharedcfg.EnvOrDefault("BOLT_PATH", "data/quake.db"),
		KafkaBrokers: nonEmpty(sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092"))),
		KafkaTopic:   sharedcfg.EnvOrDefault("KAFKA_TOPIC", "seismic-events"),
		BatchSize:    batchSize,

		RunSchedule: strings.TrimSpace(sharedcfg.EnvOrDefault("RUN_SCHEDULE", "")),
		TTL:         scoring.TTLCurve{S50: s50, K: steepness},

		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if _, err := htmlindex.Get(c.FeedCharset); err != nil {
		return fmt.Errorf("invalid FEED_CHARSET %q", c.FeedCharset)
	}
	if cc := countries.ByName(c.SettlementCountry); cc == countries.Unknown || cc.Alpha2() != c.SettlementCountry {
		return fmt.Errorf("invalid SETTLEMENT_COUNTRY %q: want an ISO-3166 alpha-2 code", c.SettlementCountry)
	}

	switch c.EventSink {
	case SinkBolt:
	case SinkKafka:
		if len(c.KafkaBrokers) == 0 {
			return errors.New("KAFKA_BROKERS is required when EVENT_SINK is kafka")
		}
		if c.KafkaTopic == "" {
			return errors.New("KAFKA_TOPIC is required when EVENT_SINK is kafka")
		}
	default:
		return fmt.Errorf("invalid EVENT_SINK %q: want %s or %s", c.EventSink, SinkBolt, SinkKafka)
	}
	// The bookmark always lives in bbolt, whatever the event sink.
	if c.BoltPath == "" {
		return errors.New("BOLT_PATH is required")
	}

	if c.RunSchedule != "" {
		if _, err := cron.ParseStandard(c.RunSchedule); err != nil {
			return fmt.Errorf("invalid RUN_SCHEDULE %q: %w", c.RunSchedule, err)
		}
	}

	if _, err := observability.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("invalid LOG_LEVEL: %w", err)
	}
	if c.LogFormat != "json" && c.LogFormat != "text" {
		return fmt.Errorf("invalid LOG_FORMAT %q: want json or text", c.LogFormat)
	}
	return nil
}

func parseDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault(key, def))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}

func parseFloat(key string, def float64) (float64, error) {
	s := sharedcfg.EnvOrDefault(key, "")
	if s == "" {
		return def, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return v, nil
}

func parseFeatures(key string, def domain.FeatureSet) (domain.FeatureSet, error) {
	s := sharedcfg.EnvOrDefault(key, "")
	if s == "" {
		return def, nil
	}
	fs, err := domain.ParseFeatureSet(s)
	if err != nil {
		return domain.FeatureSet{}, fmt.Errorf("invalid %s: %w", key, err)
	}
	return fs, nil
}

func nonEmpty(in []string) []string {
	out := in[:0]
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
