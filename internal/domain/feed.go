package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

const (
	// DateLayout is the feed's date column layout, also used for bookmarks.
	DateLayout = "2006.01.02"
	timeLayout = "15:04:05"

	noValue      = "-.-"
	separator    = "----------"
	minFieldsLen = 9
)

// Region of interest, see the package documentation.
const (
	RegionMinLon = 24.58
	RegionMaxLon = 45.0
	RegionMinLat = 36.0
	RegionMaxLat = 42.0
)

// Skip reasons reported for lines that could not be turned into events.
const (
	SkipShortLine     = "short_line"
	SkipBadDate       = "bad_date"
	SkipBadTime       = "bad_time"
	SkipBadCoordinate = "bad_coordinate"
	SkipBadDepth      = "bad_depth"
	SkipBadMagnitude  = "bad_magnitude"
)

// SkippedLine records a data line that was dropped without aborting the run.
type SkippedLine struct {
	Line   int
	Reason string
	Err    error
}

// FeedBatch is the result of parsing one feed table.
type FeedBatch struct {
	// Events are in feed order (newest first) and inside the region of interest.
	Events []SeismicEvent
	// Skipped lists malformed lines.
	Skipped []SkippedLine
	// Filtered counts well-formed records outside the region of interest.
	Filtered int
	// ReachedBookmark is true when parsing stopped at a record older than the bookmark.
	ReachedBookmark bool
}

// Newest returns the date of the first emitted event, which is the newest
// date of the batch because the feed is reverse-chronological.
func (b FeedBatch) Newest() (time.Time, bool) {
	if len(b.Events) == 0 {
		return time.Time{}, false
	}
	d, err := time.ParseInLocation(DateLayout, b.Events[0].Date, Turkey)
	if err != nil {
		return time.Time{}, false
	}
	return d, true
}

// ParseFeed parses the observatory table. bookmark is the date of the newest
// event processed by a previous run; the zero time disables the early stop.
// Only a missing separator line is an error; malformed lines are reported
// in FeedBatch.Skipped.
func ParseFeed(table string, bookmark time.Time) (FeedBatch, error) {
	lines := strings.Split(strings.ReplaceAll(table, "\r\n", "\n"), "\n")

	start := -1
	for i, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), separator) {
			start = i + 1
			break
		}
	}
	if start < 0 {
		return FeedBatch{}, ErrFeedFormat
	}

	var batch FeedBatch
	for i := start; i < len(lines); i++ {
		line := lines[i]
		if strings.TrimSpace(line) == "" {
			break
		}
		lineNo := i + 1

		// A dated line older than the bookmark ends the scan even when the
		// rest of it is malformed.
		rec, err := parseRecord(line)
		if rec.dated && !bookmark.IsZero() && rec.day.Before(bookmark) {
			batch.ReachedBookmark = true
			break
		}
		if err != nil {
			batch.Skipped = append(batch.Skipped, SkippedLine{Line: lineNo, Reason: err.reason, Err: err})
			continue
		}

		if !inRegion(rec.lat, rec.lon) {
			batch.Filtered++
			continue
		}

		event, err := rec.event()
		if err != nil {
			batch.Skipped = append(batch.Skipped, SkippedLine{Line: lineNo, Reason: err.reason, Err: err})
			continue
		}
		batch.Events = append(batch.Events, event)
	}

	return batch, nil
}

// recordError is a per-line failure carrying its skip reason.
type recordError struct {
	reason string
	msg    string
}

func (e *recordError) Error() string { return fmt.Sprintf("%s: %s", e.reason, e.msg) }

func (e *recordError) Unwrap() error { return ErrMalformedRecord }

func malformed(reason, format string, args ...any) *recordError {
	return &recordError{reason: reason, msg: fmt.Sprintf(format, args...)}
}

// feedRecord holds the fields needed before the region filter; the rest of
// the line is parsed only for records that survive it.
type feedRecord struct {
	fields   []string
	day      time.Time
	dated    bool
	lat, lon float64
}

func parseRecord(line string) (feedRecord, *recordError) {
	fields := strings.Fields(line)
	if len(fields) < minFieldsLen {
		return feedRecord{}, malformed(SkipShortLine, "%d fields, want at least %d", len(fields), minFieldsLen)
	}

	day, err := time.ParseInLocation(DateLayout, fields[0], Turkey)
	if err != nil {
		return feedRecord{}, malformed(SkipBadDate, "date %q", fields[0])
	}

	rec := feedRecord{fields: fields, day: day, dated: true}

	lat, okLat := parseFinite(fields[2])
	lon, okLon := parseFinite(fields[3])
	if !okLat || !okLon || math.Abs(lat) > 90 || math.Abs(lon) > 180 {
		return rec, malformed(SkipBadCoordinate, "coordinates %q %q", fields[2], fields[3])
	}
	rec.lat, rec.lon = lat, lon
	return rec, nil
}

func (r feedRecord) event() (SeismicEvent, *recordError) {
	f := r.fields

	origin, err := time.ParseInLocation(DateLayout+" "+timeLayout, f[0]+" "+f[1], Turkey)
	if err != nil {
		return SeismicEvent{}, malformed(SkipBadTime, "time %q", f[1])
	}

	depth, ok := parseFinite(f[4])
	if !ok {
		return SeismicEvent{}, malformed(SkipBadDepth, "depth %q", f[4])
	}

	var mags [3]*float64
	for i, tok := range f[5:8] {
		v, ok := parseMagnitude(tok)
		if !ok {
			return SeismicEvent{}, malformed(SkipBadMagnitude, "magnitude %q", tok)
		}
		mags[i] = v
	}

	last := len(f) - 1
	return SeismicEvent{
		ID:       generateID(f[0], f[1], r.lat, r.lon, depth),
		Date:     f[0],
		Time:     f[1],
		Origin:   origin,
		Lat:      r.lat,
		Lon:      r.lon,
		DepthKm:  depth,
		MD:       mags[0],
		ML:       mags[1],
		Mw:       mags[2],
		Location: strings.Join(f[8:last], " "),
		Quality:  f[last],
	}, nil
}

// parseMagnitude returns nil for the "-.-" sentinel.
func parseMagnitude(tok string) (*float64, bool) {
	if tok == noValue {
		return nil, true
	}
	v, ok := parseFinite(tok)
	if !ok {
		return nil, false
	}
	return &v, true
}

// parseFinite rejects the Inf and NaN spellings strconv accepts.
func parseFinite(tok string) (float64, bool) {
	v, err := strconv.ParseFloat(tok, 64)
	if err != nil || math.IsInf(v, 0) || math.IsNaN(v) {
		return 0, false
	}
	return v, true
}

func inRegion(lat, lon float64) bool {
	return lon >= RegionMinLon && lon <= RegionMaxLon && lat >= RegionMinLat && lat <= RegionMaxLat
}

// generateID produces a deterministic ID from the record's identifying
// fields. Reprocessing the same feed line produces the same ID.
func generateID(date, hms string, lat, lon, depth float64) string {
	input := fmt.Sprintf("%s|%s|%.4f|%.4f|%g", date, hms, lat, lon, depth)
	hash := sha256.Sum256([]byte(input))
	return "eq-" + hex.EncodeToString(hash[:8])
}
