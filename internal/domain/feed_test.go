package domain

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const feedHeader = `
                    BOGAZICI UNIVERSITESI
      KANDILLI RASATHANESI VE DEPREM ARASTIRMA ENSTITUSU
           BOLGESEL DEPREM-TSUNAMI IZLEME VE DEGERLENDIRME MERKEZI

Tarih      Saat      Enlem(N)  Boylam(E) Derinlik(km)  MD   ML   Mw    Yer                                             Cozum Niteligi
---------- --------  --------  -------   ----------    ------------    --------------                                  --------------
`

func feedTable(lines ...string) string {
	return feedHeader + strings.Join(lines, "\n") + "\n\n"
}

func TestParseFeed(t *testing.T) {
	table := feedTable(
		"2025.08.03 13:43:07  40.3658   28.9940        8.1      -.-  2.8  -.-   MARMARA DENIZI                                    İlksel",
		"2025.08.03 13:41:58  36.2197   36.2042        8.5      -.-  2.2  6.2   ANTAKYA (HATAY)                                   İlksel",
		"2025.08.03 13:30:00  44.0000   10.0000        5.0      -.-  4.0  -.-   ITALY                                             İlksel",
	)

	batch, err := ParseFeed(table, time.Time{})
	require.NoError(t, err)
	require.Len(t, batch.Events, 2)
	assert.Equal(t, 1, batch.Filtered)
	assert.Empty(t, batch.Skipped)
	assert.False(t, batch.ReachedBookmark)

	first := batch.Events[0]
	assert.Equal(t, "2025.08.03", first.Date)
	assert.Equal(t, "13:43:07", first.Time)
	assert.Equal(t, 40.3658, first.Lat)
	assert.Equal(t, 28.9940, first.Lon)
	assert.Equal(t, 8.1, first.DepthKm)
	assert.Nil(t, first.MD)
	require.NotNil(t, first.ML)
	assert.Equal(t, 2.8, *first.ML)
	assert.Nil(t, first.Mw)
	assert.Equal(t, "MARMARA DENIZI", first.Location)
	assert.Equal(t, "İlksel", first.Quality)
	assert.True(t, strings.HasPrefix(first.ID, "eq-"))

	second := batch.Events[1]
	assert.Equal(t, "ANTAKYA (HATAY)", second.Location)
	require.NotNil(t, second.Mw)
	assert.Equal(t, 6.2, *second.Mw)
	assert.Equal(t, time.Date(2025, 8, 3, 10, 41, 58, 0, time.UTC), second.Origin.UTC())

	newest, ok := batch.Newest()
	require.True(t, ok)
	assert.Equal(t, "2025.08.03", newest.Format(DateLayout))
}

func TestParseFeed_MissingSeparator(t *testing.T) {
	table := "Tarih Saat Enlem Boylam\n2025.08.03 13:43:07  40.3658   28.9940  8.1  -.-  2.8  -.-  MARMARA İlksel\n"

	_, err := ParseFeed(table, time.Time{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrFeedFormat))
}

func TestParseFeed_StopsAtBookmark(t *testing.T) {
	table := feedTable(
		"2025.08.04 01:00:00  39.0000   30.0000        7.0      -.-  3.1  -.-   KUTAHYA                                           İlksel",
		"2025.08.03 23:59:00  39.1000   30.1000        7.0      -.-  2.9  -.-   KUTAHYA                                           İlksel",
		"2025.08.02 12:00:00  39.2000   30.2000        7.0      -.-  3.3  -.-   KUTAHYA                                           İlksel",
		"2025.08.01 12:00:00  39.3000   30.3000        7.0      -.-  3.5  -.-   KUTAHYA                                           İlksel",
	)
	bookmark := time.Date(2025, 8, 3, 0, 0, 0, 0, Turkey)

	batch, err := ParseFeed(table, bookmark)
	require.NoError(t, err)
	require.Len(t, batch.Events, 2, "records on the bookmark date are re-read, older ones are not")
	assert.True(t, batch.ReachedBookmark)
	assert.Equal(t, "2025.08.03", batch.Events[1].Date)
}

func TestParseFeed_SkipsMalformedLines(t *testing.T) {
	table := feedTable(
		"2025.08.03 13:43:07  40.3658   28.9940",
		"2025.08.03 13:43:07  abc       28.9940        8.1      -.-  2.8  -.-   MARMARA DENIZI   İlksel",
		"2025/08/03 13:43:07  40.3658   28.9940        8.1      -.-  2.8  -.-   MARMARA DENIZI   İlksel",
		"2025.08.03 13:43:07  40.3658   28.9940        x.y      -.-  2.8  -.-   MARMARA DENIZI   İlksel",
		"2025.08.03 25:61:00  40.3658   28.9940        8.1      -.-  2.8  -.-   MARMARA DENIZI   İlksel",
		"2025.08.03 13:43:07  40.3658   28.9940        8.1      -.-  big  -.-   MARMARA DENIZI   İlksel",
		"2025.08.03 13:40:00  40.1000   29.0000        6.0      -.-  2.1  -.-   BURSA            İlksel",
	)

	batch, err := ParseFeed(table, time.Time{})
	require.NoError(t, err)
	require.Len(t, batch.Events, 1)
	assert.Equal(t, "BURSA", batch.Events[0].Location)

	reasons := make([]string, 0, len(batch.Skipped))
	for _, s := range batch.Skipped {
		reasons = append(reasons, s.Reason)
		assert.True(t, errors.Is(s.Err, ErrMalformedRecord))
	}
	assert.Equal(t, []string{
		SkipShortLine, SkipBadCoordinate, SkipBadDate, SkipBadDepth, SkipBadTime, SkipBadMagnitude,
	}, reasons)
}

func TestParseFeed_RejectsNonFiniteValues(t *testing.T) {
	tests := []struct {
		name   string
		line   string
		reason string
	}{
		{"inf depth", "2025.08.03 13:43:07  40.3658   28.9940        Inf      -.-  2.8  -.-   MARMARA DENIZI   İlksel", SkipBadDepth},
		{"nan depth", "2025.08.03 13:43:07  40.3658   28.9940        NaN      -.-  2.8  -.-   MARMARA DENIZI   İlksel", SkipBadDepth},
		{"inf magnitude", "2025.08.03 13:43:07  40.3658   28.9940        8.1      -.-  +Inf -.-   MARMARA DENIZI   İlksel", SkipBadMagnitude},
		{"nan mw", "2025.08.03 13:43:07  40.3658   28.9940        8.1      -.-  2.8  nan   MARMARA DENIZI   İlksel", SkipBadMagnitude},
		{"infinity latitude", "2025.08.03 13:43:07  infinity  28.9940        8.1      -.-  2.8  -.-   MARMARA DENIZI   İlksel", SkipBadCoordinate},
		{"nan longitude", "2025.08.03 13:43:07  40.3658   NaN            8.1      -.-  2.8  -.-   MARMARA DENIZI   İlksel", SkipBadCoordinate},
		{"latitude out of range", "2025.08.03 13:43:07  140.3658  28.9940        8.1      -.-  2.8  -.-   MARMARA DENIZI   İlksel", SkipBadCoordinate},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			batch, err := ParseFeed(feedTable(
				tt.line,
				"2025.08.03 13:40:00  40.1000   29.0000        6.0      -.-  2.1  -.-   BURSA            İlksel",
			), time.Time{})
			require.NoError(t, err)
			require.Len(t, batch.Skipped, 1)
			assert.Equal(t, tt.reason, batch.Skipped[0].Reason)
			require.Len(t, batch.Events, 1)
			assert.Equal(t, "BURSA", batch.Events[0].Location)
		})
	}
}

func TestParseFeed_BookmarkStopsBeforeCoordinateCheck(t *testing.T) {
	table := feedTable(
		"2025.08.03 13:40:00  40.1000   29.0000        6.0      -.-  2.1  -.-   BURSA            İlksel",
		"2025.08.01 12:00:00  abc       30.3000        7.0      -.-  3.5  -.-   KUTAHYA          İlksel",
		"2025.08.01 11:00:00  39.3000   30.3000        7.0      -.-  3.5  -.-   KUTAHYA          İlksel",
	)

	batch, err := ParseFeed(table, time.Date(2025, 8, 3, 0, 0, 0, 0, Turkey))
	require.NoError(t, err)
	assert.True(t, batch.ReachedBookmark)
	assert.Empty(t, batch.Skipped)
	assert.Len(t, batch.Events, 1)
}

func TestParseFeed_StopsAtBlankLine(t *testing.T) {
	table := feedHeader +
		"2025.08.03 13:40:00  40.1000   29.0000        6.0      -.-  2.1  -.-   BURSA   İlksel\n" +
		"\n" +
		"2025.08.03 13:30:00  40.2000   29.1000        6.0      -.-  2.1  -.-   BURSA   İlksel\n"

	batch, err := ParseFeed(table, time.Time{})
	require.NoError(t, err)
	assert.Len(t, batch.Events, 1)
}

func TestParseFeed_NineFieldsHasNoLocation(t *testing.T) {
	table := feedTable("2025.08.03 13:40:00  40.1000   29.0000  6.0  -.-  2.1  -.-  İlksel")

	batch, err := ParseFeed(table, time.Time{})
	require.NoError(t, err)
	require.Len(t, batch.Events, 1)
	assert.Empty(t, batch.Events[0].Location)
	assert.Equal(t, "İlksel", batch.Events[0].Quality)
}

func TestParseFeed_RegionBoundsAreInclusive(t *testing.T) {
	tests := []struct {
		name   string
		lat    string
		lon    string
		inside bool
	}{
		{"west edge", "38.0", "24.58", true},
		{"east edge", "38.0", "45.0", true},
		{"south edge", "36.0", "30.0", true},
		{"north edge", "42.0", "30.0", true},
		{"west of Crete", "38.0", "24.57", false},
		{"Italy", "38.0", "10.0", false},
		{"Black Sea north", "42.5", "35.0", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			line := "2025.08.03 13:40:00  " + tt.lat + "  " + tt.lon + "  6.0  -.-  2.1  -.-  SOMEWHERE  İlksel"
			batch, err := ParseFeed(feedTable(line), time.Time{})
			require.NoError(t, err)
			if tt.inside {
				assert.Len(t, batch.Events, 1)
				assert.Zero(t, batch.Filtered)
			} else {
				assert.Empty(t, batch.Events)
				assert.Equal(t, 1, batch.Filtered)
			}
		})
	}
}

func TestFeedBatch_NewestEmpty(t *testing.T) {
	_, ok := FeedBatch{}.Newest()
	assert.False(t, ok)
}

func TestGenerateID(t *testing.T) {
	t.Run("deterministic", func(t *testing.T) {
		id1 := generateID("2025.08.03", "13:41:58", 36.2197, 36.2042, 8.5)
		id2 := generateID("2025.08.03", "13:41:58", 36.2197, 36.2042, 8.5)
		assert.Equal(t, id1, id2)
	})

	t.Run("different inputs produce different IDs", func(t *testing.T) {
		id1 := generateID("2025.08.03", "13:41:58", 36.2197, 36.2042, 8.5)
		id2 := generateID("2025.08.03", "13:41:59", 36.2197, 36.2042, 8.5)
		assert.NotEqual(t, id1, id2)
	})

	t.Run("prefix", func(t *testing.T) {
		id := generateID("2025.08.03", "13:41:58", 36.2197, 36.2042, 8.5)
		assert.True(t, strings.HasPrefix(id, "eq-"))
		assert.Len(t, id, len("eq-")+16)
	})
}
