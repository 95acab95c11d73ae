package objectstore

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o600))
	return p
}

func TestStore_ReadAll_Local(t *testing.T) {
	p := writeFile(t, "coefficients.json", `{"c1": 6.75}`)
	s := New(time.Second)

	t.Run("bare path", func(t *testing.T) {
		data, err := s.ReadAll(context.Background(), p)
		require.NoError(t, err)
		assert.JSONEq(t, `{"c1": 6.75}`, string(data))
	})

	t.Run("file uri", func(t *testing.T) {
		data, err := s.ReadAll(context.Background(), "file://"+filepath.ToSlash(p))
		require.NoError(t, err)
		assert.JSONEq(t, `{"c1": 6.75}`, string(data))
	})

	t.Run("missing", func(t *testing.T) {
		_, err := s.ReadAll(context.Background(), filepath.Join(t.TempDir(), "nope.json"))
		require.Error(t, err)
	})
}

func TestStore_ReadAll_HTTP(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/land.geojson" {
			http.NotFound(w, r)
			return
		}
		_, _ = io.WriteString(w, `{"type":"FeatureCollection","features":[]}`)
	}))
	defer srv.Close()
	s := New(time.Second)

	data, err := s.ReadAll(context.Background(), srv.URL+"/land.geojson")
	require.NoError(t, err)
	assert.Contains(t, string(data), "FeatureCollection")

	_, err = s.ReadAll(context.Background(), srv.URL+"/missing.geojson")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
}

func TestStore_Open_Unsupported(t *testing.T) {
	s := New(time.Second)
	_, err := s.Open(context.Background(), "s3://bucket/key")
	require.Error(t, err)

	_, err = s.Open(context.Background(), "")
	require.Error(t, err)
}

func TestStore_LocalFile(t *testing.T) {
	s := New(time.Second)

	t.Run("local path is used as is", func(t *testing.T) {
		p := writeFile(t, "settlements.parquet", "PAR1")
		got, cleanup, err := s.LocalFile(context.Background(), p)
		require.NoError(t, err)
		defer cleanup()
		assert.Equal(t, p, got)
	})

	t.Run("remote object is downloaded", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = io.WriteString(w, "PAR1")
		}))
		defer srv.Close()

		got, cleanup, err := s.LocalFile(context.Background(), srv.URL+"/settlements.parquet")
		require.NoError(t, err)
		assert.Equal(t, ".parquet", filepath.Ext(got))
		data, err := os.ReadFile(got)
		require.NoError(t, err)
		assert.Equal(t, "PAR1", string(data))

		cleanup()
		_, err = os.Stat(got)
		assert.True(t, os.IsNotExist(err))
	})
}

func TestExt(t *testing.T) {
	assert.Equal(t, ".parquet", Ext("https://example.org/data/TR.PARQUET?sig=abc"))
	assert.Equal(t, ".tsv", Ext("/srv/geonames/TR.tsv"))
	assert.Equal(t, ".csv", Ext("file:///srv/settlements.csv"))
	assert.Equal(t, "", Ext("settlements"))
}
