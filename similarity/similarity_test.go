package similarity

import (
	"context"
	"math"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aluiziolira/go-scrape-perpus/models"
	"github.com/aluiziolira/go-scrape-perpus/pipeline"
	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPreprocess(t *testing.T) {
	stop := map[string]struct{}{"pada": {}, "dengan": {}}
	got := Preprocess("Sistem Pakar, Diagnosa-Penyakit pada Anjing dengan Metode!", stop)
	assert.Equal(t, []string{"sistem", "pakar", "diagnosa", "penyakit", "anjing", "metode"}, got)
	assert.Empty(t, Preprocess("  ...  ", nil))
}

func TestTFAndIDF(t *testing.T) {
	tf := TF([]string{"a", "b", "a", "c"})
	assert.InDelta(t, 0.5, tf["a"], 1e-9)
	assert.InDelta(t, 0.25, tf["c"], 1e-9)
	assert.Empty(t, TF(nil))

	idf := IDF([][]string{{"a", "b", "b"}, {"a"}})
	assert.InDelta(t, 0, idf["a"], 1e-9)
	assert.InDelta(t, math.Log(2), idf["b"], 1e-9)
}

func TestCosine(t *testing.T) {
	v := map[string]float64{"x": 1, "y": 2}
	assert.InDelta(t, 1, Cosine(v, v), 1e-9)
	assert.InDelta(t, 0, Cosine(v, map[string]float64{"z": 3}), 1e-9)
	assert.Equal(t, 0.0, Cosine(v, map[string]float64{}))
	assert.Equal(t, 0.0, Cosine(map[string]float64{"x": 0}, v))
}

func TestMatchingWords(t *testing.T) {
	got := MatchingWords([]string{"sistem", "pakar", "sistem", "web"}, []string{"web", "sistem"})
	assert.Equal(t, []string{"sistem", "web"}, got)
	assert.Empty(t, MatchingWords([]string{"a"}, []string{"b"}))
}

func TestBandOf(t *testing.T) {
	assert.Equal(t, BandHigh, BandOf(70))
	assert.Equal(t, BandMedium, BandOf(69.9))
	assert.Equal(t, BandMedium, BandOf(40))
	assert.Equal(t, BandLow, BandOf(39.99))
}

func corpus() []*models.Record {
	return []*models.Record{
		{Title: "Aplikasi Kasir Berbasis Web", DetailURL: "u1"},
		{Title: "Sistem Informasi Perpustakaan", DetailURL: "u2"},
		{Title: "", DetailURL: "u-empty"},
		{Title: "Sistem Pakar Diagnosa Penyakit Anjing", DetailURL: "u3"},
	}
}

func TestRank(t *testing.T) {
	matches := Rank("Sistem Pakar Diagnosa Penyakit Anjing", corpus(), nil, 0)
	require.Len(t, matches, 3, "untitled rows are skipped")

	assert.Equal(t, "u3", matches[0].Record.DetailURL)
	assert.InDelta(t, 100, matches[0].Score, 1e-6)
	assert.Equal(t, BandHigh, matches[0].Band)
	assert.Equal(t, []string{"sistem", "pakar", "diagnosa", "penyakit", "anjing"}, matches[0].Matching)

	assert.Equal(t, "u2", matches[1].Record.DetailURL)
	assert.Greater(t, matches[1].Score, 0.0)
	assert.Equal(t, BandLow, matches[1].Band)
	assert.Equal(t, []string{"sistem"}, matches[1].Matching)

	assert.Equal(t, "u1", matches[2].Record.DetailURL)
	assert.Equal(t, 0.0, matches[2].Score)
}

func TestRankTopN(t *testing.T) {
	matches := Rank("sistem", corpus(), nil, 1)
	require.Len(t, matches, 1)
}

func TestPreviewURL(t *testing.T) {
	assert.Equal(t, "https://drive.google.com/file/d/abc123/preview",
		PreviewURL("https://drive.google.com/file/d/abc123/view?usp=sharing"))
	assert.Equal(t, "https://example.test/x.pdf", PreviewURL("https://example.test/x.pdf"))
}

func TestLoaderLocalDataset(t *testing.T) {
	path := filepath.Join(t.TempDir(), "skripsi.xlsx")
	w, err := pipeline.NewXLSXWriter(path)
	require.NoError(t, err)
	require.NoError(t, w.Write([]*models.Record{
		{Title: "Sistem Pakar", Identifier: "C1", DetailURL: "https://drive.example/d/1/view"},
	}))
	require.NoError(t, w.Close())

	records, err := NewLoader(time.Second, "test").Dataset(context.Background(), path)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "C1", records[0].Identifier)
}

func TestLoaderRemoteDataset(t *testing.T) {
	const sheet = "https://sheets.example.test/pub?output=csv"
	transport := httpmock.NewMockTransport()
	transport.RegisterResponder(http.MethodGet, sheet, httpmock.NewStringResponder(200,
		"Judul,NIM,Tahun,Penulis,File\n"+
			"Sistem Pakar,C1,2020,Dewi,https://drive.example/d/1/view\n"+
			",C2,2021,Agus,https://drive.example/d/2/view\n"))
	transport.RegisterResponder(http.MethodGet, "https://sheets.example.test/missing", httpmock.NewStringResponder(500, ""))

	loader := NewLoader(time.Second, "test")
	loader.client.SetTransport(transport)

	records, err := loader.Dataset(context.Background(), sheet)
	require.NoError(t, err)
	require.Len(t, records, 1, "rows without a title are dropped")
	assert.Equal(t, []string{"Dewi"}, records[0].Authors)

	_, err = loader.Dataset(context.Background(), "https://sheets.example.test/missing")
	require.Error(t, err)
}

func TestLoaderStopwords(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stopwords.txt")
	require.NoError(t, os.WriteFile(path, []byte("Yang\n\n\"dan\"\npada \n"), 0o644))

	loader := NewLoader(time.Second, "test")
	words, err := loader.Stopwords(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, map[string]struct{}{"yang": {}, "dan": {}, "pada": {}}, words)

	empty, err := loader.Stopwords(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, empty)
}
