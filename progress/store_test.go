package progress_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/aluiziolira/go-scrape-perpus/models"
	"github.com/aluiziolira/go-scrape-perpus/progress"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore(t *testing.T) {
	t.Parallel()

	t.Run("load returns nil when no checkpoint exists", func(t *testing.T) {
		t.Parallel()

		s := progress.NewStore(filepath.Join(t.TempDir(), "progress.json"))
		assert.Nil(t, s.Load())
	})

	t.Run("save then load round trips the checkpoint", func(t *testing.T) {
		t.Parallel()

		s := progress.NewStore(filepath.Join(t.TempDir(), "state", "progress.json"))
		want := models.Progress{
			PageCount:  3,
			NextURL:    "https://perpus.example.test/perpus/main/index?offset=36&max=12",
			TotalData:  17,
			OutputFile: "data_ta_ti.csv",
		}

		require.NoError(t, s.Save(want))
		got := s.Load()
		require.NotNil(t, got)
		assert.Equal(t, want, *got)
	})

	t.Run("save overwrites the previous checkpoint", func(t *testing.T) {
		t.Parallel()

		s := progress.NewStore(filepath.Join(t.TempDir(), "progress.json"))
		require.NoError(t, s.Save(models.Progress{PageCount: 1, NextURL: "a"}))
		require.NoError(t, s.Save(models.Progress{PageCount: 2, NextURL: "b"}))

		got := s.Load()
		require.NotNil(t, got)
		assert.Equal(t, 2, got.PageCount)
		assert.Equal(t, "b", got.NextURL)
	})

	t.Run("writes the documented json keys", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "progress.json")
		s := progress.NewStore(path)
		require.NoError(t, s.Save(models.Progress{PageCount: 4, NextURL: "n", TotalData: 9, OutputFile: "out.csv"}))

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		for _, key := range []string{`"page_count"`, `"next_url"`, `"total_data"`, `"csv_filename"`} {
			assert.Contains(t, string(data), key)
		}
	})

	t.Run("malformed checkpoint is treated as absent", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "progress.json")
		require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

		assert.Nil(t, progress.NewStore(path).Load())
	})

	t.Run("clear removes the checkpoint and tolerates a missing file", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "progress.json")
		s := progress.NewStore(path)
		require.NoError(t, s.Save(models.Progress{PageCount: 1}))

		require.NoError(t, s.Clear())
		_, err := os.Stat(path)
		assert.True(t, os.IsNotExist(err))
		require.NoError(t, s.Clear())
	})
}
