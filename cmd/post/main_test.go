package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testConfig = `
index:
  key: TEST
  title: テスト指数
  hashtags: ["#a", "#b"]
  basket:
    - symbol: A
    - symbol: B
output:
  dir: out
logging:
  output: console
  level: error
`

func setup(t *testing.T, stats string) (base, configPath string) {
	t.Helper()
	base = t.TempDir()
	configPath = filepath.Join(base, "config.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte(testConfig), 0o644))
	if stats != "" {
		require.NoError(t, os.MkdirAll(filepath.Join(base, "out"), 0o755))
		require.NoError(t, os.WriteFile(filepath.Join(base, "out", "test_stats.json"), []byte(stats), 0o644))
	}
	return base, configPath
}

func TestRunWritesPost(t *testing.T) {
	base, configPath := setup(t, `{"key":"TEST","pct_intraday":1.23,"updated_at":"2025/03/14 15:30","unit":"pct","tickers":["A","B"]}`)

	var out bytes.Buffer
	require.NoError(t, run(context.Background(), []string{"-config", configPath, "-base", base}, &out))

	want := "【TEST | テスト指数】\n本日：+1.23%\n構成：A,B\n#a #b\n"
	assert.Equal(t, want, out.String())

	written, err := os.ReadFile(filepath.Join(base, "out", "test_post_intraday.txt"))
	require.NoError(t, err)
	assert.Equal(t, want, string(written))
}

func TestRunNegativeQuiet(t *testing.T) {
	base, configPath := setup(t, `{"key":"TEST","pct_intraday":-0.5,"updated_at":"2025/03/14 15:30","unit":"pct","tickers":["A"]}`)

	var out bytes.Buffer
	require.NoError(t, run(context.Background(), []string{"-config", configPath, "-base", base, "-quiet"}, &out))
	assert.Empty(t, out.String())

	written, err := os.ReadFile(filepath.Join(base, "out", "test_post_intraday.txt"))
	require.NoError(t, err)
	assert.Contains(t, string(written), "本日：-0.50%")
}

func TestRunMissingSnapshot(t *testing.T) {
	base, configPath := setup(t, "")

	err := run(context.Background(), []string{"-config", configPath, "-base", base}, &bytes.Buffer{})
	assert.Error(t, err)
	assert.NoFileExists(t, filepath.Join(base, "out", "test_post_intraday.txt"))
}
