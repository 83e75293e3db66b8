package cmd

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestReadSKUs(t *testing.T) {
	t.Run("from args", func(t *testing.T) {
		skus, err := readSKUs([]string{"A", "B"}, "", nil)
		require.NoError(t, err)
		require.Equal(t, []string{"A", "B"}, skus)
	})

	t.Run("from file with comments and blanks", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "skus.txt")
		require.NoError(t, os.WriteFile(path, []byte("# lote agosto\nMPM1\n\n  MPM2  \n#skip\n"), 0o600))

		skus, err := readSKUs(nil, path, nil)
		require.NoError(t, err)
		require.Equal(t, []string{"MPM1", "MPM2"}, skus)
	})

	t.Run("from stdin", func(t *testing.T) {
		skus, err := readSKUs(nil, "", strings.NewReader("MPM1\nMPM2\n"))
		require.NoError(t, err)
		require.Equal(t, []string{"MPM1", "MPM2"}, skus)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := readSKUs(nil, "/does/not/exist", nil)
		require.Error(t, err)
	})
}
