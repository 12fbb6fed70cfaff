package core

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

// truncateFile cuts path down to n bytes, for exercising a decoder's
// behavior against a partially-written record.
func truncateFile(t *testing.T, path string, n int64) {
	t.Helper()
	require.NoError(t, os.Truncate(path, n))
}
