package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectHCPIDs_MergesAndDeduplicates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hcps.txt")
	require.NoError(t, os.WriteFile(path, []byte("hcp-002\n\n# comment\nhcp-001\n  hcp-003  \n"), 0o600))

	ids, err := collectHCPIDs("hcp-001, ,hcp-002", path)
	require.NoError(t, err)

	assert.Equal(t, []string{"hcp-001", "hcp-002", "hcp-003"}, ids)
}

func TestCollectHCPIDs_MissingFile(t *testing.T) {
	_, err := collectHCPIDs("", filepath.Join(t.TempDir(), "missing.txt"))
	assert.Error(t, err)
}

func TestCollectHCPIDs_Empty(t *testing.T) {
	ids, err := collectHCPIDs("", "")
	require.NoError(t, err)
	assert.Empty(t, ids)
}
