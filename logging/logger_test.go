package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	log, err := New("ingest", Config{Level: "debug"})
	require.NoError(t, err)
	assert.NotNil(t, log)

	log, err = New("clean", Config{JSON: true})
	require.NoError(t, err)
	assert.NotNil(t, log)
}

func TestNew_InvalidLevel(t *testing.T) {
	_, err := New("ingest", Config{Level: "loud"})
	assert.Error(t, err)
}

func TestNop(t *testing.T) {
	assert.NotPanics(t, func() { Nop().Infow("ignored", "k", "v") })
}

func TestNew_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dashboard.log")
	log, err := New("dashboard", Config{File: path})
	require.NoError(t, err)

	log.Infow("refreshed", "files", 2)
	require.NoError(t, log.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "refreshed")
	assert.Contains(t, string(data), "dashboard")
}
