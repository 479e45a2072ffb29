package nuke

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/safetyops/scnuke/internal/resource"
)

func TestProcessedLogRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "processed.jsonl")

	log, err := OpenProcessedLog(path)
	require.NoError(t, err)
	log.Record(resource.Issues, "i-1")
	log.Record(resource.Sites, "f-9")
	require.NoError(t, log.Close())

	done, err := LoadProcessed(path)
	require.NoError(t, err)
	assert.True(t, done(resource.Issues, "i-1"))
	assert.True(t, done(resource.Sites, "f-9"))
	assert.False(t, done(resource.Issues, "i-2"))
	assert.False(t, done(resource.Actions, "i-1"), "ids are scoped per kind")
}

func TestProcessedLogAppendsAcrossRuns(t *testing.T) {
	path := filepath.Join(t.TempDir(), "processed.jsonl")

	first, err := OpenProcessedLog(path)
	require.NoError(t, err)
	first.Record(resource.Actions, "a-1")
	require.NoError(t, first.Close())

	second, err := OpenProcessedLog(path)
	require.NoError(t, err)
	second.Record(resource.Actions, "a-2")
	require.NoError(t, second.Close())

	done, err := LoadProcessed(path)
	require.NoError(t, err)
	assert.True(t, done(resource.Actions, "a-1"))
	assert.True(t, done(resource.Actions, "a-2"))
}

func TestLoadProcessedSkipsTornLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "processed.jsonl")
	content := `{"kind":"issues","id":"i-1"}
{"kind":"iss`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	done, err := LoadProcessed(path)
	require.NoError(t, err)
	assert.True(t, done(resource.Issues, "i-1"))
	assert.False(t, done(resource.Issues, "iss"))
}

func TestLoadProcessedMissingFile(t *testing.T) {
	_, err := LoadProcessed(filepath.Join(t.TempDir(), "absent.jsonl"))
	assert.Error(t, err)
}
