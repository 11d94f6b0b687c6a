package prompts

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMissingFileYieldsDefaults(t *testing.T) {
	s, err := NewStore(filepath.Join(t.TempDir(), "prompts.json"))
	require.NoError(t, err)

	assert.True(t, s.Has(Critique))
	assert.NotEqual(t, NotFoundTemplate, s.Get(Planner))
}

func TestUnknownNameReturnsErrorTemplate(t *testing.T) {
	s, err := NewStore(filepath.Join(t.TempDir(), "prompts.json"))
	require.NoError(t, err)

	assert.Equal(t, NotFoundTemplate, s.Get("no_such_template"))
	assert.False(t, s.Has("no_such_template"))
}

func TestUpdatePersistsAndReloads(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prompts.json")

	s, err := NewStore(path)
	require.NoError(t, err)
	require.NoError(t, s.Update(Critique, "refined critique %s %s"))

	reloaded, err := NewStore(path)
	require.NoError(t, err)
	assert.Equal(t, "refined critique %s %s", reloaded.Get(Critique))

	// Defaults still fill templates absent from the file.
	assert.NotEqual(t, NotFoundTemplate, reloaded.Get(Planner))
}

func TestSaveWritesValidJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prompts.json")

	s, err := NewStore(path)
	require.NoError(t, err)
	require.NoError(t, s.Update("custom", "hello"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var m map[string]string
	require.NoError(t, json.Unmarshal(data, &m))
	assert.Equal(t, "hello", m["custom"])
}

func TestCorruptFileIsAnError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prompts.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	_, err := NewStore(path)
	assert.Error(t, err)
}
