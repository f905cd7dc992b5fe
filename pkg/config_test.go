package storage

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, name string, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadConfigurationDefaults(t *testing.T) {
	config, err := LoadConfiguration("")
	require.NoError(t, err)
	assert.Equal(t, DefaultConfiguration(), config)
	assert.NoError(t, config.Validate())
}

func TestLoadConfigurationJSONWithComments(t *testing.T) {
	path := writeConfig(t, "config.json", `{
		// input produced by the generator
		"file_in": "run42.h5",
		"sections": ["hits", "clusters"],
		"masked_planes": [1, 3],
		"mask_mode": "remove",
		"disabled_fields": {"hits": ["hitTiming"]},
		"max_events": 10,
		"pass": "secret", // trailing comma below
	}`)
	config, err := LoadConfiguration(path)
	require.NoError(t, err)

	assert.Equal(t, "run42.h5", config.FileIn)
	assert.Equal(t, SectionHits|SectionClusters, config.Sections)
	assert.Equal(t, []int{1, 3}, config.MaskedPlanes)
	assert.Equal(t, Remove, config.MaskMode)
	assert.Equal(t, map[string][]string{"hits": {"hitTiming"}}, config.DisabledFields)
	assert.Equal(t, 10, config.MaxEvents)
	assert.Equal(t, "secret", config.Passwd)
	// untouched values keep their defaults
	assert.Equal(t, 6, config.NumPlanes)
	assert.Equal(t, "TELESCOPE", config.DBName)
}

func TestLoadConfigurationYAML(t *testing.T) {
	path := writeConfig(t, "config.yml", `
file_out: out.db
num_planes: 4
sections: [all]
num_workers: 3
seed: 7
no_db: false
run_number: 1234
`)
	config, err := LoadConfiguration(path)
	require.NoError(t, err)
	assert.Equal(t, "out.db", config.FileOut)
	assert.Equal(t, 4, config.NumPlanes)
	assert.Equal(t, SectionAll, config.Sections)
	assert.Equal(t, 3, config.NumWorkers)
	assert.Equal(t, int64(7), config.Seed)
	assert.False(t, config.NoDB)
	assert.Equal(t, 1234, config.RunNumber)
}

func TestLoadConfigurationErrors(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
	}{
		{"negative planes", "c.json", `{"num_planes": -1}`},
		{"no workers", "c.json", `{"num_workers": 0}`},
		{"negative skip", "c.yaml", "skip: -2\n"},
		{"unknown section", "c.json", `{"sections": ["waveforms"]}`},
		{"unknown disabled section", "c.json", `{"disabled_fields": {"pmts": ["x"]}}`},
		{"bad mask mode", "c.yaml", "mask_mode: drop\n"},
		{"broken json", "c.json", `{"skip": `},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfiguration(writeConfig(t, tt.file, tt.content))
			assert.Error(t, err)
		})
	}

	_, err := LoadConfiguration(filepath.Join(t.TempDir(), "missing.json"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestConfigurationPlaneMask(t *testing.T) {
	assert.Nil(t, Configuration{}.PlaneMask())
	assert.Equal(t, []bool{false, true, false, true}, Configuration{MaskedPlanes: []int{3, 1}}.PlaneMask())
}

func TestConfigurationApply(t *testing.T) {
	path := memPath(t)
	writeEvents(t, path, 2, 1)

	config := DefaultConfiguration()
	config.MaskMode = Remove
	config.DisabledFields = map[string][]string{
		"eventinfo": {"timeStamp"},
		"hits":      {"hitTiming", "hitValue"},
	}
	s, err := OpenForRead(path, SectionAll, nil)
	require.NoError(t, err)
	defer s.Close()
	require.NoError(t, config.Apply(s))
	assert.Equal(t, Remove, s.MaskMode())

	ev, err := s.ReadEvent(0)
	require.NoError(t, err)
	assert.Zero(t, ev.TimeStamp)
	for _, h := range ev.Hits() {
		assert.Zero(t, h.Timing)
		assert.Zero(t, h.Value)
	}

	config.DisabledFields = map[string][]string{"hits": {"noSuchField"}}
	s2, err := OpenForRead(path, SectionAll, nil)
	require.NoError(t, err)
	defer s2.Close()
	assert.ErrorIs(t, config.Apply(s2), ErrConfiguration)
}
