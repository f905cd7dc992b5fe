package storage

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestParseSections(t *testing.T) {
	tests := []struct {
		names []string
		want  Section
	}{
		{[]string{"all"}, SectionAll},
		{[]string{"none"}, SectionNone},
		{nil, SectionNone},
		{[]string{"hits", " Clusters "}, SectionHits | SectionClusters},
		{[]string{"tracks", "eventinfo"}, SectionTracks | SectionEventInfo},
	}
	for _, tt := range tests {
		got, err := ParseSections(tt.names)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "%v", tt.names)
	}

	_, err := ParseSections([]string{"hits", "waveforms"})
	assert.ErrorIs(t, err, ErrConfiguration)
}

func TestSectionString(t *testing.T) {
	assert.Equal(t, "none", SectionNone.String())
	assert.Equal(t, "hits|clusters|tracks|eventinfo", SectionAll.String())
	assert.Equal(t, "clusters|eventinfo", (SectionClusters | SectionEventInfo).String())
	assert.True(t, SectionAll.Has(SectionTracks))
	assert.False(t, SectionHits.Has(SectionHits|SectionTracks))
}

func TestSectionJSON(t *testing.T) {
	data, err := json.Marshal(SectionHits | SectionTracks)
	require.NoError(t, err)
	assert.JSONEq(t, `["hits", "tracks"]`, string(data))

	var s Section
	require.NoError(t, json.Unmarshal(data, &s))
	assert.Equal(t, SectionHits|SectionTracks, s)
	assert.Error(t, json.Unmarshal([]byte(`["bogus"]`), &s))
}

func TestSectionYAML(t *testing.T) {
	var cfg struct {
		Sections Section  `yaml:"sections"`
		Mode     MaskMode `yaml:"mode"`
	}
	require.NoError(t, yaml.Unmarshal([]byte("sections: [hits, eventinfo]\nmode: remove\n"), &cfg))
	assert.Equal(t, SectionHits|SectionEventInfo, cfg.Sections)
	assert.Equal(t, Remove, cfg.Mode)
}

func TestMaskMode(t *testing.T) {
	m, err := ParseMaskMode("REMOVE")
	require.NoError(t, err)
	assert.Equal(t, Remove, m)
	assert.Equal(t, "passive", Passive.String())
	assert.Equal(t, "UNKNOWN", MaskMode(7).String())
	_, err = ParseMaskMode("drop")
	assert.ErrorIs(t, err, ErrConfiguration)

	data, err := json.Marshal(Remove)
	require.NoError(t, err)
	assert.Equal(t, `"remove"`, string(data))
	var back MaskMode
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, Remove, back)
}
