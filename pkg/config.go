package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/tailscale/hujson"
	"gopkg.in/yaml.v3"
)

type Configuration struct {
	Verbosity      int                 `json:"verbosity" yaml:"verbosity"`
	FileIn         string              `json:"file_in" yaml:"file_in"`
	FileOut        string              `json:"file_out" yaml:"file_out"`
	Backend        string              `json:"backend" yaml:"backend"`
	Sections       Section             `json:"sections" yaml:"sections"`
	NumPlanes      int                 `json:"num_planes" yaml:"num_planes"`
	MaskedPlanes   []int               `json:"masked_planes" yaml:"masked_planes"`
	MaskMode       MaskMode            `json:"mask_mode" yaml:"mask_mode"`
	NoiseMaskFile  string              `json:"noise_mask_file" yaml:"noise_mask_file"`
	DisabledFields map[string][]string `json:"disabled_fields" yaml:"disabled_fields"`
	Skip           int                 `json:"skip" yaml:"skip"`
	MaxEvents      int                 `json:"max_events" yaml:"max_events"`
	NumWorkers     int                 `json:"num_workers" yaml:"num_workers"`
	Seed           int64               `json:"seed" yaml:"seed"`
	HitsPerPlane   int                 `json:"hits_per_plane" yaml:"hits_per_plane"`
	ClusterSize    int                 `json:"cluster_size" yaml:"cluster_size"`
	TracksPerEvent int                 `json:"tracks_per_event" yaml:"tracks_per_event"`
	NoDB           bool                `json:"no_db" yaml:"no_db"`
	RunNumber      int                 `json:"run_number" yaml:"run_number"`
	Host           string              `json:"host" yaml:"host"`
	User           string              `json:"user" yaml:"user"`
	Passwd         string              `json:"pass" yaml:"pass"`
	DBName         string              `json:"dbname" yaml:"dbname"`
	Metrics        bool                `json:"metrics" yaml:"metrics"`
}

var configuration = DefaultConfiguration()

func GetConfiguration() Configuration {
	return configuration
}

func SetConfiguration(config Configuration) {
	configuration = config
}

func DefaultConfiguration() Configuration {
	var config Configuration
	config.Verbosity = 0
	config.Sections = SectionAll
	config.NumPlanes = 6
	config.MaskMode = Passive
	config.Skip = 0
	config.MaxEvents = 1000000000
	config.NumWorkers = 1
	config.Seed = 1
	config.HitsPerPlane = 20
	config.ClusterSize = 2
	config.TracksPerEvent = 2
	config.NoDB = true
	config.Host = "localhost"
	config.User = "reader"
	config.Passwd = "readonly"
	config.DBName = "TELESCOPE"
	return config
}

// LoadConfiguration overlays the file on the default values. JSON files may
// carry comments and trailing commas; .yaml and .yml files are YAML.
// An empty filename gives the defaults.
func LoadConfiguration(filename string) (Configuration, error) {
	config := DefaultConfiguration()
	if filename == "" {
		return config, nil
	}

	data, err := os.ReadFile(filename)
	if err != nil {
		return config, err
	}
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &config)
	default:
		data, err = hujson.Standardize(data)
		if err != nil {
			return config, fmt.Errorf("error parsing %s: %w", filename, err)
		}
		err = json.Unmarshal(data, &config)
	}
	if err != nil {
		return config, err
	}
	return config, config.Validate()
}

func (c Configuration) Validate() error {
	if c.NumPlanes < 0 {
		return fmt.Errorf("%w: num_planes must not be negative", ErrConfiguration)
	}
	if c.NumWorkers < 1 {
		return fmt.Errorf("%w: num_workers must be at least 1", ErrConfiguration)
	}
	if c.Skip < 0 || c.MaxEvents < 0 {
		return fmt.Errorf("%w: skip and max_events must not be negative", ErrConfiguration)
	}
	for name := range c.DisabledFields {
		if _, err := ParseSections([]string{name}); err != nil {
			return err
		}
	}
	return nil
}

// PlaneMask turns MaskedPlanes into the per-plane mask taken by
// OpenForRead.
func (c Configuration) PlaneMask() []bool {
	if len(c.MaskedPlanes) == 0 {
		return nil
	}
	size := 0
	for _, p := range c.MaskedPlanes {
		if p+1 > size {
			size = p + 1
		}
	}
	mask := make([]bool, size)
	for _, p := range c.MaskedPlanes {
		if p >= 0 {
			mask[p] = true
		}
	}
	return mask
}

// Apply sets the mask mode and disables the configured fields on a freshly
// opened session.
func (c Configuration) Apply(s *Session) error {
	if err := s.SetMaskMode(c.MaskMode); err != nil {
		return err
	}

	names := make([]string, 0, len(c.DisabledFields))
	for name := range c.DisabledFields {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		section, err := ParseSections([]string{name})
		if err != nil {
			return err
		}
		for _, field := range c.DisabledFields[name] {
			if err := s.DisableField(section, field); err != nil {
				return err
			}
		}
	}
	return nil
}

func PrintConfiguration(config Configuration, logger Logger) {
	logger.Info(fmt.Sprintf("File in: %s", config.FileIn), "config")
	logger.Info(fmt.Sprintf("File out: %s", config.FileOut), "config")
	logger.Info(fmt.Sprintf("Backend: %s", config.Backend), "config")
	logger.Info(fmt.Sprintf("Sections: %v", config.Sections), "config")
	logger.Info(fmt.Sprintf("Number of planes: %d", config.NumPlanes), "config")
	logger.Info(fmt.Sprintf("Masked planes: %v", config.MaskedPlanes), "config")
	logger.Info(fmt.Sprintf("Mask mode: %v", config.MaskMode), "config")
	logger.Info(fmt.Sprintf("Noise mask file: %s", config.NoiseMaskFile), "config")
	logger.Info(fmt.Sprintf("Disabled fields: %v", config.DisabledFields), "config")
	logger.Info(fmt.Sprintf("Skip: %d", config.Skip), "config")
	logger.Info(fmt.Sprintf("Max events: %d", config.MaxEvents), "config")
	logger.Info(fmt.Sprintf("Number of workers: %d", config.NumWorkers), "config")
	logger.Info(fmt.Sprintf("Seed: %d", config.Seed), "config")
	logger.Info(fmt.Sprintf("Hits per plane: %d", config.HitsPerPlane), "config")
	logger.Info(fmt.Sprintf("Cluster size: %d", config.ClusterSize), "config")
	logger.Info(fmt.Sprintf("Tracks per event: %d", config.TracksPerEvent), "config")
	logger.Info(fmt.Sprintf("No DB: %t", config.NoDB), "config")
	logger.Info(fmt.Sprintf("Run number: %d", config.RunNumber), "config")
	logger.Info(fmt.Sprintf("Host: %s", config.Host), "config")
	logger.Info(fmt.Sprintf("DB name: %s", config.DBName), "config")
	logger.Info(fmt.Sprintf("Verbosity: %d", config.Verbosity), "config")
	logger.Info(fmt.Sprintf("Metrics: %t", config.Metrics), "config")
}
