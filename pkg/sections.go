package storage

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Section selects one logical group of columns. Sections combine as a
// bitmask.
type Section int

const (
	SectionHits Section = 1 << iota
	SectionClusters
	SectionTracks
	SectionEventInfo

	SectionNone Section = 0
	SectionAll          = SectionHits | SectionClusters | SectionTracks | SectionEventInfo
)

var sectionNames = []struct {
	section Section
	name    string
}{
	{SectionHits, "hits"},
	{SectionClusters, "clusters"},
	{SectionTracks, "tracks"},
	{SectionEventInfo, "eventinfo"},
}

func (s Section) Has(other Section) bool {
	return s&other == other
}

func (s Section) String() string {
	if s == SectionNone {
		return "none"
	}
	var parts []string
	for _, sn := range sectionNames {
		if s.Has(sn.section) {
			parts = append(parts, sn.name)
		}
	}
	if len(parts) == 0 {
		return "UNKNOWN"
	}
	return strings.Join(parts, "|")
}

// ParseSections combines section names ("hits", "clusters", "tracks",
// "eventinfo", "all", "none").
func ParseSections(names []string) (Section, error) {
	var s Section
	for _, name := range names {
		switch n := strings.ToLower(strings.TrimSpace(name)); n {
		case "all":
			s |= SectionAll
		case "none", "":
		default:
			found := false
			for _, sn := range sectionNames {
				if sn.name == n {
					s |= sn.section
					found = true
				}
			}
			if !found {
				return SectionNone, fmt.Errorf("%w: unknown section %q", ErrConfiguration, name)
			}
		}
	}
	return s, nil
}

func (s Section) MarshalJSON() ([]byte, error) {
	return json.Marshal(strings.Split(s.String(), "|"))
}

func (s *Section) UnmarshalJSON(data []byte) error {
	var names []string
	if err := json.Unmarshal(data, &names); err != nil {
		return err
	}
	parsed, err := ParseSections(names)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

func (s *Section) UnmarshalYAML(unmarshal func(any) error) error {
	var names []string
	if err := unmarshal(&names); err != nil {
		return err
	}
	parsed, err := ParseSections(names)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

type MaskMode int

const (
	// Passive flags masked hits on read but does not persist the flag.
	Passive MaskMode = iota
	// Remove drops masked hits on read and on write.
	Remove
)

var maskModeStrings = []string{
	"passive",
	"remove",
}

func (m MaskMode) String() string {
	if m < Passive || m > Remove {
		return "UNKNOWN"
	}
	return maskModeStrings[m]
}

func ParseMaskMode(s string) (MaskMode, error) {
	for i, v := range maskModeStrings {
		if v == strings.ToLower(s) {
			return MaskMode(i), nil
		}
	}
	return Passive, fmt.Errorf("%w: invalid mask mode %q", ErrConfiguration, s)
}

func (m MaskMode) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.String())
}

func (m *MaskMode) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseMaskMode(s)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

func (m *MaskMode) UnmarshalYAML(unmarshal func(any) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	parsed, err := ParseMaskMode(s)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}
