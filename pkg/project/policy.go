package project

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	DefaultSafetyNone        = "None"
	DefaultSafetyUnspecified = "UNSPECIFIED"
)

// Policy holds the missing-value rules applied to every projected row.
type Policy struct {
	// MissingMarkers are text values read as absent, compared
	// case-insensitively after trimming.
	MissingMarkers []string `yaml:"missing_markers"`
	// SafetyNoneMarkers are safety values normalized to SafetyUnspecified.
	SafetyNoneMarkers []string `yaml:"safety_none_markers"`
	SafetyUnspecified string   `yaml:"safety_unspecified"`
}

func DefaultPolicy() Policy {
	return Policy{
		SafetyNoneMarkers: []string{DefaultSafetyNone},
		SafetyUnspecified: DefaultSafetyUnspecified,
	}
}

func (p *Policy) Validate() error {
	if strings.TrimSpace(p.SafetyUnspecified) == "" {
		return fmt.Errorf("safety_unspecified is required")
	}
	return nil
}

// LoadPolicy reads a YAML policy file. Fields left out keep their defaults;
// an explicit empty list clears a default list.
func LoadPolicy(path string) (Policy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Policy{}, fmt.Errorf("failed to read projector policy: %w", err)
	}
	return parsePolicy(data)
}

func parsePolicy(data []byte) (Policy, error) {
	p := DefaultPolicy()
	if err := yaml.Unmarshal(data, &p); err != nil {
		return Policy{}, fmt.Errorf("failed to parse projector policy: %w", err)
	}
	if err := p.Validate(); err != nil {
		return Policy{}, err
	}
	return p, nil
}

func (p *Policy) isMissing(s string) bool {
	return containsFold(p.MissingMarkers, s)
}

func (p *Policy) isSafetyNone(s string) bool {
	return containsFold(p.SafetyNoneMarkers, s)
}

func containsFold(list []string, s string) bool {
	s = strings.TrimSpace(s)
	for _, m := range list {
		if strings.EqualFold(strings.TrimSpace(m), s) {
			return true
		}
	}
	return false
}
