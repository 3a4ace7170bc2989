package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// CampaignFile describes a campaign stored on disk as YAML
type CampaignFile struct {
	Source       SourceSpec `yaml:"source"`
	TargetColumn string     `yaml:"target_column"`
	Template     string     `yaml:"template"`
	DelaySeconds *int       `yaml:"delay_seconds"`
}

// SourceSpec points at the rows of a campaign. Exactly one of CSV or Table is set.
type SourceSpec struct {
	CSV         string   `yaml:"csv"`
	Table       string   `yaml:"table"`
	OrderBy     string   `yaml:"order_by"`
	ParseNumber bool     `yaml:"parse_numbers"`
	DateLayouts []string `yaml:"date_layouts"`
}

// LoadCampaignFile reads and validates a YAML campaign file.
// A relative CSV path is resolved against the campaign file's directory.
func LoadCampaignFile(path string) (*CampaignFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read campaign file: %w", err)
	}

	var file CampaignFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse campaign file %s: %w", path, err)
	}

	if err := file.Validate(); err != nil {
		return nil, fmt.Errorf("invalid campaign file %s: %w", path, err)
	}

	if file.Source.CSV != "" && !filepath.IsAbs(file.Source.CSV) {
		file.Source.CSV = filepath.Join(filepath.Dir(path), file.Source.CSV)
	}

	return &file, nil
}

// Validate checks the campaign file fields
func (f *CampaignFile) Validate() error {
	if f.Source.CSV == "" && f.Source.Table == "" {
		return fmt.Errorf("source.csv or source.table is required")
	}
	if f.Source.CSV != "" && f.Source.Table != "" {
		return fmt.Errorf("source.csv and source.table are mutually exclusive")
	}
	if f.TargetColumn == "" {
		return fmt.Errorf("target_column is required")
	}
	if f.Template == "" {
		return fmt.Errorf("template is required")
	}
	return nil
}

// Delay returns the configured delay or fallback when the file omits it
func (f *CampaignFile) Delay(fallback int) int {
	if f.DelaySeconds == nil {
		return fallback
	}
	return *f.DelaySeconds
}
