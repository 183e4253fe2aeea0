package roster

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Manifest describes a roster snapshot: where it came from and how to read it.
type Manifest struct {
	ID        string     `yaml:"id" json:"id"`
	Version   string     `yaml:"version" json:"version"`
	Source    string     `yaml:"source" json:"source"`
	SourceURL string     `yaml:"source_url" json:"source_url,omitempty"`
	License   string     `yaml:"license" json:"license"`
	DataFile  string     `yaml:"data_file" json:"data_file"`
	Format    FormatSpec `yaml:"format" json:"-"`
}

// FormatSpec describes the CSV layout of a snapshot data file.
type FormatSpec struct {
	Delimiter string      `yaml:"delimiter"`
	Encoding  string      `yaml:"encoding"`
	HasHeader bool        `yaml:"has_header"`
	Columns   ColumnNames `yaml:"columns"`
}

// ColumnNames maps logical player fields to CSV header names. Empty fields
// are simply not populated.
type ColumnNames struct {
	Name        string `yaml:"name"`
	WikidataID  string `yaml:"wikidata_id"`
	Nationality string `yaml:"nationality"`
	Position    string `yaml:"position"`
	Mononym     string `yaml:"mononym"`
}

// LoadManifest reads and parses a manifest.yaml file.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest %s: %w", path, err)
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse manifest %s: %w", path, err)
	}
	if m.ID == "" {
		return nil, fmt.Errorf("manifest %s: missing id", path)
	}
	if m.DataFile == "" {
		m.DataFile = "data.csv"
	}
	if m.Format.Columns.Name == "" {
		m.Format.Columns.Name = "name"
	}
	return &m, nil
}
