package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// File is the on-disk catalog document.
//
//	entries:
//	  "0001": java -cp "{tool}" ... -i "{dataset}"
type File struct {
	Entries map[string]string `yaml:"entries" json:"entries"`
}

// Load reads a catalog from a YAML or JSON file and validates it.
//
// The format is chosen by extension: .json for JSON, anything else is
// parsed as YAML (a superset of JSON).
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("catalog file not found: %s", path)
		}
		if os.IsPermission(err) {
			return nil, fmt.Errorf("permission denied reading catalog: %s", path)
		}
		return nil, fmt.Errorf("failed to read catalog file: %w", err)
	}
	return LoadFromBytes(data, path)
}

// LoadFromBytes parses and validates a catalog document. The path is used
// for format detection and error messages only.
func LoadFromBytes(data []byte, path string) (*Catalog, error) {
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil, errors.New("catalog file is empty")
	}

	var doc File
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("failed to parse catalog JSON: %w", err)
		}
	default:
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("failed to parse catalog YAML: %w", err)
		}
	}

	c, err := New(doc.Entries)
	if err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}
