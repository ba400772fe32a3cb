package profile

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// LoadYAML reads a profile file and returns it as a static source.
func LoadYAML(path string) (*Static, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read profile %s: %w", path, err)
	}

	p, err := ParseYAML(data)
	if err != nil {
		return nil, fmt.Errorf("parse profile %s: %w", path, err)
	}
	return NewStatic(p), nil
}

// ParseYAML decodes a profile document. Missing sections stay empty.
func ParseYAML(data []byte) (*Profile, error) {
	var p Profile
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, err
	}
	return &p, nil
}
