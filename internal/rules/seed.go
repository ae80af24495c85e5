package rules

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// LoadSeed reads rule fixtures from a YAML file, or from every .yaml/.yml
// file under a directory in lexical order. Seeded rules are active unless the
// file says otherwise.
func LoadSeed(path string) ([]Rule, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("rules seed: %w", err)
	}
	if !info.IsDir() {
		return readSeed(path)
	}

	var out []Rule
	err = filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !(strings.HasSuffix(p, ".yaml") || strings.HasSuffix(p, ".yml")) {
			return nil
		}
		rs, err := readSeed(p)
		if err != nil {
			return err
		}
		out = append(out, rs...)
		return nil
	})
	return out, err
}

func readSeed(path string) ([]Rule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("rules seed: %w", err)
	}
	// is_active defaults to true, so decode over a pre-filled value per rule.
	var raw struct {
		Rules []yaml.Node `yaml:"rules"`
	}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("rules seed %s: %w", path, err)
	}
	out := make([]Rule, 0, len(raw.Rules))
	for i := range raw.Rules {
		r := Rule{IsActive: true}
		if err := raw.Rules[i].Decode(&r); err != nil {
			return nil, fmt.Errorf("rules seed %s: rule %d: %w", path, i, err)
		}
		out = append(out, r)
	}
	return out, nil
}
