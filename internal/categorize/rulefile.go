package categorize

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// RulesFile is the project-relative path of the user rule file.
var RulesFile = filepath.Join("rules", "categorization-rules.yaml")

// ruleFile is the on-disk layout of the user rule file.
type ruleFile struct {
	Rules []Rule `yaml:"rules"`
}

// LoadFile reads user rules from path. A missing file yields no rules.
func LoadFile(path string) ([]Rule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading rules: %w", err)
	}
	return Parse(data)
}

// Parse decodes a rule file. Unknown keys are rejected.
func Parse(data []byte) ([]Rule, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var rf ruleFile
	if err := dec.Decode(&rf); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("parsing rules: %w", err)
	}
	return rf.Rules, nil
}

// SaveFile writes rules to path in the rule file layout.
func SaveFile(path string, rules []Rule) error {
	if rules == nil {
		rules = []Rule{}
	}
	data, err := yaml.Marshal(ruleFile{Rules: rules})
	if err != nil {
		return fmt.Errorf("marshaling rules: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating rules dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing rules: %w", err)
	}
	return nil
}
