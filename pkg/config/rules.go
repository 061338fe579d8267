package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ComplianceRules lists extra phrases appended to the built-in regulatory rules.
//
//	banned_phrases: ["garantizado", "sin riesgo"]
//	comparative_phrases: ["outperforms"]
//	promise_phrases: ["we ensure"]
type ComplianceRules struct {
	BannedPhrases      []string `yaml:"banned_phrases"`
	ComparativePhrases []string `yaml:"comparative_phrases"`
	PromisePhrases     []string `yaml:"promise_phrases"`
}

// LoadComplianceRules reads a rules file. An empty path yields empty rules.
func LoadComplianceRules(path string) (*ComplianceRules, error) {
	rules := &ComplianceRules{}
	if path == "" {
		return rules, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read compliance rules %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, rules); err != nil {
		return nil, fmt.Errorf("failed to parse compliance rules %s: %w", path, err)
	}
	return rules, nil
}
