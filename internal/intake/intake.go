// Package intake reads the rule-engine risk fields carried by an intake record.
package intake

import (
	"fmt"
	"slices"

	"github.com/ziadkadry99/notedraft/internal/schema"
)

// Record is a decoded intake document.
type Record = map[string]any

const (
	riskKey = "risk_flags_rule_based"

	// DefaultRiskLevel is used when the rule engine left no level.
	DefaultRiskLevel = "LOW"
)

// RiskLevels are the levels the output schema accepts.
var RiskLevels = []string{"LOW", "MED", "HIGH"}

// CheckRiskLevel rejects a level the output schema would never accept.
func CheckRiskLevel(level string) error {
	if !slices.Contains(RiskLevels, level) {
		return fmt.Errorf("risk_level %q must be one of LOW, MED, HIGH", level)
	}
	return nil
}

// Load reads an intake record from a JSON file.
func Load(path string) (Record, error) {
	v, err := schema.DecodeFile(path)
	if err != nil {
		return nil, err
	}
	rec, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%s: intake must be a JSON object", path)
	}
	return rec, nil
}

// RiskLevel returns risk_flags_rule_based.risk_level, or LOW when absent or
// empty.
func RiskLevel(rec Record) string {
	risk, _ := rec[riskKey].(map[string]any)
	if level, ok := risk["risk_level"].(string); ok && level != "" {
		return level
	}
	return DefaultRiskLevel
}

// RiskFlags returns risk_flags_rule_based.flags as strings. Non-string
// entries are skipped. The result is never nil.
func RiskFlags(rec Record) []string {
	risk, _ := rec[riskKey].(map[string]any)
	flags := []string{}
	switch v := risk["flags"].(type) {
	case []any:
		for _, f := range v {
			if s, ok := f.(string); ok {
				flags = append(flags, s)
			}
		}
	case []string:
		flags = append(flags, v...)
	}
	return flags
}

// Risk returns both rule-engine fields.
func Risk(rec Record) (string, []string) {
	return RiskLevel(rec), RiskFlags(rec)
}
