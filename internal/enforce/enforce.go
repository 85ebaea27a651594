// Package enforce overwrites the fields of a generated note that the model is
// not allowed to control.
package enforce

import "time"

// TimeFormat is RFC 3339 in UTC at second precision with a literal Z.
const TimeFormat = "2006-01-02T15:04:05Z"

// Fields carries the caller-owned values stamped onto every candidate.
type Fields struct {
	RiskLevel     string
	RiskFlags     []string
	Backend       string
	PromptVersion string
}

// Enforce returns a copy of c with risk_level and risk_flags replaced by the
// caller's values, safety.no_diagnosis_or_treatment forced to true and
// provenance.generated_at set to now. provenance.model_family and
// provenance.prompt_version are only filled when absent.
func Enforce(c map[string]any, f Fields, now time.Time) map[string]any {
	out := make(map[string]any, len(c)+4)
	for k, v := range c {
		out[k] = v
	}

	out["risk_level"] = f.RiskLevel
	flags := make([]any, len(f.RiskFlags))
	for i, flag := range f.RiskFlags {
		flags[i] = flag
	}
	out["risk_flags"] = flags

	safety := copyMap(out["safety"])
	safety["no_diagnosis_or_treatment"] = true
	out["safety"] = safety

	prov := copyMap(out["provenance"])
	if _, ok := prov["model_family"]; !ok {
		prov["model_family"] = f.Backend
	}
	if _, ok := prov["prompt_version"]; !ok {
		prov["prompt_version"] = f.PromptVersion
	}
	prov["generated_at"] = now.UTC().Format(TimeFormat)
	out["provenance"] = prov

	return out
}

// copyMap returns a shallow copy of v, or an empty map when v is not an object.
func copyMap(v any) map[string]any {
	src, _ := v.(map[string]any)
	dst := make(map[string]any, len(src)+2)
	for k, val := range src {
		dst[k] = val
	}
	return dst
}
