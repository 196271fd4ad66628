// Package placeholder implements the three substitution syntaxes used
// across step definitions: environment variables (${NAME}), extracted step
// variables ({{step.variable}}), and manual inputs (#{name} / #{name:def}).
// Resolve is a pure function of its inputs.
package placeholder

import (
	"regexp"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/santhoshkumr96/orchestapi/internal/domain/suite"
	apperrors "github.com/santhoshkumr96/orchestapi/pkg/errors"
)

var (
	envVarPattern    = regexp.MustCompile(`\$\{([a-zA-Z_][a-zA-Z0-9_]*)\}`)
	stepVarPattern   = regexp.MustCompile(`\{\{([a-zA-Z0-9_-]+)\.([a-zA-Z0-9_-]+)\}\}`)
	manualInputPatt  = regexp.MustCompile(`#\{([a-zA-Z0-9_-]+)(?::([^}]*))?\}`)
)

// WarningSink receives a ResolutionWarning each time a {{step.var}}
// reference cannot be resolved. It may be nil.
type WarningSink func(apperrors.ResolutionWarning)

// Resolve substitutes, in order, ${NAME} environment variables, then
// {{step.var}} extracted variables, then #{name[:default]} manual inputs.
// It never panics and never errors: unknown references are left in place
// (env/step vars) or replaced by their default/empty string (manual
// inputs).
func Resolve(text string, env *suite.Environment, extracted map[string]string, manualInputs map[string]string, warn WarningSink) string {
	text = resolveEnvVars(text, env)
	text = resolveStepVars(text, extracted, warn)
	text = resolveManualInputs(text, manualInputs)
	return text
}

func resolveEnvVars(text string, env *suite.Environment) string {
	if env == nil {
		return text
	}
	return envVarPattern.ReplaceAllStringFunc(text, func(match string) string {
		name := envVarPattern.FindStringSubmatch(match)[1]
		v, ok := env.Variable(name)
		if !ok {
			return match
		}
		return RenderValue(v.ValueType, v.Value)
	})
}

// RenderValue produces the substitution string for a given ValueType. Each
// call produces a fresh value for UUID/ISO_TIMESTAMP, so repeated
// occurrences of the same ${UUID} variable in one text expand to distinct
// values.
func RenderValue(vt suite.ValueType, literal string) string {
	switch vt {
	case suite.ValueUUID:
		return uuid.NewString()
	case suite.ValueISOTimestamp:
		return time.Now().UTC().Format(time.RFC3339)
	default:
		return literal
	}
}

func resolveStepVars(text string, extracted map[string]string, warn WarningSink) string {
	return stepVarPattern.ReplaceAllStringFunc(text, func(match string) string {
		groups := stepVarPattern.FindStringSubmatch(match)
		key := groups[1] + "." + groups[2]
		if v, ok := extracted[key]; ok {
			return v
		}
		if warn != nil {
			warn(apperrors.ResolutionWarning{Placeholder: match})
		}
		return match
	})
}

func resolveManualInputs(text string, manualInputs map[string]string) string {
	return manualInputPatt.ReplaceAllStringFunc(text, func(match string) string {
		groups := manualInputPatt.FindStringSubmatch(match)
		name, def := groups[1], groups[2]
		if v, ok := manualInputs[name]; ok {
			return v
		}
		return def
	})
}

// ManualInputRef is one #{name} or #{name:default} occurrence found by Scan.
type ManualInputRef struct {
	Name         string
	Default      string
	HasDefault   bool
}

// Scan collects every manual-input reference in text without resolving
// them, used by the suite executor to find the manual inputs a step
// needs (and which of them declare a default) before the step runs.
func Scan(text string) []ManualInputRef {
	matches := manualInputPatt.FindAllStringSubmatch(text, -1)
	refs := make([]ManualInputRef, 0, len(matches))
	for _, m := range matches {
		ref := ManualInputRef{Name: m[1]}
		// regexp capture group 2 is empty both when absent and when the
		// default itself is an empty string; distinguish via the full match.
		if len(m) > 0 && containsColon(m[0]) {
			ref.HasDefault = true
			ref.Default = m[2]
		}
		refs = append(refs, ref)
	}
	return refs
}

func containsColon(s string) bool {
	for _, r := range s {
		if r == ':' {
			return true
		}
	}
	return false
}

// FormatStatusCode renders an HTTP status code the way STATUS_CODE
// extraction does: its plain decimal form.
func FormatStatusCode(code int) string {
	return strconv.Itoa(code)
}
