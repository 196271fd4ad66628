package suite

import (
	"fmt"
	"sort"

	apperrors "github.com/santhoshkumr96/orchestapi/pkg/errors"
)

// Validate enforces the suite's structural invariants: no step may
// depend on itself, the dependency graph must be acyclic, and a
// dependency's target must belong to the same suite. Environment key
// uniqueness is checked separately by Environment.Validate.
func (s *TestSuite) Validate() error {
	if s.Name == "" {
		return apperrors.NewValidationError("name", "suite name is required", nil)
	}

	stepIndex := make(map[string]int, len(s.Steps))
	for i, step := range s.Steps {
		if _, exists := stepIndex[step.ID]; exists {
			return apperrors.NewValidationError(fieldForStep(i, "id"), fmt.Sprintf("duplicate step id %q", step.ID), nil)
		}
		stepIndex[step.ID] = i
	}

	for i, step := range s.Steps {
		for _, dep := range step.Dependencies {
			if dep.DependsOnStepID == step.ID {
				return apperrors.NewValidationError(fieldForStep(i, "depends_on"), fmt.Sprintf("step %q cannot depend on itself", step.ID), nil)
			}
			if _, ok := stepIndex[dep.DependsOnStepID]; !ok {
				return apperrors.NewValidationError(fieldForStep(i, "depends_on"), fmt.Sprintf("step %q depends on unknown step %q", step.ID, dep.DependsOnStepID), nil)
			}
		}
		for _, h := range step.Handlers {
			if h.Action == ActionFireSideEffect && h.SideEffectStepID != "" {
				if _, ok := stepIndex[h.SideEffectStepID]; !ok {
					return apperrors.NewValidationError(fieldForStep(i, "side_effect_step_id"), fmt.Sprintf("side effect references unknown step %q", h.SideEffectStepID), nil)
				}
			}
		}
	}

	if cycle := DetectCycle(s.Steps); len(cycle) > 0 {
		return apperrors.NewValidationError("steps", "Adding these dependencies would create a circular dependency", nil)
	}

	return nil
}

func fieldForStep(i int, suffix string) string {
	return fmt.Sprintf("steps[%d].%s", i, suffix)
}

// DetectCycle returns the step IDs participating in a dependency cycle (in
// traversal order), or nil if the dependency graph is acyclic.
func DetectCycle(steps []TestStep) []string {
	graph := make(map[string][]string, len(steps))
	for _, step := range steps {
		deps := make([]string, 0, len(step.Dependencies))
		for _, d := range step.Dependencies {
			deps = append(deps, d.DependsOnStepID)
		}
		graph[step.ID] = deps
	}

	visiting := make(map[string]bool, len(steps))
	visited := make(map[string]bool, len(steps))
	var stack []string
	var cycle []string

	var dfs func(string) bool
	dfs = func(node string) bool {
		visiting[node] = true
		stack = append(stack, node)

		for _, dep := range graph[node] {
			if !visited[dep] {
				if visiting[dep] {
					idx := indexOf(stack, dep)
					if idx >= 0 {
						cycle = append([]string{}, stack[idx:]...)
						cycle = append(cycle, dep)
					}
					return true
				}
				if dfs(dep) {
					return true
				}
			}
		}

		visiting[node] = false
		visited[node] = true
		stack = stack[:len(stack)-1]
		return false
	}

	ids := make([]string, 0, len(steps))
	for _, step := range steps {
		ids = append(ids, step.ID)
	}
	sort.Strings(ids)

	for _, id := range ids {
		if visited[id] {
			continue
		}
		if dfs(id) {
			break
		}
	}

	return cycle
}

func indexOf(slice []string, target string) int {
	for i, v := range slice {
		if v == target {
			return i
		}
	}
	return -1
}

// Validate enforces uniqueness of variable keys, connector names, and file
// keys within an Environment.
func (e *Environment) Validate() error {
	if e.Name == "" {
		return apperrors.NewValidationError("name", "environment name is required", nil)
	}

	seenVars := make(map[string]bool, len(e.Variables))
	for _, v := range e.Variables {
		if seenVars[v.Key] {
			return apperrors.NewValidationError("variables", fmt.Sprintf("duplicate variable key %q", v.Key), nil)
		}
		seenVars[v.Key] = true
	}

	seenConnectors := make(map[string]bool, len(e.Connectors))
	for _, c := range e.Connectors {
		if seenConnectors[c.Name] {
			return apperrors.NewValidationError("connectors", fmt.Sprintf("duplicate connector name %q", c.Name), nil)
		}
		seenConnectors[c.Name] = true
	}

	seenFiles := make(map[string]bool, len(e.Files))
	for _, f := range e.Files {
		if seenFiles[f.FileKey] {
			return apperrors.NewValidationError("files", fmt.Sprintf("duplicate file key %q", f.FileKey), nil)
		}
		seenFiles[f.FileKey] = true
	}

	return nil
}
