package config

import (
	"fmt"

	apperrors "github.com/santhoshkumr96/orchestapi/pkg/errors"
)

// validateDocument performs go-playground/validator struct-tag
// validation followed by cross-reference checks (unique IDs, schedules
// pointing at a known suite/environment): struct tags first, semantic
// checks second.
func validateDocument(doc *Document) error {
	v := validatorInstance()
	if err := v.Struct(doc); err != nil {
		return apperrors.NewValidationError("config", err.Error(), err)
	}

	envIDs := make(map[string]bool, len(doc.Environments))
	for i, e := range doc.Environments {
		if envIDs[e.ID] {
			return apperrors.NewValidationError(fmt.Sprintf("environments[%d].id", i), fmt.Sprintf("duplicate environment id %q", e.ID), nil)
		}
		envIDs[e.ID] = true
	}

	suiteIDs := make(map[string]bool, len(doc.Suites))
	for i, s := range doc.Suites {
		if suiteIDs[s.ID] {
			return apperrors.NewValidationError(fmt.Sprintf("suites[%d].id", i), fmt.Sprintf("duplicate suite id %q", s.ID), nil)
		}
		suiteIDs[s.ID] = true
		if s.DefaultEnvironmentID != "" && !envIDs[s.DefaultEnvironmentID] {
			return apperrors.NewValidationError(fmt.Sprintf("suites[%d].default_environment_id", i), fmt.Sprintf("suite %q references unknown environment %q", s.ID, s.DefaultEnvironmentID), nil)
		}
	}

	scheduleIDs := make(map[string]bool, len(doc.Schedules))
	for i, sc := range doc.Schedules {
		if scheduleIDs[sc.ID] {
			return apperrors.NewValidationError(fmt.Sprintf("schedules[%d].id", i), fmt.Sprintf("duplicate schedule id %q", sc.ID), nil)
		}
		scheduleIDs[sc.ID] = true
		if !suiteIDs[sc.SuiteID] {
			return apperrors.NewValidationError(fmt.Sprintf("schedules[%d].suite_id", i), fmt.Sprintf("schedule %q references unknown suite %q", sc.ID, sc.SuiteID), nil)
		}
		if !envIDs[sc.EnvironmentID] {
			return apperrors.NewValidationError(fmt.Sprintf("schedules[%d].environment_id", i), fmt.Sprintf("schedule %q references unknown environment %q", sc.ID, sc.EnvironmentID), nil)
		}
	}

	return nil
}
