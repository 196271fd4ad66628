package config

import (
	"os"
	"path/filepath"

	"github.com/santhoshkumr96/orchestapi/internal/domain/runrec"
	"github.com/santhoshkumr96/orchestapi/internal/domain/suite"
	apperrors "github.com/santhoshkumr96/orchestapi/pkg/errors"
)

// toEnvironment converts an EnvironmentDoc into a suite.Environment,
// loading each FileDoc's bytes from disk relative to baseDir (the
// directory containing the fixture file it was declared in).
func toEnvironment(d EnvironmentDoc, baseDir string) (*suite.Environment, error) {
	env := &suite.Environment{
		ID:      d.ID,
		Name:    d.Name,
		BaseURL: d.BaseURL,
	}

	for _, v := range d.Variables {
		vt := v.ValueType
		if vt == "" {
			vt = string(suite.ValueStatic)
		}
		env.Variables = append(env.Variables, suite.Variable{
			Key: v.Key, Value: v.Value, ValueType: suite.ValueType(vt), Secret: v.Secret,
		})
	}

	for _, h := range d.DefaultHeaders {
		vt := h.ValueType
		if vt == "" {
			vt = string(suite.ValueStatic)
		}
		env.DefaultHeaders = append(env.DefaultHeaders, suite.DefaultHeader{
			Key: h.Key, ValueType: suite.ValueType(vt), Value: h.Value,
		})
	}

	for _, c := range d.Connectors {
		env.Connectors = append(env.Connectors, suite.Connector{
			Name: c.Name, Type: suite.ConnectorType(c.Type), Config: c.Config,
		})
	}

	for _, f := range d.Files {
		path := f.Path
		if !filepath.IsAbs(path) {
			path = filepath.Join(baseDir, path)
		}
		bytes, err := os.ReadFile(path)
		if err != nil {
			return nil, apperrors.NewValidationError("files["+f.FileKey+"]", "reading file asset: "+err.Error(), err)
		}
		filename := f.Filename
		if filename == "" {
			filename = filepath.Base(path)
		}
		env.Files = append(env.Files, suite.FileAsset{
			FileKey: f.FileKey, Bytes: bytes, ContentType: f.ContentType, Filename: filename,
		})
	}

	if err := env.Validate(); err != nil {
		return nil, err
	}
	return env, nil
}

func toSuite(d SuiteDoc) (*suite.TestSuite, error) {
	s := &suite.TestSuite{
		ID:           d.ID,
		Name:         d.Name,
		DefaultEnvID: d.DefaultEnvironmentID,
	}

	for _, sd := range d.Steps {
		step := suite.TestStep{
			ID:                  sd.ID,
			SuiteID:             d.ID,
			Name:                sd.Name,
			Method:              sd.Method,
			URL:                 sd.URL,
			BodyType:            suite.BodyType(orDefault(sd.BodyType, string(suite.BodyNone))),
			Body:                sd.Body,
			DisabledDefaultHdrs: sd.DisabledDefaultHdrs,
			Cacheable:           sd.Cacheable,
			CacheTTLSec:         sd.CacheTTLSec,
			DependencyOnly:      sd.DependencyOnly,
			SortOrder:           sd.SortOrder,
			GroupName:           sd.GroupName,
		}

		for _, h := range sd.Headers {
			step.Headers = append(step.Headers, suite.Header{Key: h.Key, Value: h.Value})
		}
		for _, q := range sd.QueryParams {
			step.QueryParams = append(step.QueryParams, suite.QueryParam{Key: q.Key, Value: q.Value})
		}
		for _, f := range sd.FormFields {
			step.FormFields = append(step.FormFields, suite.FormField{Name: f.Name, Value: f.Value, Type: orDefault(f.Type, "text")})
		}
		for _, dep := range sd.Dependencies {
			useCache := true
			if dep.UseCache != nil {
				useCache = *dep.UseCache
			}
			step.Dependencies = append(step.Dependencies, suite.Dependency{
				DependsOnStepID: dep.DependsOn, UseCache: useCache, ReuseManualInput: dep.ReuseManualInput,
			})
		}
		for _, h := range sd.Handlers {
			step.Handlers = append(step.Handlers, suite.ResponseHandler{
				MatchCode: h.MatchCode, Action: suite.HandlerAction(h.Action), SideEffectStepID: h.SideEffectStepID,
				RetryCount: h.RetryCount, RetryDelaySec: h.RetryDelaySec, Priority: h.Priority,
			})
		}
		for _, ex := range sd.Extracts {
			step.Extracts = append(step.Extracts, suite.ExtractVariable{
				VariableName: ex.VariableName, JSONPath: ex.JSONPath, Source: suite.VariableSource(ex.Source), Key: ex.Key,
			})
		}
		for _, v := range sd.Verifies {
			vv := suite.Verification{
				ConnectorName: v.ConnectorName, Query: v.Query, TimeoutSeconds: v.TimeoutSeconds,
				QueryTimeoutSeconds: v.QueryTimeoutSeconds, PreListen: v.PreListen,
			}
			for _, a := range v.Assertions {
				vv.Assertions = append(vv.Assertions, suite.Assertion{
					JSONPath: a.JSONPath, Operator: suite.AssertOperator(a.Operator), ExpectedValue: a.ExpectedValue,
				})
			}
			step.Verifies = append(step.Verifies, vv)
		}
		for _, rv := range sd.Validations {
			step.Validations = append(step.Validations, suite.ResponseValidation{
				Type: suite.ValidationType(rv.Type), HeaderName: rv.HeaderName, JSONPath: rv.JSONPath,
				Operator: suite.AssertOperator(rv.Operator), ExpectedValue: rv.ExpectedValue,
				MatchMode: suite.MatchMode(orDefault(rv.MatchMode, string(suite.MatchStrict))),
				ExpectedBody: rv.ExpectedBody, ExpectedDataType: rv.ExpectedDataType,
			})
		}

		s.Steps = append(s.Steps, step)
	}

	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

func toSchedule(d ScheduleDoc) runrec.RunSchedule {
	return runrec.RunSchedule{
		ID: d.ID, SuiteID: d.SuiteID, EnvironmentID: d.EnvironmentID,
		CronExpr: d.CronExpr, Active: d.Active, Description: d.Description,
		NextRunAt: parseTimeOrZero(d.NextRunAt), LastRunAt: parseTimeOrZero(d.LastRunAt),
	}
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
