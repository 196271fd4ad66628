// Package config loads suite, environment, and schedule fixtures from
// YAML documents and decodes/validates them into the engine's domain
// types (internal/domain/suite, internal/domain/runrec). This is the
// engine's stand-in for a persistence layer: YAML fixture files stand
// in for whatever store a deployment puts behind the admin surface,
// decoded with gopkg.in/yaml.v3 and validated with
// go-playground/validator/v10.
package config

// Document is the top-level shape of one YAML fixture file: a bundle of
// environments, suites, and schedules. A deployment may split these
// across several files or keep one file per suite; LoadFile returns one
// file's *Document, and LoadFiles/LoadDir merge several files into a
// *Store.
type Document struct {
	Environments []EnvironmentDoc `yaml:"environments,omitempty" validate:"omitempty,dive"`
	Suites       []SuiteDoc       `yaml:"suites,omitempty" validate:"omitempty,dive"`
	Schedules    []ScheduleDoc    `yaml:"schedules,omitempty" validate:"omitempty,dive"`
}

// VariableDoc mirrors suite.Variable.
type VariableDoc struct {
	Key       string `yaml:"key" validate:"required"`
	Value     string `yaml:"value"`
	ValueType string `yaml:"value_type" validate:"omitempty,oneof=STATIC UUID ISO_TIMESTAMP"`
	Secret    bool   `yaml:"secret,omitempty"`
}

// HeaderDoc mirrors suite.DefaultHeader.
type HeaderDoc struct {
	Key       string `yaml:"key" validate:"required"`
	ValueType string `yaml:"value_type" validate:"omitempty,oneof=STATIC VARIABLE UUID ISO_TIMESTAMP"`
	Value     string `yaml:"value"`
}

// ConnectorDoc mirrors suite.Connector.
type ConnectorDoc struct {
	Name   string            `yaml:"name" validate:"required"`
	Type   string            `yaml:"type" validate:"required,oneof=MYSQL POSTGRES ORACLE SQLSERVER REDIS ELASTICSEARCH KAFKA RABBITMQ MONGODB"`
	Config map[string]string `yaml:"config,omitempty"`
}

// FileDoc mirrors suite.FileAsset. Bytes are loaded from Path relative
// to the fixture file's directory (see loader.go); the YAML document
// never embeds raw bytes.
type FileDoc struct {
	FileKey     string `yaml:"file_key" validate:"required"`
	Path        string `yaml:"path" validate:"required"`
	ContentType string `yaml:"content_type,omitempty"`
	Filename    string `yaml:"filename,omitempty"`
}

// EnvironmentDoc mirrors suite.Environment.
type EnvironmentDoc struct {
	ID             string         `yaml:"id" validate:"required"`
	Name           string         `yaml:"name" validate:"required"`
	BaseURL        string         `yaml:"base_url,omitempty"`
	Variables      []VariableDoc  `yaml:"variables,omitempty" validate:"omitempty,dive"`
	DefaultHeaders []HeaderDoc    `yaml:"default_headers,omitempty" validate:"omitempty,dive"`
	Connectors     []ConnectorDoc `yaml:"connectors,omitempty" validate:"omitempty,dive"`
	Files          []FileDoc      `yaml:"files,omitempty" validate:"omitempty,dive"`
}

// HeaderFieldDoc mirrors suite.Header / suite.QueryParam (same shape,
// different placement).
type HeaderFieldDoc struct {
	Key   string `yaml:"key" validate:"required"`
	Value string `yaml:"value"`
}

// FormFieldDoc mirrors suite.FormField.
type FormFieldDoc struct {
	Name  string `yaml:"name" validate:"required"`
	Value string `yaml:"value"`
	Type  string `yaml:"type,omitempty" validate:"omitempty,oneof=text file"`
}

// DependencyDoc mirrors suite.Dependency. UseCache defaults to true
// when omitted: a plain depends_on edge reuses the producer's cached
// result, and only an explicit use_cache: false forces re-execution.
type DependencyDoc struct {
	DependsOn        string `yaml:"depends_on" validate:"required"`
	UseCache         *bool  `yaml:"use_cache,omitempty"`
	ReuseManualInput bool   `yaml:"reuse_manual_input,omitempty"`
}

// ResponseHandlerDoc mirrors suite.ResponseHandler.
type ResponseHandlerDoc struct {
	MatchCode        string `yaml:"match_code" validate:"required"`
	Action           string `yaml:"action" validate:"required,oneof=SUCCESS ERROR RETRY FIRE_SIDE_EFFECT"`
	SideEffectStepID string `yaml:"side_effect_step_id,omitempty"`
	RetryCount       int    `yaml:"retry_count,omitempty" validate:"omitempty,min=0"`
	RetryDelaySec    int    `yaml:"retry_delay_seconds,omitempty" validate:"omitempty,min=0"`
	Priority         int    `yaml:"priority,omitempty"`
}

// ExtractVariableDoc mirrors suite.ExtractVariable.
type ExtractVariableDoc struct {
	VariableName string `yaml:"variable_name" validate:"required"`
	JSONPath     string `yaml:"json_path,omitempty"`
	Source       string `yaml:"source" validate:"required,oneof=RESPONSE_BODY RESPONSE_HEADER STATUS_CODE REQUEST_BODY REQUEST_HEADER QUERY_PARAM REQUEST_URL"`
	Key          string `yaml:"key,omitempty"`
}

// AssertionDoc mirrors suite.Assertion.
type AssertionDoc struct {
	JSONPath      string `yaml:"json_path" validate:"required"`
	Operator      string `yaml:"operator" validate:"required,oneof=EQUALS NOT_EQUALS CONTAINS NOT_CONTAINS REGEX GT LT GTE LTE EXISTS NOT_EXISTS"`
	ExpectedValue string `yaml:"expected_value,omitempty"`
}

// VerificationDoc mirrors suite.Verification.
type VerificationDoc struct {
	ConnectorName       string          `yaml:"connector_name" validate:"required"`
	Query               string          `yaml:"query" validate:"required"`
	TimeoutSeconds      int             `yaml:"timeout_seconds,omitempty" validate:"omitempty,min=0"`
	QueryTimeoutSeconds int             `yaml:"query_timeout_seconds,omitempty" validate:"omitempty,min=0"`
	PreListen           bool            `yaml:"pre_listen,omitempty"`
	Assertions          []AssertionDoc  `yaml:"assertions,omitempty" validate:"omitempty,dive"`
}

// ResponseValidationDoc mirrors suite.ResponseValidation.
type ResponseValidationDoc struct {
	Type             string `yaml:"type" validate:"required,oneof=HEADER BODY_EXACT_MATCH BODY_FIELD BODY_DATA_TYPE"`
	HeaderName       string `yaml:"header_name,omitempty"`
	JSONPath         string `yaml:"json_path,omitempty"`
	Operator         string `yaml:"operator,omitempty" validate:"omitempty,oneof=EQUALS NOT_EQUALS CONTAINS NOT_CONTAINS REGEX GT LT GTE LTE EXISTS NOT_EXISTS"`
	ExpectedValue    string `yaml:"expected_value,omitempty"`
	MatchMode        string `yaml:"match_mode,omitempty" validate:"omitempty,oneof=STRICT FLEXIBLE STRUCTURE"`
	ExpectedBody     string `yaml:"expected_body,omitempty"`
	ExpectedDataType string `yaml:"expected_data_type,omitempty"`
}

// StepDoc mirrors suite.TestStep.
type StepDoc struct {
	ID      string `yaml:"id" validate:"required"`
	Name    string `yaml:"name" validate:"required"`
	Method  string `yaml:"method" validate:"required,oneof=GET POST PUT DELETE PATCH"`
	URL     string `yaml:"url" validate:"required"`

	Headers             []HeaderFieldDoc `yaml:"headers,omitempty" validate:"omitempty,dive"`
	QueryParams         []HeaderFieldDoc `yaml:"query_params,omitempty" validate:"omitempty,dive"`
	BodyType            string           `yaml:"body_type,omitempty" validate:"omitempty,oneof=NONE JSON FORM_DATA"`
	Body                string           `yaml:"body,omitempty"`
	FormFields          []FormFieldDoc   `yaml:"form_fields,omitempty" validate:"omitempty,dive"`
	DisabledDefaultHdrs []string         `yaml:"disabled_default_headers,omitempty"`

	Cacheable      bool `yaml:"cacheable,omitempty"`
	CacheTTLSec    int  `yaml:"cache_ttl_seconds,omitempty" validate:"omitempty,min=0"`
	DependencyOnly bool `yaml:"dependency_only,omitempty"`

	SortOrder int    `yaml:"sort_order,omitempty"`
	GroupName string `yaml:"group_name,omitempty"`

	Dependencies []DependencyDoc         `yaml:"dependencies,omitempty" validate:"omitempty,dive"`
	Handlers     []ResponseHandlerDoc    `yaml:"handlers,omitempty" validate:"omitempty,dive"`
	Extracts     []ExtractVariableDoc    `yaml:"extracts,omitempty" validate:"omitempty,dive"`
	Verifies     []VerificationDoc       `yaml:"verifications,omitempty" validate:"omitempty,dive"`
	Validations  []ResponseValidationDoc `yaml:"validations,omitempty" validate:"omitempty,dive"`
}

// SuiteDoc mirrors suite.TestSuite.
type SuiteDoc struct {
	ID                   string    `yaml:"id" validate:"required"`
	Name                 string    `yaml:"name" validate:"required"`
	DefaultEnvironmentID string    `yaml:"default_environment_id,omitempty"`
	Steps                []StepDoc `yaml:"steps" validate:"required,min=1,dive"`
}

// ScheduleDoc mirrors runrec.RunSchedule.
type ScheduleDoc struct {
	ID            string `yaml:"id" validate:"required"`
	SuiteID       string `yaml:"suite_id" validate:"required"`
	EnvironmentID string `yaml:"environment_id" validate:"required"`
	CronExpr      string `yaml:"cron" validate:"required"`
	Active        bool   `yaml:"active"`
	Description   string `yaml:"description,omitempty"`
	NextRunAt     string `yaml:"next_run_at,omitempty"`
	LastRunAt     string `yaml:"last_run_at,omitempty"`
}
