// Package suite defines the static data model of the orchestration engine:
// environments, suites, steps, and the child collections hung off a
// step (dependencies, response handlers, extracted variables,
// verifications, and response validations).
package suite

// ValueType controls how a Variable or DefaultHeader's value is produced
// at placeholder-resolution time.
type ValueType string

const (
	ValueStatic       ValueType = "STATIC"
	ValueUUID         ValueType = "UUID"
	ValueISOTimestamp ValueType = "ISO_TIMESTAMP"
	ValueVariable     ValueType = "VARIABLE" // DefaultHeader only
)

// Variable is a named, typed value in an Environment's namespace.
type Variable struct {
	Key       string
	Value     string
	ValueType ValueType
	Secret    bool
}

// DefaultHeader is applied to every request sent under an Environment
// unless the step disables it or overrides it.
type DefaultHeader struct {
	Key       string
	ValueType ValueType
	Value     string
}

// ConnectorType enumerates the backend kinds recognized by the connector
// gateway.
type ConnectorType string

const (
	ConnectorMySQL         ConnectorType = "MYSQL"
	ConnectorPostgres      ConnectorType = "POSTGRES"
	ConnectorOracle        ConnectorType = "ORACLE"
	ConnectorSQLServer     ConnectorType = "SQLSERVER"
	ConnectorRedis         ConnectorType = "REDIS"
	ConnectorElasticsearch ConnectorType = "ELASTICSEARCH"
	ConnectorKafka         ConnectorType = "KAFKA"
	ConnectorRabbitMQ      ConnectorType = "RABBITMQ"
	ConnectorMongoDB       ConnectorType = "MONGODB"
)

// Connector is an opaque configuration blob bound to a name within an
// Environment. The connector gateway resolves Type/Config into a driver
// invocation; the engine never inspects Config's keys itself.
type Connector struct {
	Name   string
	Type   ConnectorType
	Config map[string]string
}

// FileAsset is a named byte blob an Environment carries for FORM_DATA file
// fields (referenced from a step via `${FILE:key}`).
type FileAsset struct {
	FileKey     string
	Bytes       []byte
	ContentType string
	Filename    string
}

// Environment bundles the base URL, variables, default headers, connectors,
// and files a suite executes against.
type Environment struct {
	ID             string
	Name           string
	BaseURL        string
	Variables      []Variable
	DefaultHeaders []DefaultHeader
	Connectors     []Connector
	Files          []FileAsset
}

// Variable looks up a variable by key; ok is false when absent.
func (e *Environment) Variable(key string) (Variable, bool) {
	for _, v := range e.Variables {
		if v.Key == key {
			return v, true
		}
	}
	return Variable{}, false
}

// Connector looks up a connector by name; ok is false when absent.
func (e *Environment) Connector(name string) (Connector, bool) {
	for _, c := range e.Connectors {
		if c.Name == name {
			return c, true
		}
	}
	return Connector{}, false
}

// File looks up a file asset by key; ok is false when absent.
func (e *Environment) File(key string) (FileAsset, bool) {
	for _, f := range e.Files {
		if f.FileKey == key {
			return f, true
		}
	}
	return FileAsset{}, false
}

// BodyType enumerates the payload encodings a TestStep may send.
type BodyType string

const (
	BodyNone     BodyType = "NONE"
	BodyJSON     BodyType = "JSON"
	BodyFormData BodyType = "FORM_DATA"
)

// Header is a literal request header attached directly to a step
// (overrides an environment default header with the same key).
type Header struct {
	Key   string
	Value string
}

// QueryParam is a literal query-string parameter attached to a step.
type QueryParam struct {
	Key   string
	Value string
}

// FormField is one part of a multipart/form-data body.
type FormField struct {
	Name  string
	Value string
	Type  string // "text" (default) or "file"
}

// HandlerAction enumerates what a ResponseHandler does once its matchCode
// matches the observed HTTP status.
type HandlerAction string

const (
	ActionSuccess        HandlerAction = "SUCCESS"
	ActionError          HandlerAction = "ERROR"
	ActionRetry          HandlerAction = "RETRY"
	ActionFireSideEffect HandlerAction = "FIRE_SIDE_EFFECT"
)

// ResponseHandler maps a (possibly wildcarded) HTTP status code pattern to
// a control-flow action.
type ResponseHandler struct {
	MatchCode        string // exact "NNN" or wildcard "NXX"/"NNx"
	Action           HandlerAction
	SideEffectStepID string
	RetryCount       int
	RetryDelaySec    int
	Priority         int // lower wins
}

// VariableSource enumerates where an ExtractVariable pulls its value from.
type VariableSource string

const (
	SourceResponseBody   VariableSource = "RESPONSE_BODY"
	SourceResponseHeader VariableSource = "RESPONSE_HEADER"
	SourceStatusCode     VariableSource = "STATUS_CODE"
	SourceRequestBody    VariableSource = "REQUEST_BODY"
	SourceRequestHeader  VariableSource = "REQUEST_HEADER"
	SourceQueryParam     VariableSource = "QUERY_PARAM"
	SourceRequestURL     VariableSource = "REQUEST_URL"
)

// ExtractVariable pulls a value out of the request or response and
// publishes it under "<stepName>.<variableName>".
type ExtractVariable struct {
	VariableName string
	JSONPath     string // used when Source == SourceResponseBody
	Source       VariableSource
	// Key is the exact header/param name used for header/param/URL sources.
	Key string
}

// AssertOperator enumerates the comparison operators shared by Verification
// assertions and ResponseValidation checks.
type AssertOperator string

const (
	OpEquals     AssertOperator = "EQUALS"
	OpNotEquals  AssertOperator = "NOT_EQUALS"
	OpContains   AssertOperator = "CONTAINS"
	OpNotContain AssertOperator = "NOT_CONTAINS"
	OpRegex      AssertOperator = "REGEX"
	OpGT         AssertOperator = "GT"
	OpLT         AssertOperator = "LT"
	OpGTE        AssertOperator = "GTE"
	OpLTE        AssertOperator = "LTE"
	OpExists     AssertOperator = "EXISTS"
	OpNotExists  AssertOperator = "NOT_EXISTS"
)

// Assertion evaluates one JSON-path extraction from a verification query
// result against an expected value.
type Assertion struct {
	JSONPath      string
	Operator      AssertOperator
	ExpectedValue string
}

// Verification runs a query against a named connector and evaluates
// assertions over the JSON result.
type Verification struct {
	ConnectorName       string
	Query               string
	TimeoutSeconds      int
	QueryTimeoutSeconds int
	PreListen           bool
	Assertions          []Assertion
}

// ValidationType enumerates the four response-validation kinds.
type ValidationType string

const (
	ValidationHeader        ValidationType = "HEADER"
	ValidationBodyExact     ValidationType = "BODY_EXACT_MATCH"
	ValidationBodyField     ValidationType = "BODY_FIELD"
	ValidationBodyDataType  ValidationType = "BODY_DATA_TYPE"
)

// MatchMode controls how BODY_EXACT_MATCH compares actual vs expected.
type MatchMode string

const (
	MatchStrict    MatchMode = "STRICT"
	MatchFlexible  MatchMode = "FLEXIBLE"
	MatchStructure MatchMode = "STRUCTURE"
)

// ResponseValidation is one structural or value check run against a step's
// response.
type ResponseValidation struct {
	Type ValidationType

	// HEADER
	HeaderName string

	// BODY_FIELD / BODY_DATA_TYPE
	JSONPath string

	// HEADER / BODY_FIELD shared comparison
	Operator      AssertOperator
	ExpectedValue string

	// BODY_EXACT_MATCH
	MatchMode    MatchMode
	ExpectedBody string

	// BODY_DATA_TYPE
	ExpectedDataType string
}

// Dependency is a producer->consumer edge from a TestStep to a step it
// depends on.
type Dependency struct {
	DependsOnStepID  string
	UseCache         bool
	ReuseManualInput bool
}

// TestStep is one HTTP call definition plus its variable-extraction,
// validation, verification, and control-flow metadata.
type TestStep struct {
	ID      string
	SuiteID string
	Name    string

	Method               string
	URL                  string
	Headers              []Header
	QueryParams          []QueryParam
	BodyType             BodyType
	Body                 string
	FormFields           []FormField
	DisabledDefaultHdrs  []string

	Cacheable      bool
	CacheTTLSec    int
	DependencyOnly bool

	SortOrder int
	GroupName string

	Dependencies []Dependency
	Handlers     []ResponseHandler
	Extracts     []ExtractVariable
	Verifies     []Verification
	Validations  []ResponseValidation
}

// TestSuite is an ordered collection of steps sharing a dependency DAG.
type TestSuite struct {
	ID           string
	Name         string
	DefaultEnvID string
	Steps        []TestStep
}

// Step looks up a step by ID; ok is false when absent.
func (s *TestSuite) Step(id string) (*TestStep, bool) {
	for i := range s.Steps {
		if s.Steps[i].ID == id {
			return &s.Steps[i], true
		}
	}
	return nil, false
}
