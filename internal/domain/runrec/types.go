// Package runrec holds the records produced by one suite execution: the
// per-step result, the aggregate suite result, the run's lifecycle record,
// and the cron schedule that replays a suite. None of these are persisted
// by this module; the shapes here are what a persistence layer would
// serialize.
package runrec

import "time"

// StepStatus enumerates the terminal (and in-flight) states of a single
// step execution. RUNNING is a sentinel used only while a step is
// in-flight; it is never a final SuiteExecutionResult status.
type StepStatus string

const (
	StepRunning            StepStatus = "RUNNING"
	StepSuccess            StepStatus = "SUCCESS"
	StepRetried            StepStatus = "RETRIED"
	StepSkipped            StepStatus = "SKIPPED"
	StepError              StepStatus = "ERROR"
	StepVerificationFailed StepStatus = "VERIFICATION_FAILED"
)

// Succeeded reports whether a step status counts as a successful parent
// for dependency-gating purposes.
func (s StepStatus) Succeeded() bool {
	return s == StepSuccess || s == StepRetried
}

// VerificationStatus enumerates the outcome of one Verification's
// assertion run.
type VerificationStatus string

const (
	VerificationPassed  VerificationStatus = "PASSED"
	VerificationFailed  VerificationStatus = "FAILED"
	VerificationError   VerificationStatus = "ERROR"
	VerificationTimeout VerificationStatus = "TIMEOUT"
)

// VerificationResult is the outcome of one Verification block.
type VerificationResult struct {
	ConnectorName string             `json:"connector_name"`
	Query         string             `json:"query"`
	Status        VerificationStatus `json:"status"`
	Message       string             `json:"message,omitempty"`
	RawResult     string             `json:"raw_result,omitempty"`
}

// ValidationResult is the outcome of one ResponseValidation check.
type ValidationResult struct {
	Type    string `json:"type"`
	Passed  bool   `json:"passed"`
	Message string `json:"message,omitempty"`
}

// StepExecutionResult is the outcome of running one step's pipeline:
// dependency gate, request assembly, dispatch+retry, extraction,
// validation, and verification.
type StepExecutionResult struct {
	StepID       string            `json:"step_id"`
	StepName     string            `json:"step_name"`
	Status       StepStatus        `json:"status"`
	ResponseCode int               `json:"response_code"`
	ResponseBody string            `json:"response_body,omitempty"`
	ResponseHdrs map[string]string `json:"response_headers,omitempty"`

	Duration  time.Duration `json:"duration_ms"`
	Timestamp time.Time     `json:"timestamp"`

	ErrorMessage string `json:"error_message,omitempty"`
	FromCache    bool   `json:"from_cache"`

	ExtractedVariables  map[string]string    `json:"extracted_variables,omitempty"`
	VerificationResults []VerificationResult `json:"verification_results,omitempty"`
	ValidationResults   []ValidationResult   `json:"validation_results,omitempty"`
	Warnings            []string             `json:"warnings,omitempty"`

	RequestURL     string            `json:"request_url,omitempty"`
	RequestBody    string            `json:"request_body,omitempty"`
	RequestHeaders map[string]string `json:"request_headers,omitempty"`
	RequestQuery   map[string]string `json:"request_query,omitempty"`

	Attempts int `json:"attempts"`
}

// RunStatus enumerates the lifecycle states of a TestRun.
type RunStatus string

const (
	RunRunning        RunStatus = "RUNNING"
	RunSuccess        RunStatus = "SUCCESS"
	RunPartialFailure RunStatus = "PARTIAL_FAILURE"
	RunFailure        RunStatus = "FAILURE"
	RunCancelled      RunStatus = "CANCELLED"
)

// TriggerType enumerates how a TestRun was started.
type TriggerType string

const (
	TriggerManual    TriggerType = "MANUAL"
	TriggerScheduled TriggerType = "SCHEDULED"
)

// SuiteExecutionResult is the aggregate outcome of a suite run, holding one
// StepExecutionResult per top-level step in execution order.
type SuiteExecutionResult struct {
	RunID            string                `json:"run_id"`
	SuiteID          string                `json:"suite_id"`
	EnvironmentID    string                `json:"environment_id,omitempty"`
	Status           RunStatus             `json:"status"`
	StartedAt        time.Time             `json:"started_at"`
	CompletedAt      time.Time             `json:"completed_at"`
	TotalDuration    time.Duration         `json:"total_duration_ms"`
	Steps            []StepExecutionResult `json:"steps"`
	RefreshedStepIDs []string              `json:"refreshed_step_ids,omitempty"`
}

// ComputeStatus derives the overall run status from per-step results per
// the run status law: SUCCESS iff every step is SUCCESS, RETRIED, or
// a SKIPPED step whose skip was not itself caused by a failed parent chain
// reaching back to a real failure; FAILURE iff no step succeeded; else
// PARTIAL_FAILURE. The simpler equivalent actually verified here is: a run
// is SUCCESS when no step is ERROR/VERIFICATION_FAILED; FAILURE when no
// step is SUCCESS/RETRIED; otherwise PARTIAL_FAILURE.
func ComputeStatus(steps []StepExecutionResult) RunStatus {
	anySucceeded := false
	anyFailed := false

	for _, s := range steps {
		switch s.Status {
		case StepSuccess, StepRetried:
			anySucceeded = true
		case StepError, StepVerificationFailed:
			anyFailed = true
		}
	}

	switch {
	case !anyFailed:
		return RunSuccess
	case !anySucceeded:
		return RunFailure
	default:
		return RunPartialFailure
	}
}

// TestRun is the lifecycle record of one suite execution.
type TestRun struct {
	ID            string                `json:"id"`
	SuiteID       string                `json:"suite_id"`
	EnvironmentID string                `json:"environment_id"`
	TriggerType   TriggerType           `json:"trigger_type"`
	ScheduleID    string                `json:"schedule_id,omitempty"`
	Status        RunStatus             `json:"status"`
	StartedAt     time.Time             `json:"started_at"`
	CompletedAt   time.Time             `json:"completed_at"`
	TotalDuration time.Duration         `json:"total_duration_ms"`
	Result        *SuiteExecutionResult `json:"result,omitempty"`
}

// RunSchedule is a cron-triggered (suite, environment) replay spec.
type RunSchedule struct {
	ID            string    `json:"id"`
	SuiteID       string    `json:"suite_id"`
	EnvironmentID string    `json:"environment_id"`
	CronExpr      string    `json:"cron_expr"`
	Active        bool      `json:"active"`
	Description   string    `json:"description,omitempty"`
	NextRunAt     time.Time `json:"next_run_at,omitempty"`
	LastRunAt     time.Time `json:"last_run_at,omitempty"`
}
