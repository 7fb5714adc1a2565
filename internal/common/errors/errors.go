// Package errors provides standardized error handling for BPMN workflow integration.
package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	// hosted model transport
	ErrCodeLLMUnavailable    ErrorCode = "LLM_UNAVAILABLE"
	ErrCodeLLMTimeout        ErrorCode = "LLM_TIMEOUT"
	ErrCodeLLMRateLimited    ErrorCode = "LLM_RATE_LIMITED"
	ErrCodeLLMAuthFailed     ErrorCode = "LLM_AUTH_FAILED"
	ErrCodeLLMInvalidRequest ErrorCode = "LLM_INVALID_REQUEST"

	ErrCodeAnalysisServiceFailed ErrorCode = "ANALYSIS_SERVICE_FAILED"
	ErrCodeAnalysisParseFailed   ErrorCode = "ANALYSIS_PARSE_FAILED"
	ErrCodeAnalysisSchemaInvalid ErrorCode = "ANALYSIS_SCHEMA_INVALID"

	ErrCodeChartRenderFailed  ErrorCode = "CHART_RENDER_FAILED"
	ErrCodeCapabilityMissing  ErrorCode = "CAPABILITY_MISSING"
	ErrCodeEmptyConversation  ErrorCode = "EMPTY_CONVERSATION"
	ErrCodeReportRenderFailed ErrorCode = "REPORT_RENDER_FAILED"
	ErrCodeReportStoreFailed  ErrorCode = "REPORT_STORE_FAILED"
	ErrCodeReportNotFound     ErrorCode = "REPORT_NOT_FOUND"
	ErrCodeDeliveryFailed     ErrorCode = "DELIVERY_FAILED"

	ErrCodeDatabaseConnectionFailed      ErrorCode = "DATABASE_CONNECTION_FAILED"
	ErrCodeQueryExecutionFailed          ErrorCode = "QUERY_EXECUTION_FAILED"
	ErrCodeElasticsearchConnectionFailed ErrorCode = "ELASTICSEARCH_CONNECTION_FAILED"
	ErrCodeSearchQueryFailed             ErrorCode = "SEARCH_QUERY_FAILED"

	ErrCodeWorkflowEngineUnavailable ErrorCode = "WORKFLOW_ENGINE_UNAVAILABLE"
	ErrCodeWorkflowCommandRejected   ErrorCode = "WORKFLOW_COMMAND_REJECTED"

	ErrCodeInvalidInput  ErrorCode = "INVALID_INPUT"
	ErrCodeInternalError ErrorCode = "INTERNAL_ERROR"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`

	cause error
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

func (e *StandardError) Unwrap() error {
	return e.cause
}

// WithMetadata returns the error with key set in its metadata.
func (e *StandardError) WithMetadata(key string, value interface{}) *StandardError {
	if e.Metadata == nil {
		e.Metadata = make(map[string]interface{})
	}
	e.Metadata[key] = value
	return e
}

// ==========================
// 2. BPMN Error Integration
// ==========================

// BPMNError represents an error that can be thrown to the Camunda workflow engine.
type BPMNError struct {
	Code           string                 `json:"code"`
	Message        string                 `json:"message"`
	Details        string                 `json:"details,omitempty"`
	Retryable      bool                   `json:"retryable"`
	Retries        int                    `json:"retries"`
	ErrorVariables map[string]interface{} `json:"errorVariables,omitempty"`
}

func (e *BPMNError) Error() string {
	return fmt.Sprintf("BPMNError[%s]: %s", e.Code, e.Message)
}

// ToErrorVariables returns a map suitable for setting Camunda job fail variables.
func (e *BPMNError) ToErrorVariables() map[string]interface{} {
	vars := map[string]interface{}{
		"errorCode":    e.Code,
		"errorMessage": e.Message,
		"errorDetails": e.Details,
		"retryable":    e.Retryable,
	}

	for k, v := range e.ErrorVariables {
		vars[k] = v
	}

	return vars
}

// ==========================
// 3. Error Constructors
// ==========================

func newError(code ErrorCode, message string, cause error, retryable bool) *StandardError {
	details := ""
	if cause != nil {
		details = cause.Error()
	}
	return &StandardError{
		Code:      code,
		Message:   message,
		Details:   details,
		Retryable: retryable,
		Timestamp: time.Now().UTC(),
		cause:     cause,
	}
}

// NewLLMUnavailableError creates a retryable error for an unreachable or failing model API.
func NewLLMUnavailableError(err error) *StandardError {
	return newError(ErrCodeLLMUnavailable, "Language model service unavailable", err, true)
}

// NewLLMTimeoutError creates a retryable LLM timeout error.
func NewLLMTimeoutError(err error) *StandardError {
	return newError(ErrCodeLLMTimeout, "Language model request timed out", err, true)
}

// NewLLMRateLimitedError creates a retryable rate limit error.
func NewLLMRateLimitedError(err error) *StandardError {
	return newError(ErrCodeLLMRateLimited, "Rate limit exceeded. Please try again later.", err, true)
}

// NewLLMAuthFailedError creates a non-retryable credential error.
func NewLLMAuthFailedError(err error) *StandardError {
	return newError(ErrCodeLLMAuthFailed, "Invalid API key", err, false)
}

// NewLLMInvalidRequestError creates a non-retryable request error.
func NewLLMInvalidRequestError(err error) *StandardError {
	return newError(ErrCodeLLMInvalidRequest, "Invalid request to language model", err, false)
}

func NewAnalysisServiceFailedError(err error) *StandardError {
	return newError(ErrCodeAnalysisServiceFailed, "Analysis service request failed", err, true)
}

// NewAnalysisParseFailedError carries a truncated copy of the raw reply in Metadata["rawResponse"].
func NewAnalysisParseFailedError(raw string, err error) *StandardError {
	return newError(ErrCodeAnalysisParseFailed, "Failed to parse analysis response", err, false).
		WithMetadata("rawResponse", Truncate(raw, 500))
}

func NewAnalysisSchemaInvalidError(details string) *StandardError {
	e := newError(ErrCodeAnalysisSchemaInvalid, "Analysis does not match the report schema", nil, false)
	e.Details = details
	return e
}

func NewChartRenderFailedError(chartType string, err error) *StandardError {
	return newError(ErrCodeChartRenderFailed, "Chart visualization could not be generated", err, false).
		WithMetadata("chartType", chartType)
}

func NewCapabilityMissingError(capability string) *StandardError {
	e := newError(ErrCodeCapabilityMissing, "Required rendering capability is not configured", nil, false)
	e.Details = fmt.Sprintf("capability: %s", capability)
	return e
}

func NewEmptyConversationError() *StandardError {
	e := newError(ErrCodeEmptyConversation, "No conversation history provided", nil, false)
	return e
}

func NewReportRenderFailedError(err error) *StandardError {
	return newError(ErrCodeReportRenderFailed, "Report rendering failed", err, false)
}

func NewReportStoreFailedError(target string, err error) *StandardError {
	return newError(ErrCodeReportStoreFailed, fmt.Sprintf("Failed to store report in %s", target), err, true).
		WithMetadata("target", target)
}

func NewReportNotFoundError(reportID string) *StandardError {
	e := newError(ErrCodeReportNotFound, "Report not found", nil, false)
	e.Details = fmt.Sprintf("reportId: %s", reportID)
	return e
}

// NewDeliveryFailedError creates a retryable delivery error.
func NewDeliveryFailedError(channel string, err error) *StandardError {
	e := newError(ErrCodeDeliveryFailed, "Report delivery failed", err, true)
	e.Details = fmt.Sprintf("channel: %s, error: %v", channel, err)
	return e
}

// NewDatabaseConnectionFailedError creates a retryable database connection error.
func NewDatabaseConnectionFailedError(err error) *StandardError {
	return newError(ErrCodeDatabaseConnectionFailed, "Database connection error", err, true)
}

// NewQueryExecutionFailedError creates a retryable query execution error.
func NewQueryExecutionFailedError(queryType string, err error) *StandardError {
	e := newError(ErrCodeQueryExecutionFailed, "Database query execution error", err, true)
	e.Details = fmt.Sprintf("queryType: %s, error: %v", queryType, err)
	return e
}

// NewElasticsearchConnectionFailedError creates a retryable Elasticsearch connection error.
func NewElasticsearchConnectionFailedError(err error) *StandardError {
	return newError(ErrCodeElasticsearchConnectionFailed, "Elasticsearch connection error", err, true)
}

// NewSearchQueryFailedError creates a retryable search query error.
func NewSearchQueryFailedError(index string, err error) *StandardError {
	e := newError(ErrCodeSearchQueryFailed, "Elasticsearch query error", err, true)
	e.Details = fmt.Sprintf("index: %s, error: %v", index, err)
	return e
}

// NewWorkflowEngineUnavailableError covers broker connection failures and timeouts.
func NewWorkflowEngineUnavailableError(err error) *StandardError {
	return newError(ErrCodeWorkflowEngineUnavailable, "Workflow engine unavailable", err, true)
}

func NewWorkflowCommandRejectedError(err error) *StandardError {
	return newError(ErrCodeWorkflowCommandRejected, "Workflow engine rejected the command", err, false)
}

func NewInvalidInputError(details string) *StandardError {
	e := newError(ErrCodeInvalidInput, "Invalid input", nil, false)
	e.Details = details
	return e
}

// ==========================
// 4. Error Conversion to BPMN
// ==========================

// BPMNErrorMapping maps internal error codes to BPMN error codes.
var BPMNErrorMapping = map[ErrorCode]string{
	ErrCodeLLMUnavailable:                "LLM_UNAVAILABLE",
	ErrCodeLLMTimeout:                    "LLM_TIMEOUT",
	ErrCodeLLMRateLimited:                "LLM_RATE_LIMITED",
	ErrCodeLLMAuthFailed:                 "LLM_AUTH_FAILED",
	ErrCodeLLMInvalidRequest:             "LLM_INVALID_REQUEST",
	ErrCodeAnalysisServiceFailed:         "ANALYSIS_SERVICE_FAILED",
	ErrCodeAnalysisParseFailed:           "ANALYSIS_PARSE_FAILED",
	ErrCodeAnalysisSchemaInvalid:         "ANALYSIS_SCHEMA_INVALID",
	ErrCodeChartRenderFailed:             "CHART_RENDER_FAILED",
	ErrCodeCapabilityMissing:             "CAPABILITY_MISSING",
	ErrCodeEmptyConversation:             "EMPTY_CONVERSATION",
	ErrCodeReportRenderFailed:            "REPORT_RENDER_FAILED",
	ErrCodeReportStoreFailed:             "REPORT_STORE_FAILED",
	ErrCodeReportNotFound:                "REPORT_NOT_FOUND",
	ErrCodeDeliveryFailed:                "DELIVERY_FAILED",
	ErrCodeDatabaseConnectionFailed:      "DATABASE_CONNECTION_FAILED",
	ErrCodeQueryExecutionFailed:          "QUERY_EXECUTION_FAILED",
	ErrCodeElasticsearchConnectionFailed: "ELASTICSEARCH_CONNECTION_FAILED",
	ErrCodeSearchQueryFailed:             "SEARCH_QUERY_FAILED",
	ErrCodeWorkflowEngineUnavailable:     "WORKFLOW_ENGINE_UNAVAILABLE",
	ErrCodeWorkflowCommandRejected:       "WORKFLOW_COMMAND_REJECTED",
	ErrCodeInvalidInput:                  "INVALID_INPUT",
}

// GetRetryCount returns the recommended retry count for a code.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeLLMUnavailable,
		ErrCodeAnalysisServiceFailed,
		ErrCodeReportStoreFailed,
		ErrCodeDeliveryFailed,
		ErrCodeDatabaseConnectionFailed,
		ErrCodeQueryExecutionFailed,
		ErrCodeElasticsearchConnectionFailed,
		ErrCodeSearchQueryFailed,
		ErrCodeWorkflowEngineUnavailable:
		return 3

	case ErrCodeLLMRateLimited:
		return 2

	case ErrCodeLLMTimeout:
		return 1

	default:
		return 0
	}
}

// ConvertToBPMNError converts a StandardError to a BPMNError for Camunda.
func ConvertToBPMNError(stdErr *StandardError) *BPMNError {
	bpmnCode, exists := BPMNErrorMapping[stdErr.Code]
	if !exists {
		bpmnCode = string(stdErr.Code)
	}

	retries := GetRetryCount(stdErr.Code)
	if !stdErr.Retryable {
		retries = 0
	}

	vars := map[string]interface{}{
		"originalErrorCode": string(stdErr.Code),
		"timestamp":         stdErr.Timestamp.Format(time.RFC3339),
	}
	for k, v := range stdErr.Metadata {
		vars[k] = v
	}

	return &BPMNError{
		Code:           bpmnCode,
		Message:        stdErr.Message,
		Details:        stdErr.Details,
		Retryable:      stdErr.Retryable,
		Retries:        retries,
		ErrorVariables: vars,
	}
}

// ==========================
// 5. Utility Functions
// ==========================

// AsStandard extracts a StandardError from an error chain.
func AsStandard(err error) (*StandardError, bool) {
	var stdErr *StandardError
	if stderrors.As(err, &stdErr) {
		return stdErr, true
	}
	return nil, false
}

// CodeOf returns the error code of err, or INTERNAL_ERROR for foreign errors.
func CodeOf(err error) ErrorCode {
	if stdErr, ok := AsStandard(err); ok {
		return stdErr.Code
	}
	return ErrCodeInternalError
}

// IsRetryableErrorCode checks if an error code is retryable.
func IsRetryableErrorCode(code ErrorCode) bool {
	return GetRetryCount(code) > 0
}

// GetErrorCategory returns the category of the error code.
func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.HasPrefix(codeStr, "LLM"):
		return "AI"
	case strings.HasPrefix(codeStr, "ANALYSIS") || codeStr == string(ErrCodeEmptyConversation):
		return "ANALYSIS"
	case strings.HasPrefix(codeStr, "REPORT") || strings.HasPrefix(codeStr, "CHART") || strings.HasPrefix(codeStr, "CAPABILITY"):
		return "REPORT"
	case strings.Contains(codeStr, "DATABASE") || strings.Contains(codeStr, "QUERY_EXECUTION"):
		return "DATABASE"
	case strings.Contains(codeStr, "ELASTICSEARCH") || strings.Contains(codeStr, "SEARCH"):
		return "SEARCH"
	case strings.HasPrefix(codeStr, "WORKFLOW"):
		return "WORKFLOW"
	case strings.Contains(codeStr, "DELIVERY"):
		return "NOTIFICATION"
	case strings.Contains(codeStr, "INVALID"):
		return "VALIDATION"
	default:
		return "OTHER"
	}
}

// Truncate cuts s to at most n runes.
func Truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
