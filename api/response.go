package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/xiaoyuanzhu-com/claudechat/claude"
	"github.com/xiaoyuanzhu-com/claudechat/featureconfig"
	"github.com/xiaoyuanzhu-com/claudechat/registry"
	"github.com/xiaoyuanzhu-com/claudechat/tasks"
	"github.com/xiaoyuanzhu-com/claudechat/transcript"
)

// Success bodies are {"data": ...}, list bodies may carry "pagination",
// and failures are {"error": {"code", "message", "details"}}.

// ErrorCode is the machine-readable part of an error body
type ErrorCode string

const (
	ErrCodeBadRequest     ErrorCode = "BAD_REQUEST"      // 400
	ErrCodeValidation     ErrorCode = "VALIDATION_ERROR" // 400, with field details
	ErrCodeNotFound       ErrorCode = "NOT_FOUND"        // 404 session, task, transcript or snapshot
	ErrCodeConflict       ErrorCode = "CONFLICT"         // 409
	ErrCodeInternal       ErrorCode = "INTERNAL_ERROR"   // 500
	ErrCodeBadGateway     ErrorCode = "BAD_GATEWAY"      // 502 claude exited badly or printed nothing
	ErrCodeGatewayTimeout ErrorCode = "GATEWAY_TIMEOUT"  // 504 claude did not answer in time
)

// ErrorDetail names one rejected field
type ErrorDetail struct {
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

func fieldError(field, message string) []ErrorDetail {
	return []ErrorDetail{{Field: field, Message: message}}
}

type errorBody struct {
	Code    ErrorCode     `json:"code"`
	Message string        `json:"message"`
	Details []ErrorDetail `json:"details,omitempty"`
}

// ErrorResponse is the body of every non-2xx answer
type ErrorResponse struct {
	Error errorBody `json:"error"`
}

// DataResponse wraps a single object
type DataResponse[T any] struct {
	Data T `json:"data"`
}

// ListResponse wraps a collection, paged when Pagination is set
type ListResponse[T any] struct {
	Data       []T         `json:"data"`
	Pagination *Pagination `json:"pagination,omitempty"`
}

// Pagination is offset paging metadata. A zero Limit means no limit.
type Pagination struct {
	HasMore bool `json:"hasMore"`
	Total   int  `json:"total"`
	Limit   int  `json:"limit"`
	Offset  int  `json:"offset"`
}

// paginate slices items to the requested window, clamping offset to the end.
func paginate[T any](items []T, limit, offset int) ([]T, *Pagination) {
	total := len(items)
	offset = min(offset, total)
	end := total
	if limit > 0 {
		end = min(offset+limit, total)
	}
	return items[offset:end], &Pagination{
		HasMore: end < total,
		Total:   total,
		Limit:   limit,
		Offset:  offset,
	}
}

func RespondData[T any](c *gin.Context, data T) {
	c.JSON(http.StatusOK, DataResponse[T]{Data: data})
}

// RespondCreated answers 201 and points Location at the new resource
func RespondCreated[T any](c *gin.Context, data T, location string) {
	if location != "" {
		c.Header("Location", location)
	}
	c.JSON(http.StatusCreated, DataResponse[T]{Data: data})
}

// RespondList never encodes a nil slice as null
func RespondList[T any](c *gin.Context, data []T, page *Pagination) {
	if data == nil {
		data = []T{}
	}
	c.JSON(http.StatusOK, ListResponse[T]{Data: data, Pagination: page})
}

func RespondNoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

func respondError(c *gin.Context, status int, code ErrorCode, message string, details []ErrorDetail) {
	c.JSON(status, ErrorResponse{Error: errorBody{Code: code, Message: message, Details: details}})
}

func RespondBadRequest(c *gin.Context, message string) {
	respondError(c, http.StatusBadRequest, ErrCodeBadRequest, message, nil)
}

func RespondValidationError(c *gin.Context, message string, details []ErrorDetail) {
	respondError(c, http.StatusBadRequest, ErrCodeValidation, message, details)
}

func RespondNotFound(c *gin.Context, message string) {
	respondError(c, http.StatusNotFound, ErrCodeNotFound, message, nil)
}

func RespondConflict(c *gin.Context, message string) {
	respondError(c, http.StatusConflict, ErrCodeConflict, message, nil)
}

func RespondInternalError(c *gin.Context, message string) {
	respondError(c, http.StatusInternalServerError, ErrCodeInternal, message, nil)
}

func RespondBadGateway(c *gin.Context, message string) {
	respondError(c, http.StatusBadGateway, ErrCodeBadGateway, message, nil)
}

func RespondGatewayTimeout(c *gin.Context, message string) {
	respondError(c, http.StatusGatewayTimeout, ErrCodeGatewayTimeout, message, nil)
}

// respondErr maps domain errors to a status. Anything unrecognised is
// logged and reported as action without leaking the cause.
func respondErr(c *gin.Context, err error, action string) {
	switch {
	case errors.Is(err, registry.ErrSessionNotFound),
		errors.Is(err, transcript.ErrNotFound),
		errors.Is(err, tasks.ErrTaskNotFound),
		errors.Is(err, featureconfig.ErrSnapshotNotFound):
		RespondNotFound(c, err.Error())
	case errors.Is(err, registry.ErrInvalidRole),
		errors.Is(err, registry.ErrEmptyTitle),
		errors.Is(err, transcript.ErrInvalidSessionID):
		RespondBadRequest(c, err.Error())
	case errors.Is(err, tasks.ErrInvalidTask):
		RespondValidationError(c, err.Error(), nil)
	case errors.Is(err, claude.ErrTimeout):
		RespondGatewayTimeout(c, err.Error())
	case isToolFailure(err):
		RespondBadGateway(c, err.Error())
	default:
		apiLogger.Error().Err(err).Str("path", c.FullPath()).Msg(action)
		RespondInternalError(c, action)
	}
}

func isToolFailure(err error) bool {
	var toolErr *claude.ToolError
	return errors.As(err, &toolErr) ||
		errors.Is(err, claude.ErrEmptyOutput) ||
		errors.Is(err, claude.ErrCLINotFound)
}
