package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/retail-banking-ledger/internal/api_gateway/middleware"
	"github.com/retail-banking-ledger/internal/domain/shared"
)

// Response represents a standard API response
type Response struct {
	Success       bool        `json:"success"`
	Data          interface{} `json:"data,omitempty"`
	Error         *ErrorInfo  `json:"error,omitempty"`
	CorrelationID string      `json:"correlation_id,omitempty"`
	Meta          *MetaInfo   `json:"meta,omitempty"`
}

// ErrorInfo represents error information in a response
type ErrorInfo struct {
	Code                   string `json:"code"`
	Message                string `json:"message"`
	Retryable              bool   `json:"retryable"`
	Reference              string `json:"reference,omitempty"`
	Compensated            bool   `json:"compensated,omitempty"`
	ReconciliationRequired bool   `json:"reconciliation_required,omitempty"`
}

// MetaInfo represents metadata in a response
type MetaInfo struct {
	Page       int `json:"page,omitempty"`
	PerPage    int `json:"per_page,omitempty"`
	TotalPages int `json:"total_pages,omitempty"`
	TotalItems int `json:"total_items,omitempty"`
}

// NewResponse creates a new response with data
func NewResponse(data interface{}) *Response {
	return &Response{
		Success: true,
		Data:    data,
	}
}

// NewErrorResponse creates a new error response
func NewErrorResponse(code, message string) *Response {
	return &Response{
		Error: &ErrorInfo{
			Code:    code,
			Message: message,
		},
	}
}

// NewPaginatedResponse creates a new paginated response
func NewPaginatedResponse(data interface{}, page, perPage, totalItems int) *Response {
	totalPages := totalItems / perPage
	if totalItems%perPage > 0 {
		totalPages++
	}

	return &Response{
		Success: true,
		Data:    data,
		Meta: &MetaInfo{
			Page:       page,
			PerPage:    perPage,
			TotalPages: totalPages,
			TotalItems: totalItems,
		},
	}
}

// RespondWithData sends a JSON response with data
func RespondWithData(c *gin.Context, statusCode int, data interface{}) {
	response := NewResponse(data)
	response.CorrelationID = middleware.GetCorrelationID(c)
	c.JSON(statusCode, response)
}

// RespondWithError sends a JSON response with an error
func RespondWithError(c *gin.Context, statusCode int, code, message string) {
	response := NewErrorResponse(code, message)
	response.CorrelationID = middleware.GetCorrelationID(c)
	c.JSON(statusCode, response)
}

// RespondWithPaginatedData sends a JSON response with paginated data
func RespondWithPaginatedData(c *gin.Context, statusCode int, data interface{}, page, perPage, totalItems int) {
	response := NewPaginatedResponse(data, page, perPage, totalItems)
	response.CorrelationID = middleware.GetCorrelationID(c)
	c.JSON(statusCode, response)
}

// RespondOK sends a 200 OK response with data
func RespondOK(c *gin.Context, data interface{}) {
	RespondWithData(c, http.StatusOK, data)
}

// RespondCreated sends a 201 Created response with data
func RespondCreated(c *gin.Context, data interface{}) {
	RespondWithData(c, http.StatusCreated, data)
}

// RespondAccepted sends a 202 Accepted response with data.
func RespondAccepted(c *gin.Context, data interface{}) {
	RespondWithData(c, http.StatusAccepted, data)
}

// RespondBadRequest sends a 400 Bad Request response with an error
func RespondBadRequest(c *gin.Context, message string) {
	RespondWithError(c, http.StatusBadRequest, "BAD_REQUEST", message)
}

// RespondNotFound sends a 404 Not Found response with an error
func RespondNotFound(c *gin.Context, message string) {
	if message == "" {
		message = "Resource not found"
	}
	RespondWithError(c, http.StatusNotFound, "NOT_FOUND", message)
}

// RespondInternalError sends a 500 Internal Server Error response with an error
func RespondInternalError(c *gin.Context) {
	RespondWithError(c, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "An internal server error occurred")
}

// RespondOperationError maps a service failure to its HTTP status and error body.
func RespondOperationError(c *gin.Context, err error) {
	if errors.Is(err, context.DeadlineExceeded) {
		RespondWithError(c, http.StatusGatewayTimeout, "TIMEOUT",
			"The operation did not finish in time; check the transaction log before retrying")
		return
	}

	opErr, ok := shared.AsOperationError(err)
	if !ok {
		RespondInternalError(c)
		return
	}

	response := &Response{
		Error: &ErrorInfo{
			Code:                   string(opErr.Kind),
			Message:                opErr.Reason,
			Retryable:              opErr.Retryable,
			Reference:              opErr.Reference,
			Compensated:            opErr.Compensated,
			ReconciliationRequired: opErr.ReconciliationRequired,
		},
		CorrelationID: middleware.GetCorrelationID(c),
	}
	c.JSON(statusForKind(opErr), response)
}

func statusForKind(opErr *shared.OperationError) int {
	switch opErr.Kind {
	case shared.ErrorKindInvalidInput:
		return http.StatusBadRequest
	case shared.ErrorKindInsufficientFunds, shared.ErrorKindDestinationNotFound:
		return http.StatusUnprocessableEntity
	case shared.ErrorKindNotFound:
		return http.StatusNotFound
	case shared.ErrorKindConflict:
		return http.StatusConflict
	case shared.ErrorKindPersistenceFailure:
		if opErr.ReconciliationRequired {
			return http.StatusInternalServerError
		}
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
