package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"go.uber.org/zap"

	"bulksender/internal/repository"
	"bulksender/internal/service"
)

// ErrorResponse represents the standard error response structure
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains the error code and message
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// WriteJSON writes a JSON response with the given status code
// It sets the Content-Type header, writes the status code, and encodes the data to JSON
func WriteJSON(w http.ResponseWriter, status int, data interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if data == nil {
		return nil
	}

	if err := json.NewEncoder(w).Encode(data); err != nil {
		zap.L().Error("failed to encode JSON response", zap.Error(err))
		return err
	}

	return nil
}

// WriteError writes a structured JSON error response
// It creates an ErrorResponse with the given code and message
func WriteError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	errResp := ErrorResponse{
		Error: ErrorDetail{
			Code:    code,
			Message: message,
		},
	}

	if err := json.NewEncoder(w).Encode(errResp); err != nil {
		zap.L().Error("failed to write error response", zap.Error(err))
	}
}

// WriteOK writes a 200 OK response with the given data
func WriteOK(w http.ResponseWriter, data interface{}) error {
	return WriteJSON(w, http.StatusOK, data)
}

// WriteNoContent writes a 204 No Content response
func WriteNoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

// WriteValidationError writes a 400 Bad Request response with VALIDATION_ERROR code
func WriteValidationError(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusBadRequest, "VALIDATION_ERROR", message)
}

// WriteNotFoundError writes a 404 Not Found response with RESOURCE_NOT_FOUND code
func WriteNotFoundError(w http.ResponseWriter, resource string, id string) {
	message := fmt.Sprintf("%s %s not found", resource, id)
	WriteError(w, http.StatusNotFound, "RESOURCE_NOT_FOUND", message)
}

// WriteInternalError writes a 500 Internal Server Error response with INTERNAL_ERROR code
// It logs the error but doesn't expose internal details to the client
func WriteInternalError(w http.ResponseWriter) {
	WriteError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An internal error occurred")
}

// WriteBusinessLogicError writes a 400 Bad Request response with BUSINESS_LOGIC_ERROR code
func WriteBusinessLogicError(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusBadRequest, "BUSINESS_LOGIC_ERROR", message)
}

// WriteConflictError writes a 409 Conflict response with CONFLICT code
func WriteConflictError(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusConflict, "CONFLICT", message)
}

// WriteUnavailableError writes a 503 Service Unavailable response with SERVICE_UNAVAILABLE code
func WriteUnavailableError(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", message)
}

// HandleServiceError maps service layer errors to appropriate HTTP responses
func HandleServiceError(w http.ResponseWriter, err error) {
	var (
		notFound    *service.NotFoundError
		validation  *service.ValidationError
		business    *service.BusinessLogicError
		conflict    *service.ConflictError
		unavailable *service.UnavailableError
	)

	switch {
	case errors.As(err, &notFound):
		WriteNotFoundError(w, notFound.Resource, notFound.ID)
	case errors.As(err, &validation):
		WriteValidationError(w, validation.Message)
	case errors.As(err, &business):
		WriteBusinessLogicError(w, business.Message)
	case errors.As(err, &conflict):
		WriteConflictError(w, conflict.Message)
	case errors.As(err, &unavailable):
		WriteUnavailableError(w, unavailable.Error())
	case errors.Is(err, repository.ErrTableNotFound):
		WriteError(w, http.StatusNotFound, "RESOURCE_NOT_FOUND", err.Error())
	default:
		zap.L().Error("unhandled service error", zap.Error(err))
		WriteInternalError(w)
	}
}

// decodeJSON reads the request body into v, writing the error response on failure
func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			WriteError(w, http.StatusBadRequest, "INVALID_JSON", "Request body is empty")
			return false
		}
		WriteError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid JSON format")
		return false
	}
	return true
}
