package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"city-weather/datasource"
)

// APIResponse is the envelope of every successful JSON answer
type APIResponse struct {
	Data any `json:"data"`
}

// APIErrorResponse is the envelope of every failed JSON answer
type APIErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail is the client-facing part of an error
type ErrorDetail struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

// JSON writes data inside the success envelope
func JSON(w http.ResponseWriter, r *http.Request, status int, data any) {
	body, err := json.Marshal(APIResponse{Data: data})
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, string(datasource.ErrCodeInternal), "failed to marshal response")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

// Error writes err inside the error envelope. Only QueryError messages reach
// the client; anything else becomes a generic 500.
func Error(w http.ResponseWriter, r *http.Request, err error) {
	var qe *datasource.QueryError
	if errors.As(err, &qe) {
		writeError(w, r, qe.Code.HTTPStatus(), string(qe.Code), qe.Message)
		return
	}
	writeError(w, r, http.StatusInternalServerError, string(datasource.ErrCodeInternal), "an unexpected error occurred")
}

func writeError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(APIErrorResponse{
		Error: ErrorDetail{
			Code:      code,
			Message:   message,
			RequestID: RequestIDFromContext(r.Context()),
		},
	})
}
