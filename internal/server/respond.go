package server

import (
	"encoding/json"
	"net/http"
	"strconv"

	"go.uber.org/zap"
)

// Error codes carried in the response envelope.
const (
	codeInvalidRequest = "invalid_request"
	codeUnauthorized   = "unauthorized"
	codeMisconfigured  = "misconfigured"
	codeInternal       = "internal_error"
)

type envelope struct {
	OK    bool      `json:"ok"`
	Data  any       `json:"data"`
	Error *apiError `json:"error"`
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("server: encode response", zap.Error(err))
	}
}

func writeOK(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusOK, envelope{OK: true, Data: data})
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, envelope{Error: &apiError{Code: code, Message: message}})
}

// writeRejected reports a call the service refused with a 200 status and
// ok false in the envelope.
func writeRejected(w http.ResponseWriter, code, message string) {
	writeJSON(w, http.StatusOK, envelope{Error: &apiError{Code: code, Message: message}})
}

// internalError logs err and answers 500 without leaking details.
func internalError(w http.ResponseWriter, r *http.Request, err error) {
	zap.L().Error("server: request failed",
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.Error(err),
	)
	writeError(w, http.StatusInternalServerError, codeInternal, "Internal server error.")
}

// queryInt reads a non-negative integer query parameter. ok is false after an
// error response has been written.
func queryInt(w http.ResponseWriter, r *http.Request, name string, def int) (int, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		writeError(w, http.StatusBadRequest, codeInvalidRequest, name+" must be a non-negative integer.")
		return 0, false
	}
	return n, true
}

// formBool accepts the usual spellings of a boolean form field. Empty is false.
func formBool(raw string) (bool, error) {
	switch raw {
	case "", "0", "false", "False", "FALSE", "no", "off", "n", "f":
		return false, nil
	case "1", "true", "True", "TRUE", "yes", "on", "y", "t":
		return true, nil
	}
	return strconv.ParseBool(raw)
}
