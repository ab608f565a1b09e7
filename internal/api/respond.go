package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"reportrag/internal/models"
)

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, code int, err error) {
	apiErr := toAPIError(code, err)
	writeJSON(w, code, map[string]any{
		"error": map[string]any{
			"code":    apiErr.Code,
			"message": apiErr.Message,
		},
	})
}

type apiError struct {
	Code    string
	Message string
}

func toAPIError(status int, err error) apiError {
	msg := "Request failed."
	code := "RR-API-4000"

	switch {
	case status == http.StatusServiceUnavailable:
		return apiError{Code: "RR-API-5030", Message: "Feature unavailable: " + errMessage(err) + "."}
	case status >= 500:
		raw := strings.ToLower(errMessage(err))
		switch {
		case strings.Contains(raw, "relation") && strings.Contains(raw, "does not exist"):
			return apiError{Code: "RR-DB-5001", Message: "Database schema is not initialized. Run migrations and retry."}
		case strings.Contains(raw, "connect"), strings.Contains(raw, "dial tcp"), strings.Contains(raw, "connection refused"):
			return apiError{Code: "RR-DB-5002", Message: "Database connection is unavailable. Check local services and retry."}
		default:
			return apiError{Code: "RR-API-5000", Message: "Internal server error. Please retry or check service logs."}
		}
	case status == http.StatusBadRequest:
		code = "RR-API-4001"
		msg = "Invalid request. Check inputs and retry."
	case status == http.StatusNotFound:
		code = "RR-API-4004"
		msg = "Requested resource was not found."
	case status == http.StatusConflict:
		code = "RR-API-4009"
		msg = "Operation conflicts with current state. Retry after checking status."
	case status == http.StatusMethodNotAllowed:
		code = "RR-API-4005"
		msg = "This endpoint does not support the requested method."
	case status == http.StatusUnprocessableEntity:
		code = "RR-API-4022"
		msg = "None of the uploaded documents could be read."
	}

	// 4xx responses only echo user-safe validation context.
	if err != nil {
		low := strings.ToLower(err.Error())
		switch {
		case errors.Is(err, models.ErrUnknownMode):
			msg = "Unknown mode. Use analysis, scoring or explore."
		case errors.Is(err, models.ErrNoUserDocuments):
			msg = "No user documents have been uploaded."
		case strings.Contains(low, "query is required"):
			msg = "Query is required."
		case strings.Contains(low, "no supported files provided"):
			msg = "No PDF, TXT or Markdown files were provided."
		case strings.Contains(low, "no files provided"):
			msg = "No files were provided."
		case strings.Contains(low, "invalid json"):
			msg = "Malformed JSON request body."
		case status == http.StatusNotFound && strings.Contains(low, "not uploaded"):
			msg = "File is not part of the current upload."
		}
	}
	return apiError{Code: code, Message: msg}
}

func errMessage(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// accessLog logs one line per request with the status chi's wrapper saw.
func accessLog(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			logger.Info("http request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", status),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Int64("duration_ms", time.Since(start).Milliseconds()),
				zap.String("request_id", middleware.GetReqID(r.Context())),
			)
		})
	}
}
