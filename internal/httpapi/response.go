package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"rag-agent/internal/domain"
)

// errorResponse is the body of every non-2xx reply.
type errorResponse struct {
	Error   string            `json:"error"`
	Message string            `json:"message,omitempty"`
	Fields  map[string]string `json:"fields,omitempty"`
}

var validate = validator.New()

// maxBodyBytes bounds every JSON request body.
var maxBodyBytes int64 = 8 << 20

func writeJSON(w http.ResponseWriter, status int, data any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data == nil {
		return nil
	}
	return json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, code, message string, logger *zap.Logger) {
	if err := writeJSON(w, status, errorResponse{Error: code, Message: message}); err != nil {
		logger.Error("failed to write error response", zap.Error(err))
	}
}

// decodeAndValidate reads a JSON body into dst and checks its validate tags.
// It writes the 400 response itself and reports whether the handler may continue.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, dst any, logger *zap.Logger) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "body_too_large",
				fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit), logger)
			return false
		}
		writeError(w, http.StatusBadRequest, "bad_request", "invalid JSON body: "+err.Error(), logger)
		return false
	}
	if err := validate.Struct(dst); err != nil {
		resp := errorResponse{Error: "bad_request", Message: "validation failed"}
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			resp.Fields = make(map[string]string, len(verrs))
			for _, fe := range verrs {
				resp.Fields[fe.Field()] = fmt.Sprintf("%s failed on '%s'", fe.Field(), fe.Tag())
			}
		}
		if err := writeJSON(w, http.StatusBadRequest, resp); err != nil {
			logger.Error("failed to write validation response", zap.Error(err))
		}
		return false
	}
	return true
}

// writeAgentError maps agent errors to HTTP responses.
func writeAgentError(w http.ResponseWriter, err error, logger *zap.Logger) {
	var svcErr *domain.ServiceError
	switch {
	case errors.Is(err, domain.ErrEmptyInput):
		writeError(w, http.StatusUnprocessableEntity, "empty_input", err.Error(), logger)
	case errors.Is(err, domain.ErrNoResults):
		writeError(w, http.StatusNotFound, "no_results", err.Error(), logger)
	case errors.Is(err, domain.ErrMalformedPayload), errors.Is(err, domain.ErrNoChoices):
		logger.Warn("upstream returned unusable data", zap.Error(err))
		writeError(w, http.StatusBadGateway, "bad_upstream_response", err.Error(), logger)
	case errors.As(err, &svcErr):
		logger.Error("upstream service failed", zap.String("service", svcErr.Service), zap.Error(err))
		writeError(w, http.StatusBadGateway, "upstream_unavailable", svcErr.Service+" service failed", logger)
	default:
		logger.Error("request failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal_error", "internal server error", logger)
	}
}
