package http

import (
	"encoding/json"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/glbter/fin-dashboard/entities"
)

type APIError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

func respondJSON(w http.ResponseWriter, logger *zap.Logger, status int, payload any) {
	body, err := json.Marshal(payload)
	if err != nil {
		logger.Error(fmt.Errorf("encode response: %w", err).Error())
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(body); err != nil {
		logger.Error(fmt.Errorf("write response: %w", err).Error())
	}
}

// respondError maps err to a status through its error code.
func respondError(w http.ResponseWriter, logger *zap.Logger, err error) {
	code := entities.Code(err)
	status := http.StatusInternalServerError
	switch code {
	case entities.CodeMalformedPayload:
		status = http.StatusBadRequest
	case entities.CodeEmptyPortfolio, entities.CodeInconsistentTotals:
		status = http.StatusUnprocessableEntity
	}
	respondErrorStatus(w, logger, status, code, err)
}

func respondBadRequest(w http.ResponseWriter, logger *zap.Logger, err error) {
	respondErrorStatus(w, logger, http.StatusBadRequest, "bad_request", err)
}

func respondErrorStatus(w http.ResponseWriter, logger *zap.Logger, status int, code string, err error) {
	if status >= http.StatusInternalServerError {
		logger.Error(err.Error(), zap.String("code", code))
	} else {
		logger.Info(err.Error(), zap.String("code", code))
	}

	msg := err.Error()
	if status >= http.StatusInternalServerError {
		msg = http.StatusText(status)
	}
	respondJSON(w, logger, status, ErrorEnvelope{
		Error: APIError{
			Message: msg,
			Code:    code,
		},
	})
}
