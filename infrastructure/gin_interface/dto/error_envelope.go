package dto

import (
	"errors"
	"net/http"

	"video-sequence-api/domain"
)

type ErrorBody struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

type ErrorEnvelope struct {
	Success bool      `json:"success"`
	Error   ErrorBody `json:"error"`
}

// EnvelopeFor maps a domain error to its HTTP status and the stable error
// envelope the presentation layer consumes.
func EnvelopeFor(err error) (int, ErrorEnvelope) {
	var validationErr *domain.ValidationError
	if errors.As(err, &validationErr) {
		return http.StatusBadRequest, envelope("VALIDATION_ERROR", validationErr.Error(), validationErr.Violations)
	}

	var sequenceErr *domain.SequenceError
	if errors.As(err, &sequenceErr) {
		status := http.StatusInternalServerError
		switch sequenceErr.Code {
		case domain.SequenceNotFound:
			status = http.StatusNotFound
		case domain.SequenceValidation:
			status = http.StatusBadRequest
		case domain.SequenceConflict:
			status = http.StatusConflict
		case domain.SequenceExportError, domain.SequenceFrameExtraction:
			status = http.StatusBadGateway
		}
		var details interface{}
		if len(sequenceErr.SceneNumbers) > 0 {
			details = sequenceErr.SceneNumbers
		}
		return status, envelope(sequenceErr.Code, sequenceErr.Message, details)
	}

	var timeoutErr *domain.TimeoutError
	if errors.As(err, &timeoutErr) {
		return http.StatusGatewayTimeout, envelope("TIMEOUT", timeoutErr.Error(), nil)
	}

	var apiErr *domain.APIError
	if errors.As(err, &apiErr) {
		return http.StatusBadGateway, envelope("API_ERROR", apiErr.Message, nil)
	}

	var ffmpegErr *domain.FFmpegError
	if errors.As(err, &ffmpegErr) {
		return http.StatusInternalServerError, envelope(ffmpegErr.Code, ffmpegErr.Message, nil)
	}

	return http.StatusInternalServerError, envelope("INTERNAL_ERROR", err.Error(), nil)
}

func envelope(code string, message string, details interface{}) ErrorEnvelope {
	return ErrorEnvelope{
		Success: false,
		Error: ErrorBody{
			Code:    code,
			Message: message,
			Details: details,
		},
	}
}
