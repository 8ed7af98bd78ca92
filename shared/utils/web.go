package utils

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-playground/validator/v10"

	internal_errors "github.com/staffdesk/messenger/shared/errors"
	"github.com/staffdesk/messenger/shared/logger"
	"github.com/staffdesk/messenger/shared/validation"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// StatusCode maps an error to the HTTP status it is reported with.
func StatusCode(err error) int {
	var e *internal_errors.ErrorWithStatusCode
	switch {
	case errors.As(err, &e):
		return e.StatusCode
	case errors.Is(err, internal_errors.ErrChatNotFound),
		errors.Is(err, internal_errors.ErrAttachmentNotFound):
		return http.StatusNotFound
	case errors.Is(err, internal_errors.ErrAttachmentTooLarge),
		errors.Is(err, validation.ErrPayloadTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, validation.ErrMalformedForm):
		return http.StatusBadRequest
	case errors.Is(err, internal_errors.ErrNoSession):
		return http.StatusUnauthorized
	case errors.Is(err, internal_errors.ErrUnknownUser):
		return http.StatusForbidden
	case errors.Is(err, internal_errors.ErrNotImage):
		return http.StatusUnsupportedMediaType
	case errors.Is(err, internal_errors.ErrImageTooLarge):
		return http.StatusUnprocessableEntity
	}
	// default error is 500
	return http.StatusInternalServerError
}

func WriteErrorAndStatusCode(w http.ResponseWriter, err error) {
	code := StatusCode(err)
	if code == http.StatusInternalServerError {
		logger.Log.Error("request failed", "error", err)
		http.Error(w, "Internal server error", code)
		return
	}
	http.Error(w, err.Error(), code)
}

func WriteJSON(w http.ResponseWriter, v any) {
	WriteJSONWithStatus(w, http.StatusOK, v)
}

func WriteJSONWithStatus(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Log.Error("failed to encode response", "error", err)
	}
}

func DecodeValidate(r io.Reader, body any) error {
	if err := json.NewDecoder(r).Decode(body); err != nil {
		logger.Log.Debug("invalid request body", "error", err)
		return &internal_errors.ErrorWithStatusCode{Message: "Body is invalid json", StatusCode: http.StatusBadRequest}
	}
	if err := validate.Struct(body); err != nil {
		logger.Log.Debug("request validation failed", "error", err)
		return &internal_errors.ErrorWithStatusCode{Message: "Required fields missing", StatusCode: http.StatusBadRequest}
	}
	return nil
}
