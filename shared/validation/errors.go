package validation

import "errors"

// ErrPayloadTooLarge is returned when the request body exceeds size limits
var ErrPayloadTooLarge = errors.New("payload too large")

// ErrMalformedForm is returned when a multipart body cannot be parsed
var ErrMalformedForm = errors.New("malformed multipart form")
