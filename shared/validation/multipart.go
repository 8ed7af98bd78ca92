package validation

import (
	"errors"
	"fmt"
	"net/http"
)

// multipartOverhead leaves room for the json field and part headers.
const multipartOverhead = 1 << 20

// ValidateAndParseMultipart caps the request body and parses the multipart
// form. Once the cap is hit the server stops reading and browsers see a
// reset connection.
func ValidateAndParseMultipart(r *http.Request, w http.ResponseWriter, maxSize int64) error {
	if r.ContentLength > maxSize {
		return fmt.Errorf("%w: request declares %d bytes, the limit is %d", ErrPayloadTooLarge, r.ContentLength, maxSize)
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxSize)
	if err := r.ParseMultipartForm(maxSize); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return fmt.Errorf("%w: request exceeds %d bytes", ErrPayloadTooLarge, maxSize)
		}
		return fmt.Errorf("%w: %v", ErrMalformedForm, err)
	}
	return nil
}

// CalculateMaxRequestSize is the body cap for one attachment of at most
// maxAttachmentSize bytes.
func CalculateMaxRequestSize(maxAttachmentSize int64) int64 {
	return maxAttachmentSize + multipartOverhead
}
