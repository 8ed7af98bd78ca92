package errors

import "errors"

var (
	// ErrAttachmentTooLarge is returned when a file exceeds the attachment size limit.
	ErrAttachmentTooLarge = errors.New("attachment too large")

	// ErrCorruptSnapshot marks a persisted snapshot that could not be parsed.
	// The chat store recovers from it by re-deriving chats from the roster.
	ErrCorruptSnapshot = errors.New("persisted chat state is corrupt")

	ErrChatNotFound       = errors.New("chat not found")
	ErrAttachmentNotFound = errors.New("attachment not found")
	ErrNotImage           = errors.New("attachment is not an image")
	// ErrImageTooLarge is returned when an image's pixel dimensions would
	// decode past the preview memory limit.
	ErrImageTooLarge = errors.New("image dimensions too large")
	ErrUnknownUser        = errors.New("unknown user")
	ErrNoSession          = errors.New("no active session")
)

// default error is internal service error at handler level
// if error has different status code use ErrorWithStatusCode
type ErrorWithStatusCode struct {
	Message    string
	StatusCode int
}

func (e *ErrorWithStatusCode) Error() string {
	return e.Message
}
