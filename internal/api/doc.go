// Package api exposes the progress engine over HTTP. Handlers decode and
// validate requests, call the progress and flashcard review services, and
// map service errors to sanitized JSON error responses.
package api
