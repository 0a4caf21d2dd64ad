package engine

import "fmt"

// Kind classifies an engine failure for callers that map it to a status model.
type Kind string

const (
	KindNotFound   Kind = "not_found"
	KindBadRequest Kind = "bad_request"
	KindConflict   Kind = "conflict"
	KindInternal   Kind = "internal"
)

// Error is a typed engine failure carrying enough context to diagnose.
type Error struct {
	Kind    Kind
	Message string
	Details map[string]any
}

func (e Error) Error() string { return e.Message }

func notFound(details map[string]any, format string, args ...any) Error {
	return Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...), Details: details}
}

func badRequest(details map[string]any, format string, args ...any) Error {
	return Error{Kind: KindBadRequest, Message: fmt.Sprintf(format, args...), Details: details}
}

func conflict(details map[string]any, format string, args ...any) Error {
	return Error{Kind: KindConflict, Message: fmt.Sprintf(format, args...), Details: details}
}

func internal(details map[string]any, format string, args ...any) Error {
	return Error{Kind: KindInternal, Message: fmt.Sprintf(format, args...), Details: details}
}
