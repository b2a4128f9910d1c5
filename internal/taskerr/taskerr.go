// Package taskerr defines the structured, user-visible error values that
// tool operations return. These are domain outcomes, not Go failures: the
// dispatcher renders them as MCP error results with their metadata attached.
package taskerr

import "fmt"

// Kind tags an error with its category.
type Kind string

const (
	KindInvalidInput Kind = "invalid-input"
	KindNotFound     Kind = "not-found"
	KindAmbiguous    Kind = "ambiguous"
	KindIntegrity    Kind = "integrity"
	KindCycle        Kind = "cycle"
	KindState        Kind = "state"
	KindSizeLimit    Kind = "size-limit"
	KindGitConflict  Kind = "git-conflict"
	KindGitNetwork   Kind = "git-network"
	KindGitOther     Kind = "git-other"
	KindFilesystem   Kind = "filesystem"
)

// Error carries a kind, a human message, and structured metadata echoed back
// to the caller.
type Error struct {
	Kind     Kind
	Message  string
	Metadata map[string]any
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// New builds an error with no metadata.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// With attaches a metadata entry and returns the error for chaining.
func (e *Error) With(key string, value any) *Error {
	if e.Metadata == nil {
		e.Metadata = make(map[string]any)
	}
	e.Metadata[key] = value
	return e
}
