// Package etlerr defines the error kinds shared by every pipeline step.
//
// A kind is a sentinel error. Concrete failures are *Error values that carry
// the kind, the thing that failed (a URL, a path, a table) and the underlying
// cause. Both the kind and the cause stay reachable through errors.Is/As.
package etlerr

import "errors"

// Error kinds.
var (
	ErrConfiguration  = errors.New("configuration error")
	ErrConnection     = errors.New("connection failed")
	ErrRetrieval      = errors.New("retrieval failed")
	ErrNotFound       = errors.New("not found")
	ErrParse          = errors.New("parse failed")
	ErrTransformation = errors.New("transformation failed")
	ErrLoad           = errors.New("load failed")
	ErrSave           = errors.New("save failed")
)

var kinds = []error{
	ErrConfiguration,
	ErrConnection,
	ErrRetrieval,
	ErrNotFound,
	ErrParse,
	ErrTransformation,
	ErrLoad,
	ErrSave,
}

// Error is a failure of a given kind.
type Error struct {
	Kind    error  // One of the Err* sentinels.
	Subject string // What failed: URL, file path, table name, pipeline name.
	Err     error  // Underlying cause, may be nil.
}

// New returns an *Error of the given kind.
func New(kind error, subject string, err error) *Error {
	return &Error{Kind: kind, Subject: subject, Err: err}
}

func (e *Error) Error() string {
	msg := e.Kind.Error()
	if e.Subject != "" {
		msg += " (" + e.Subject + ")"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap exposes both the kind and the cause.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// KindOf returns the first known kind found in err's chain, or nil.
func KindOf(err error) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	for _, k := range kinds {
		if errors.Is(err, k) {
			return k
		}
	}
	return nil
}

// Convenience constructors.

func Configuration(subject string, err error) *Error  { return New(ErrConfiguration, subject, err) }
func Connection(subject string, err error) *Error     { return New(ErrConnection, subject, err) }
func Retrieval(subject string, err error) *Error      { return New(ErrRetrieval, subject, err) }
func NotFound(subject string, err error) *Error       { return New(ErrNotFound, subject, err) }
func Parse(subject string, err error) *Error          { return New(ErrParse, subject, err) }
func Transformation(subject string, err error) *Error { return New(ErrTransformation, subject, err) }
func Load(subject string, err error) *Error           { return New(ErrLoad, subject, err) }
func Save(subject string, err error) *Error           { return New(ErrSave, subject, err) }
