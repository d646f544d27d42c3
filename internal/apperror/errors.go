// Package apperror defines the closed set of error kinds the prediction
// service reports. Lower-level errors are wrapped into one of these kinds at
// each boundary so callers only ever branch on Kind.
package apperror

import "errors"

// Kind classifies an Error.
type Kind int

const (
	Unknown Kind = iota
	// CatalogLoad is startup-fatal: a label mapping is missing or malformed.
	CatalogLoad
	// ModelLoad is startup-fatal: the weight file is missing or cannot be deserialized.
	ModelLoad
	// InvalidInput means the image path was empty.
	InvalidInput
	// FileNotFound means the image path does not exist.
	FileNotFound
	// UnsupportedFormat means the image extension is not allowed.
	UnsupportedFormat
	// PredictionFailure covers every other failure during inference.
	PredictionFailure
)

var kindNames = map[Kind]string{
	Unknown:           "unknown",
	CatalogLoad:       "catalog_load",
	ModelLoad:         "model_load",
	InvalidInput:      "invalid_input",
	FileNotFound:      "file_not_found",
	UnsupportedFormat: "unsupported_format",
	PredictionFailure: "prediction_failure",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return kindNames[Unknown]
}

// Fatal reports whether the kind aborts startup.
func (k Kind) Fatal() bool {
	return k == CatalogLoad || k == ModelLoad
}

// Sentinels for errors.Is. They match any Error of the same Kind.
var (
	ErrCatalogLoad       = &Error{Kind: CatalogLoad}
	ErrModelLoad         = &Error{Kind: ModelLoad}
	ErrInvalidInput      = &Error{Kind: InvalidInput}
	ErrFileNotFound      = &Error{Kind: FileNotFound}
	ErrUnsupportedFormat = &Error{Kind: UnsupportedFormat}
	ErrPredictionFailure = &Error{Kind: PredictionFailure}
)

// Error is the single error type surfaced by the service.
type Error struct {
	Kind Kind
	// Path is the file the error concerns, when there is one.
	Path string
	Msg  string
	Err  error
}

// New returns an Error of the given kind without an underlying cause.
func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

// Wrap returns an Error of the given kind carrying err as its cause.
func Wrap(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

// WithPath returns a copy of e that records path.
func (e *Error) WithPath(path string) *Error {
	cp := *e
	cp.Path = path
	return &cp
}

func (e *Error) Error() string {
	msg := e.Msg
	if msg == "" {
		msg = e.Kind.String()
	}
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error with the same Kind, so the package sentinels work
// with errors.Is regardless of message or cause.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// KindOf returns the Kind of the first *Error in err's chain, or Unknown.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Unknown
}
