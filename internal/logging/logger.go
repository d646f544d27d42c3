// Package logging is the structured logging layer of the service. Components
// depend on Logger; the process wires in the logrus-backed implementation.
package logging

// Logger is the structured logger used across the service.
type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)

	// Fatal logs and exits the process.
	Fatal(msg string, fields ...Field)

	WithError(err error) Logger
	WithField(key string, value interface{}) Logger
	WithFields(fields ...Field) Logger
}

// Field is a key-value pair attached to a log entry.
type Field struct {
	Key   string
	Value interface{}
}

// F is shorthand for building a Field.
func F(key string, value interface{}) Field {
	return Field{Key: key, Value: value}
}

// Standard field names.
const (
	FieldFile       = "file_path"
	FieldDevice     = "device"
	FieldDuration   = "duration_ms"
	FieldCount      = "count"
	FieldKind       = "error_kind"
	FieldRequestID  = "request_id"
	FieldMethod     = "method"
	FieldPath       = "path"
	FieldStatus     = "status"
	FieldAddress    = "address"
	FieldComponent  = "component"
	FieldNumClasses = "classes"
)
