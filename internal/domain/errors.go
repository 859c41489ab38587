package domain

import (
	"errors"
	"fmt"
)

// -----------------------------------------------------------------------------
// Domain Errors
// These errors represent domain-level failures and are used by the config
// store, field builder and grading engine to communicate error conditions.
// -----------------------------------------------------------------------------

// Lookup errors
var (
	ErrCourseNotFound   = errors.New("course not found")
	ErrExerciseNotFound = errors.New("exercise not found")
)

// Sample integrity errors (permission-denied class). These must never be
// downgraded to "treat the submission as unrandomized".
var (
	ErrMissingSample   = errors.New("sample or checksum missing from submission")
	ErrInvalidChecksum = errors.New("sample checksum does not match")
	ErrInvalidSample   = errors.New("sample indexes are malformed or out of range")
)

// ConfigError reports a structural problem in course or exercise
// configuration: an unparsable file, a missing required field, an unknown
// tag, field type or compare method, or an ambiguous config path. It is
// fatal to the single course or exercise being loaded.
type ConfigError struct {
	File string
	Msg  string
	Err  error
}

func (e *ConfigError) Error() string {
	s := e.Msg
	if e.File != "" {
		s = fmt.Sprintf("%s (file %q)", e.Msg, e.File)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", s, e.Err)
	}
	return s
}

func (e *ConfigError) Unwrap() error { return e.Err }

// Configf builds a ConfigError for the given file with a formatted message.
func Configf(file, format string, args ...any) *ConfigError {
	return &ConfigError{File: file, Msg: fmt.Sprintf(format, args...)}
}

// IncludeConflictError is a ConfigError subtype raised when a non-forced
// include would overwrite an existing key. Both files and both values are
// carried for diagnostics.
type IncludeConflictError struct {
	Key          string
	TargetFile   string
	IncludeFile  string
	TargetValue  any
	IncludeValue any
}

func (e *IncludeConflictError) Error() string {
	return fmt.Sprintf(
		"key %q with value %v already exists in config file %q, cannot overwrite with value %v from config file %q unless the include sets force",
		e.Key, e.TargetValue, e.TargetFile, e.IncludeValue, e.IncludeFile)
}

// AsConfigError reports whether err is a configuration error of any kind.
func AsConfigError(err error) bool {
	var ce *ConfigError
	var ie *IncludeConflictError
	return errors.As(err, &ce) || errors.As(err, &ie)
}

// IsIntegrityError reports whether err belongs to the permission-denied
// class of sample integrity failures.
func IsIntegrityError(err error) bool {
	return errors.Is(err, ErrMissingSample) ||
		errors.Is(err, ErrInvalidChecksum) ||
		errors.Is(err, ErrInvalidSample)
}
