// Package xerrors defines the typed error kinds the code intelligence
// core raises, modeled on the teacher's internal/errors package: one
// Error type, discriminated by Kind, carries context (file path,
// parser name, timestamp) and chains the underlying cause via Unwrap.
package xerrors

import (
	"fmt"
	"time"
)

// Kind identifies one of the error kinds spec.md §7 enumerates.
type Kind string

const (
	KindConfigInvalid         Kind = "config_invalid"
	KindPathUnusable          Kind = "path_unusable"
	KindNoParser              Kind = "no_parser"
	KindParseFailed           Kind = "parse_failed"
	KindDuplicateParser       Kind = "duplicate_parser"
	KindParserNotFound        Kind = "parser_not_found"
	KindParserInitialization  Kind = "parser_initialization"
	KindFileNotInIndex        Kind = "file_not_in_index"
	KindDisposed              Kind = "disposed"
	KindNotIndexed            Kind = "not_indexed"
	KindCacheExists           Kind = "cache_exists"
	KindIndexingFailed        Kind = "indexing_failed"
)

// Error is the single error type raised across the core; Kind
// discriminates the case, mirroring spec.md §7's "kinds, not types"
// guidance while still giving callers structured fields to inspect.
type Error struct {
	Kind       Kind
	Message    string
	FilePath   string
	Name       string // parser/cache/registry name, when applicable
	Suggestion string // optional "did you mean" hint
	Underlying error
	Timestamp  time.Time
}

func newErr(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message, Timestamp: time.Now()}
}

// WithFile attaches a file path to the error and returns it for chaining.
func (e *Error) WithFile(path string) *Error {
	e.FilePath = path
	return e
}

// WithName attaches a parser/cache/registry name and returns it for chaining.
func (e *Error) WithName(name string) *Error {
	e.Name = name
	return e
}

// WithSuggestion attaches a "did you mean" hint and returns it for chaining.
func (e *Error) WithSuggestion(s string) *Error {
	e.Suggestion = s
	return e
}

// WithCause chains an underlying error and returns it for chaining.
func (e *Error) WithCause(cause error) *Error {
	e.Underlying = cause
	return e
}

func (e *Error) Error() string {
	msg := e.Message
	if e.FilePath != "" {
		msg = fmt.Sprintf("%s (file: %s)", msg, e.FilePath)
	}
	if e.Name != "" {
		msg = fmt.Sprintf("%s (name: %s)", msg, e.Name)
	}
	if e.Suggestion != "" {
		msg = fmt.Sprintf("%s (did you mean %q?)", msg, e.Suggestion)
	}
	if e.Underlying != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Underlying)
	}
	return msg
}

// Unwrap allows errors.Is/errors.As to see through to the cause.
func (e *Error) Unwrap() error {
	return e.Underlying
}

// Is lets errors.Is match on Kind when comparing against another *Error.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

func ConfigInvalid(message string) *Error        { return newErr(KindConfigInvalid, message) }
func PathUnusable(message string) *Error         { return newErr(KindPathUnusable, message) }
func NoParser(path string) *Error {
	return newErr(KindNoParser, "no parser found for path").WithFile(path)
}
func ParseFailed(path, message string) *Error {
	return newErr(KindParseFailed, fmt.Sprintf("parsing failed for %s: %s", path, message)).WithFile(path)
}
func DuplicateParser(name string) *Error {
	return newErr(KindDuplicateParser, "parser already registered").WithName(name)
}
func ParserNotFound(name string) *Error {
	return newErr(KindParserNotFound, "parser not found").WithName(name)
}
func ParserInitialization(name string, cause error) *Error {
	return newErr(KindParserInitialization, "parser initialization failed").WithName(name).WithCause(cause)
}
func FileNotInIndex(path string) *Error {
	return newErr(KindFileNotInIndex, "file not in index").WithFile(path)
}
func Disposed(component string) *Error {
	return newErr(KindDisposed, fmt.Sprintf("%s has been disposed", component))
}
func NotIndexed(message string) *Error { return newErr(KindNotIndexed, message) }
func CacheExists(name string) *Error {
	return newErr(KindCacheExists, "cache already exists").WithName(name)
}
func IndexingFailed(path, message string) *Error {
	return newErr(KindIndexingFailed, fmt.Sprintf("indexing failed for %s: %s", path, message)).WithFile(path)
}
