package types

import (
	"errors"
	"fmt"
)

// Sentinel errors for common failure modes.
var (
	ErrNoTitle        = errors.New("no title found")
	ErrTextTooShort   = errors.New("article text too short")
	ErrUnparseable    = errors.New("document could not be parsed")
	ErrSourceTimeout  = errors.New("source timed out")
	ErrStopped        = errors.New("scraping has been stopped")
	ErrAlreadyRunning = errors.New("scraping is already in progress")
	ErrNotRunning     = errors.New("no scraping process is currently running")
	ErrInvalidURL     = errors.New("invalid URL")
)

// FetchError wraps errors that occur during fetching.
type FetchError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("fetch error for %s (status %d): %v", e.URL, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("fetch error for %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// ExtractError reports why a page did not yield an article.
type ExtractError struct {
	URL    string
	Reason string
	Err    error
}

func (e *ExtractError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("extract error for %s (%s): %v", e.URL, e.Reason, e.Err)
	}
	return fmt.Sprintf("extract error for %s: %v", e.URL, e.Err)
}

func (e *ExtractError) Unwrap() error { return e.Err }

// StorageError wraps errors that occur in an article store.
type StorageError struct {
	Backend string
	Op      string
	Err     error
}

func (e *StorageError) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("storage error (%s %s): %v", e.Backend, e.Op, e.Err)
	}
	return fmt.Sprintf("storage error (%s): %v", e.Backend, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// PipelineError wraps errors that occur in the pre-persist middleware chain.
type PipelineError struct {
	Stage string
	URL   string
	Err   error
}

func (e *PipelineError) Error() string {
	return fmt.Sprintf("pipeline error at stage %q for %s: %v", e.Stage, e.URL, e.Err)
}

func (e *PipelineError) Unwrap() error { return e.Err }
