package scraper

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrTimeout indicates a bounded wait expired before its condition held.
type ErrTimeout struct {
	Err error
}

func (e ErrTimeout) Error() string {
	return fmt.Errorf("timeout: %w", e.Err).Error()
}

func (e ErrTimeout) Unwrap() error {
	return e.Err
}

// ErrSession indicates the browser session could not be opened.
type ErrSession struct {
	Err error
}

func (e ErrSession) Error() string {
	return fmt.Errorf("session: %w", e.Err).Error()
}

func (e ErrSession) Unwrap() error {
	return e.Err
}

// ErrNavigation indicates the browser failed to load the target URL.
type ErrNavigation struct {
	URL string
	Err error
}

func (e ErrNavigation) Error() string {
	return fmt.Errorf("navigation to %s: %w", e.URL, e.Err).Error()
}

func (e ErrNavigation) Unwrap() error {
	return e.Err
}

// ErrPageLoad indicates the document never reached readyState "complete".
type ErrPageLoad struct {
	Err error
}

func (e ErrPageLoad) Error() string {
	return fmt.Errorf("page_load: %w", e.Err).Error()
}

func (e ErrPageLoad) Unwrap() error {
	return e.Err
}

// ErrLocateTimeout indicates the reviews panel was not found in time.
type ErrLocateTimeout struct {
	Timeout time.Duration
	Err     error
}

func (e ErrLocateTimeout) Error() string {
	return fmt.Errorf("reviews panel not found within %s: %w", e.Timeout, e.Err).Error()
}

func (e ErrLocateTimeout) Unwrap() error {
	return e.Err
}

func errorTypeLabel(err error) string {
	if err == nil {
		return "unknown"
	}
	var locate ErrLocateTimeout
	if errors.As(err, &locate) {
		return "locate_timeout"
	}
	var pageLoad ErrPageLoad
	if errors.As(err, &pageLoad) {
		return "page_load"
	}
	var navigation ErrNavigation
	if errors.As(err, &navigation) {
		return "navigation"
	}
	var session ErrSession
	if errors.As(err, &session) {
		return "session"
	}
	var timeout ErrTimeout
	if errors.As(err, &timeout) || errors.Is(err, context.DeadlineExceeded) {
		return "timeout"
	}
	if errors.Is(err, context.Canceled) {
		return "canceled"
	}
	return "other"
}
