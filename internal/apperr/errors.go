// Package apperr defines sentinel errors shared across Munin components.
package apperr

import "errors"

var (
	ErrNotFound      = errors.New("not found")
	ErrConflict      = errors.New("conflict")
	ErrAlreadyExists = errors.New("already exists")

	// ErrEmptyTitle is returned when a title normalizes to nothing and
	// therefore cannot participate in matching or name a file.
	ErrEmptyTitle = errors.New("title contains no matchable characters")

	// ErrAliasLimit is returned when a note already holds the maximum
	// number of aliases.
	ErrAliasLimit = errors.New("alias limit reached")

	// ErrCollisionExhausted is returned when a rename could not find a
	// free filename within the suffix attempt bound.
	ErrCollisionExhausted = errors.New("rename collision attempts exhausted")

	// ErrPathEscape is returned when a path resolves outside the vault root.
	ErrPathEscape = errors.New("path escapes vault root")
)
