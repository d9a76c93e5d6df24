// internal/services/errors.go
package services

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/javajoker/labelhub/internal/utils"
)

// Error codes for the upstream layer
const (
	ErrCodeRenderUnreachable = "RENDER_UNREACHABLE"
	ErrCodeRenderTimeout     = "RENDER_TIMEOUT"
	ErrCodeRenderRejected    = "RENDER_REJECTED"
	ErrCodeAttachFailed      = "ATTACH_FAILED"
	ErrCodeConflict          = "CONFLICT"
	ErrCodeNotFound          = "NOT_FOUND"
)

var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("conflict")
)

// NotFoundError reports an unknown uid, device or owner record.
type NotFoundError struct {
	Message string
}

func (e *NotFoundError) Error() string {
	return e.Message
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

func (e *NotFoundError) Code() string {
	return ErrCodeNotFound
}

// ConflictError reports a state transition that already happened.
type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string {
	return e.Message
}

func (e *ConflictError) Is(target error) bool {
	return target == ErrConflict
}

func (e *ConflictError) Code() string {
	return ErrCodeConflict
}

type RenderFailure string

const (
	RenderUnreachable RenderFailure = "unreachable"
	RenderTimeout     RenderFailure = "timeout"
	RenderRejected    RenderFailure = "rejected"
)

// RenderError is returned when no artifact could be produced.
type RenderError struct {
	Reason     RenderFailure
	StatusCode int
	Message    string
	Err        error
}

func (e *RenderError) Error() string {
	msg := fmt.Sprintf("render %s", e.Reason)
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(" (status %d)", e.StatusCode)
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *RenderError) Unwrap() error {
	return e.Err
}

func (e *RenderError) Code() string {
	switch e.Reason {
	case RenderTimeout:
		return ErrCodeRenderTimeout
	case RenderRejected:
		return ErrCodeRenderRejected
	default:
		return ErrCodeRenderUnreachable
	}
}

// AttachError reports a slot that could not be bound to its owner. Slots
// attached earlier in the same call stay attached.
type AttachError struct {
	OwnerType string
	OwnerID   uuid.UUID
	Slot      string
	Err       error
}

func (e *AttachError) Error() string {
	if e.Slot == "" {
		return fmt.Sprintf("attach to %s %s: %v", e.OwnerType, e.OwnerID, e.Err)
	}
	return fmt.Sprintf("attach %s to %s %s: %v", e.Slot, e.OwnerType, e.OwnerID, e.Err)
}

func (e *AttachError) Unwrap() error {
	return e.Err
}

func (e *AttachError) Code() string {
	return ErrCodeAttachFailed
}

func validationFailed(err error) error {
	details := utils.GetValidationErrors(err)
	if len(details) == 0 {
		return fmt.Errorf("validation failed: %w", err)
	}

	messages := make([]string, len(details))
	for i, d := range details {
		messages[i] = d.Message
	}
	return fmt.Errorf("validation failed: %s", strings.Join(messages, "; "))
}
