package model

import (
	"strings"
	"time"

	"milestonesvc/internal/apperr"
)

// Field-level and cross-field rules shared by the services. Uniqueness
// rules (title per scope, tag per project) are only pre-checked here and
// in the services; the store's unique indexes are the authoritative
// guard.

const maxTitleLen = 255

// ValidateTitle checks the milestone title shape.
func ValidateTitle(title string) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return apperr.New(apperr.CodeInvalidInput, "title is required")
	}
	if len(title) > maxTitleLen {
		return apperr.Newf(apperr.CodeInvalidInput, "title exceeds %d characters", maxTitleLen)
	}
	return nil
}

// ValidateDateRange enforces start <= due. Equal dates are a valid
// one-day milestone.
func ValidateDateRange(start, due time.Time) error {
	if start.IsZero() || due.IsZero() {
		return apperr.New(apperr.CodeInvalidInput, "start_date and due_date are required")
	}
	if start.After(due) {
		return apperr.New(apperr.CodeInvalidDateRange, "start_date must not be after due_date")
	}
	return nil
}

// ValidateScope rejects scopes not built by the constructors.
func ValidateScope(s Scope) error {
	if s.Kind != ScopeProject && s.Kind != ScopeGroup {
		return apperr.New(apperr.CodeInvalidInput, "scope must be a project or a group")
	}
	if s.ID <= 0 {
		return apperr.New(apperr.CodeInvalidInput, "scope id must be positive")
	}
	return nil
}

// ValidateTag checks the release tag shape.
func ValidateTag(tag string) error {
	tag = strings.TrimSpace(tag)
	if tag == "" {
		return apperr.New(apperr.CodeInvalidInput, "tag is required")
	}
	if strings.ContainsAny(tag, " \t\n") {
		return apperr.New(apperr.CodeInvalidInput, "tag must not contain whitespace")
	}
	return nil
}
