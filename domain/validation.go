package domain

import (
	"strings"
	"unicode/utf8"
)

const (
	TitleMinLength       = 3
	TitleMaxLength       = 100
	DescriptionMaxLength = 500
)

// Validation failures. All of them carry ErrCodeInvalid.
var (
	ErrTitleRequired      = NewError(ErrCodeInvalid, "Task title is required")
	ErrTitleTooShort      = NewError(ErrCodeInvalid, "Task title must be at least 3 characters long")
	ErrTitleTooLong       = NewError(ErrCodeInvalid, "Task title must be less than 100 characters")
	ErrDescriptionTooLong = NewError(ErrCodeInvalid, "Task description must be less than 500 characters")
	ErrMissingTaskID      = NewError(ErrCodeInvalid, "task id is required")
	ErrEmptyUpdate        = NewError(ErrCodeInvalid, "update carries no fields")
)

// ValidateTitle checks the title length after trimming surrounding whitespace.
// Lengths are counted in characters, not bytes.
func ValidateTitle(title string) error {
	trimmed := strings.TrimSpace(title)
	n := utf8.RuneCountInString(trimmed)
	switch {
	case n == 0:
		return ErrTitleRequired
	case n < TitleMinLength:
		return ErrTitleTooShort
	case n > TitleMaxLength:
		return ErrTitleTooLong
	}
	return nil
}

// ValidateDescription checks the optional description. Absent descriptions are valid.
func ValidateDescription(description *string) error {
	if description == nil {
		return nil
	}
	if utf8.RuneCountInString(*description) > DescriptionMaxLength {
		return ErrDescriptionTooLong
	}
	return nil
}

// Validate checks a create input.
func (in CreateTaskInput) Validate() error {
	if err := ValidateTitle(in.Title); err != nil {
		return err
	}
	return ValidateDescription(in.Description)
}

// Validate checks an update input. Only supplied fields are validated.
func (in UpdateTaskInput) Validate() error {
	if strings.TrimSpace(in.ID) == "" {
		return ErrMissingTaskID
	}
	if !in.HasChanges() {
		return ErrEmptyUpdate
	}
	if in.Title != nil {
		if err := ValidateTitle(*in.Title); err != nil {
			return err
		}
	}
	return ValidateDescription(in.Description)
}

// Normalize trims the title and description the way the task form submits them:
// a description that is empty after trimming becomes absent.
func (in CreateTaskInput) Normalize() CreateTaskInput {
	in.Title = strings.TrimSpace(in.Title)
	in.Description = trimOptional(in.Description)
	return in
}

// Normalize trims supplied fields. A supplied description that trims to empty clears it.
func (in UpdateTaskInput) Normalize() UpdateTaskInput {
	in.ID = strings.TrimSpace(in.ID)
	if in.Title != nil {
		in.Title = StringPtr(strings.TrimSpace(*in.Title))
	}
	if in.Description != nil {
		in.DescriptionSet = true
		in.Description = trimOptional(in.Description)
	}
	return in
}

func trimOptional(s *string) *string {
	if s == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*s)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
