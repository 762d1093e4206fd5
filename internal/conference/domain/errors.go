package domain

import "errors"

var (
	ErrNotFound               = errors.New("not_found")
	ErrNoCurrentConference    = errors.New("no_current_conference")
	ErrInvalidStateTransition = errors.New("invalid_state_transition")
	ErrSubmissionsClosed      = errors.New("submissions_closed")
	ErrNotOwner               = errors.New("not_owner")
	ErrDuplicateNumber        = errors.New("duplicate_conference_number")
	ErrInvalidNumber          = errors.New("invalid_conference_number")
	ErrInvalidDates           = errors.New("invalid_conference_dates")
	ErrInvalidTitle           = errors.New("invalid_title")
	ErrInvalidAuthors         = errors.New("invalid_authors")
	ErrInvalidStatus          = errors.New("invalid_status")
	ErrFileRequired           = errors.New("file_required")
)
