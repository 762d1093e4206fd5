package domain

import "errors"

var (
	ErrNotFound               = errors.New("not_found")
	ErrInvalidStateTransition = errors.New("invalid_state_transition")
	ErrUnknownKind            = errors.New("unknown_invitation_kind")
	ErrSecretCollision        = errors.New("secret_collision")
	ErrParentRequired         = errors.New("invitation_parent_required")
	ErrInvalidReminderKind    = errors.New("invalid_reminder_kind")
	ErrContentRequired        = errors.New("content_required")
	ErrInvalidStatus          = errors.New("invalid_invitation_status")
)
