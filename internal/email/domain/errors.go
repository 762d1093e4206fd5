package domain

import "errors"

var (
	ErrTemplateNotFound = errors.New("template_not_found")
	ErrMailSend         = errors.New("mail_send_error")
	ErrNoOrganisers     = errors.New("no_organiser_addresses")
	ErrInvalidAudience  = errors.New("invalid_audience")
	ErrInvalidLabel     = errors.New("invalid_label")
	ErrInvalidRecipient = errors.New("invalid_recipient")
	ErrEmptySubject     = errors.New("empty_subject")
)
