package domain

import (
	"errors"
	"fmt"
)

// Error categories. Callers classify with errors.Is; adapters map them
// onto transport codes.
var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidState = errors.New("invalid state")
	ErrForbidden    = errors.New("forbidden")
	ErrMalformed    = errors.New("malformed")
)

var (
	ErrSessionNotFound    = fmt.Errorf("%w: session", ErrNotFound)
	ErrSessionLive        = fmt.Errorf("%w: session is live", ErrInvalidState)
	ErrSessionEnded       = fmt.Errorf("%w: session has ended", ErrInvalidState)
	ErrBadTransition      = fmt.Errorf("%w: illegal status transition", ErrInvalidState)
	ErrRoomClosed         = fmt.Errorf("%w: room closed", ErrInvalidState)
	ErrAlreadyInQueue     = fmt.Errorf("%w: hand already raised", ErrInvalidState)
	ErrNotInQueue         = fmt.Errorf("%w: hand not raised", ErrInvalidState)
	ErrUnknownParticipant = fmt.Errorf("%w: participant", ErrNotFound)
	ErrNotParticipant     = fmt.Errorf("%w: not a participant", ErrForbidden)
	ErrRateLimited        = fmt.Errorf("%w: rate limited", ErrForbidden)

	ErrUsernameTooLong = fmt.Errorf("%w: username too long", ErrMalformed)
	ErrUsernameEmpty   = fmt.Errorf("%w: username empty", ErrMalformed)
	ErrUserIDEmpty     = fmt.Errorf("%w: user id empty", ErrMalformed)
	ErrUserIDTooLong   = fmt.Errorf("%w: user id too long", ErrMalformed)
	ErrInvalidRole     = fmt.Errorf("%w: role", ErrMalformed)
	ErrTitleEmpty      = fmt.Errorf("%w: title empty", ErrMalformed)
	ErrTitleTooLong    = fmt.Errorf("%w: title too long", ErrMalformed)
)
