package errors

import "errors"

var (
	ErrInvalidInput           = errors.New("invalid request input")
	ErrMeetingNotFound        = errors.New("meeting not found")
	ErrMotionNotFound         = errors.New("motion not found")
	ErrMemberNotFound         = errors.New("member not found")
	ErrPolicyNotFound         = errors.New("policy not found")
	ErrBallotNotFound         = errors.New("ballot not found")
	ErrProxyNotFound          = errors.New("active proxy not found")
	ErrInvalidTransition      = errors.New("invalid meeting transition")
	ErrForbidden              = errors.New("actor role may not perform this transition")
	ErrOpenMotionExists       = errors.New("an open motion exists")
	ErrMeetingNotEditable     = errors.New("meeting no longer accepts motions")
	ErrMeetingNotLive         = errors.New("meeting is not live")
	ErrMotionAlreadyOpen      = errors.New("another motion is already open")
	ErrMotionAlreadyDecided   = errors.New("motion is already decided")
	ErrMotionNotOpen          = errors.New("motion is not open")
	ErrMotionOpenOrClosed     = errors.New("motion is already open or closed")
	ErrNotEligible            = errors.New("member is not eligible to vote")
	ErrSelfProxy              = errors.New("giver and receiver must differ")
	ErrReasonRequired         = errors.New("a non-empty reason is required")
	ErrJustificationRequired  = errors.New("a non-trivial justification is required")
	ErrIdempotencyKeyRequired = errors.New("idempotency key is required")
	ErrIdempotencyConflict    = errors.New("idempotency key reused with a different payload")
	ErrConflict               = errors.New("write conflict")
)
