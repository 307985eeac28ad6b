package density

import "github.com/rotisserie/eris"

var (
	// ErrEmptyInput is returned when statistics are requested over zero usable records.
	ErrEmptyInput = eris.New("density: empty input")

	// ErrInvalidArea is returned under PolicyReject when a record has no usable area.
	ErrInvalidArea = eris.New("density: invalid area")

	// ErrNegativeN is returned when a negative result size is requested.
	ErrNegativeN = eris.New("density: negative n")
)
