package risk

import "errors"

var (
	// ErrInvalidInput marks rejected caller input (negative costs, prices,
	// capital or a non-positive risk aversion).
	ErrInvalidInput = errors.New("invalid risk input")
)
