package donation

import "errors"

var (
	// ErrNoDonorThreads indicates a donor was constructed with an empty
	// thread set. At least one donor thread is required.
	ErrNoDonorThreads = errors.New("donation: need at least one donor thread")
)
