package captcha

import (
	"fmt"
	"strings"
	"time"
)

// SubmitError is a rejected task submission.
type SubmitError struct {
	Provider string
	Code     string
}

func (e *SubmitError) Error() string {
	return fmt.Sprintf("%s submit failed: %s", e.Provider, e.Code)
}

func (e *SubmitError) Is(target error) bool {
	return target == ErrZeroBalance && strings.EqualFold(e.Code, TwoErrZeroBalance)
}

// SolveError is a poll answer that is neither a token nor "not ready".
type SolveError struct {
	Provider string
	Code     string
}

func (e *SolveError) Error() string {
	return fmt.Sprintf("%s error: %s", e.Provider, e.Code)
}

func (e *SolveError) Is(target error) bool {
	return target == ErrZeroBalance && strings.EqualFold(e.Code, TwoErrZeroBalance)
}

type TimeoutError struct {
	Provider string
	Attempts int
	Waited   time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s timeout: no solution after %d attempts (%s)", e.Provider, e.Attempts, e.Waited)
}
