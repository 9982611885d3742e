package captcha

import "errors"

const (
	CapErrZeroBalance        = "ERROR_ZERO_BALANCE"
	CapErrTypeNotSupported   = "ERROR_TYPE_NOT_SUPPORTED"
	CapErrTaskNotFound       = "ERROR_TASK_NOT_FOUND"
	CapErrInvalidTaskData    = "ERROR_INVALID_TASK_DATA"
	CapErrKeyDoesNotExist    = "ERROR_KEY_DOES_NOT_EXIST"
	CapErrTaskTimeout        = "ERROR_TASK_TIMEOUT"
	CapErrCaptchaUnsolvable  = "ERROR_CAPTCHA_UNSOLVABLE"
	CapErrMaxConcurrentTasks = "ERROR_TOO_MANY_REQUESTS"
)

const (
	TwoErrZeroBalance       = "ERROR_ZERO_BALANCE"
	TwoErrWrongUserKey      = "ERROR_WRONG_USER_KEY"
	TwoErrKeyDoesNotExist   = "ERROR_KEY_DOES_NOT_EXIST"
	TwoErrNoSlots           = "ERROR_NO_SLOT_AVAILABLE"
	TwoErrCaptchaUnsolvable = "ERROR_CAPTCHA_UNSOLVABLE"
	TwoErrBadParameters     = "ERROR_BAD_PARAMETERS"
	TwoErrWrongCaptchaID    = "ERROR_WRONG_CAPTCHA_ID"
	TwoErrIPNotAllowed      = "ERROR_IP_NOT_ALLOWED"

	// TwoNotReady is the res.php answer while a worker is still solving.
	TwoNotReady = "CAPCHA_NOT_READY"
)

const (
	DefaultMaxAttempts = 40
	progressEvery      = 6
)

var ErrZeroBalance = errors.New("captcha solver zero balance")
