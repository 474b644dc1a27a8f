package remote

import "fmt"

// InputError is a malformed -e, --env-file or -v value, detected before
// any network or subprocess activity.
type InputError struct {
	Msg string
}

func (e *InputError) Error() string { return e.Msg }

// ExitError carries a subprocess exit code that the CLI must exit with.
type ExitError struct {
	Command string
	Code    int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("%s failed with code %d", e.Command, e.Code)
}
