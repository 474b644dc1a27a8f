package readiness

import (
	"fmt"
	"time"
)

type Phase string

const (
	PhaseIP  Phase = "ip"
	PhaseSSH Phase = "ssh"
)

// TimeoutError reports which phase ran out of budget and for which instance.
type TimeoutError struct {
	Phase   Phase
	Label   string
	ID      string
	Timeout time.Duration
	Elapsed time.Duration
}

func (e *TimeoutError) Error() string {
	what := "receive an IP"
	if e.Phase == PhaseSSH {
		what = "open SSH"
	}
	return fmt.Sprintf("Instance '%s' (%s) did not %s within %d seconds (waited %ds).",
		e.Label, e.ID, what, int(e.Timeout.Seconds()), int(e.Elapsed.Round(time.Second).Seconds()))
}
