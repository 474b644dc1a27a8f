package remote

import (
	"errors"
	"fmt"
	"os"
	"strings"
)

// Volume maps a local path onto a remote one for the duration of a run.
type Volume struct {
	Local  string
	Remote string
}

func (v Volume) String() string { return v.Local + ":" + v.Remote }

// ParseVolumes parses local:remote specs, splitting on the first ':'.
// Local paths must exist.
func ParseVolumes(specs []string) ([]Volume, error) {
	volumes := make([]Volume, 0, len(specs))
	for _, spec := range specs {
		local, remote, ok := strings.Cut(spec, ":")
		if !ok || local == "" || remote == "" {
			return nil, &InputError{Msg: fmt.Sprintf("Invalid volume '%s'. Use <local-path>:<remote-path>.", spec)}
		}
		if _, err := os.Stat(local); errors.Is(err, os.ErrNotExist) {
			return nil, &InputError{Msg: fmt.Sprintf("Local path not found for volume: %s", local)}
		} else if err != nil {
			return nil, fmt.Errorf("failed to stat %s: %w", local, err)
		}
		volumes = append(volumes, Volume{Local: local, Remote: remote})
	}
	return volumes, nil
}
