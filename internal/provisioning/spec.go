package provisioning

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/alexandervaneck/lambda-ai-cloud-api-client/internal/lambda"
)

// InputError is a malformed flag or argument, detected before any
// network call.
type InputError struct {
	Msg string
}

func (e *InputError) Error() string { return e.Msg }

// ParseImage builds the image selector. At most one of id and family
// may be set; neither yields nil.
func ParseImage(id, family string) (*lambda.ImageSpec, error) {
	switch {
	case id != "" && family != "":
		return nil, &InputError{Msg: "Use either --image-id or --image-family, not both."}
	case id != "":
		return &lambda.ImageSpec{ID: id}, nil
	case family != "":
		return &lambda.ImageSpec{Family: family}, nil
	}
	return nil, nil
}

// ParseTags parses key=value strings, splitting on the first '='.
// Keys must be non-empty; values may be empty or contain '='.
func ParseTags(raw []string) ([]lambda.Tag, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	tags := make([]lambda.Tag, 0, len(raw))
	for _, item := range raw {
		key, value, ok := strings.Cut(item, "=")
		if !ok || key == "" {
			return nil, &InputError{Msg: fmt.Sprintf("Invalid tag '%s'. Use key=value format.", item)}
		}
		tags = append(tags, lambda.Tag{Key: key, Value: value})
	}
	return tags, nil
}

// ReadUserData returns the file content verbatim. An empty path yields "".
func ReadUserData(path string) (string, error) {
	if path == "" {
		return "", nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return "", &InputError{Msg: fmt.Sprintf("User-data file not found: %s", path)}
	}
	if err != nil {
		return "", fmt.Errorf("failed to read user-data file: %w", err)
	}
	return string(data), nil
}
