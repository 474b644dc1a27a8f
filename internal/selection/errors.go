package selection

import (
	"fmt"
	"strings"
)

// NoMatchError means no catalog entry survived the filters.
type NoMatchError struct{}

func (e *NoMatchError) Error() string {
	return "No instance types match your filters."
}

// TypeNotEligibleError means an explicitly named type was filtered out
// or does not exist.
type TypeNotEligibleError struct {
	Name       string
	Suggestion string
}

func (e *TypeNotEligibleError) Error() string {
	msg := fmt.Sprintf("Instance type '%s' did not match the filters.", e.Name)
	if e.Suggestion != "" {
		msg += fmt.Sprintf(" Did you mean '%s'?", e.Suggestion)
	}
	return msg
}

// AmbiguousSelectionError means several types remain and none was named.
// Candidates are sorted ascending.
type AmbiguousSelectionError struct {
	Candidates []string
}

func (e *AmbiguousSelectionError) Error() string {
	return fmt.Sprintf("Multiple instance types match (%s). Provide --instance-type or narrow filters.",
		strings.Join(e.Candidates, ", "))
}

// NoCapacityError means the resolved type has no usable region.
type NoCapacityError struct {
	InstanceType string
	Requested    []string
	Allowed      []string
}

func (e *NoCapacityError) Error() string {
	if len(e.Requested) > 0 {
		allowed := strings.Join(e.Allowed, ", ")
		if allowed == "" {
			allowed = "-"
		}
		return fmt.Sprintf("No requested region has capacity for '%s'. Allowed regions: %s", e.InstanceType, allowed)
	}
	return fmt.Sprintf("No regions with capacity for '%s'.", e.InstanceType)
}

// InvalidRegionError means a region code is not one the provider knows.
type InvalidRegionError struct {
	Region string
}

func (e *InvalidRegionError) Error() string {
	return fmt.Sprintf("Invalid region '%s'. Choose one of: %s", e.Region, strings.Join(RegionCodes, ", "))
}
