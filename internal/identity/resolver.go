package identity

import (
	"fmt"
	"strings"

	"github.com/agnivade/levenshtein"
	"github.com/alexandervaneck/lambda-ai-cloud-api-client/internal/lambda"
)

// NotFoundError means neither an id nor a name matched.
type NotFoundError struct {
	Query string
	// Suggestion is the closest known name or id, if any is close.
	Suggestion string
}

func (e *NotFoundError) Error() string {
	msg := fmt.Sprintf("No instance found with name or id '%s'.", e.Query)
	if e.Suggestion != "" {
		msg += fmt.Sprintf(" Did you mean '%s'?", e.Suggestion)
	}
	return msg
}

// AmbiguousNameError means several instances share the requested name.
type AmbiguousNameError struct {
	Name string
	IDs  []string
}

func (e *AmbiguousNameError) Error() string {
	return fmt.Sprintf("Multiple instances share the name '%s'. Choose by ID instead. Matches: %s",
		e.Name, strings.Join(e.IDs, ", "))
}

// Resolve maps an id or name onto exactly one instance. An id match wins
// outright; names must be unique among instances.
func Resolve(instances []lambda.Instance, idOrName string) (lambda.Instance, error) {
	for _, inst := range instances {
		if inst.ID == idOrName {
			return inst, nil
		}
	}

	var matches []lambda.Instance
	for _, inst := range instances {
		if name, ok := inst.GetName(); ok && name == idOrName {
			matches = append(matches, inst)
		}
	}

	switch len(matches) {
	case 0:
		return lambda.Instance{}, &NotFoundError{Query: idOrName, Suggestion: suggest(instances, idOrName)}
	case 1:
		return matches[0], nil
	}

	ids := make([]string, 0, len(matches))
	for _, inst := range matches {
		ids = append(ids, inst.ID)
	}
	return lambda.Instance{}, &AmbiguousNameError{Name: idOrName, IDs: ids}
}

// ResolveAll resolves each argument in order and drops repeated ids.
func ResolveAll(instances []lambda.Instance, idsOrNames []string) ([]lambda.Instance, error) {
	seen := make(map[string]bool, len(idsOrNames))
	out := make([]lambda.Instance, 0, len(idsOrNames))
	for _, arg := range idsOrNames {
		inst, err := Resolve(instances, arg)
		if err != nil {
			return nil, err
		}
		if seen[inst.ID] {
			continue
		}
		seen[inst.ID] = true
		out = append(out, inst)
	}
	return out, nil
}

func suggest(instances []lambda.Instance, query string) string {
	best, bestDistance := "", len(query)/3+1
	for _, inst := range instances {
		name, ok := inst.GetName()
		if !ok {
			continue
		}
		if d := levenshtein.ComputeDistance(strings.ToLower(query), strings.ToLower(name)); d < bestDistance {
			best, bestDistance = name, d
		}
	}
	return best
}
