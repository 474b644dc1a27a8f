package selection

import (
	"sort"

	"github.com/agnivade/levenshtein"
	"github.com/alexandervaneck/lambda-ai-cloud-api-client/internal/lambda"
)

// Target is a concrete launch placement.
type Target struct {
	InstanceType string `json:"instance_type_name"`
	Region       string `json:"region_name"`
}

// Resolve narrows catalog with c and picks exactly one type and a region
// with capacity for it.
func Resolve(catalog []lambda.InstanceTypeEntry, c Criteria) (Target, error) {
	entry, err := ResolveType(catalog, c)
	if err != nil {
		return Target{}, err
	}

	region, err := ResolveRegion(entry, c.Regions)
	if err != nil {
		return Target{}, err
	}

	if err := ValidateRegion(region); err != nil {
		return Target{}, err
	}

	return Target{InstanceType: entry.InstanceType.Name, Region: region}, nil
}

// ResolveType returns the single catalog entry selected by c.
func ResolveType(catalog []lambda.InstanceTypeEntry, c Criteria) (lambda.InstanceTypeEntry, error) {
	filtered := Filter(catalog, c)

	if c.InstanceType != "" {
		for _, entry := range filtered {
			if entry.InstanceType.Name == c.InstanceType {
				return entry, nil
			}
		}
		return lambda.InstanceTypeEntry{}, &TypeNotEligibleError{
			Name:       c.InstanceType,
			Suggestion: closestName(catalog, c.InstanceType),
		}
	}

	switch len(filtered) {
	case 0:
		return lambda.InstanceTypeEntry{}, &NoMatchError{}
	case 1:
		return filtered[0], nil
	}

	names := make([]string, 0, len(filtered))
	for _, entry := range filtered {
		names = append(names, entry.InstanceType.Name)
	}
	sort.Strings(names)
	return lambda.InstanceTypeEntry{}, &AmbiguousSelectionError{Candidates: names}
}

// ResolveRegion picks the first requested region the type has capacity
// in, or the type's first capacity region when none was requested.
func ResolveRegion(entry lambda.InstanceTypeEntry, requested []string) (string, error) {
	allowed := entry.RegionNames()

	if len(requested) == 0 {
		if len(allowed) == 0 {
			return "", &NoCapacityError{InstanceType: entry.InstanceType.Name}
		}
		return allowed[0], nil
	}

	for _, want := range requested {
		for _, have := range allowed {
			if want == have {
				return want, nil
			}
		}
	}
	return "", &NoCapacityError{
		InstanceType: entry.InstanceType.Name,
		Requested:    requested,
		Allowed:      allowed,
	}
}

// closestName suggests a catalog name for an unknown one. Names that
// exist in the catalog get no suggestion: they were filtered out, not
// misspelled.
func closestName(catalog []lambda.InstanceTypeEntry, name string) string {
	best, bestDistance := "", len(name)/2+1
	for _, entry := range catalog {
		candidate := entry.InstanceType.Name
		if candidate == name {
			return ""
		}
		if d := levenshtein.ComputeDistance(name, candidate); d < bestDistance {
			best, bestDistance = candidate, d
		}
	}
	return best
}
