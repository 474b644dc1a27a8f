package selection

import (
	"strings"

	"github.com/alexandervaneck/lambda-ai-cloud-api-client/internal/lambda"
)

// Criteria narrows an instance type catalog. Zero values leave a
// dimension unconstrained; all set dimensions must hold.
type Criteria struct {
	// InstanceType requires an exact type-name match.
	InstanceType string
	// Available keeps only types with capacity in at least one region.
	Available bool
	// Cheapest keeps only the entries at the minimum price, after every
	// other criterion has been applied.
	Cheapest bool
	// Regions keeps types with capacity in any of the listed regions.
	Regions []string
	// GPUs keeps types whose GPU description contains any of the terms,
	// case-insensitively.
	GPUs []string

	MinGPUs       int
	MinVCPUs      int
	MinMemoryGiB  int
	MinStorageGiB int
	// MaxPrice is in dollars per hour, inclusive.
	MaxPrice *float64
}

// IsZero reports whether no criterion is set.
func (c Criteria) IsZero() bool {
	return c.InstanceType == "" && !c.Available && !c.Cheapest &&
		len(c.Regions) == 0 && len(c.GPUs) == 0 &&
		c.MinGPUs == 0 && c.MinVCPUs == 0 && c.MinMemoryGiB == 0 && c.MinStorageGiB == 0 &&
		c.MaxPrice == nil
}

// Filter returns the catalog entries satisfying c, preserving input order.
func Filter(catalog []lambda.InstanceTypeEntry, c Criteria) []lambda.InstanceTypeEntry {
	filtered := make([]lambda.InstanceTypeEntry, 0, len(catalog))
	for _, entry := range catalog {
		if matches(entry, c) {
			filtered = append(filtered, entry)
		}
	}

	if c.Cheapest {
		filtered = cheapest(filtered)
	}
	return filtered
}

func matches(entry lambda.InstanceTypeEntry, c Criteria) bool {
	it := entry.InstanceType

	if c.InstanceType != "" && it.Name != c.InstanceType {
		return false
	}
	if c.Available && len(entry.RegionsWithCapacityAvailable) == 0 {
		return false
	}
	if len(c.Regions) > 0 && !hasCapacityIn(entry, c.Regions) {
		return false
	}
	if len(c.GPUs) > 0 && !gpuMatches(it.GPUDescription, c.GPUs) {
		return false
	}
	if it.Specs.GPUs < c.MinGPUs ||
		it.Specs.VCPUs < c.MinVCPUs ||
		it.Specs.MemoryGiB < c.MinMemoryGiB ||
		it.Specs.StorageGiB < c.MinStorageGiB {
		return false
	}
	if c.MaxPrice != nil && !withinPrice(it.PriceCentsPerHour, *c.MaxPrice) {
		return false
	}
	return true
}

func hasCapacityIn(entry lambda.InstanceTypeEntry, regions []string) bool {
	for _, available := range entry.RegionsWithCapacityAvailable {
		for _, wanted := range regions {
			if available.Name == wanted {
				return true
			}
		}
	}
	return false
}

func gpuMatches(description string, terms []string) bool {
	if description == "" {
		return false
	}
	description = strings.ToLower(description)
	for _, term := range terms {
		if strings.Contains(description, strings.ToLower(term)) {
			return true
		}
	}
	return false
}

// withinPrice compares in cents; the epsilon absorbs float noise in
// dollar inputs such as 0.29.
func withinPrice(cents int, maxDollars float64) bool {
	return float64(cents) <= maxDollars*100+1e-6
}

func cheapest(entries []lambda.InstanceTypeEntry) []lambda.InstanceTypeEntry {
	if len(entries) == 0 {
		return entries
	}
	low := entries[0].InstanceType.PriceCentsPerHour
	for _, e := range entries[1:] {
		if e.InstanceType.PriceCentsPerHour < low {
			low = e.InstanceType.PriceCentsPerHour
		}
	}

	out := entries[:0:0]
	for _, e := range entries {
		if e.InstanceType.PriceCentsPerHour == low {
			out = append(out, e)
		}
	}
	return out
}
