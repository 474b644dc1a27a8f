package cmd

import (
	"sort"
	"strconv"
	"strings"

	"github.com/alexandervaneck/lambda-ai-cloud-api-client/internal/lambda"
	"github.com/alexandervaneck/lambda-ai-cloud-api-client/internal/output"
)

func instancesTable(instances []lambda.Instance) output.Table {
	t := output.Table{Header: []string{"ID", "Name", "IP", "Status", "Region", "GPU", "Price ($/hr)"}}
	for _, inst := range instances {
		name, _ := inst.GetName()
		ip, _ := inst.GetIP()
		cents, _ := inst.PriceCentsPerHour()
		t.Rows = append(t.Rows, []string{
			inst.ID,
			name,
			ip,
			string(inst.Status),
			inst.RegionName(),
			inst.GPUDescription(),
			output.Dollars(cents),
		})
	}
	return t
}

func typesTable(entries []lambda.InstanceTypeEntry) output.Table {
	t := output.Table{Header: []string{
		"Name", "GPU", "vCPUs", "Memory (GiB)", "Storage (GiB)", "GPUs", "Price ($/hr)", "Regions w/ Capacity",
	}}
	for _, e := range entries {
		it := e.InstanceType
		t.Rows = append(t.Rows, []string{
			it.Name,
			it.GPUDescription,
			strconv.Itoa(it.Specs.VCPUs),
			strconv.Itoa(it.Specs.MemoryGiB),
			strconv.Itoa(it.Specs.StorageGiB),
			strconv.Itoa(it.Specs.GPUs),
			output.Dollars(it.PriceCentsPerHour),
			output.OrDash(strings.Join(e.RegionNames(), ", ")),
		})
	}
	return t
}

func imagesTable(images []lambda.Image) output.Table {
	t := output.Table{Header: []string{"ID", "Name", "Family", "Version", "Arch", "Region"}}
	for _, img := range images {
		t.Rows = append(t.Rows, []string{img.ID, img.Name, img.Family, img.Version, img.Architecture, img.Region.Name})
	}
	return t
}

func keysTable(keys []lambda.SSHKey) output.Table {
	t := output.Table{Header: []string{"ID", "Name", "Public key"}}
	for _, k := range keys {
		t.Rows = append(t.Rows, []string{k.ID, k.Name, k.PublicKey})
	}
	return t
}

// filterInstances keeps instances in any of regions and any of statuses;
// an empty list leaves that dimension unconstrained.
func filterInstances(instances []lambda.Instance, regions, statuses []string) []lambda.Instance {
	filtered := make([]lambda.Instance, 0, len(instances))
	for _, inst := range instances {
		if len(regions) > 0 && !contains(regions, inst.RegionName()) {
			continue
		}
		if len(statuses) > 0 && !contains(statuses, string(inst.Status)) {
			continue
		}
		filtered = append(filtered, inst)
	}
	return filtered
}

type imageFilter struct {
	families []string
	versions []string
	arches   []string
	regions  []string
}

// apply filters images and orders them by region, then version.
func (f imageFilter) apply(images []lambda.Image) []lambda.Image {
	filtered := make([]lambda.Image, 0, len(images))
	for _, img := range images {
		if len(f.families) > 0 && !contains(f.families, img.Family) {
			continue
		}
		if len(f.versions) > 0 && !contains(f.versions, img.Version) {
			continue
		}
		if len(f.arches) > 0 && !contains(f.arches, img.Architecture) {
			continue
		}
		if len(f.regions) > 0 && !contains(f.regions, img.Region.Name) {
			continue
		}
		filtered = append(filtered, img)
	}
	sort.SliceStable(filtered, func(i, j int) bool {
		if filtered[i].Region.Name != filtered[j].Region.Name {
			return filtered[i].Region.Name < filtered[j].Region.Name
		}
		return filtered[i].Version < filtered[j].Version
	})
	return filtered
}

func filterKeys(keys []lambda.SSHKey, ids, names []string) []lambda.SSHKey {
	filtered := make([]lambda.SSHKey, 0, len(keys))
	for _, k := range keys {
		if len(ids) > 0 && !contains(ids, k.ID) {
			continue
		}
		if len(names) > 0 && !contains(names, k.Name) {
			continue
		}
		filtered = append(filtered, k)
	}
	return filtered
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
