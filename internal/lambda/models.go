package lambda

import (
	"sort"
)

// InstanceStatus is the provider-reported lifecycle state of an instance.
type InstanceStatus string

const (
	StatusBooting     InstanceStatus = "booting"
	StatusActive      InstanceStatus = "active"
	StatusUnhealthy   InstanceStatus = "unhealthy"
	StatusTerminating InstanceStatus = "terminating"
	StatusTerminated  InstanceStatus = "terminated"
	StatusPreempted   InstanceStatus = "preempted"
)

type Region struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

type InstanceTypeSpecs struct {
	VCPUs      int `json:"vcpus"`
	MemoryGiB  int `json:"memory_gib"`
	StorageGiB int `json:"storage_gib"`
	GPUs       int `json:"gpus"`
}

type InstanceType struct {
	Name              string            `json:"name"`
	Description       string            `json:"description,omitempty"`
	GPUDescription    string            `json:"gpu_description,omitempty"`
	PriceCentsPerHour int               `json:"price_cents_per_hour"`
	Specs             InstanceTypeSpecs `json:"specs"`
}

// InstanceTypeEntry is one catalog record: a provisionable type and the
// regions where it can currently be launched, in provider order.
type InstanceTypeEntry struct {
	InstanceType                 InstanceType `json:"instance_type"`
	RegionsWithCapacityAvailable []Region     `json:"regions_with_capacity_available"`
}

// RegionNames returns the capacity regions in provider order.
func (e InstanceTypeEntry) RegionNames() []string {
	names := make([]string, 0, len(e.RegionsWithCapacityAvailable))
	for _, r := range e.RegionsWithCapacityAvailable {
		names = append(names, r.Name)
	}
	return names
}

// InstanceTypes is the catalog keyed by type name, as returned by the API.
type InstanceTypes map[string]InstanceTypeEntry

// Sorted returns the catalog entries ordered by type name.
func (t InstanceTypes) Sorted() []InstanceTypeEntry {
	names := make([]string, 0, len(t))
	for name := range t {
		names = append(names, name)
	}
	sort.Strings(names)

	entries := make([]InstanceTypeEntry, 0, len(names))
	for _, name := range names {
		entry := t[name]
		if entry.InstanceType.Name == "" {
			entry.InstanceType.Name = name
		}
		entries = append(entries, entry)
	}
	return entries
}

type Tag struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Instance mirrors the provider's instance record. Fields the provider may
// omit are pointers; use the accessors to read them.
type Instance struct {
	ID              string         `json:"id"`
	Name            *string        `json:"name,omitempty"`
	IP              *string        `json:"ip,omitempty"`
	PrivateIP       *string        `json:"private_ip,omitempty"`
	Status          InstanceStatus `json:"status"`
	SSHKeyNames     []string       `json:"ssh_key_names,omitempty"`
	FileSystemNames []string       `json:"file_system_names,omitempty"`
	Region          *Region        `json:"region,omitempty"`
	InstanceType    *InstanceType  `json:"instance_type,omitempty"`
	Hostname        *string        `json:"hostname,omitempty"`
	JupyterToken    *string        `json:"jupyter_token,omitempty"`
	JupyterURL      *string        `json:"jupyter_url,omitempty"`
	IsReserved      *bool          `json:"is_reserved,omitempty"`
	Tags            []Tag          `json:"tags,omitempty"`
}

// GetName returns the instance name and whether one is set.
func (i Instance) GetName() (string, bool) {
	if i.Name == nil || *i.Name == "" {
		return "", false
	}
	return *i.Name, true
}

// GetIP returns the public IP and whether one has been assigned.
func (i Instance) GetIP() (string, bool) {
	if i.IP == nil || *i.IP == "" {
		return "", false
	}
	return *i.IP, true
}

func (i Instance) RegionName() string {
	if i.Region == nil {
		return ""
	}
	return i.Region.Name
}

func (i Instance) GPUDescription() string {
	if i.InstanceType == nil {
		return ""
	}
	return i.InstanceType.GPUDescription
}

// PriceCentsPerHour returns the hourly price and whether the type is known.
func (i Instance) PriceCentsPerHour() (int, bool) {
	if i.InstanceType == nil {
		return 0, false
	}
	return i.InstanceType.PriceCentsPerHour, true
}

// ImageSpec selects a boot image either by id or by family.
type ImageSpec struct {
	ID     string `json:"id,omitempty"`
	Family string `json:"family,omitempty"`
}

type LaunchRequest struct {
	RegionName       string     `json:"region_name"`
	InstanceTypeName string     `json:"instance_type_name"`
	SSHKeyNames      []string   `json:"ssh_key_names"`
	FileSystemNames  []string   `json:"file_system_names,omitempty"`
	Name             string     `json:"name,omitempty"`
	Hostname         string     `json:"hostname,omitempty"`
	Image            *ImageSpec `json:"image,omitempty"`
	UserData         string     `json:"user_data,omitempty"`
	Tags             []Tag      `json:"tags,omitempty"`
}

type LaunchData struct {
	InstanceIDs []string `json:"instance_ids"`
}

type TerminateData struct {
	TerminatedInstances []Instance `json:"terminated_instances"`
}

type RestartData struct {
	RestartedInstances []Instance `json:"restarted_instances"`
}

type Image struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Description  string `json:"description,omitempty"`
	Family       string `json:"family"`
	Version      string `json:"version"`
	Architecture string `json:"architecture"`
	Region       Region `json:"region"`
	CreatedTime  string `json:"created_time,omitempty"`
	UpdatedTime  string `json:"updated_time,omitempty"`
}

type SSHKey struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	PublicKey string `json:"public_key"`
	// PrivateKey is only present when the provider generated the pair.
	PrivateKey *string `json:"private_key,omitempty"`
}

type AddSSHKeyRequest struct {
	Name      string `json:"name"`
	PublicKey string `json:"public_key,omitempty"`
}
