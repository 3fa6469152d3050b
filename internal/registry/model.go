package registry

import "time"

// DescriptorExt is the extension of descriptor files in the registry directory.
const DescriptorExt = ".json"

// Descriptor is the on-disk record of one supervised process.
// The file is named after PID, which is therefore not part of the JSON body.
type Descriptor struct {
	PID       int       `json:"-"`
	Name      string    `json:"name"`
	Command   []string  `json:"command"`
	Prefix    string    `json:"prefix"`
	StartedAt time.Time `json:"started_at,omitzero"`
}

// Predicate selects descriptors during a scan.
type Predicate func(Descriptor) bool

// NameEquals matches descriptors with exactly the given name.
func NameEquals(name string) Predicate {
	return func(d Descriptor) bool { return d.Name == name }
}

// PIDIn matches descriptors whose PID is in pids.
func PIDIn(pids ...int) Predicate {
	set := make(map[int]struct{}, len(pids))
	for _, pid := range pids {
		set[pid] = struct{}{}
	}
	return func(d Descriptor) bool {
		_, ok := set[d.PID]
		return ok
	}
}
