package registry

import (
	"encoding/json"
	"os"
)

// writeDescriptor replaces path atomically so concurrent scans never observe a
// half-written descriptor. The temporary name does not carry DescriptorExt.
func writeDescriptor(path string, d Descriptor) error {
	b, err := json.Marshal(d)
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o600); err != nil {
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return nil
}
