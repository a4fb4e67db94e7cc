package deviceconfig

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// registryFile is the on-disk shape of the device registry.
type registryFile struct {
	Devices []Device `yaml:"devices"`
}

// YAMLProvider loads devices from a YAML file once and serves them from
// memory for the rest of the process lifetime.
type YAMLProvider struct {
	devices []Device
	byHost  map[string]Device
}

// LoadYAMLProvider reads and validates the device registry at path.
func LoadYAMLProvider(path string) (*YAMLProvider, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading device registry %s: %w", path, err)
	}

	var reg registryFile
	if err := yaml.Unmarshal(data, &reg); err != nil {
		return nil, fmt.Errorf("parsing device registry %s: %w", path, err)
	}

	byHost := make(map[string]Device, len(reg.Devices))
	for _, d := range reg.Devices {
		if err := d.validate(); err != nil {
			return nil, fmt.Errorf("device registry %s: %w", path, err)
		}
		if _, dup := byHost[d.Host]; dup {
			return nil, fmt.Errorf("device registry %s: duplicate host %q", path, d.Host)
		}
		byHost[d.Host] = d
	}

	return &YAMLProvider{devices: reg.Devices, byHost: byHost}, nil
}

// EnabledDevices returns every device with Enabled set.
func (p *YAMLProvider) EnabledDevices() ([]Device, error) {
	var out []Device
	for _, d := range p.devices {
		if d.Enabled {
			out = append(out, d)
		}
	}
	return out, nil
}

// DeviceByHost looks up a single device by its host identifier.
func (p *YAMLProvider) DeviceByHost(host string) (Device, bool, error) {
	d, ok := p.byHost[host]
	return d, ok, nil
}
