// Package deviceconfig describes registered devices and provides them to
// the daemon at startup. The daemon treats this as an opaque configuration
// provider per spec; this package supplies one concrete, YAML-backed
// implementation so the daemon has something to boot from.
package deviceconfig

import "fmt"

// Device is one registered device: its connection coordinates and
// credentials. Host is the stable identifier used as the pool key.
type Device struct {
	Name         *string `yaml:"name,omitempty"`
	Host         string  `yaml:"host"`
	Port         uint16  `yaml:"port"`
	KeyPath      string  `yaml:"key_path"`
	User         string  `yaml:"user"`
	RootPassword string  `yaml:"root_password,omitempty"`
	Enabled      bool    `yaml:"enabled"`
}

// DisplayName returns Name if set, otherwise Host.
func (d Device) DisplayName() string {
	if d.Name != nil && *d.Name != "" {
		return *d.Name
	}
	return d.Host
}

// HasRootPassword reports whether ExecAsRoot can be used against this
// device.
func (d Device) HasRootPassword() bool {
	return d.RootPassword != ""
}

func (d Device) validate() error {
	if d.Host == "" {
		return fmt.Errorf("device missing host")
	}
	if d.Port == 0 {
		return fmt.Errorf("device %s: port must be nonzero", d.Host)
	}
	if d.KeyPath == "" {
		return fmt.Errorf("device %s: key_path is required", d.Host)
	}
	return nil
}

// Provider returns the set of devices the daemon should maintain
// connections to. Implementations are read once at daemon start.
type Provider interface {
	EnabledDevices() ([]Device, error)
	DeviceByHost(host string) (Device, bool, error)
}
