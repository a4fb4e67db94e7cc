package deviceconfig

import (
	"os"
	"path/filepath"
	"testing"
)

func writeRegistry(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "devices.yaml")
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}
	return path
}

func TestLoadYAMLProviderEnabledDevices(t *testing.T) {
	path := writeRegistry(t, `
devices:
  - host: 10.0.0.1
    port: 22
    key_path: /home/me/.ssh/id_ed25519
    user: defaultuser
    enabled: true
  - host: 10.0.0.2
    port: 22
    key_path: /home/me/.ssh/id_ed25519
    user: defaultuser
    enabled: false
`)
	p, err := LoadYAMLProvider(path)
	if err != nil {
		t.Fatalf("LoadYAMLProvider: %v", err)
	}

	enabled, err := p.EnabledDevices()
	if err != nil {
		t.Fatalf("EnabledDevices: %v", err)
	}
	if len(enabled) != 1 || enabled[0].Host != "10.0.0.1" {
		t.Errorf("EnabledDevices = %+v, want only 10.0.0.1", enabled)
	}

	if _, ok, _ := p.DeviceByHost("10.0.0.2"); !ok {
		t.Error("DeviceByHost should find disabled devices too")
	}
	if _, ok, _ := p.DeviceByHost("nope"); ok {
		t.Error("DeviceByHost should not find unregistered host")
	}
}

func TestLoadYAMLProviderRejectsDuplicateHost(t *testing.T) {
	path := writeRegistry(t, `
devices:
  - host: 10.0.0.1
    port: 22
    key_path: /k
    user: u
    enabled: true
  - host: 10.0.0.1
    port: 22
    key_path: /k
    user: u
    enabled: true
`)
	if _, err := LoadYAMLProvider(path); err == nil {
		t.Fatal("expected duplicate host error")
	}
}

func TestLoadYAMLProviderRejectsMissingKeyPath(t *testing.T) {
	path := writeRegistry(t, `
devices:
  - host: 10.0.0.1
    port: 22
    user: u
    enabled: true
`)
	if _, err := LoadYAMLProvider(path); err == nil {
		t.Fatal("expected validation error for missing key_path")
	}
}
