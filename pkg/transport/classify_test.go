package transport

import (
	"errors"
	"testing"
)

func TestIsConnectivityError(t *testing.T) {
	positive := []string{
		"connection refused",
		"broken pipe",
		"eof",
		"session closed",
		"channel 0: failure",
		"reset by peer",
		"timeout",
	}
	for _, msg := range positive {
		if !IsConnectivityError(errors.New(msg)) {
			t.Errorf("IsConnectivityError(%q) = false, want true", msg)
		}
	}

	negative := []string{"command not found", "permission denied", ""}
	for _, msg := range negative {
		if IsConnectivityError(errors.New(msg)) {
			t.Errorf("IsConnectivityError(%q) = true, want false", msg)
		}
	}

	if IsConnectivityError(nil) {
		t.Error("IsConnectivityError(nil) = true, want false")
	}
}

func TestIsConnectivityErrorCaseInsensitive(t *testing.T) {
	if !IsConnectivityError(errors.New("Connection Refused")) {
		t.Error("classification should be case-insensitive")
	}
}
