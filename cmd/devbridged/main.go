// devbridged is the debug-bridge daemon: it maintains one SSH session per
// registered device and serves commands against them over a per-user Unix
// socket.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/aurora-devkit/devbridged/pkg/deviceconfig"
	"github.com/aurora-devkit/devbridged/pkg/dlog"
	"github.com/aurora-devkit/devbridged/pkg/history"
	"github.com/aurora-devkit/devbridged/pkg/pool"
	"github.com/aurora-devkit/devbridged/pkg/router"
	"github.com/aurora-devkit/devbridged/pkg/settings"
	"github.com/aurora-devkit/devbridged/pkg/socketserver"
	"github.com/aurora-devkit/devbridged/pkg/transport"
	"github.com/aurora-devkit/devbridged/pkg/version"
)

func main() {
	registryPath := flag.String("devices", "", "path to the device registry YAML file")
	settingsPath := flag.String("settings", "", "path to the daemon settings JSON file (default: "+settings.DefaultSettingsPath()+")")
	socketPath := flag.String("socket", "", "override the daemon's Unix socket path")
	logLevel := flag.String("log-level", "", "override the configured log level")
	printVersion := flag.Bool("version", false, "print version information and exit")
	flag.Parse()

	if *printVersion {
		fmt.Println(version.Info())
		return
	}

	cfg, err := settings.LoadFrom(firstNonEmpty(*settingsPath, settings.DefaultSettingsPath()))
	if err != nil {
		fmt.Fprintf(os.Stderr, "loading settings: %v\n", err)
		os.Exit(1)
	}

	level := firstNonEmpty(*logLevel, cfg.GetLogLevel())
	if err := dlog.SetLevel(level); err != nil {
		fmt.Fprintf(os.Stderr, "invalid log level %q: %v\n", level, err)
		os.Exit(1)
	}

	sock := firstNonEmpty(*socketPath, cfg.SocketPath, socketserver.SocketPath())
	if err := checkNotAlreadyRunning(sock); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	devicesFile := firstNonEmpty(*registryPath, cfg.DeviceRegistryPath)
	if devicesFile == "" {
		fmt.Fprintln(os.Stderr, "no device registry configured: pass -devices or set device_registry_path in settings")
		os.Exit(1)
	}
	provider, err := deviceconfig.LoadYAMLProvider(devicesFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "loading device registry: %v\n", err)
		os.Exit(1)
	}

	devices, err := provider.EnabledDevices()
	if err != nil {
		fmt.Fprintf(os.Stderr, "reading enabled devices: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	tr := transport.NewSSHTransport()
	connPool := pool.NewConnectionPool(tr)
	for _, d := range devices {
		dlog.WithDevice(d.Host).WithField("name", d.DisplayName()).Info("registering device")
		connPool.AddDevice(ctx, d)
	}

	histStore := newHistoryStore(cfg)
	defer histStore.Close()

	shutdownCh := make(chan struct{})
	r := router.New(connPool, sock, shutdownCh).WithHistory(histStore)
	srv := socketserver.New(sock, r, shutdownCh)

	dlog.WithFields(map[string]interface{}{
		"socket":  sock,
		"devices": len(devices),
		"version": version.Version,
	}).Info("devbridged starting")

	if err := srv.ListenAndServe(ctx); err != nil {
		dlog.WithField("error", err).Error("server exited with error")
		os.Exit(1)
	}
	dlog.Logger.Info("devbridged stopped")
}

// checkNotAlreadyRunning refuses to start a second daemon bound to the same
// socket, mirroring the prototype's PID-file liveness check: a stale socket
// file left by a crashed daemon is not itself evidence of a live process.
func checkNotAlreadyRunning(sock string) error {
	pidPath := sock + ".pid"
	if data, err := os.ReadFile(pidPath); err == nil {
		if pid, err := strconv.Atoi(strings.TrimSpace(string(data))); err == nil {
			if proc, err := os.FindProcess(pid); err == nil {
				if err := proc.Signal(syscall.Signal(0)); err == nil {
					return fmt.Errorf("devbridged already running (pid %d, socket %s)", pid, sock)
				}
			}
		}
	}

	return writePIDFile(pidPath)
}

func writePIDFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil
	}
	_ = os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())), 0644)
	return nil
}

// newHistoryStore picks a Redis-backed store when configured, falling back
// to an in-process one otherwise; history is an optional inspection aid, so
// a Redis that won't answer a Ping is not a reason to refuse startup.
func newHistoryStore(cfg *settings.Settings) history.Store {
	if cfg.HistoryRedisAddr == "" {
		return history.NewMemoryStore(cfg.GetHistoryCapacity())
	}
	store := history.NewRedisStore(cfg.HistoryRedisAddr, cfg.GetHistoryCapacity())
	if err := store.Ping(context.Background()); err != nil {
		dlog.WithField("error", err).Warn("history redis unreachable, falling back to in-memory history")
		_ = store.Close()
		return history.NewMemoryStore(cfg.GetHistoryCapacity())
	}
	return store
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
