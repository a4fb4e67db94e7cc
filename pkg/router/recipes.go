package router

import (
	"fmt"

	"github.com/aurora-devkit/devbridged/pkg/shellescape"
)

// Recipe strings target the D-Bus services and system paths a debug build
// of the OS exposes. They're opaque as far as the wire protocol is
// concerned — clients never see them, only their effects.
const (
	downloadsDir   = "/home/defaultuser/Downloads"
	screenshotsDir = "/home/defaultuser/Pictures/Screenshots"

	apmService        = "ru.omp.APM"
	apmObjectPath     = "/ru/omp/APM"
	mceService        = "ru.mer.mce"
	mceObjectPath     = "/ru/mer/mce/request"
	mceInterface      = "ru.mer.mce.request"
	runtimeService    = "ru.omp.RuntimeManager"
	runtimeObjectPath = "/ru/omp/RuntimeManager/Control1"
	deviceInfoService = "ru.omp.deviceinfo"
	deviceInfoPath    = "/ru/omp/deviceinfo/Features"
	lipstickService   = "org.nemomobile.lipstick"
	lipstickPath      = "/org/nemomobile/lipstick/screenshot"
	fileService       = "org.sailfishos.fileservice"
)

func gdbusSystemCall(dest, objectPath, method, args string) string {
	if args == "" {
		return fmt.Sprintf("gdbus call --system --dest %s --object-path %s --method %s", dest, objectPath, method)
	}
	return fmt.Sprintf("gdbus call --system --dest %s --object-path %s --method %s %s", dest, objectPath, method, args)
}

func installCommand(remotePath string) string {
	return gdbusSystemCall(apmService, apmObjectPath, apmService+".Install",
		shellescape.Quoted(remotePath)+` "{}"`)
}

func uninstallCommand(packageName string) string {
	return gdbusSystemCall(apmService, apmObjectPath, apmService+".Remove",
		shellescape.Quoted(packageName)+` "{}"`)
}

func packageListCommand() string {
	return gdbusSystemCall(apmService, apmObjectPath, apmService+".GetPackageList", "")
}

func launchCommand(appName string) string {
	return gdbusSystemCall(runtimeService, runtimeObjectPath, runtimeService+".Control1.Start",
		shellescape.Quoted(appName))
}

func stopCommand(appName string) string {
	return gdbusSystemCall(runtimeService, runtimeObjectPath, runtimeService+".Control1.Terminate",
		shellescape.Quoted(appName))
}

func mceCommand(method, args string) string {
	return gdbusSystemCall(mceService, mceObjectPath, mceInterface+"."+method, args)
}

func screenResolutionCommand() string {
	return gdbusSystemCall(deviceInfoService, deviceInfoPath, deviceInfoService+".Features.getScreenResolution", "")
}

func deviceInfoCommand(method string) string {
	return gdbusSystemCall(deviceInfoService, deviceInfoPath, deviceInfoService+".Features."+method, "")
}

func screenshotCommand(remotePath string) string {
	return fmt.Sprintf(
		`dbus-send --session --print-reply --dest=%s %s %s.saveScreenshot string:%s`,
		lipstickService, lipstickPath, lipstickService, shellescape.Quoted(remotePath))
}

func base64ReadCommand(remotePath string) string {
	return fmt.Sprintf("base64 %s", shellescape.Quoted(remotePath))
}

func removeFileCommand(remotePath string) string {
	return fmt.Sprintf("rm -f %s", shellescape.Quoted(remotePath))
}

func openURLCommand(url string) string {
	return fmt.Sprintf(
		`gdbus call --session --dest %s --object-path / --method %s.openUrl %s`,
		fileService, fileService, shellescape.Quoted(url))
}

func memInfoCommand() string {
	return `awk '/MemAvailable/{a=$2} /MemFree/{f=$2} /^Buffers/{b=$2} /^Cached/{c=$2} END{print a,f,b,c}' /proc/meminfo`
}

func homeStorageCommand() string {
	return `stat -f -c '%b %a %S' /home`
}
