// Package observability collects process- and host-level information the
// server reports at startup and on its heartbeat.
package observability

import (
	"log/slog"
	"os"

	"github.com/shirou/gopsutil/host"
)

// LogSystemInformation records the host the server runs on. Failures are
// reported and ignored; missing host details never block startup.
func LogSystemInformation(log *slog.Logger) {
	log.Info("Server process started", "pid", os.Getpid())

	info, err := host.Info()
	if err != nil {
		log.Warn("Unable to read host information", "err", err)
		return
	}
	log.Info("Host information",
		"hostname", info.Hostname,
		"os", info.OS,
		"platform", info.Platform,
		"platform_version", info.PlatformVersion,
		"kernel_arch", info.KernelArch,
	)
}
