package environment

import (
	"context"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/net"
	"github.com/sirupsen/logrus"

	"github.com/nutrifit-ops/scan-telemetry-go/internal/database/models"
)

// Capturer reads ambient device signals into environment snapshots. Every
// probe is best-effort: an unavailable signal becomes a nil field, never an
// error.
type Capturer struct {
	logger *logrus.Logger
}

// NewCapturer creates a new environment capturer
func NewCapturer(logger *logrus.Logger) *Capturer {
	return &Capturer{logger: logger}
}

// Snapshot captures a full environment snapshot: host identity, memory and
// network state. Battery and screen are client-reported signals and stay
// nil here; ingest handlers merge them in when clients supply them.
func (c *Capturer) Snapshot(ctx context.Context) *models.EnvironmentSnapshot {
	snapshot := &models.EnvironmentSnapshot{
		Timestamp: time.Now(),
	}

	if info, err := host.InfoWithContext(ctx); err == nil {
		snapshot.Platform = info.Platform
		snapshot.OS = info.OS
		snapshot.Hostname = info.Hostname
	} else {
		c.logger.WithError(err).Debug("Host probe unavailable")
	}

	snapshot.Memory = c.memoryInfo(ctx)
	snapshot.Network = c.networkInfo(ctx)

	return snapshot
}

// Lightweight captures the per-record snapshot: timestamp plus memory only.
func (c *Capturer) Lightweight(ctx context.Context) *models.EnvironmentSnapshot {
	return &models.EnvironmentSnapshot{
		Timestamp: time.Now(),
		Memory:    c.memoryInfo(ctx),
	}
}

func (c *Capturer) memoryInfo(ctx context.Context) *models.MemoryInfo {
	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		c.logger.WithError(err).Debug("Memory probe unavailable")
		return nil
	}

	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)

	return &models.MemoryInfo{
		TotalBytes: vm.Total,
		UsedBytes:  vm.Used,
		UsedMB:     float64(vm.Used) / (1024 * 1024),
		HeapBytes:  ms.HeapAlloc,
	}
}

func (c *Capturer) networkInfo(ctx context.Context) *models.NetworkInfo {
	interfaces, err := net.InterfacesWithContext(ctx)
	if err != nil {
		c.logger.WithError(err).Debug("Network probe unavailable")
		return nil
	}

	// First non-loopback interface that is up
	for _, iface := range interfaces {
		up, loopback := false, false
		for _, flag := range iface.Flags {
			if flag == "up" {
				up = true
			}
			if flag == "loopback" {
				loopback = true
			}
		}
		if up && !loopback {
			return &models.NetworkInfo{
				Interface: iface.Name,
				Online:    true,
			}
		}
	}

	return &models.NetworkInfo{Online: false}
}
