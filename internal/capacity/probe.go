package capacity

import (
	"fmt"
	"time"

	"github.com/shirou/gopsutil/v3/disk"

	"tunebox/internal/metrics"
)

// Disk states reported by the probe
const (
	StatusOK      = "ok"
	StatusWarning = "warning"
	StatusAlert   = "alert"
)

// UsageInfo holds information about disk usage of one path
type UsageInfo struct {
	Path        string    `json:"path"`
	Total       uint64    `json:"total"`
	Free        uint64    `json:"free"`
	UsedPercent float64   `json:"used_percent"`
	Status      string    `json:"status"`
	Timestamp   time.Time `json:"timestamp"`
}

// Thresholds defines warning and alert thresholds in percent used
type Thresholds struct {
	WarnPercent  float64
	AlertPercent float64
}

// DefaultThresholds returns the thresholds used when none are configured
func DefaultThresholds() Thresholds {
	return Thresholds{
		WarnPercent:  80.0,
		AlertPercent: 90.0,
	}
}

// Probe reports how full the filesystem holding the staging directory is.
// Uploads are staged on disk before they reach the database, so a full disk
// fails every upload.
type Probe struct {
	thresholds Thresholds
	metrics    *metrics.Metrics
	usage      func(path string) (*disk.UsageStat, error)
}

// NewProbe creates a disk probe. Zero thresholds fall back to the defaults.
func NewProbe(thresholds Thresholds, m *metrics.Metrics) *Probe {
	if thresholds.WarnPercent <= 0 || thresholds.AlertPercent <= 0 {
		thresholds = DefaultThresholds()
	}
	return &Probe{
		thresholds: thresholds,
		metrics:    m,
		usage:      disk.Usage,
	}
}

// GetUsage retrieves usage information for path and records it in metrics
func (p *Probe) GetUsage(path string) (UsageInfo, error) {
	if path == "" {
		return UsageInfo{}, fmt.Errorf("path cannot be empty")
	}

	stat, err := p.usage(path)
	if err != nil {
		return UsageInfo{}, fmt.Errorf("failed to get disk usage for path %s: %w", path, err)
	}

	p.metrics.SetStagingDiskUsage(stat.UsedPercent)

	return UsageInfo{
		Path:        path,
		Total:       stat.Total,
		Free:        stat.Free,
		UsedPercent: stat.UsedPercent,
		Status:      p.evaluateStatus(stat.UsedPercent),
		Timestamp:   time.Now(),
	}, nil
}

func (p *Probe) evaluateStatus(usedPercent float64) string {
	if usedPercent >= p.thresholds.AlertPercent {
		return StatusAlert
	} else if usedPercent >= p.thresholds.WarnPercent {
		return StatusWarning
	}
	return StatusOK
}
