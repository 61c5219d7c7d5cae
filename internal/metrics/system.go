// Package metrics collects host and container status for dashboard widgets.
package metrics

import (
	"context"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/load"
	"github.com/shirou/gopsutil/v3/mem"
)

// SystemMetrics represents current host resource usage.
type SystemMetrics struct {
	CPU     CPUMetrics    `json:"cpu"`
	Memory  MemoryMetrics `json:"memory"`
	Disks   []DiskMetrics `json:"disks"`
	Uptime  int64         `json:"uptime"`   // seconds
	LoadAvg []float64     `json:"load_avg"` // 1, 5, 15 min
}

// CPUMetrics represents CPU usage.
type CPUMetrics struct {
	UsagePercent float64 `json:"usage_percent"`
	Cores        int     `json:"cores"`
}

// MemoryMetrics represents memory usage.
type MemoryMetrics struct {
	Total       uint64  `json:"total"`
	Used        uint64  `json:"used"`
	Available   uint64  `json:"available"`
	UsedPercent float64 `json:"used_percent"`
}

// DiskMetrics represents usage of one mounted filesystem.
type DiskMetrics struct {
	Device      string  `json:"device"`
	MountPoint  string  `json:"mount_point"`
	Filesystem  string  `json:"filesystem"`
	Total       uint64  `json:"total"`
	Used        uint64  `json:"used"`
	Available   uint64  `json:"available"`
	UsedPercent float64 `json:"used_percent"`
}

// GetSystemMetrics collects host metrics, running the slow collectors in
// parallel.
func GetSystemMetrics(ctx context.Context) (*SystemMetrics, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	metrics := &SystemMetrics{}
	var wg sync.WaitGroup
	var mu sync.Mutex

	wg.Add(1)
	go func() {
		defer wg.Done()
		if ctx.Err() != nil {
			return
		}
		cpuPercent, err := cpu.Percent(200*time.Millisecond, false)
		if err == nil && len(cpuPercent) > 0 {
			mu.Lock()
			metrics.CPU.UsagePercent = cpuPercent[0]
			mu.Unlock()
		}
		if cores, err := cpu.Counts(true); err == nil {
			mu.Lock()
			metrics.CPU.Cores = cores
			mu.Unlock()
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		if ctx.Err() != nil {
			return
		}
		vmem, err := mem.VirtualMemory()
		if err != nil {
			return
		}
		mu.Lock()
		metrics.Memory = MemoryMetrics{
			Total:       vmem.Total,
			Used:        vmem.Used,
			Available:   vmem.Available,
			UsedPercent: vmem.UsedPercent,
		}
		mu.Unlock()
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		if ctx.Err() != nil {
			return
		}
		partitions, err := disk.Partitions(false)
		if err != nil {
			return
		}

		var disks []DiskMetrics
		for _, p := range partitions {
			if isVirtualFilesystem(p.Fstype) {
				continue
			}
			usage, err := disk.Usage(p.Mountpoint)
			if err != nil {
				continue
			}
			disks = append(disks, DiskMetrics{
				Device:      p.Device,
				MountPoint:  p.Mountpoint,
				Filesystem:  p.Fstype,
				Total:       usage.Total,
				Used:        usage.Used,
				Available:   usage.Free,
				UsedPercent: usage.UsedPercent,
			})
		}

		mu.Lock()
		metrics.Disks = disks
		mu.Unlock()
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		if uptime, err := host.Uptime(); err == nil {
			mu.Lock()
			metrics.Uptime = int64(uptime)
			mu.Unlock()
		}
		if avg, err := load.Avg(); err == nil {
			mu.Lock()
			metrics.LoadAvg = []float64{avg.Load1, avg.Load5, avg.Load15}
			mu.Unlock()
		}
	}()

	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return metrics, nil
}

func isVirtualFilesystem(fstype string) bool {
	switch fstype {
	case "tmpfs", "devtmpfs", "devfs", "overlay", "squashfs", "proc",
		"sysfs", "cgroup", "cgroup2", "debugfs", "securityfs", "fusectl",
		"autofs", "mqueue", "hugetlbfs", "binfmt_misc", "pstore", "tracefs":
		return true
	}
	return false
}
