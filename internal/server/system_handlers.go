package server

import (
	"encoding/json"
	"net/http"
	"runtime"
	"time"

	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/aristath/appraiser/internal/scheduler"
)

// JobStatusSource reports background job outcomes for the status payload.
type JobStatusSource interface {
	Statuses() []scheduler.JobStatus
}

// SystemHandlers serves process and host status endpoints.
type SystemHandlers struct {
	log       zerolog.Logger
	startedAt time.Time
	jobs      JobStatusSource
}

// NewSystemHandlers creates system status handlers. jobs may be nil when no
// scheduler is running.
func NewSystemHandlers(log zerolog.Logger, jobs JobStatusSource) *SystemHandlers {
	return &SystemHandlers{
		log:       log.With().Str("component", "system_handlers").Logger(),
		startedAt: time.Now(),
		jobs:      jobs,
	}
}

// SystemStatus is the status endpoint payload.
type SystemStatus struct {
	Status        string                `json:"status"`
	UptimeSeconds float64               `json:"uptime_seconds"`
	CPUPercent    float64               `json:"cpu_percent"`
	MemoryPercent float64               `json:"memory_percent"`
	Goroutines    int                   `json:"goroutines"`
	Jobs          []scheduler.JobStatus `json:"jobs,omitempty"`
}

// HandleSystemStatus reports host CPU/memory usage and process uptime.
// GET /api/system/status
func (h *SystemHandlers) HandleSystemStatus(w http.ResponseWriter, r *http.Request) {
	cpuPercent, memPercent := h.systemStats()

	status := SystemStatus{
		Status:        "ok",
		UptimeSeconds: time.Since(h.startedAt).Seconds(),
		CPUPercent:    cpuPercent,
		MemoryPercent: memPercent,
		Goroutines:    runtime.NumGoroutine(),
	}
	if h.jobs != nil {
		status.Jobs = h.jobs.Statuses()
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(status); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode system status")
	}
}

// systemStats samples CPU and RAM usage. The short CPU interval keeps the
// endpoint responsive for pollers.
func (h *SystemHandlers) systemStats() (float64, float64) {
	cpuPercent, err := cpu.Percent(100*time.Millisecond, false)
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get CPU percentage")
		cpuPercent = []float64{0}
	}

	memStat, err := mem.VirtualMemory()
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get memory statistics")
		return 0, 0
	}

	cpuAvg := 0.0
	if len(cpuPercent) > 0 {
		cpuAvg = cpuPercent[0]
	}
	return cpuAvg, memStat.UsedPercent
}
