package main

import (
	"runtime"
	"sync"
	"time"

	"github.com/farxc/informes-obras/internal/logger"
)

type ProfilerStats struct {
	PeakGoroutines int
	PeakMemoryMB   uint64
}

// MemoryMonitor samples memory use while the batch runs. Large workbooks
// and a headless browser both show up here.
type MemoryMonitor struct {
	mu    sync.Mutex
	stats ProfilerStats
	stop  chan struct{}
	once  sync.Once
}

func NewMonitor() *MemoryMonitor {
	return &MemoryMonitor{
		stop: make(chan struct{}),
	}
}

func (m *MemoryMonitor) Start(interval time.Duration, log *logger.Logger) {
	m.update(log)
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				m.update(log)
			case <-m.stop:
				return
			}
		}
	}()
}

func (m *MemoryMonitor) update(log *logger.Logger) {
	const component = "Monitor"

	var mStats runtime.MemStats
	runtime.ReadMemStats(&mStats)

	goroutines := runtime.NumGoroutine()
	memoryMB := mStats.Alloc / 1024 / 1024

	m.mu.Lock()
	defer m.mu.Unlock()

	if goroutines > m.stats.PeakGoroutines {
		m.stats.PeakGoroutines = goroutines
	}
	if memoryMB > m.stats.PeakMemoryMB {
		m.stats.PeakMemoryMB = memoryMB
	}

	log.Debug(component, "goroutines=%d memoryMB=%d peakGoroutines=%d peakMemoryMB=%d", goroutines, memoryMB, m.stats.PeakGoroutines, m.stats.PeakMemoryMB)
}

// Stop ends sampling and returns the peaks. It is safe to call twice.
func (m *MemoryMonitor) Stop() ProfilerStats {
	m.once.Do(func() { close(m.stop) })
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stats
}
