package concurrent

import (
	"sync"
	"sync/atomic"
	"time"
)

type Stats struct {
	Submitted      int64         `json:"submitted"`
	Completed      int64         `json:"completed"`
	Failed         int64         `json:"failed"`
	Rejected       int64         `json:"rejected"`
	AvgProcessTime time.Duration `json:"avgProcessTime"`
	MaxProcessTime time.Duration `json:"maxProcessTime"`
}

type StatsCollector struct {
	submitted atomic.Int64
	completed atomic.Int64
	failed    atomic.Int64
	rejected  atomic.Int64

	mutex     sync.Mutex
	totalTime time.Duration
	maxTime   time.Duration
	timed     int64
}

func NewStatsCollector() *StatsCollector {
	return &StatsCollector{}
}

func (sc *StatsCollector) IncrementSubmitted() { sc.submitted.Add(1) }
func (sc *StatsCollector) IncrementCompleted() { sc.completed.Add(1) }
func (sc *StatsCollector) IncrementFailed()    { sc.failed.Add(1) }
func (sc *StatsCollector) IncrementRejected()  { sc.rejected.Add(1) }

func (sc *StatsCollector) RecordProcessingTime(d time.Duration) {
	sc.mutex.Lock()
	defer sc.mutex.Unlock()

	sc.totalTime += d
	sc.timed++
	if d > sc.maxTime {
		sc.maxTime = d
	}
}

func (sc *StatsCollector) GetStats() Stats {
	stats := Stats{
		Submitted: sc.submitted.Load(),
		Completed: sc.completed.Load(),
		Failed:    sc.failed.Load(),
		Rejected:  sc.rejected.Load(),
	}

	sc.mutex.Lock()
	defer sc.mutex.Unlock()
	if sc.timed > 0 {
		stats.AvgProcessTime = sc.totalTime / time.Duration(sc.timed)
	}
	stats.MaxProcessTime = sc.maxTime
	return stats
}
