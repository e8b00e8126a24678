package metrics

import (
	"sync/atomic"
	"time"
)

type Collector struct {
	totalRequests      uint64
	errorRequests      uint64
	rateLimited        uint64
	totalDurationMs    uint64
	calculationsOK     uint64
	calculationsFailed uint64
	resultsWritten     uint64
	uploads            uint64
}

func New() *Collector {
	return &Collector{}
}

func (c *Collector) Record(status int, duration time.Duration) {
	if c == nil {
		return
	}
	atomic.AddUint64(&c.totalRequests, 1)
	if status >= 500 {
		atomic.AddUint64(&c.errorRequests, 1)
	}
	if status == 429 {
		atomic.AddUint64(&c.rateLimited, 1)
	}
	atomic.AddUint64(&c.totalDurationMs, uint64(duration.Milliseconds()))
}

func (c *Collector) RecordCalculation(written int, err error) {
	if c == nil {
		return
	}
	if err != nil {
		atomic.AddUint64(&c.calculationsFailed, 1)
		return
	}
	atomic.AddUint64(&c.calculationsOK, 1)
	atomic.AddUint64(&c.resultsWritten, uint64(written))
}

func (c *Collector) RecordUpload() {
	if c == nil {
		return
	}
	atomic.AddUint64(&c.uploads, 1)
}

func (c *Collector) Snapshot() map[string]any {
	total := atomic.LoadUint64(&c.totalRequests)
	errs := atomic.LoadUint64(&c.errorRequests)
	limited := atomic.LoadUint64(&c.rateLimited)
	totalMs := atomic.LoadUint64(&c.totalDurationMs)
	avg := float64(0)
	if total > 0 {
		avg = float64(totalMs) / float64(total)
	}
	return map[string]any{
		"requestsTotal":           total,
		"errorsTotal":             errs,
		"rateLimitedTotal":        limited,
		"avgDurationMs":           avg,
		"totalDurationMs":         totalMs,
		"calculationsTotal":       atomic.LoadUint64(&c.calculationsOK),
		"calculationsFailedTotal": atomic.LoadUint64(&c.calculationsFailed),
		"resultsWrittenTotal":     atomic.LoadUint64(&c.resultsWritten),
		"uploadsTotal":            atomic.LoadUint64(&c.uploads),
	}
}
