package monitor

import (
	"time"

	"github.com/levenlabs/go-lflag"

	"github.com/enlightenmonitor/enlightenmonitor/pkg/storage"
)

// Configured creates a Monitor and registers its flags.
func Configured(source PerformanceSource, db storage.Database) *Monitor {
	tick := lflag.Duration("monitor-tick", time.Minute, "How often to check whether a refresh is due")

	m := New(source, db)
	lflag.Do(func() {
		if *tick > 0 {
			m.tick = *tick
		}
	})
	return m
}
