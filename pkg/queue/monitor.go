package queue

import (
	"context"
	"fmt"
	"time"

	"github.com/PancyStudios/PancyMusicGo/pkg/errors"
	"github.com/PancyStudios/PancyMusicGo/pkg/logger"
)

const (
	DefaultIdleInterval  = 60 * time.Second
	DefaultIdleThreshold = 5
)

// IdleMonitor ticks on a fixed interval and calls onIdle after threshold
// consecutive idle ticks. A busy tick resets the count.
type IdleMonitor struct {
	guildID   string
	interval  time.Duration
	threshold int
	isIdle    func() bool
	onIdle    func()

	cancel context.CancelFunc
	done   chan struct{}
}

func newIdleMonitor(guildID string, interval time.Duration, threshold int, isIdle func() bool, onIdle func()) *IdleMonitor {
	if interval <= 0 {
		interval = DefaultIdleInterval
	}
	if threshold <= 0 {
		threshold = DefaultIdleThreshold
	}
	return &IdleMonitor{
		guildID:   guildID,
		interval:  interval,
		threshold: threshold,
		isIdle:    isIdle,
		onIdle:    onIdle,
		done:      make(chan struct{}),
	}
}

func (m *IdleMonitor) start() {
	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	go m.run(ctx)
}

func (m *IdleMonitor) run(ctx context.Context) {
	defer close(m.done)
	defer errors.RecoverMiddleware()()

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	idle := 0
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if m.isIdle() {
				idle++
				logger.Debug(fmt.Sprintf("[%s] Tick inactivo %d/%d", m.guildID, idle, m.threshold), "IdleMonitor")
			} else {
				idle = 0
			}
			if idle >= m.threshold {
				m.onIdle()
				return
			}
		}
	}
}

// cancelAndWait stops the monitor and waits for its goroutine to exit.
// It must not be called from onIdle.
func (m *IdleMonitor) cancelAndWait() {
	m.cancel()
	<-m.done
}
