package pool

import (
	"context"
	"time"

	"mredis/conn"
	"mredis/lib/timewheel"
)

// StartIdleHealthCheck pings every currently-free connection every
// interval and closes/discards any that fail, using a recurring
// timewheel job rather than one ticker goroutine per pool. It returns a
// function that stops the checks.
func (p *Pool) StartIdleHealthCheck(interval time.Duration) func() {
	slots := int(interval.Seconds())
	if slots < 1 {
		slots = 1
	}
	wheel := timewheel.New(interval, slots*2+1)
	wheel.OnPanic(func(r interface{}) {
		p.cfg.ConnectionDefaultLogger.Errorw("idle health check panic", "recovered", r)
	})
	wheel.Start()

	const key = "pool-idle-health-check"
	// The wheel's slots are interval wide and a slot runs on the tick after
	// it becomes current, so a zero delay runs the job on the next tick,
	// one interval after the previous run.
	var reschedule func()
	reschedule = func() {
		wheel.AddJob(0, key, func() {
			p.checkIdleConnections()
			reschedule()
		})
	}
	reschedule()

	return func() {
		wheel.RemoveJob(key)
		wheel.Stop()
	}
}

func (p *Pool) checkIdleConnections() {
	p.mu.Lock()
	free := append([]*conn.Connection{}, p.free...)
	p.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	for _, c := range free {
		if _, err := c.Ping(ctx, nil); err != nil {
			p.mu.Lock()
			p.removeFreeLocked(c)
			p.mu.Unlock()
			_ = c.Close()
			p.cfg.ConnectionDefaultLogger.Warnw("idle connection failed health check", "cause", err)
		}
	}
}

func (p *Pool) removeFreeLocked(c *conn.Connection) {
	for i, fc := range p.free {
		if fc == c {
			p.free = append(p.free[:i], p.free[i+1:]...)
			break
		}
	}
	p.metrics.setOpen(len(p.free) + len(p.leased))
}
