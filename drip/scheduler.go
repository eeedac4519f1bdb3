package drip

import "time"

// DefaultFrameInterval approximates one rendering frame.
const DefaultFrameInterval = 16 * time.Millisecond

// FrameScheduler schedules a single callback on the next frame. The buffer
// schedules at most one drain per frame and re-schedules from inside the
// drain, so implementations only need one-shot semantics. The returned
// cancel func must be safe to call after the callback has fired.
type FrameScheduler interface {
	Schedule(fn func()) (cancel func())
}

// TimerScheduler implements FrameScheduler on a one-shot timer, mapping the
// frame-callback contract onto goroutine scheduling: one synchronous drain
// cycle, then a voluntary yield until the timer fires again.
type TimerScheduler struct {
	Interval time.Duration
}

// Schedule implements FrameScheduler.
func (s TimerScheduler) Schedule(fn func()) func() {
	interval := s.Interval
	if interval <= 0 {
		interval = DefaultFrameInterval
	}
	t := time.AfterFunc(interval, fn)
	return func() { t.Stop() }
}
