package frame

import "time"

// SchedulerBuilderOption is a functional option for configuring a Scheduler.
type SchedulerBuilderOption func(*scheduler)

// WithFrameLimit caps the rate at which Next hands out frames.
// Pass 0 to leave the scheduler uncapped (default).
//
// Parameters:
//   - fps: maximum frames per second (0 = uncapped)
//
// Returns:
//   - SchedulerBuilderOption: option function to apply
func WithFrameLimit(fps float64) SchedulerBuilderOption {
	return func(s *scheduler) {
		if fps <= 0 {
			s.frameInterval = 0
			return
		}
		s.frameInterval = time.Duration(float64(time.Second) / fps)
	}
}

// WithClock replaces the wall clock the scheduler measures time with.
//
// Parameters:
//   - now: returns the current time
//
// Returns:
//   - SchedulerBuilderOption: option function to apply
func WithClock(now func() time.Time) SchedulerBuilderOption {
	return func(s *scheduler) {
		if now != nil {
			s.now = now
		}
	}
}
