package frame

import (
	"context"
	"time"
)

// Timestamp is the time of a frame in milliseconds since the scheduler started.
type Timestamp float64

// Seconds converts the timestamp to the seconds value written into the uniform block.
//
// Returns:
//   - float32: the timestamp scaled by 0.001
func (t Timestamp) Seconds() float32 {
	return float32(t * 0.001)
}

// scheduler implements the Scheduler interface.
type scheduler struct {
	now   func() time.Time
	start time.Time

	frameInterval time.Duration // minimum time between frames; 0 = uncapped
	lastFrame     time.Time
	lastTimestamp Timestamp
	started       bool
}

// Scheduler hands out frame timestamps to the render loop, one frame at a time.
type Scheduler interface {
	// Next blocks until the next frame is due and returns its timestamp.
	// Timestamps never decrease between calls. The first call returns immediately.
	//
	// Parameters:
	//   - ctx: cancels the wait for the next frame
	//
	// Returns:
	//   - Timestamp: milliseconds since the scheduler started
	//   - error: the context error if ctx is done before the frame is due
	Next(ctx context.Context) (Timestamp, error)

	// FrameInterval returns the minimum duration between two frames, 0 if uncapped.
	//
	// Returns:
	//   - time.Duration: the configured frame interval
	FrameInterval() time.Duration
}

var _ Scheduler = &scheduler{}

// NewScheduler creates a Scheduler whose clock starts at construction time.
// Without options the scheduler is uncapped and the present mode paces frames.
//
// Parameters:
//   - options: functional options for scheduler configuration
//
// Returns:
//   - Scheduler: the newly created scheduler
func NewScheduler(options ...SchedulerBuilderOption) Scheduler {
	s := &scheduler{
		now: time.Now,
	}
	for _, opt := range options {
		opt(s)
	}
	s.start = s.now()
	return s
}

func (s *scheduler) Next(ctx context.Context) (Timestamp, error) {
	if err := ctx.Err(); err != nil {
		return s.lastTimestamp, err
	}

	if s.started && s.frameInterval > 0 {
		if remaining := s.frameInterval - s.now().Sub(s.lastFrame); remaining > 0 {
			timer := time.NewTimer(remaining)
			select {
			case <-ctx.Done():
				timer.Stop()
				return s.lastTimestamp, ctx.Err()
			case <-timer.C:
			}
		}
	}

	now := s.now()
	ts := Timestamp(float64(now.Sub(s.start)) / float64(time.Millisecond))
	if ts < s.lastTimestamp {
		ts = s.lastTimestamp
	}

	s.lastFrame = now
	s.lastTimestamp = ts
	s.started = true
	return ts, nil
}

func (s *scheduler) FrameInterval() time.Duration {
	return s.frameInterval
}
