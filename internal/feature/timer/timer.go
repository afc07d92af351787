// Package timer is the round countdown.
package timer

import (
	"fmt"
	"sync"
	"time"
)

type Feature struct {
	now func() time.Time

	mu  sync.Mutex
	end time.Time
}

func New() *Feature {
	return &Feature{now: time.Now}
}

// NewWithClock is New with an injectable clock.
func NewWithClock(now func() time.Time) *Feature {
	return &Feature{now: now}
}

// SetDuration makes the countdown end d from now. Zero ends it immediately.
func (f *Feature) SetDuration(d time.Duration) {
	f.mu.Lock()
	f.end = f.now().Add(d)
	f.mu.Unlock()
}

// Remaining is the time left, never negative.
func (f *Feature) Remaining() time.Duration {
	f.mu.Lock()
	defer f.mu.Unlock()
	left := f.end.Sub(f.now())
	if left < 0 {
		return 0
	}
	return left
}

func (f *Feature) Expired() bool { return f.Remaining() <= 0 }

// FormatStandard renders d as mm:ss, or h:mm:ss from one hour up.
func FormatStandard(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	secs := int(d.Round(time.Second) / time.Second)
	h, m, s := secs/3600, secs/60%60, secs%60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%02d:%02d", m, s)
}
