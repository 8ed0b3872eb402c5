package order

import (
	"math"
	"time"
)

const DefaultCancellationWindow = 30 * time.Second

// CancellationRemaining is how much of the window is left at now. It is
// zero once the window has passed.
func CancellationRemaining(orderTime, now time.Time, window time.Duration) time.Duration {
	remaining := window - now.Sub(orderTime)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// WithinWindow reports whether now - orderTime <= window.
func WithinWindow(orderTime, now time.Time, window time.Duration) bool {
	return now.Sub(orderTime) <= window
}

// NewView computes the read-time cancellation fields for o.
func NewView(o Order, now time.Time, window time.Duration) View {
	v := View{Order: o}
	if o.Status.Terminal() || !WithinWindow(o.OrderTime, now, window) {
		return v
	}
	v.Cancellable = true
	v.CancelSecondsRemaining = int(math.Ceil(CancellationRemaining(o.OrderTime, now, window).Seconds()))
	return v
}
