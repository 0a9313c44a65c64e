package gtest

import (
	"testing"
	"time"
)

// ScaleDuration is applied to every timeout in this package.
// Raise it for slow CI machines.
var ScaleDuration = 1.0

func scaled(d time.Duration) time.Duration {
	return time.Duration(float64(d) * ScaleDuration)
}

// ReceiveSoon returns the value received from ch,
// failing the test if no value arrives within a short time.
func ReceiveSoon[T any](t testing.TB, ch <-chan T) T {
	t.Helper()

	timer := time.NewTimer(scaled(time.Second))
	defer timer.Stop()

	select {
	case v := <-ch:
		return v
	case <-timer.C:
		t.Fatalf("did not receive value in time")
	}

	panic("unreachable")
}

// NotSending fails the test if a value is ready to receive on ch
// within a brief window.
func NotSending[T any](t testing.TB, ch <-chan T) {
	t.Helper()

	timer := time.NewTimer(scaled(10 * time.Millisecond))
	defer timer.Stop()

	select {
	case <-ch:
		t.Fatalf("unexpected value received")
	case <-timer.C:
	}
}
