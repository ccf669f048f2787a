package watch

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestDebouncer_Coalesces(t *testing.T) {
	var calls atomic.Int32
	d := NewDebouncer(50*time.Millisecond, func() { calls.Add(1) })

	for i := 0; i < 10; i++ {
		d.Call()
	}
	time.Sleep(150 * time.Millisecond)

	if calls.Load() != 1 {
		t.Errorf("calls = %d, want 1", calls.Load())
	}
}

func TestDebouncer_SpacedCalls(t *testing.T) {
	var calls atomic.Int32
	d := NewDebouncer(30*time.Millisecond, func() { calls.Add(1) })

	for i := 0; i < 3; i++ {
		d.Call()
		time.Sleep(100 * time.Millisecond)
	}
	if calls.Load() != 3 {
		t.Errorf("calls = %d, want 3", calls.Load())
	}
}

func TestDebouncer_Cancel(t *testing.T) {
	var calls atomic.Int32
	d := NewDebouncer(50*time.Millisecond, func() { calls.Add(1) })

	d.Call()
	if !d.IsPending() {
		t.Error("IsPending() = false after Call")
	}
	d.Cancel()
	time.Sleep(100 * time.Millisecond)

	if calls.Load() != 0 {
		t.Errorf("calls = %d, want 0", calls.Load())
	}
	if d.IsPending() {
		t.Error("IsPending() = true after Cancel")
	}
}

func TestDebouncer_Flush(t *testing.T) {
	var calls atomic.Int32
	d := NewDebouncer(time.Hour, func() { calls.Add(1) })

	d.Flush()
	if calls.Load() != 0 {
		t.Error("Flush without a pending call ran the callback")
	}

	d.Call()
	d.Flush()
	if calls.Load() != 1 {
		t.Errorf("calls = %d after Flush, want 1", calls.Load())
	}
}
