package delivery

import (
	"testing"
	"time"
)

func TestShouldRetry(t *testing.T) {
	r := NewRetryStrategy(5)

	tests := []struct {
		retryCount int
		want       bool
	}{
		{0, true},
		{1, true},
		{4, true},
		{5, false},
		{6, false},
	}

	for _, tt := range tests {
		if got := r.ShouldRetry(tt.retryCount); got != tt.want {
			t.Errorf("ShouldRetry(%d) = %v, want %v", tt.retryCount, got, tt.want)
		}
	}
}

func TestNextBackoffRange(t *testing.T) {
	r := NewRetryStrategy(5)

	for retryCount := 0; retryCount < len(r.Schedule); retryCount++ {
		base := r.Schedule[retryCount]
		for i := 0; i < 50; i++ {
			got := r.NextBackoff(retryCount)
			if got < base/2 || got > base {
				t.Fatalf("NextBackoff(%d) = %v, want in [%v, %v]", retryCount, got, base/2, base)
			}
		}
	}
}

func TestNextBackoffClampsPastSchedule(t *testing.T) {
	r := NewRetryStrategy(10)
	last := r.Schedule[len(r.Schedule)-1]

	got := r.NextBackoff(99)
	if got < last/2 || got > last {
		t.Errorf("NextBackoff(99) = %v, want in [%v, %v]", got, last/2, last)
	}
}

func TestCustomSchedule(t *testing.T) {
	r := &RetryStrategy{
		MaxRetries: 2,
		Schedule:   []time.Duration{time.Second},
	}
	if !r.ShouldRetry(1) {
		t.Error("ShouldRetry(1) = false with MaxRetries 2")
	}
	if r.ShouldRetry(2) {
		t.Error("ShouldRetry(2) = true with MaxRetries 2")
	}
}
