package retry

import (
	"testing"
	"time"
)

// TestDelayForNoJitter 禁用抖动时的精确退避序列：1s、2s、4s
func TestDelayForNoJitter(t *testing.T) {
	p := &policy{cfg: &Config{
		BaseDelay:         time.Second,
		MaxDelay:          30 * time.Second,
		BackoffMultiplier: 2,
		JitterEnabled:     false,
	}}

	want := []time.Duration{time.Second, 2 * time.Second, 4 * time.Second}
	for attempt, expected := range want {
		if got := p.delayFor(attempt); got != expected {
			t.Errorf("delayFor(%d) = %v, want %v", attempt, got, expected)
		}
	}
}

// TestDelayForCappedByMaxDelay 延迟受 MaxDelay 封顶
func TestDelayForCappedByMaxDelay(t *testing.T) {
	p := &policy{cfg: &Config{
		BaseDelay:         time.Second,
		MaxDelay:          5 * time.Second,
		BackoffMultiplier: 2,
	}}

	if got := p.delayFor(10); got != 5*time.Second {
		t.Fatalf("delayFor(10) = %v, want capped 5s", got)
	}
}

// TestDelayForJitterBounds 抖动后的等待落在 [0.5*d, d] 区间内
func TestDelayForJitterBounds(t *testing.T) {
	p := &policy{cfg: &Config{
		BaseDelay:         time.Second,
		MaxDelay:          30 * time.Second,
		BackoffMultiplier: 2,
		JitterEnabled:     true,
	}}

	for attempt := 0; attempt < 5; attempt++ {
		base := time.Duration(float64(time.Second) * pow(2, attempt))
		if base > 30*time.Second {
			base = 30 * time.Second
		}
		for i := 0; i < 100; i++ {
			got := p.delayFor(attempt)
			if got < base/2 || got > base {
				t.Fatalf("delayFor(%d) = %v outside [%v, %v]", attempt, got, base/2, base)
			}
		}
	}
}

func pow(base float64, exp int) float64 {
	result := 1.0
	for i := 0; i < exp; i++ {
		result *= base
	}
	return result
}
