package admission

import (
	"testing"
	"time"
)

func TestRateLimiterAllowsUpToLimit(t *testing.T) {
	rl := NewRateLimiter(3, time.Minute)
	for i := 0; i < 3; i++ {
		if !rl.Allow("ip-1") {
			t.Fatalf("expected request %d to be allowed", i)
		}
	}
	if rl.Allow("ip-1") {
		t.Fatal("expected 4th request to be denied")
	}
}

func TestRateLimiterIsolatesKeys(t *testing.T) {
	rl := NewRateLimiter(1, time.Minute)
	if !rl.Allow("ip-a") {
		t.Fatal("expected first request for ip-a to be allowed")
	}
	if !rl.Allow("ip-b") {
		t.Fatal("expected first request for ip-b to be allowed (separate key)")
	}
	if rl.Allow("ip-a") {
		t.Fatal("expected second request for ip-a to be denied")
	}
}

func TestRateLimiterRotatesOldSegments(t *testing.T) {
	rl := NewRateLimiter(1, 40*time.Millisecond)
	if !rl.Allow("ip-c") {
		t.Fatal("expected first request to be allowed")
	}
	time.Sleep(60 * time.Millisecond)
	if !rl.Allow("ip-c") {
		t.Fatal("expected request after full window elapsed to be allowed again")
	}
}
