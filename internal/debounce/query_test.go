package debounce

import (
	"testing"
	"time"

	"oversee-cli/internal/clock/clocktest"
)

type publication struct {
	at    time.Duration
	value string
}

func newRecorded(t *testing.T, interval time.Duration) (*Query, *clocktest.Fake, *[]publication) {
	t.Helper()
	clk := clocktest.New()
	start := clk.Now()
	got := &[]publication{}
	q := New(interval, clk, func(v string) {
		*got = append(*got, publication{at: clk.Now().Sub(start), value: v})
	})
	return q, clk, got
}

func TestQuery_InputsAt0_50_100_300_PublishOnceAt500(t *testing.T) {
	t.Parallel()

	q, clk, got := newRecorded(t, 200*time.Millisecond)

	q.Set("p") // t=0
	clk.Advance(50 * time.Millisecond)
	q.Set("pa") // t=50
	clk.Advance(50 * time.Millisecond)
	q.Set("par") // t=100
	clk.Advance(199 * time.Millisecond)
	// The input at t=300 lands before the timer armed at t=100 is serviced.
	clk.Move(time.Millisecond)
	q.Set("parafuso") // t=300
	clk.Advance(199 * time.Millisecond)
	if len(*got) != 0 {
		t.Fatalf("published too early: %+v", *got)
	}
	clk.Advance(time.Millisecond) // t=500
	clk.Advance(time.Second)

	if len(*got) != 1 {
		t.Fatalf("expected exactly one publication; got %+v", *got)
	}
	p := (*got)[0]
	if p.at != 500*time.Millisecond || p.value != "parafuso" {
		t.Fatalf("expected publication of %q at 500ms; got %q at %v", "parafuso", p.value, p.at)
	}
	if q.Stable() != "parafuso" {
		t.Fatalf("Stable() = %q", q.Stable())
	}
}

func TestQuery_SingleTimerOutstanding(t *testing.T) {
	t.Parallel()

	q, clk, _ := newRecorded(t, 200*time.Millisecond)
	for i := 0; i < 10; i++ {
		q.Set(string(rune('a' + i)))
		clk.Advance(10 * time.Millisecond)
	}
	if n := clk.Pending(); n != 1 {
		t.Fatalf("expected one pending timer; got %d", n)
	}
	if !q.Pending() {
		t.Fatalf("expected a pending publication")
	}
}

func TestQuery_CloseCancelsPendingPublication(t *testing.T) {
	t.Parallel()

	q, clk, got := newRecorded(t, 200*time.Millisecond)
	q.Set("abc")
	clk.Advance(100 * time.Millisecond)
	q.Close()
	clk.Advance(time.Second)
	q.Set("later")
	clk.Advance(time.Second)

	if len(*got) != 0 {
		t.Fatalf("expected no publication after Close; got %+v", *got)
	}
	if clk.Pending() != 0 {
		t.Fatalf("expected no timers after Close; got %d", clk.Pending())
	}
	if q.Raw() != "abc" {
		t.Fatalf("Set after Close must be ignored; raw=%q", q.Raw())
	}
}

func TestQuery_FlushPublishesImmediately(t *testing.T) {
	t.Parallel()

	q, clk, got := newRecorded(t, 200*time.Millisecond)
	q.Set("12")
	q.Flush()
	clk.Advance(time.Second)

	if len(*got) != 1 || (*got)[0].value != "12" || (*got)[0].at != 0 {
		t.Fatalf("expected a single immediate publication; got %+v", *got)
	}
}

func TestQuery_RealClock(t *testing.T) {
	t.Parallel()

	done := make(chan string, 1)
	q := New(10*time.Millisecond, nil, func(v string) { done <- v })
	defer q.Close()
	q.Set("x")
	q.Set("xy")

	select {
	case v := <-done:
		if v != "xy" {
			t.Fatalf("expected xy; got %q", v)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for publication")
	}
}
