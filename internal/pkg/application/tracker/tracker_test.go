package tracker

import (
	"strconv"
	"testing"
	"time"

	"github.com/matryer/is"
)

func TestTrackerBroadcastsOnExpiry(t *testing.T) {
	is := is.New(t)

	tr := New()
	defer tr.Close()

	sub := tr.Subscribe()
	defer sub.Cancel()

	tr.Insert("foo", 20*time.Millisecond)

	select {
	case key := <-sub.Keys():
		is.Equal(key, "foo")
	case <-time.After(time.Second):
		t.Fatal("expected an expiry for foo")
	}
}

func TestTrackerRefreshSupersedesPriorTimer(t *testing.T) {
	is := is.New(t)

	tr := New()
	defer tr.Close()

	sub := tr.Subscribe()
	defer sub.Cancel()

	start := time.Now()
	tr.Insert("Bar", 40*time.Millisecond)
	time.Sleep(40 * time.Millisecond)
	tr.Insert("Bar", 150*time.Millisecond)

	select {
	case key := <-sub.Keys():
		is.Equal(key, "Bar")
		elapsed := time.Since(start)
		is.True(elapsed >= 150*time.Millisecond)
	case <-time.After(2 * time.Second):
		t.Fatal("expected exactly one expiry for Bar")
	}

	select {
	case key := <-sub.Keys():
		t.Fatalf("unexpected second expiry: %s", key)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestTrackerReinsertBeforeMinElapsedYieldsNoEarlyBroadcast(t *testing.T) {
	tr := New()
	defer tr.Close()

	sub := tr.Subscribe()
	defer sub.Cancel()

	tr.Insert("k", 30*time.Millisecond)
	tr.Insert("k", 200*time.Millisecond)

	select {
	case key := <-sub.Keys():
		t.Fatalf("unexpected early expiry for %s: the 30ms timer should have been superseded", key)
	case <-time.After(60 * time.Millisecond):
	}
}

func TestTrackerMultipleSubscribersEachGetExpiry(t *testing.T) {
	is := is.New(t)

	tr := New()
	defer tr.Close()

	sub1 := tr.Subscribe()
	defer sub1.Cancel()
	sub2 := tr.Subscribe()
	defer sub2.Cancel()

	tr.Insert("multi", 10*time.Millisecond)

	for _, sub := range []*Subscription{sub1, sub2} {
		select {
		case key := <-sub.Keys():
			is.Equal(key, "multi")
		case <-time.After(time.Second):
			t.Fatal("expected both subscribers to observe the expiry")
		}
	}
}

func TestTrackerCloseDrainsWithoutForceCompleting(t *testing.T) {
	tr := New()

	tr.Insert("long-lived", time.Hour)

	done := make(chan struct{})
	go func() {
		tr.Close()
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("Close returned while an hour-long timer was still in flight; in-flight timers must not be force-completed")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestTrackerScaleSmoke(t *testing.T) {
	is := is.New(t)

	tr := New()
	defer tr.Close()

	sub := tr.Subscribe()
	defer sub.Cancel()

	const n = 2000
	for i := 0; i < n; i++ {
		tr.Insert("key-"+strconv.Itoa(i), 20*time.Millisecond)
		if i%200 == 0 {
			time.Sleep(time.Millisecond)
		}
	}

	seen := make(map[string]bool, n)
	deadline := time.After(5 * time.Second)
	for len(seen) < n {
		select {
		case key := <-sub.Keys():
			seen[key] = true
		case <-deadline:
			t.Fatalf("only received %d/%d expiries before timeout", len(seen), n)
		}
	}
	is.Equal(len(seen), n)
}
