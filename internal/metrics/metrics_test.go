package metrics

import (
	"sync"
	"testing"
)

func TestCountersSnapshot(t *testing.T) {
	var c Counters
	c.RequestServed()
	c.RequestServed()
	c.FaultCaught()
	c.CallTimedOut()
	c.DetourInstalled()
	c.EventDropped()
	c.EventDropped()

	snap := c.Snapshot()
	want := Snapshot{
		RequestsServed:   2,
		FaultsCaught:     1,
		CallsTimedOut:    1,
		DetoursInstalled: 1,
		EventsDropped:    2,
	}
	if snap != want {
		t.Errorf("Snapshot() = %+v, want %+v", snap, want)
	}
}

func TestCountersConcurrent(t *testing.T) {
	var c Counters
	var wg sync.WaitGroup
	const n = 200
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.RequestServed()
		}()
	}
	wg.Wait()
	if got := c.Snapshot().RequestsServed; got != n {
		t.Errorf("RequestsServed = %d, want %d", got, n)
	}
}
