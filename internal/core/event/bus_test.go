package event

import (
	"sync"
	"testing"
)

func TestEventsArriveNextTick(t *testing.T) {
	b := NewBus()
	var got []int
	Subscribe(b, func(e PointChanged) { got = append(got, e.Total) })

	Emit(b, PointChanged{Total: 1})
	b.DispatchAll()
	if len(got) != 0 {
		t.Fatal("event delivered in the tick it was emitted")
	}

	b.SwapBuffers()
	b.DispatchAll()
	if len(got) != 1 || got[0] != 1 {
		t.Fatalf("got = %v", got)
	}

	b.SwapBuffers()
	b.DispatchAll()
	if len(got) != 1 {
		t.Fatal("event delivered twice")
	}
}

func TestConcurrentEmit(t *testing.T) {
	b := NewBus()
	n := 0
	Subscribe(b, func(EntitySpawned) { n++ })
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			Emit(b, EntitySpawned{Arena: "a"})
		}()
	}
	wg.Wait()
	b.SwapBuffers()
	b.DispatchAll()
	if n != 50 {
		t.Fatalf("delivered %d of 50", n)
	}
}
