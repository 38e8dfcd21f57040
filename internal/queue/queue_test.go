package queue

import (
	"sync"
	"testing"
)

func TestFIFOOrder(t *testing.T) {
	q := New[int]()
	for i := 0; i < 5; i++ {
		q.Enqueue(i)
	}
	for i := 0; i < 5; i++ {
		v, ok := q.TryDequeue()
		if !ok || v != i {
			t.Fatalf("got (%d, %v), want (%d, true)", v, ok, i)
		}
	}
	if _, ok := q.TryDequeue(); ok {
		t.Fatal("expected empty queue")
	}
}

func TestConcurrentProducersNeverDrop(t *testing.T) {
	q := New[int]()
	const producers, perProducer = 8, 200
	var wg sync.WaitGroup
	wg.Add(producers)
	for p := 0; p < producers; p++ {
		go func() {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				q.Enqueue(i)
			}
		}()
	}
	wg.Wait()
	count := 0
	for {
		if _, ok := q.TryDequeue(); !ok {
			break
		}
		count++
	}
	if count != producers*perProducer {
		t.Fatalf("drained %d items, want %d", count, producers*perProducer)
	}
}
