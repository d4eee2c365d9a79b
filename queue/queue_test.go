package queue_test

import (
	"testing"
	"time"

	"github.com/breez/lsps2/queue"
)

func TestConcurrentQueue(t *testing.T) {
	q := queue.NewConcurrentQueue(100)
	q.Start()
	defer q.Stop()

	// Pushes should never block for long.
	for i := 0; i < 1000; i++ {
		q.ChanIn() <- i
	}

	// Pops also should not block for long. Expect elements in FIFO order.
	for i := 0; i < 1000; i++ {
		item := <-q.ChanOut()
		if i != item.(int) {
			t.Fatalf("Dequeued wrong value: expected %d, got %d", i, item.(int))
		}
	}
}

func TestConcurrentQueueConcurrentProducers(t *testing.T) {
	q := queue.NewConcurrentQueue(10)
	q.Start()
	defer q.Stop()

	const producers = 20
	const perProducer = 50

	for p := 0; p < producers; p++ {
		go func(p int) {
			for i := 0; i < perProducer; i++ {
				q.ChanIn() <- p*perProducer + i
			}
		}(p)
	}

	seen := make(map[int]bool)
	for i := 0; i < producers*perProducer; i++ {
		select {
		case item := <-q.ChanOut():
			seen[item.(int)] = true
		case <-time.After(time.Second):
			t.Fatalf("timed out after receiving %d/%d items", i, producers*perProducer)
		}
	}

	if len(seen) != producers*perProducer {
		t.Fatalf("expected %d distinct items, got %d", producers*perProducer, len(seen))
	}
}

func TestConcurrentQueueStopIsIdempotent(t *testing.T) {
	q := queue.NewConcurrentQueue(1)
	q.Start()
	q.Stop()
	q.Stop()
}
