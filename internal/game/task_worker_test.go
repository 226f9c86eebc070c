package game

import (
	"sync"
	"testing"
	"time"
)

func TestTaskWorkerRunsInFIFOOrder(t *testing.T) {
	w := NewTaskWorker()
	w.Start()
	defer w.Stop()

	var mu sync.Mutex
	var order []int

	var wg sync.WaitGroup
	wg.Add(5)
	for i := 0; i < 5; i++ {
		i := i
		w.Submit(func() {
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
			wg.Done()
		})
	}

	waitOrTimeout(t, &wg, time.Second)

	mu.Lock()
	defer mu.Unlock()
	for i, v := range order {
		if v != i {
			t.Fatalf("expected FIFO order 0..4, got %v", order)
		}
	}
}

func TestTaskWorkerSurvivesPanickingTask(t *testing.T) {
	w := NewTaskWorker()
	w.Start()
	defer w.Stop()

	var wg sync.WaitGroup
	wg.Add(2)
	w.Submit(func() {
		defer wg.Done()
		panic("boom")
	})
	w.Submit(func() { wg.Done() })

	waitOrTimeout(t, &wg, time.Second)
}

func waitOrTimeout(t *testing.T, wg *sync.WaitGroup, d time.Duration) {
	t.Helper()
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(d):
		t.Fatal("timed out waiting for tasks to complete")
	}
}
