package main

import (
	"context"
	"errors"
	"fmt"
	"sync"

	storage "github.com/next-exp/storage_go/pkg"
)

func worker(ctx context.Context, id int, generator *Generator, jobs <-chan int, results chan<- EventData) {
	for n := range jobs {
		event := generateEvent(id, generator, n)
		select {
		case results <- event:
		case <-ctx.Done():
			return
		}
	}
}

func generateEvent(id int, generator *Generator, n int) (event EventData) {
	defer func() {
		if r := recover(); r != nil {
			errMessage := fmt.Errorf("worker %d recovered from panic on event %d: %v", id, n, r)
			logger.Error(errMessage.Error())
			event = EventData{Number: n, Error: true}
		}
	}()
	if VerbosityLevel > 1 {
		logger.Info(fmt.Sprintf("Worker %d generating event %d", id, n), "worker")
	}
	return generator.Event(n)
}

func sendEventsToWorkers(ctx context.Context, first int, count int, jobs chan<- int) {
	defer close(jobs)
	for n := first; n < first+count; n++ {
		select {
		case jobs <- n:
		case <-ctx.Done():
			return
		}
	}
}

// startWorkers runs the generator on numWorkers goroutines. The results
// channel is closed once every worker is done.
func startWorkers(ctx context.Context, generator *Generator, numWorkers int, first int, count int) <-chan EventData {
	jobs := make(chan int, numWorkers)
	results := make(chan EventData, 1000)

	var wg sync.WaitGroup
	for w := 1; w <= numWorkers; w++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			worker(ctx, id, generator, jobs, results)
		}(w)
	}
	go sendEventsToWorkers(ctx, first, count, jobs)
	go func() {
		wg.Wait()
		close(results)
	}()
	return results
}

// processWorkerResults writes the events in order of their number, as
// workers may finish them in any order. Events that fail to generate or do
// not fit the buffers are discarded.
func processWorkerResults(results <-chan EventData, session *storage.Session, first int) (int, error) {
	pending := make(map[int]EventData)
	next := first
	written := 0
	for event := range results {
		pending[event.Number] = event
		for {
			event, ok := pending[next]
			if !ok {
				break
			}
			delete(pending, next)
			next++

			if event.Error {
				logger.Error(fmt.Sprintf("discarding event %d", event.Number))
				continue
			}
			err := writeEvent(session, &event)
			var capErr *storage.CapacityError
			if errors.As(err, &capErr) {
				logger.Error(fmt.Errorf("discarding event %d: %w", event.Number, err).Error())
				continue
			}
			if err != nil {
				return written, fmt.Errorf("error writing event %d: %w", event.Number, err)
			}
			written++
			if VerbosityLevel > 0 {
				logger.Info(fmt.Sprintf("Written event %d", event.Number), "writer")
			}
		}
	}
	return written, nil
}

func writeEvent(session *storage.Session, data *EventData) error {
	ev, err := session.NewEvent()
	if err != nil {
		return err
	}
	if err := data.Fill(ev); err != nil {
		return err
	}
	return session.WriteEvent(ev)
}
