package service

import (
	"sync"

	"videoq/internal/domain"
)

// Event is a progress or status notification for one job.
type Event struct {
	JobID    int64
	Status   domain.JobStatus
	Progress float64
	Message  string
}

// EventBus fans worker events out to every subscriber. Events carry the job
// ID so a consumer interested in one job filters for it. Slow subscribers
// lose events rather than block the worker.
type EventBus struct {
	subscribers []chan Event
	mu          sync.RWMutex
}

func NewEventBus() *EventBus {
	return &EventBus{}
}

func (eb *EventBus) Subscribe() chan Event {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	ch := make(chan Event, 64)
	eb.subscribers = append(eb.subscribers, ch)
	return ch
}

func (eb *EventBus) Unsubscribe(ch chan Event) {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	for i, sub := range eb.subscribers {
		if sub == ch {
			eb.subscribers = append(eb.subscribers[:i], eb.subscribers[i+1:]...)
			close(ch)
			break
		}
	}
}

func (eb *EventBus) Publish(event Event) {
	eb.mu.RLock()
	defer eb.mu.RUnlock()

	for _, ch := range eb.subscribers {
		select {
		case ch <- event:
		default:
			// Drop event if subscriber is slow
		}
	}
}
