package input

import (
	"log"
	"sync"
	"sync/atomic"
	"time"
)

// CommandQueue decouples transport handlers from engine calls: an HTTP or
// WS handler returns as soon as its command is buffered, and a small worker
// pool applies commands as they arrive. Enqueue never blocks; a full buffer
// drops the command instead of stalling the transport.
type CommandQueue struct {
	commands chan Command
	handler  *Handler
	workers  int
	wg       sync.WaitGroup
	running  atomic.Bool
	stopChan chan struct{}

	// Metrics
	enqueued  atomic.Uint64
	processed atomic.Uint64
	dropped   atomic.Uint64
}

// QueueConfig sizes the command queue
type QueueConfig struct {
	BufferSize int // commands buffered before drops set in (default 128)
	Workers    int // worker goroutines (default 2)
}

// DefaultQueueConfig returns production defaults: a pose stream peaks
// around 20 commands/s, so a 128 buffer holds several seconds of backlog.
func DefaultQueueConfig() QueueConfig {
	return QueueConfig{
		BufferSize: 128,
		Workers:    2,
	}
}

// NewCommandQueue creates a queue feeding the given handler.
func NewCommandQueue(handler *Handler, config QueueConfig) *CommandQueue {
	if config.BufferSize <= 0 {
		config.BufferSize = 128
	}
	if config.Workers <= 0 {
		config.Workers = 2
	}

	return &CommandQueue{
		commands: make(chan Command, config.BufferSize),
		handler:  handler,
		workers:  config.Workers,
		stopChan: make(chan struct{}),
	}
}

// Start launches the worker pool.
func (q *CommandQueue) Start() {
	if q.running.Swap(true) {
		return // already running
	}

	log.Printf("🚀 Command queue starting with %d workers, buffer %d", q.workers, cap(q.commands))

	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go q.worker()
	}
}

// Stop drains the workers and reports totals.
func (q *CommandQueue) Stop() {
	if !q.running.Swap(false) {
		return // not running
	}

	close(q.stopChan)
	q.wg.Wait()

	log.Printf("📊 Command queue stopped: enqueued %d, processed %d, dropped %d",
		q.enqueued.Load(), q.processed.Load(), q.dropped.Load())
}

// Enqueue buffers a command without blocking. Reports false when the
// buffer is full and the command was dropped.
func (q *CommandQueue) Enqueue(cmd Command) bool {
	if cmd.ReceivedAt.IsZero() {
		cmd.ReceivedAt = time.Now()
	}

	select {
	case q.commands <- cmd:
		q.enqueued.Add(1)
		return true
	default:
		q.dropped.Add(1)
		if q.dropped.Load()%100 == 1 {
			log.Printf("⚠️ Command queue full, dropped %s from %s (total dropped: %d)",
				cmd.Action, cmd.Source, q.dropped.Load())
		}
		return false
	}
}

// worker applies commands until the queue stops
func (q *CommandQueue) worker() {
	defer q.wg.Done()

	for {
		select {
		case <-q.stopChan:
			return
		case cmd, ok := <-q.commands:
			if !ok {
				return
			}
			q.handler.ProcessCommand(cmd)
			q.processed.Add(1)
		}
	}
}

// QueueStats holds queue metrics
type QueueStats struct {
	Enqueued   uint64 `json:"enqueued"`
	Processed  uint64 `json:"processed"`
	Dropped    uint64 `json:"dropped"`
	Pending    uint64 `json:"pending"`
	BufferSize uint64 `json:"bufferSize"`
}

// Stats returns current queue statistics.
func (q *CommandQueue) Stats() QueueStats {
	return QueueStats{
		Enqueued:   q.enqueued.Load(),
		Processed:  q.processed.Load(),
		Dropped:    q.dropped.Load(),
		Pending:    uint64(len(q.commands)),
		BufferSize: uint64(cap(q.commands)),
	}
}
