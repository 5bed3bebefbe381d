// Package simulator runs producers and consumers against a self-resizing
// circular queue and writes a capacity log of every change.
package simulator

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
)

const (
	DefaultProducers = 2
	DefaultConsumers = 2
	DefaultSize      = 10
	DefaultTimeout   = 5 * time.Second
	DefaultItems     = 200
	maxItemValue     = 100
)

// Options configures a simulation
type Options struct {
	Producers int
	Consumers int
	Size      int // initial queue capacity
	Items     int // items enqueued by each producer
	Timeout   time.Duration

	// Events, when set, receives one line per enqueue and dequeue
	Events io.Writer
}

// DefaultOptions returns the stock simulation: 2 producers, 2 consumers,
// capacity 10 and a 5 second limit.
func DefaultOptions() Options {
	return Options{
		Producers: DefaultProducers,
		Consumers: DefaultConsumers,
		Size:      DefaultSize,
		Items:     DefaultItems,
		Timeout:   DefaultTimeout,
	}
}

// Validate checks that the options describe a runnable simulation
func (o Options) Validate() error {
	if o.Producers < 1 {
		return fmt.Errorf("producers must be at least 1, got %d", o.Producers)
	}
	if o.Consumers < 1 {
		return fmt.Errorf("consumers must be at least 1, got %d", o.Consumers)
	}
	if o.Size < 1 {
		return fmt.Errorf("size must be at least 1, got %d", o.Size)
	}
	if o.Items < 0 {
		return fmt.Errorf("items must not be negative, got %d", o.Items)
	}
	if o.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %s", o.Timeout)
	}
	return nil
}

// Result describes a finished simulation
type Result struct {
	Produced      int
	Consumed      int
	Records       int // lines written to the capacity log
	Resizes       int
	FinalCapacity int
	Elapsed       time.Duration
	TimedOut      bool
}

// capacityLog writes "<elapsed-ms> <capacity>" lines
type capacityLog struct {
	w     *bufio.Writer
	start time.Time
	lines int
	err   error
	buf   []byte
}

func (l *capacityLog) write(capacity int) {
	if l.err != nil {
		return
	}
	l.buf = strconv.AppendInt(l.buf[:0], time.Since(l.start).Milliseconds(), 10)
	l.buf = append(l.buf, ' ')
	l.buf = strconv.AppendInt(l.buf, int64(capacity), 10)
	l.buf = append(l.buf, '\n')
	if _, err := l.w.Write(l.buf); err != nil {
		l.err = err
		return
	}
	l.lines++
}

// Run starts the producers and consumers and writes the capacity log to w.
// It returns once every produced item was consumed, or when the timeout
// expires, in which case Result.TimedOut is set and the log written so far
// is still well formed.
func Run(ctx context.Context, w io.Writer, opts Options) (Result, error) {
	if err := opts.Validate(); err != nil {
		return Result{}, err
	}

	runCtx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()

	// the queue serialises observer calls, so the log needs no lock of its own
	log := &capacityLog{w: bufio.NewWriter(w), start: time.Now()}
	q := NewQueue(opts.Size, log.write)
	stop := context.AfterFunc(runCtx, q.Stop)
	defer stop()

	events := newEventLog(opts.Events)

	var produced, consumed atomic.Int64
	var producers sync.WaitGroup
	g := new(errgroup.Group)

	for id := 0; id < opts.Producers; id++ {
		producers.Add(1)
		g.Go(func() error {
			defer producers.Done()
			for i := 0; i < opts.Items; i++ {
				item := rand.IntN(maxItemValue + 1)
				if err := q.Enqueue(item); err != nil {
					if errors.Is(err, ErrStopped) {
						return nil
					}
					return err
				}
				produced.Add(1)
				events.printf("producer %d enqueued %d\n", id, item)
			}
			return nil
		})
	}

	for id := 0; id < opts.Consumers; id++ {
		g.Go(func() error {
			for {
				item, ok := q.Dequeue()
				if !ok {
					return nil
				}
				consumed.Add(1)
				events.printf("consumer %d dequeued %d\n", id, item)
			}
		})
	}

	go func() {
		producers.Wait()
		q.Close()
	}()

	err := g.Wait()
	if ferr := log.w.Flush(); log.err == nil {
		log.err = ferr
	}

	result := Result{
		Produced:      int(produced.Load()),
		Consumed:      int(consumed.Load()),
		Records:       log.lines,
		Resizes:       q.Resizes(),
		FinalCapacity: q.Cap(),
		Elapsed:       time.Since(log.start),
	}

	if err != nil {
		return result, err
	}
	if log.err != nil {
		return result, fmt.Errorf("writing capacity log: %w", log.err)
	}
	if ctx.Err() != nil {
		return result, ctx.Err()
	}
	result.TimedOut = errors.Is(runCtx.Err(), context.DeadlineExceeded)

	return result, nil
}

// eventLog serialises writes from the workers; a nil writer discards
type eventLog struct {
	mu sync.Mutex
	w  io.Writer
}

func newEventLog(w io.Writer) *eventLog {
	return &eventLog{w: w}
}

func (e *eventLog) printf(format string, args ...any) {
	if e.w == nil {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	fmt.Fprintf(e.w, format, args...)
}
