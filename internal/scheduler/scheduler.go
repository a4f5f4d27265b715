package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"recoder/internal/logging"
)

const (
	defaultTick       = time.Second
	defaultDrainTicks = 5
)

// Task is one queued file.
type Task struct {
	ID         uuid.UUID
	Path       string
	EnqueuedAt time.Time
}

// Slot is a worker bound to one encoder profile.
type Slot struct {
	Index   int
	Profile string
}

// Handler processes one task on one slot. It must honour ctx cancellation;
// its return frees the slot.
type Handler interface {
	Handle(ctx context.Context, slot Slot, task Task)
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, slot Slot, task Task)

// Handle implements Handler.
func (f HandlerFunc) Handle(ctx context.Context, slot Slot, task Task) { f(ctx, slot, task) }

// EventKind classifies scheduler events.
type EventKind int

const (
	EventStarted EventKind = iota
	EventFreed
	EventDrained
)

func (k EventKind) String() string {
	switch k {
	case EventStarted:
		return "started"
	case EventFreed:
		return "freed"
	case EventDrained:
		return "drained"
	default:
		return "unknown"
	}
}

// Event is delivered to the Observer from the scheduling goroutine.
type Event struct {
	Kind EventKind
	Slot Slot
	Task Task
}

// Observer receives scheduler events synchronously; it must not block.
type Observer func(Event)

// Options tunes the scheduling loop.
type Options struct {
	Tick       time.Duration
	DrainTicks int
	Observer   Observer
	Logger     *slog.Logger
}

// SlotState is the binding of one slot at snapshot time.
type SlotState struct {
	Slot Slot
	Task *Task
}

// Snapshot is a point-in-time view for observers.
type Snapshot struct {
	Queued int
	Slots  []SlotState
}

// Busy counts slots holding a task.
func (s Snapshot) Busy() int {
	n := 0
	for _, st := range s.Slots {
		if st.Task != nil {
			n++
		}
	}
	return n
}

// Scheduler owns the FIFO queue and the slot bindings.
type Scheduler struct {
	slots    []Slot
	handler  Handler
	tick     time.Duration
	drain    int
	observer Observer
	logger   *slog.Logger
	ticks    func() (<-chan time.Time, func())

	running atomic.Bool

	mu    sync.Mutex
	queue []Task
	bound []*Task
}

// New builds a scheduler with one slot per profile name, in order.
func New(profiles []string, handler Handler, opts Options) (*Scheduler, error) {
	if len(profiles) == 0 {
		return nil, errors.New("scheduler needs at least one slot")
	}
	if handler == nil {
		return nil, errors.New("scheduler handler is nil")
	}
	slots := make([]Slot, len(profiles))
	for i, name := range profiles {
		name = strings.TrimSpace(name)
		if name == "" {
			return nil, fmt.Errorf("slot %d has no profile", i)
		}
		slots[i] = Slot{Index: i, Profile: name}
	}
	if opts.Tick <= 0 {
		opts.Tick = defaultTick
	}
	if opts.DrainTicks <= 0 {
		opts.DrainTicks = defaultDrainTicks
	}
	if opts.Observer == nil {
		opts.Observer = func(Event) {}
	}
	s := &Scheduler{
		slots:    slots,
		handler:  handler,
		tick:     opts.Tick,
		drain:    opts.DrainTicks,
		observer: opts.Observer,
		logger:   logging.NewComponentLogger(opts.Logger, "scheduler"),
		bound:    make([]*Task, len(slots)),
	}
	s.ticks = func() (<-chan time.Time, func()) {
		ticker := time.NewTicker(s.tick)
		return ticker.C, ticker.Stop
	}
	return s, nil
}

// Slots returns the fixed slot list.
func (s *Scheduler) Slots() []Slot {
	return append([]Slot(nil), s.slots...)
}

// Push appends paths to the queue in order and returns the created tasks.
// Safe to call from any goroutine, including while Run is active.
func (s *Scheduler) Push(paths ...string) []Task {
	now := time.Now()
	tasks := make([]Task, 0, len(paths))
	for _, path := range paths {
		tasks = append(tasks, Task{ID: uuid.New(), Path: path, EnqueuedAt: now})
	}
	s.mu.Lock()
	s.queue = append(s.queue, tasks...)
	s.mu.Unlock()
	return tasks
}

// Snapshot reports queue length and slot bindings.
func (s *Scheduler) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := Snapshot{Queued: len(s.queue), Slots: make([]SlotState, len(s.slots))}
	for i, slot := range s.slots {
		snap.Slots[i] = SlotState{Slot: slot}
		if t := s.bound[i]; t != nil {
			task := *t
			snap.Slots[i].Task = &task
		}
	}
	return snap
}

// Run drives the scheduling loop until the queue drains or ctx is cancelled.
// On cancellation no new tasks start; Run waits for in-flight handlers and
// returns ctx.Err().
func (s *Scheduler) Run(ctx context.Context) error {
	if !s.running.CompareAndSwap(false, true) {
		return errors.New("scheduler already running")
	}
	defer s.running.Store(false)

	ticks, stop := s.ticks()
	defer stop()

	done := make(chan int, len(s.slots))
	var wg sync.WaitGroup
	idleTicks := 0

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopping; waiting for running encodes",
				logging.Int("busy_slots", s.Snapshot().Busy()))
			wg.Wait()
			for {
				select {
				case idx := <-done:
					s.free(idx)
				default:
					return ctx.Err()
				}
			}
		case idx := <-done:
			s.free(idx)
		case <-ticks:
			if ctx.Err() != nil {
				continue
			}
			started, drained := s.assign(&idleTicks)
			if drained {
				s.logger.Info("queue drained", logging.Int("idle_ticks", idleTicks))
				s.observer(Event{Kind: EventDrained})
				return nil
			}
			for _, ev := range started {
				s.observer(ev)
				wg.Add(1)
				go s.execute(ctx, &wg, done, ev.Slot, ev.Task)
			}
		}
	}
}

// assign binds queued tasks to idle slots and updates the idle counter.
func (s *Scheduler) assign(idleTicks *int) ([]Event, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idle := make([]int, 0, len(s.slots))
	for i, t := range s.bound {
		if t == nil {
			idle = append(idle, i)
		}
	}

	if len(s.queue) == 0 {
		if len(idle) == len(s.slots) {
			*idleTicks++
			return nil, *idleTicks >= s.drain
		}
		*idleTicks = 0
		return nil, false
	}
	*idleTicks = 0

	started := make([]Event, 0, len(idle))
	for _, idx := range idle {
		if len(s.queue) == 0 {
			break
		}
		task := s.queue[0]
		s.queue[0] = Task{}
		s.queue = s.queue[1:]
		s.bound[idx] = &task
		started = append(started, Event{Kind: EventStarted, Slot: s.slots[idx], Task: task})
	}
	return started, false
}

func (s *Scheduler) free(idx int) {
	s.mu.Lock()
	task := s.bound[idx]
	s.bound[idx] = nil
	s.mu.Unlock()

	ev := Event{Kind: EventFreed, Slot: s.slots[idx]}
	if task != nil {
		ev.Task = *task
	}
	s.observer(ev)
}

func (s *Scheduler) execute(ctx context.Context, wg *sync.WaitGroup, done chan<- int, slot Slot, task Task) {
	defer wg.Done()
	defer func() {
		if r := recover(); r != nil {
			logging.ErrorWithContext(s.logger, "slot handler panicked", "slot_handler_panic",
				logging.Int(logging.FieldSlot, slot.Index),
				logging.String(logging.FieldEncoder, slot.Profile),
				logging.String(logging.FieldTaskID, task.ID.String()),
				logging.String(logging.FieldFile, task.Path),
				logging.Any("panic", r),
				logging.String("stack", string(debug.Stack())),
				logging.String(logging.FieldErrorHint, "report this as a bug"))
		}
		done <- slot.Index
	}()
	s.handler.Handle(ctx, slot, task)
}
