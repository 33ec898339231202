package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"
	"github.com/tanq16/qurandl/internal/catalog"
	"github.com/tanq16/qurandl/internal/dirs"
)

var ErrClosed = errors.New("queue controller is closed")

type State int

const (
	Idle State = iota
	Running
	Stopped
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Running:
		return "running"
	case Stopped:
		return "stopped"
	}
	return "unknown"
}

type Options struct {
	Executor Executor
	Catalog  *catalog.Catalog
	Layout   dirs.Layout
}

type observerEntry struct {
	id       int
	observer Observer
}

// Controller runs tasks from its store one at a time. Every command, query
// and transfer outcome is applied on a single loop goroutine, so the store
// and the current task are never touched concurrently.
type Controller struct {
	exec    Executor
	catalog *catalog.Catalog
	layout  dirs.Layout

	// owned by the loop goroutine
	store   Store
	state   State
	current *Task

	obsMu     sync.Mutex
	observers []observerEntry
	nextObsID int

	cmds      chan func()
	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

func NewController(opts Options) *Controller {
	c := &Controller{
		exec:    opts.Executor,
		catalog: opts.Catalog,
		layout:  opts.Layout,
		state:   Idle,
		cmds:    make(chan func()),
		done:    make(chan struct{}),
	}
	c.wg.Add(1)
	go c.loop()
	return c
}

func (c *Controller) loop() {
	defer c.wg.Done()
	for {
		select {
		case fn := <-c.cmds:
			fn()
		case <-c.done:
			if c.current != nil {
				c.current.transfer.cancel()
			}
			return
		}
	}
}

// do runs fn on the loop and waits for it to finish.
func (c *Controller) do(fn func()) error {
	ran := make(chan struct{})
	select {
	case c.cmds <- func() { fn(); close(ran) }:
	case <-c.done:
		return ErrClosed
	}
	<-ran
	return nil
}

// post hands fn to the loop without waiting for it to run.
func (c *Controller) post(fn func()) {
	select {
	case c.cmds <- fn:
	case <-c.done:
	}
}

// Close cancels any in-flight transfer and stops the loop. Pending tasks are
// dropped. It blocks until the executor returns from the canceled transfer,
// so executors must honor ctx. It is safe to call more than once.
func (c *Controller) Close() {
	c.closeOnce.Do(func() { close(c.done) })
	c.wg.Wait()
}

func (c *Controller) Subscribe(o Observer) int {
	c.obsMu.Lock()
	defer c.obsMu.Unlock()
	c.nextObsID++
	c.observers = append(c.observers, observerEntry{id: c.nextObsID, observer: o})
	return c.nextObsID
}

func (c *Controller) Unsubscribe(id int) {
	c.obsMu.Lock()
	defer c.obsMu.Unlock()
	for i, entry := range c.observers {
		if entry.id == id {
			c.observers = append(c.observers[:i], c.observers[i+1:]...)
			return
		}
	}
}

func (c *Controller) emit(e Event) {
	c.obsMu.Lock()
	observers := make([]observerEntry, len(c.observers))
	copy(observers, c.observers)
	c.obsMu.Unlock()
	for _, entry := range observers {
		entry.observer.Notify(e)
	}
}

// Enqueue appends a task to the store. It never starts the queue.
func (c *Controller) Enqueue(task Task) error {
	task.transfer = nil
	return c.do(func() {
		c.store.Push(task)
		log.Debug().Str("op", "queue/controller").Str("task", task.ID).Msgf("enqueued %s", task)
	})
}

// EnqueueVerse builds the recitation task for (reciter, surah, verse) and
// appends it to the store.
func (c *Controller) EnqueueVerse(reciterIdx, surah, verse int) error {
	if reciterIdx < 0 || reciterIdx >= len(c.catalog.Reciters) {
		return fmt.Errorf("%w: index %d", catalog.ErrUnknownReciter, reciterIdx)
	}
	if err := catalog.CheckVerse(surah, verse); err != nil {
		return err
	}
	reciter := c.catalog.Reciters[reciterIdx]
	task := NewTask(KindRecitation,
		Key{Group: reciterIdx, Primary: surah, Secondary: verse},
		reciter.VerseURL(surah, verse),
		c.layout.VersePath(reciter, surah, verse))
	return c.Enqueue(task)
}

// EnqueueContent appends the download of a tafsir or translation database.
func (c *Controller) EnqueueContent(kind catalog.ContentKind, idx int) error {
	resources := c.catalog.Resources(kind)
	if idx < 0 || idx >= len(resources) {
		return fmt.Errorf("%w: %s index %d", catalog.ErrUnknownResource, kind, idx)
	}
	res := resources[idx]
	taskKind := KindTafsir
	if kind == catalog.Translation {
		taskKind = KindTranslation
	}
	task := NewTask(taskKind, Key{Group: idx}, c.catalog.ResourceURL(kind, res), c.layout.ResourcePath(kind, res))
	return c.Enqueue(task)
}

// StartQueue issues the head task when nothing is in flight. With an empty
// store it only leaves the Stopped state.
func (c *Controller) StartQueue() error {
	return c.do(func() {
		if c.current != nil {
			// a stop is still waiting for its cancel to be confirmed
			c.state = Running
			return
		}
		next, ok := c.store.Pop()
		if !ok {
			c.state = Idle
			return
		}
		c.issue(next)
	})
}

// StopQueue cancels the in-flight task, if any, and keeps the store as is.
// Nothing is issued again until StartQueue is called.
func (c *Controller) StopQueue() error {
	return c.do(func() {
		c.state = Stopped
		c.requestCancel()
		log.Debug().Str("op", "queue/controller").Int("pending", c.store.Len()).Msg("queue stopped")
	})
}

// CancelCurrentTask asks the in-flight transfer to abort. The Canceled event
// follows once the executor confirms. Without a task in flight it does
// nothing.
func (c *Controller) CancelCurrentTask() error {
	return c.do(func() {
		c.requestCancel()
	})
}

func (c *Controller) IsDownloading() bool {
	var downloading bool
	c.do(func() { downloading = c.current != nil })
	return downloading
}

// CurrentTask returns the in-flight task; ok is false when idle.
func (c *Controller) CurrentTask() (Task, bool) {
	var task Task
	var ok bool
	c.do(func() {
		if c.current != nil {
			task, ok = *c.current, true
		}
	})
	return task, ok
}

func (c *Controller) State() State {
	state := Stopped
	c.do(func() { state = c.state })
	return state
}

func (c *Controller) Pending() []Task {
	var tasks []Task
	c.do(func() { tasks = c.store.Snapshot() })
	return tasks
}

func (c *Controller) Reciters() []catalog.Reciter {
	out := make([]catalog.Reciter, len(c.catalog.Reciters))
	copy(out, c.catalog.Reciters)
	return out
}

func (c *Controller) ReciterDirNames() []string {
	return c.catalog.DirNames()
}

func (c *Controller) requestCancel() {
	if c.current == nil || c.current.transfer.canceled {
		return
	}
	c.current.transfer.canceled = true
	c.current.transfer.cancel()
	log.Debug().Str("op", "queue/controller").Str("task", c.current.ID).Msg("cancel requested")
}

func (c *Controller) issue(task Task) {
	ctx, cancel := context.WithCancel(context.Background())
	tr := &transfer{cancel: cancel}
	task.transfer = tr
	c.current = &task
	c.state = Running
	log.Debug().Str("op", "queue/controller").Str("task", task.ID).Str("url", task.URL).Msg("starting transfer")
	c.emit(Event{Kind: EventStarted, Task: task})

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer cancel()
		err := c.exec.Execute(ctx, task, func(downloaded, total int64) {
			c.post(func() { c.progressed(tr, downloaded, total) })
		})
		c.post(func() { c.finished(tr, err) })
	}()
}

func (c *Controller) progressed(tr *transfer, downloaded, total int64) {
	if c.current == nil || c.current.transfer != tr {
		return
	}
	c.emit(Event{Kind: EventProgressed, Task: *c.current, Downloaded: downloaded, Total: total})
}

func (c *Controller) finished(tr *transfer, err error) {
	if c.current == nil || c.current.transfer != tr {
		return
	}
	task := *c.current
	task.transfer = nil
	c.current = nil

	switch {
	case err == nil:
		log.Debug().Str("op", "queue/controller").Str("task", task.ID).Msg("transfer complete")
		c.emit(Event{Kind: EventComplete, Task: task})
	case tr.canceled || errors.Is(err, context.Canceled):
		log.Debug().Str("op", "queue/controller").Str("task", task.ID).Msg("transfer canceled")
		c.emit(Event{Kind: EventCanceled, Task: task})
	default:
		log.Error().Str("op", "queue/controller").Str("task", task.ID).Err(err).Msgf("transfer failed for %s", task.URL)
		c.emit(Event{Kind: EventError, Task: task, Err: err})
	}

	if c.state == Stopped {
		return
	}
	c.advance()
}

func (c *Controller) advance() {
	next, ok := c.store.Pop()
	if !ok {
		c.state = Idle
		c.emit(Event{Kind: EventQueueEmpty})
		return
	}
	c.issue(next)
}
