package queue

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/tanq16/qurandl/internal/catalog"
	"github.com/tanq16/qurandl/internal/dirs"
)

const waitTimeout = 2 * time.Second

// fakeTransfer is one Execute call held open until the test resolves it.
type fakeTransfer struct {
	task     Task
	ctx      context.Context
	progress ProgressFunc
	result   chan error
}

type fakeExecutor struct {
	started   chan *fakeTransfer
	ignoreCtx bool

	active    atomic.Int32
	maxActive atomic.Int32
}

func newFakeExecutor() *fakeExecutor {
	return &fakeExecutor{started: make(chan *fakeTransfer, 16)}
}

func (f *fakeExecutor) Execute(ctx context.Context, task Task, progress ProgressFunc) error {
	n := f.active.Add(1)
	defer f.active.Add(-1)
	for {
		max := f.maxActive.Load()
		if n <= max || f.maxActive.CompareAndSwap(max, n) {
			break
		}
	}
	ft := &fakeTransfer{task: task, ctx: ctx, progress: progress, result: make(chan error, 1)}
	f.started <- ft
	if f.ignoreCtx {
		return <-ft.result
	}
	select {
	case err := <-ft.result:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (f *fakeExecutor) next(t *testing.T) *fakeTransfer {
	t.Helper()
	select {
	case ft := <-f.started:
		return ft
	case <-time.After(waitTimeout):
		t.Fatal("timed out waiting for a transfer to start")
		return nil
	}
}

func (f *fakeExecutor) expectIdle(t *testing.T) {
	t.Helper()
	select {
	case ft := <-f.started:
		t.Fatalf("unexpected transfer started for %s", ft.task)
	case <-time.After(50 * time.Millisecond):
	}
}

type recorder struct {
	events chan Event
}

func newRecorder() *recorder {
	return &recorder{events: make(chan Event, 64)}
}

func (r *recorder) Notify(e Event) {
	r.events <- e
}

func (r *recorder) expect(t *testing.T, kind EventKind) Event {
	t.Helper()
	select {
	case e := <-r.events:
		if e.Kind != kind {
			t.Fatalf("expected %s event, got %s (task %s, err %v)", kind, e.Kind, e.Task, e.Err)
		}
		return e
	case <-time.After(waitTimeout):
		t.Fatalf("timed out waiting for %s event", kind)
		return Event{}
	}
}

func (r *recorder) expectNone(t *testing.T) {
	t.Helper()
	select {
	case e := <-r.events:
		t.Fatalf("unexpected %s event (task %s)", e.Kind, e.Task)
	case <-time.After(50 * time.Millisecond):
	}
}

func testCatalog() *catalog.Catalog {
	return &catalog.Catalog{
		ContentBaseURL: "https://content.example",
		Reciters: []catalog.Reciter{
			{Name: "husary", Dir: "husary", BaseURL: "https://mirror.example/husary/"},
			{Name: "alafasy", Dir: "alafasy_dir", BaseURL: "https://mirror.example/alafasy/"},
		},
		Tafasir:      []catalog.Resource{{Name: "sa3dy", File: "sa3dy.db"}},
		Translations: []catalog.Resource{{Name: "en_khattab", File: "en_khattab.db"}},
	}
}

func newTestController(t *testing.T) (*Controller, *fakeExecutor, *recorder) {
	t.Helper()
	exec := newFakeExecutor()
	c := NewController(Options{
		Executor: exec,
		Catalog:  testCatalog(),
		Layout:   dirs.Layout{Root: t.TempDir()},
	})
	rec := newRecorder()
	c.Subscribe(rec)
	t.Cleanup(c.Close)
	return c, exec, rec
}

func taskWithGroup(group int) Task {
	return NewTask(KindFile, Key{Group: group}, "https://example.com/file", "/tmp/file")
}

func TestEnqueueDoesNotStart(t *testing.T) {
	c, exec, rec := newTestController(t)
	if err := c.Enqueue(taskWithGroup(1)); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	exec.expectIdle(t)
	rec.expectNone(t)
	if c.State() != Idle {
		t.Errorf("Expected Idle, got %s", c.State())
	}
	if len(c.Pending()) != 1 {
		t.Errorf("Expected 1 pending task, got %d", len(c.Pending()))
	}
}

func TestStartQueueEmptyIsNoop(t *testing.T) {
	c, exec, rec := newTestController(t)
	if err := c.StartQueue(); err != nil {
		t.Fatal(err)
	}
	exec.expectIdle(t)
	rec.expectNone(t)
	if c.State() != Idle || c.IsDownloading() {
		t.Errorf("Expected idle controller, got %s (downloading=%v)", c.State(), c.IsDownloading())
	}
}

func TestSequentialScenario(t *testing.T) {
	c, exec, rec := newTestController(t)
	for _, group := range []int{1, 2, 3} {
		if err := c.Enqueue(taskWithGroup(group)); err != nil {
			t.Fatal(err)
		}
	}
	if err := c.StartQueue(); err != nil {
		t.Fatal(err)
	}

	a := exec.next(t)
	if a.task.Key.Group != 1 {
		t.Fatalf("Expected task 1 first, got %s", a.task)
	}
	rec.expect(t, EventStarted)
	if current, ok := c.CurrentTask(); !ok || current.ID != a.task.ID || !current.InFlight() {
		t.Errorf("Expected task 1 in flight, got %+v (ok=%v)", current, ok)
	}
	if c.State() != Running {
		t.Errorf("Expected Running, got %s", c.State())
	}

	a.progress(10, 100)
	progressed := rec.expect(t, EventProgressed)
	if progressed.Downloaded != 10 || progressed.Total != 100 {
		t.Errorf("Expected progress 10/100, got %d/%d", progressed.Downloaded, progressed.Total)
	}

	a.result <- nil
	if e := rec.expect(t, EventComplete); e.Task.ID != a.task.ID || e.Task.InFlight() {
		t.Errorf("Expected completion of task 1 without handle, got %+v", e.Task)
	}
	b := exec.next(t)
	if b.task.Key.Group != 2 {
		t.Fatalf("Expected task 2 next, got %s", b.task)
	}
	rec.expect(t, EventStarted)

	boom := errors.New("connection reset")
	b.result <- boom
	if e := rec.expect(t, EventError); !errors.Is(e.Err, boom) {
		t.Errorf("Expected error event carrying %v, got %v", boom, e.Err)
	}
	cTask := exec.next(t)
	if cTask.task.Key.Group != 3 {
		t.Fatalf("Expected task 3 next, got %s", cTask.task)
	}
	rec.expect(t, EventStarted)

	cTask.result <- nil
	rec.expect(t, EventComplete)
	rec.expect(t, EventQueueEmpty)
	rec.expectNone(t)

	if c.State() != Idle || c.IsDownloading() {
		t.Errorf("Expected idle controller, got %s (downloading=%v)", c.State(), c.IsDownloading())
	}
	if max := exec.maxActive.Load(); max != 1 {
		t.Errorf("Expected at most one transfer in flight, saw %d", max)
	}
}

func TestFIFOOrder(t *testing.T) {
	c, exec, rec := newTestController(t)
	const n = 8
	for i := 0; i < n; i++ {
		if err := c.Enqueue(taskWithGroup(i)); err != nil {
			t.Fatal(err)
		}
	}
	c.StartQueue()
	for i := 0; i < n; i++ {
		ft := exec.next(t)
		if ft.task.Key.Group != i {
			t.Fatalf("Expected task %d, got %s", i, ft.task)
		}
		rec.expect(t, EventStarted)
		ft.result <- nil
		rec.expect(t, EventComplete)
	}
	rec.expect(t, EventQueueEmpty)
	if max := exec.maxActive.Load(); max != 1 {
		t.Errorf("Expected at most one transfer in flight, saw %d", max)
	}
}

func TestDuplicatesAreKept(t *testing.T) {
	c, exec, rec := newTestController(t)
	task := taskWithGroup(7)
	c.Enqueue(task)
	c.Enqueue(task)
	if len(c.Pending()) != 2 {
		t.Fatalf("Expected both copies pending, got %d", len(c.Pending()))
	}
	c.StartQueue()
	for i := 0; i < 2; i++ {
		ft := exec.next(t)
		rec.expect(t, EventStarted)
		ft.result <- nil
		rec.expect(t, EventComplete)
	}
	rec.expect(t, EventQueueEmpty)
}

func TestCancelWithoutTaskIsNoop(t *testing.T) {
	c, exec, rec := newTestController(t)
	c.Enqueue(taskWithGroup(1))
	if err := c.CancelCurrentTask(); err != nil {
		t.Fatal(err)
	}
	rec.expectNone(t)
	exec.expectIdle(t)
	if len(c.Pending()) != 1 || c.State() != Idle {
		t.Errorf("Expected untouched queue, got %d pending in state %s", len(c.Pending()), c.State())
	}
}

func TestCancelCurrentTask(t *testing.T) {
	c, exec, rec := newTestController(t)
	c.Enqueue(taskWithGroup(1))
	c.StartQueue()
	a := exec.next(t)
	rec.expect(t, EventStarted)

	if err := c.CancelCurrentTask(); err != nil {
		t.Fatal(err)
	}
	if e := rec.expect(t, EventCanceled); e.Task.ID != a.task.ID {
		t.Errorf("Expected cancellation of task 1, got %s", e.Task)
	}
	rec.expect(t, EventQueueEmpty)
	rec.expectNone(t)
	if c.State() != Idle || c.IsDownloading() {
		t.Errorf("Expected idle controller, got %s", c.State())
	}
	if a.ctx.Err() == nil {
		t.Error("Expected transfer context to be cancelled")
	}
}

func TestCancelAdvancesQueue(t *testing.T) {
	c, exec, rec := newTestController(t)
	c.Enqueue(taskWithGroup(1))
	c.Enqueue(taskWithGroup(2))
	c.StartQueue()
	exec.next(t)
	rec.expect(t, EventStarted)

	c.CancelCurrentTask()
	rec.expect(t, EventCanceled)
	b := exec.next(t)
	if b.task.Key.Group != 2 {
		t.Fatalf("Expected task 2 after cancel, got %s", b.task)
	}
	rec.expect(t, EventStarted)
}

func TestCompletionWinsOverLateCancel(t *testing.T) {
	c, exec, rec := newTestController(t)
	exec.ignoreCtx = true
	c.Enqueue(taskWithGroup(1))
	c.StartQueue()
	a := exec.next(t)
	rec.expect(t, EventStarted)

	// The executor finishes successfully even though a cancel was requested.
	c.CancelCurrentTask()
	a.result <- nil
	rec.expect(t, EventComplete)
	rec.expect(t, EventQueueEmpty)
}

func TestStopQueue(t *testing.T) {
	c, exec, rec := newTestController(t)
	c.Enqueue(taskWithGroup(1))
	c.StartQueue()
	a := exec.next(t)
	rec.expect(t, EventStarted)

	if err := c.StopQueue(); err != nil {
		t.Fatal(err)
	}
	if e := rec.expect(t, EventCanceled); e.Task.ID != a.task.ID {
		t.Errorf("Expected task 1 canceled, got %s", e.Task)
	}
	if c.State() != Stopped {
		t.Errorf("Expected Stopped, got %s", c.State())
	}

	c.Enqueue(taskWithGroup(2))
	c.Enqueue(taskWithGroup(3))
	exec.expectIdle(t)
	rec.expectNone(t)
	if len(c.Pending()) != 2 {
		t.Errorf("Expected 2 pending tasks, got %d", len(c.Pending()))
	}

	c.StartQueue()
	b := exec.next(t)
	if b.task.Key.Group != 2 {
		t.Fatalf("Expected task 2 after restart, got %s", b.task)
	}
	rec.expect(t, EventStarted)
	b.result <- nil
	rec.expect(t, EventComplete)
	exec.next(t).result <- nil
	rec.expect(t, EventStarted)
	rec.expect(t, EventComplete)
	rec.expect(t, EventQueueEmpty)
}

func TestStopWhileIdle(t *testing.T) {
	c, exec, rec := newTestController(t)
	c.StopQueue()
	rec.expectNone(t)
	if c.State() != Stopped {
		t.Errorf("Expected Stopped, got %s", c.State())
	}
	c.Enqueue(taskWithGroup(1))
	exec.expectIdle(t)
	c.StartQueue()
	exec.next(t)
	rec.expect(t, EventStarted)
}

func TestRestartBeforeCancelConfirmed(t *testing.T) {
	c, exec, rec := newTestController(t)
	exec.ignoreCtx = true
	c.Enqueue(taskWithGroup(1))
	c.Enqueue(taskWithGroup(2))
	c.StartQueue()
	a := exec.next(t)
	rec.expect(t, EventStarted)

	c.StopQueue()
	c.StartQueue()
	// task 1 has not confirmed its cancellation yet, so nothing new starts
	exec.expectIdle(t)
	if !c.IsDownloading() {
		t.Error("Expected task 1 to still be in flight")
	}

	a.result <- context.Canceled
	rec.expect(t, EventCanceled)
	b := exec.next(t)
	if b.task.Key.Group != 2 {
		t.Fatalf("Expected task 2, got %s", b.task)
	}
	rec.expect(t, EventStarted)
	b.result <- nil
	rec.expect(t, EventComplete)
	rec.expect(t, EventQueueEmpty)
}

func TestEnqueueVerse(t *testing.T) {
	c, exec, rec := newTestController(t)
	if err := c.EnqueueVerse(1, 2, 255); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	pending := c.Pending()
	if len(pending) != 1 {
		t.Fatalf("Expected 1 pending task, got %d", len(pending))
	}
	task := pending[0]
	if task.Kind != KindRecitation || task.Key != (Key{Group: 1, Primary: 2, Secondary: 255}) {
		t.Errorf("Unexpected task identity: %s %+v", task.Kind, task.Key)
	}
	if task.URL != "https://mirror.example/alafasy/002255.mp3" {
		t.Errorf("Unexpected URL: %s", task.URL)
	}
	if filepath.Base(task.Dest) != "002255.mp3" || filepath.Base(filepath.Dir(task.Dest)) != "alafasy_dir" {
		t.Errorf("Unexpected destination: %s", task.Dest)
	}

	if err := c.EnqueueVerse(5, 1, 1); !errors.Is(err, catalog.ErrUnknownReciter) {
		t.Errorf("Expected ErrUnknownReciter, got %v", err)
	}
	if err := c.EnqueueVerse(0, 1, 8); !errors.Is(err, catalog.ErrVerseRange) {
		t.Errorf("Expected ErrVerseRange, got %v", err)
	}
	exec.expectIdle(t)
	rec.expectNone(t)
}

func TestEnqueueContent(t *testing.T) {
	c, _, _ := newTestController(t)
	if err := c.EnqueueContent(catalog.Translation, 0); err != nil {
		t.Fatal(err)
	}
	task := c.Pending()[0]
	if task.Kind != KindTranslation || task.URL != "https://content.example/translations/en_khattab.db" {
		t.Errorf("Unexpected content task: %s %s", task.Kind, task.URL)
	}
	if err := c.EnqueueContent(catalog.Tafsir, 3); !errors.Is(err, catalog.ErrUnknownResource) {
		t.Errorf("Expected ErrUnknownResource, got %v", err)
	}
}

func TestReciterQueries(t *testing.T) {
	c, _, _ := newTestController(t)
	names := c.ReciterDirNames()
	if len(names) != 2 || names[1] != "alafasy_dir" {
		t.Errorf("Unexpected dir names: %v", names)
	}
	if r := c.Reciters(); len(r) != 2 || r[0].Name != "husary" {
		t.Errorf("Unexpected reciters: %+v", r)
	}
}

func TestUnsubscribe(t *testing.T) {
	c, exec, rec := newTestController(t)
	var mu sync.Mutex
	var seen []EventKind
	id := c.Subscribe(ObserverFunc(func(e Event) {
		mu.Lock()
		seen = append(seen, e.Kind)
		mu.Unlock()
	}))
	c.Enqueue(taskWithGroup(1))
	c.StartQueue()
	exec.next(t)
	rec.expect(t, EventStarted)

	c.Unsubscribe(id)
	c.CancelCurrentTask()
	rec.expect(t, EventCanceled)
	rec.expect(t, EventQueueEmpty)

	mu.Lock()
	defer mu.Unlock()
	if len(seen) != 1 || seen[0] != EventStarted {
		t.Errorf("Expected only the started event before unsubscribing, got %v", seen)
	}
}

func TestClose(t *testing.T) {
	c, exec, _ := newTestController(t)
	c.Enqueue(taskWithGroup(1))
	c.StartQueue()
	a := exec.next(t)

	done := make(chan struct{})
	go func() {
		c.Close()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(waitTimeout):
		t.Fatal("Close did not return")
	}
	if a.ctx.Err() == nil {
		t.Error("Expected in-flight transfer to be cancelled by Close")
	}
	if err := c.Enqueue(taskWithGroup(2)); !errors.Is(err, ErrClosed) {
		t.Errorf("Expected ErrClosed after Close, got %v", err)
	}
	c.Close()
}
