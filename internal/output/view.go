package output

import (
	"fmt"
	"path/filepath"
	"sync"

	"github.com/tanq16/qurandl/internal/queue"
)

// QueueView renders controller events through a Manager. Rows are created
// by Track or lazily on the first event of a task.
type QueueView struct {
	m *Manager

	mu    sync.Mutex
	rows  map[string]int
	empty chan struct{}
}

func NewQueueView(m *Manager) *QueueView {
	return &QueueView{
		m:     m,
		rows:  make(map[string]int),
		empty: make(chan struct{}, 1),
	}
}

func Label(task queue.Task) string {
	return fmt.Sprintf("%s %s", task.Kind, filepath.Base(task.Dest))
}

// Track registers a pending row for a task before it starts.
func (v *QueueView) Track(task queue.Task) {
	v.row(task)
}

func (v *QueueView) row(task queue.Task) int {
	v.mu.Lock()
	defer v.mu.Unlock()
	if id, ok := v.rows[task.ID]; ok {
		return id
	}
	id := v.m.Register(Label(task))
	v.rows[task.ID] = id
	return id
}

// Empty is signaled each time the queue drains.
func (v *QueueView) Empty() <-chan struct{} {
	return v.empty
}

func (v *QueueView) Notify(e queue.Event) {
	if e.Kind == queue.EventQueueEmpty {
		select {
		case v.empty <- struct{}{}:
		default:
		}
		return
	}
	id := v.row(e.Task)
	label := Label(e.Task)
	switch e.Kind {
	case queue.EventStarted:
		v.m.Start(id, "Downloading "+label)
	case queue.EventProgressed:
		v.m.AddProgressBarToStream(id, e.Downloaded, e.Total, filepath.Base(e.Task.Dest))
	case queue.EventCanceled:
		v.m.Cancel(id, "Canceled "+label)
	case queue.EventComplete:
		v.m.Complete(id, "Downloaded "+label)
	case queue.EventError:
		v.m.ReportError(id, e.Err)
	}
}
