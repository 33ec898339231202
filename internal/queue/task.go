package queue

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

type Kind string

const (
	KindRecitation  Kind = "recitation"
	KindTafsir      Kind = "tafsir"
	KindTranslation Kind = "translation"
	KindFile        Kind = "file"
)

// Key is the composite identity of a task. Recitations use
// (reciter, surah, verse); content tasks use (catalog index, 0, 0).
type Key struct {
	Group     int
	Primary   int
	Secondary int
}

func (k Key) String() string {
	return fmt.Sprintf("%d/%d/%d", k.Group, k.Primary, k.Secondary)
}

// Task is one unit of download work.
type Task struct {
	ID   string
	Kind Kind
	Key  Key
	URL  string
	Dest string

	transfer *transfer
}

// transfer is the handle of an in-flight task.
type transfer struct {
	cancel   context.CancelFunc
	canceled bool
}

func NewTask(kind Kind, key Key, url, dest string) Task {
	return Task{
		ID:   uuid.NewString(),
		Kind: kind,
		Key:  key,
		URL:  url,
		Dest: dest,
	}
}

// InFlight reports whether the task holds a live transfer handle.
func (t Task) InFlight() bool {
	return t.transfer != nil
}

func (t Task) String() string {
	return fmt.Sprintf("%s %s", t.Kind, t.Key)
}
