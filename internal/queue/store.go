package queue

// Store is the FIFO of pending tasks. It is owned by the controller loop and
// does no locking of its own.
type Store struct {
	tasks []Task
}

func (s *Store) Push(t Task) {
	s.tasks = append(s.tasks, t)
}

// Pop removes and returns the head task; ok is false when the store is empty.
func (s *Store) Pop() (Task, bool) {
	if len(s.tasks) == 0 {
		return Task{}, false
	}
	head := s.tasks[0]
	s.tasks[0] = Task{}
	s.tasks = s.tasks[1:]
	return head, true
}

func (s *Store) Empty() bool {
	return len(s.tasks) == 0
}

func (s *Store) Len() int {
	return len(s.tasks)
}

func (s *Store) Snapshot() []Task {
	out := make([]Task, len(s.tasks))
	copy(out, s.tasks)
	return out
}
