package output

import (
	"fmt"
	"io"
	"sort"
	"sync"
	"time"
)

type Row struct {
	ID          int
	Label       string
	Status      string
	Message     string
	StreamLines []string
	Complete    bool
	StartTime   time.Time
	LastUpdated time.Time
	Error       error
}

type ErrorReport struct {
	Label string
	Error error
	Time  time.Time
}

// Manager renders one row per download. On a terminal the rows are redrawn
// in place every tick; otherwise each finished row is printed once.
type Manager struct {
	w           io.Writer
	interactive bool

	mutex       sync.RWMutex
	rows        map[int]*Row
	rowCount    int
	numLines    int
	maxStreams  int
	errors      []ErrorReport
	displayTick time.Duration

	doneCh    chan struct{}
	stopOnce  sync.Once
	displayWg sync.WaitGroup
}

func NewManager(w io.Writer) *Manager {
	return &Manager{
		w:           w,
		interactive: isTerminal(w),
		rows:        make(map[int]*Row),
		maxStreams:  5,
		displayTick: 200 * time.Millisecond,
		doneCh:      make(chan struct{}),
	}
}

func (m *Manager) Register(label string) int {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.rowCount++
	m.rows[m.rowCount] = &Row{
		ID:          m.rowCount,
		Label:       label,
		Status:      StatusPending,
		StartTime:   time.Now(),
		LastUpdated: time.Now(),
	}
	return m.rowCount
}

// Start marks a row active and resets its clock.
func (m *Manager) Start(id int, message string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	if row, exists := m.rows[id]; exists {
		row.Status = StatusActive
		row.Message = message
		row.StartTime = time.Now()
		row.LastUpdated = row.StartTime
	}
}

func (m *Manager) GetStatus(id int) string {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	if row, exists := m.rows[id]; exists {
		return row.Status
	}
	return "unknown"
}

func (m *Manager) Complete(id int, message string) {
	m.finish(id, StatusSuccess, message, nil)
}

func (m *Manager) Cancel(id int, message string) {
	m.finish(id, StatusCanceled, message, nil)
}

func (m *Manager) ReportError(id int, err error) {
	m.finish(id, StatusError, "", err)
}

func (m *Manager) finish(id int, status, message string, err error) {
	m.mutex.Lock()
	row, exists := m.rows[id]
	if !exists {
		m.mutex.Unlock()
		return
	}
	row.StreamLines = nil
	row.Complete = true
	row.Status = status
	row.LastUpdated = time.Now()
	switch {
	case message != "":
		row.Message = message
	case err != nil:
		row.Message = fmt.Sprintf("Failed %s", row.Label)
	default:
		row.Message = fmt.Sprintf("Completed %s", row.Label)
	}
	if err != nil {
		row.Error = err
		m.errors = append(m.errors, ErrorReport{Label: row.Label, Error: err, Time: row.LastUpdated})
	}
	line := m.formatRow(row)
	m.mutex.Unlock()
	if !m.interactive {
		fmt.Fprintln(m.w, line)
	}
}

func (m *Manager) AddStreamLine(id int, line string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	if row, exists := m.rows[id]; exists {
		width, _ := terminalSize(m.w)
		row.StreamLines = append(row.StreamLines, wrapText(line, width, 6)...)
		if len(row.StreamLines) > m.maxStreams {
			row.StreamLines = row.StreamLines[len(row.StreamLines)-m.maxStreams:]
		}
		row.LastUpdated = time.Now()
	}
}

func (m *Manager) AddProgressBarToStream(id int, current, total int64, text string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	if row, exists := m.rows[id]; exists {
		progressBar := PrintProgressBar(current, total, 30)
		elapsed := time.Since(row.StartTime).Seconds()
		display := fmt.Sprintf("%s%s %s %s", progressBar, debugStyle.Render(text), StyleSymbols["bullet"], debugStyle.Render(FormatSpeed(current, elapsed)))
		row.StreamLines = []string{display}
		row.LastUpdated = time.Now()
	}
}

func (m *Manager) GetStatusIndicator(status string) string {
	switch status {
	case StatusSuccess:
		return successStyle.Render(StyleSymbols["pass"])
	case StatusError:
		return errorStyle.Render(StyleSymbols["fail"])
	case StatusCanceled:
		return warningStyle.Render(StyleSymbols["warning"])
	case StatusPending:
		return pendingStyle.Render(StyleSymbols["pending"])
	default:
		return infoStyle.Render(StyleSymbols["arrow"])
	}
}

func (m *Manager) formatRow(row *Row) string {
	elapsed := time.Since(row.StartTime).Round(time.Second)
	if row.Complete {
		elapsed = row.LastUpdated.Sub(row.StartTime).Round(time.Second)
	}
	var styled string
	switch row.Status {
	case StatusSuccess:
		styled = successStyle.Render(row.Message)
	case StatusError:
		styled = errorStyle.Render(row.Message)
	case StatusCanceled:
		styled = warningStyle.Render(row.Message)
	default:
		styled = pendingStyle.Render(row.Message)
	}
	return fmt.Sprintf("  %s %s %s", m.GetStatusIndicator(row.Status), debugStyle.Render(elapsed.String()), styled)
}

func (m *Manager) sortRows() (active, pending, completed []*Row) {
	all := make([]*Row, 0, len(m.rows))
	for _, row := range m.rows {
		all = append(all, row)
	}
	sort.Slice(all, func(i, j int) bool {
		return all[i].ID < all[j].ID
	})
	for _, row := range all {
		switch {
		case row.Complete:
			completed = append(completed, row)
		case row.Status == StatusPending:
			pending = append(pending, row)
		default:
			active = append(active, row)
		}
	}
	return active, pending, completed
}

// render builds the display lines, keeping active rows and trimming
// completed and pending ones to fit height.
func (m *Manager) render(height int) []string {
	active, pending, completed := m.sortRows()
	available := max(height-3, 1)
	var lines []string
	for _, row := range active {
		lines = append(lines, m.formatRow(row))
		for _, s := range row.StreamLines {
			lines = append(lines, "      "+streamStyle.Render(s))
		}
	}
	if len(pending) > 0 {
		lines = append(lines, fmt.Sprintf("  %s %s", m.GetStatusIndicator(StatusPending), pendingStyle.Render(fmt.Sprintf("%d waiting", len(pending)))))
	}
	room := available - len(lines)
	if room <= 0 {
		return lines[:min(len(lines), available)]
	}
	if len(completed) > room {
		hidden := len(completed) - room + 1
		lines = append(lines, infoStyle.Render(fmt.Sprintf("  %d earlier downloads finished ...", hidden)))
		completed = completed[hidden:]
	}
	for _, row := range completed {
		lines = append(lines, m.formatRow(row))
	}
	return lines
}

func (m *Manager) updateDisplay() {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	_, height := terminalSize(m.w)
	if m.numLines > 0 {
		fmt.Fprintf(m.w, "\033[%dA\033[J", m.numLines)
	}
	lines := m.render(height)
	for _, line := range lines {
		fmt.Fprintln(m.w, line)
	}
	m.numLines = len(lines)
}

func (m *Manager) StartDisplay() {
	if !m.interactive {
		return
	}
	m.displayWg.Add(1)
	go func() {
		defer m.displayWg.Done()
		ticker := time.NewTicker(m.displayTick)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				m.updateDisplay()
			case <-m.doneCh:
				m.updateDisplay()
				return
			}
		}
	}()
}

// StopDisplay draws the final frame and prints the summary. It is safe to
// call more than once.
func (m *Manager) StopDisplay() {
	m.stopOnce.Do(func() {
		close(m.doneCh)
		m.displayWg.Wait()
		m.ShowSummary()
	})
}

// Failures returns the number of rows that ended in error.
func (m *Manager) Failures() int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return len(m.errors)
}

func (m *Manager) displayErrors() {
	if len(m.errors) == 0 {
		return
	}
	fmt.Fprintln(m.w)
	fmt.Fprintln(m.w, "  "+errorStyle.Bold(true).Render("Errors:"))
	for i, err := range m.errors {
		fmt.Fprintf(m.w, "    %s %s %s\n",
			errorStyle.Render(fmt.Sprintf("%d.", i+1)),
			debugStyle.Render(fmt.Sprintf("[%s]", err.Time.Format("15:04:05"))),
			errorStyle.Render(err.Label))
		fmt.Fprintf(m.w, "      %s\n", errorStyle.Render(fmt.Sprintf("Error: %v", err.Error)))
	}
}

func (m *Manager) ShowSummary() {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	var success, failures, canceled int
	for _, row := range m.rows {
		switch row.Status {
		case StatusSuccess:
			success++
		case StatusError:
			failures++
		case StatusCanceled:
			canceled++
		}
	}
	fmt.Fprintln(m.w)
	fmt.Fprintln(m.w, "  "+success2Style.Render(fmt.Sprintf("Completed %d of %d", success, len(m.rows))))
	if canceled > 0 {
		fmt.Fprintln(m.w, "  "+warningStyle.Render(fmt.Sprintf("Canceled %d of %d", canceled, len(m.rows))))
	}
	if failures > 0 {
		fmt.Fprintln(m.w, "  "+errorStyle.Render(fmt.Sprintf("Failed %d of %d", failures, len(m.rows))))
	}
	m.displayErrors()
	fmt.Fprintln(m.w)
}
