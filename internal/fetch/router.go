package fetch

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/tanq16/qurandl/internal/queue"
	"github.com/tanq16/qurandl/internal/utils"
)

var ErrUnsupportedScheme = errors.New("unsupported URL scheme")

// Router is the queue executor used by the CLI. It picks an executor by the
// scheme of the task URL.
type Router struct {
	executors map[string]queue.Executor
}

func NewRouter() *Router {
	return &Router{executors: make(map[string]queue.Executor)}
}

func (r *Router) Handle(scheme string, e queue.Executor) {
	r.executors[strings.ToLower(scheme)] = e
}

func (r *Router) Execute(ctx context.Context, task queue.Task, progress queue.ProgressFunc) error {
	parsed, err := url.Parse(task.URL)
	if err != nil {
		return fmt.Errorf("invalid URL: %v", err)
	}
	e, ok := r.executors[strings.ToLower(parsed.Scheme)]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnsupportedScheme, parsed.Scheme)
	}
	return e.Execute(ctx, task, progress)
}

// prepare creates the destination directory and returns the staging path.
// Call it only once the source has answered.
func prepare(dest string) (string, error) {
	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return "", fmt.Errorf("error creating output directory: %v", err)
	}
	return utils.TempPath(dest)
}

// discard removes a staged file and its temp directory once that is empty.
func discard(tempPath string) {
	os.Remove(tempPath)
	os.Remove(filepath.Dir(tempPath))
}

// finalize moves a completed temp file into place.
func finalize(tempPath, dest string) error {
	if err := os.Rename(tempPath, dest); err != nil {
		discard(tempPath)
		return fmt.Errorf("error renaming (finalizing) output file: %w", err)
	}
	os.Remove(filepath.Dir(tempPath))
	return nil
}
