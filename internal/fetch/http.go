package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/tanq16/qurandl/internal/queue"
	"github.com/tanq16/qurandl/internal/utils"
)

// HTTPExecutor downloads http(s) locators with a single GET.
type HTTPExecutor struct {
	client utils.HTTPDoer
}

func NewHTTPExecutor(client utils.HTTPDoer) *HTTPExecutor {
	return &HTTPExecutor{client: client}
}

func (e *HTTPExecutor) Execute(ctx context.Context, task queue.Task, progress queue.ProgressFunc) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, task.URL, nil)
	if err != nil {
		return fmt.Errorf("error creating GET request: %v", err)
	}
	req.Header.Set("Connection", "keep-alive")
	resp, err := e.client.Do(req)
	if err != nil {
		return fmt.Errorf("error executing GET request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: %d", utils.ErrUnexpectedStatus, resp.StatusCode)
	}
	tempPath, err := prepare(task.Dest)
	if err != nil {
		return err
	}

	progressCh, finish := trackProgress(progress, resp.ContentLength)
	written, err := writeBody(tempPath, resp.Body, progressCh)
	finish(err == nil)
	if err != nil {
		discard(tempPath)
		return err
	}
	if err := finalize(tempPath, task.Dest); err != nil {
		return err
	}
	log.Debug().Str("op", "fetch/http").Int64("bytes", written).Msgf("download finished for %s", task.Dest)
	return nil
}

func writeBody(tempPath string, body io.Reader, progressCh chan<- int64) (int64, error) {
	outFile, err := os.OpenFile(tempPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return 0, fmt.Errorf("error creating output file: %w", err)
	}
	defer outFile.Close()

	buffer := make([]byte, utils.DefaultBufferSize)
	var written int64
	for {
		bytesRead, readErr := body.Read(buffer)
		if bytesRead > 0 {
			if _, writeErr := outFile.Write(buffer[:bytesRead]); writeErr != nil {
				return written, fmt.Errorf("error writing to output file: %w", writeErr)
			}
			written += int64(bytesRead)
			progressCh <- int64(bytesRead)
		}
		if readErr != nil {
			if readErr == io.EOF {
				break
			}
			return written, fmt.Errorf("error reading response body: %w", readErr)
		}
	}
	if err := outFile.Sync(); err != nil {
		return written, fmt.Errorf("error syncing output file: %w", err)
	}
	return written, nil
}
