package cmd

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/tanq16/qurandl/internal/catalog"
	"github.com/tanq16/qurandl/internal/config"
	"github.com/tanq16/qurandl/internal/fetch"
	"github.com/tanq16/qurandl/internal/output"
	"github.com/tanq16/qurandl/internal/queue"
	"github.com/tanq16/qurandl/internal/utils"
)

var errInterrupted = errors.New("interrupted, remaining downloads were not started")

const settleTimeout = 10 * time.Second

// enqueuer is the part of the controller the commands fill the queue through.
type enqueuer interface {
	Enqueue(task queue.Task) error
	EnqueueVerse(reciterIdx, surah, verse int) error
	EnqueueContent(kind catalog.ContentKind, idx int) error
}

func newExecutor(cfg *config.Config) queue.Executor {
	router := fetch.NewRouter()
	httpExec := fetch.NewHTTPExecutor(utils.NewHTTPClient(cfg.HTTPClientConfig()))
	router.Handle("http", httpExec)
	router.Handle("https", httpExec)
	router.Handle("s3", fetch.NewS3Executor(cfg.Downloader.S3Profile))
	return router
}

func newController(e *env) *queue.Controller {
	return queue.NewController(queue.Options{
		Executor: newExecutor(e.cfg),
		Catalog:  e.catalog,
		Layout:   e.layout,
	})
}

// runQueue fills a controller through fill, runs it until the queue drains
// and renders progress. SIGINT stops the queue and waits for the in-flight
// transfer to be canceled.
func runQueue(e *env, fill func(enqueuer) error) error {
	ctrl := newController(e)
	defer ctrl.Close()
	if err := fill(ctrl); err != nil {
		return err
	}
	pending := ctrl.Pending()
	if len(pending) == 0 {
		output.PrintInfo("Nothing to download")
		return nil
	}

	manager := output.NewManager(os.Stdout)
	view := output.NewQueueView(manager)
	for _, task := range pending {
		view.Track(task)
	}
	ctrl.Subscribe(view)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	log.Debug().Str("op", "cmd/run").Int("tasks", len(pending)).Msg("starting queue")
	manager.StartDisplay()
	if err := ctrl.StartQueue(); err != nil {
		manager.StopDisplay()
		return err
	}

	var runErr error
	select {
	case <-view.Empty():
	case <-sigCh:
		runErr = errInterrupted
		ctrl.StopQueue()
		if !waitSettled(ctrl, settleTimeout) {
			log.Warn().Str("op", "cmd/run").Msg("in-flight download did not stop in time")
		}
	}
	manager.StopDisplay()
	if runErr != nil {
		return runErr
	}
	if failures := manager.Failures(); failures > 0 {
		return fmt.Errorf("%d of %d downloads failed", failures, len(pending))
	}
	return nil
}

// waitSettled polls until no transfer is in flight.
func waitSettled(ctrl *queue.Controller, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for ctrl.IsDownloading() {
		if time.Now().After(deadline) {
			return false
		}
		time.Sleep(50 * time.Millisecond)
	}
	return true
}
