package fetch

import (
	"time"

	"github.com/tanq16/qurandl/internal/queue"
)

const progressTick = 100 * time.Millisecond

// trackProgress accumulates byte counts sent on the returned channel and
// reports the running total at most once per tick. The returned finish func
// closes the channel and waits for the final update. For a complete transfer
// an unknown (negative) total is reported as the byte count. Nothing is
// reported if no bytes arrive.
func trackProgress(fn queue.ProgressFunc, total int64) (chan<- int64, func(complete bool)) {
	progressCh := make(chan int64, 100)
	done := make(chan struct{})
	var complete bool
	go func() {
		defer close(done)
		var downloaded, reported int64
		ticker := time.NewTicker(progressTick)
		defer ticker.Stop()
		for {
			select {
			case n, ok := <-progressCh:
				if !ok {
					if complete && total < 0 {
						total = downloaded
						reported = 0
					}
					if fn != nil && downloaded > reported {
						fn(downloaded, total)
					}
					return
				}
				downloaded += n
			case <-ticker.C:
				if downloaded > reported && fn != nil {
					fn(downloaded, total)
					reported = downloaded
				}
			}
		}
	}()
	return progressCh, func(ok bool) {
		complete = ok
		close(progressCh)
		<-done
	}
}
