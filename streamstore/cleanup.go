package streamstore

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/htcacheio/cachekit/internal/logging"
)

// cleanupQueueSize is the bound on queued deletion jobs. A producer that
// finds the channel full drops straight into the backlog slice instead
// of blocking the hot path; the consumer drains the backlog before
// taking new channel sends, so nothing queued is ever lost, only
// delayed.
const cleanupQueueSize = 256

type cleanupJob struct {
	contentPath string
}

// cleanupWorker owns the single goroutine that performs content-file
// deletion, keeping that I/O off every request path. Eviction and
// refcount-to-zero events both funnel through here.
type cleanupWorker struct {
	jobs chan cleanupJob
	done chan struct{}
	wg   sync.WaitGroup

	mu      sync.Mutex
	backlog []cleanupJob
}

func newCleanupWorker() *cleanupWorker {
	w := &cleanupWorker{
		jobs: make(chan cleanupJob, cleanupQueueSize),
		done: make(chan struct{}),
	}
	w.wg.Add(1)
	go w.run()
	return w
}

// enqueue never blocks. If the channel is full the job is appended to
// an in-memory backlog that the worker loop drains opportunistically.
func (w *cleanupWorker) enqueue(contentPath string) {
	select {
	case w.jobs <- cleanupJob{contentPath: contentPath}:
	default:
		w.mu.Lock()
		w.backlog = append(w.backlog, cleanupJob{contentPath: contentPath})
		w.mu.Unlock()
	}
}

func (w *cleanupWorker) run() {
	defer w.wg.Done()

	for {
		w.drainBacklog()

		select {
		case job, ok := <-w.jobs:
			if !ok {
				w.drainBacklog()
				return
			}
			w.delete(job)
		case <-w.done:
			w.drainRemaining()
			return
		}
	}
}

func (w *cleanupWorker) drainBacklog() {
	for {
		w.mu.Lock()
		if len(w.backlog) == 0 {
			w.mu.Unlock()
			return
		}
		job := w.backlog[0]
		w.backlog = w.backlog[1:]
		w.mu.Unlock()
		w.delete(job)
	}
}

func (w *cleanupWorker) drainRemaining() {
	for {
		select {
		case job, ok := <-w.jobs:
			if !ok {
				w.drainBacklog()
				return
			}
			w.delete(job)
		default:
			w.drainBacklog()
			return
		}
	}
}

func (w *cleanupWorker) delete(job cleanupJob) {
	if err := os.Remove(job.contentPath); err != nil && !os.IsNotExist(err) {
		logging.Get().Warn("streamstore: failed to remove content file",
			"path", job.contentPath, "error", err)
	}
}

// close signals the worker to stop and waits for it to flush whatever
// is already queued or backlogged. Jobs enqueued after close are
// accepted but never processed.
func (w *cleanupWorker) close() {
	close(w.done)
	w.wg.Wait()
}

func contentPathFor(root, digest string) string {
	return filepath.Join(root, "content", digest)
}

func metadataPathFor(root, hexKey string) string {
	return filepath.Join(root, "metadata", hexKey)
}
