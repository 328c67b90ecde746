// Package downloader retrieves one batch of attachment files concurrently
// into a single destination directory.
package downloader

import (
	"bytes"
	"io"
	"sync"
	"time"

	"vkdumper/pkg/logger"
)

// Task describes one file to download. Name is the destination file name
// relative to the pool's directory; URL must never be empty.
type Task struct {
	ParentKind string
	ParentID   int
	Kind       string
	ID         int
	URL        string
	Name       string
}

// Result is the outcome of one task
type Result struct {
	Task     Task
	Err      error
	Skipped  bool
	Size     int
	Duration time.Duration
}

// Fetcher downloads one resource
type Fetcher interface {
	Download(url string) ([]byte, error)
}

// Store persists downloaded files for one destination directory
type Store interface {
	IsDownloaded(name string) bool
	SaveFile(r io.Reader, name string) error
	Dir() string
}

// Pool downloads one batch of tasks with a bounded number of workers. The
// batch contract is all or nothing in time, not in outcome: Run returns only
// after every task has resolved, and a failed task never aborts its siblings.
type Pool struct {
	workers int
	client  Fetcher
	store   Store
	log     logger.Logger
}

// NewPool creates a download pool bound to one destination directory
func NewPool(workers int, client Fetcher, store Store, log logger.Logger) *Pool {
	if workers < 1 {
		workers = 1
	}
	if log == nil {
		log = logger.GetLogger()
	}
	return &Pool{
		workers: workers,
		client:  client,
		store:   store,
		log:     log,
	}
}

// Run downloads every task and returns once all of them have finished
func (p *Pool) Run(tasks []Task) []Result {
	if len(tasks) == 0 {
		return nil
	}

	jobs := make(chan Task)
	results := make(chan Result, len(tasks))

	var wg sync.WaitGroup
	for i := 0; i < p.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for task := range jobs {
				results <- p.download(task)
			}
		}()
	}

	for _, task := range tasks {
		jobs <- task
	}
	close(jobs)
	wg.Wait()
	close(results)

	out := make([]Result, 0, len(tasks))
	failed := 0
	for result := range results {
		if result.Err != nil {
			failed++
		}
		out = append(out, result)
	}

	p.log.InfoWithFields("downloading to folder complete", map[string]interface{}{
		"dir":    p.store.Dir(),
		"tasks":  len(tasks),
		"failed": failed,
	})
	return out
}

// download resolves one task. Failures are logged and reported in the result,
// never propagated.
func (p *Pool) download(task Task) Result {
	start := time.Now()
	result := Result{Task: task}

	if p.store.IsDownloaded(task.Name) {
		result.Skipped = true
		result.Duration = time.Since(start)
		return result
	}

	data, err := p.client.Download(task.URL)
	if err != nil {
		result.Err = err
		result.Duration = time.Since(start)
		p.log.ErrorWithFields("failed to download file", map[string]interface{}{
			"parent_kind":   task.ParentKind,
			"parent_id":     task.ParentID,
			"attachment_id": task.ID,
			"url":           task.URL,
			"error":         err.Error(),
		})
		return result
	}
	result.Size = len(data)

	if err := p.store.SaveFile(bytes.NewReader(data), task.Name); err != nil {
		result.Err = err
		result.Duration = time.Since(start)
		p.log.ErrorWithFields("failed to save file", map[string]interface{}{
			"parent_kind":   task.ParentKind,
			"parent_id":     task.ParentID,
			"attachment_id": task.ID,
			"name":          task.Name,
			"error":         err.Error(),
		})
		return result
	}

	result.Duration = time.Since(start)
	return result
}
