package downloader

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vkdumper/pkg/logger"
)

type mockFetcher struct {
	mu      sync.Mutex
	files   map[string][]byte
	failing map[string]error
	calls   []string
}

func newMockFetcher() *mockFetcher {
	return &mockFetcher{
		files:   make(map[string][]byte),
		failing: make(map[string]error),
	}
}

func (f *mockFetcher) Download(url string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, url)
	if err, ok := f.failing[url]; ok {
		return nil, err
	}
	data, ok := f.files[url]
	if !ok {
		return nil, fmt.Errorf("unexpected url %s", url)
	}
	return data, nil
}

type mockStore struct {
	mu       sync.Mutex
	existing map[string]bool
	saved    map[string][]byte
	saveErr  error
}

func newMockStore() *mockStore {
	return &mockStore{
		existing: make(map[string]bool),
		saved:    make(map[string][]byte),
	}
}

func (s *mockStore) IsDownloaded(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.existing[name] || s.saved[name] != nil
}

func (s *mockStore) SaveFile(r io.Reader, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return s.saveErr
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	s.saved[name] = data
	return nil
}

func (s *mockStore) Dir() string { return "/tmp/test" }

func TestPoolDownloadsWholeBatch(t *testing.T) {
	fetcher := newMockFetcher()
	store := newMockStore()
	for i := 0; i < 20; i++ {
		fetcher.files[fmt.Sprintf("http://f/%d", i)] = []byte{byte(i)}
	}

	var tasks []Task
	for i := 0; i < 20; i++ {
		tasks = append(tasks, Task{
			ParentKind: "post",
			ParentID:   i,
			Kind:       "photo",
			ID:         i,
			URL:        fmt.Sprintf("http://f/%d", i),
			Name:       fmt.Sprintf("post%d_photo%d.jpg", i, i),
		})
	}

	pool := NewPool(4, fetcher, store, logger.NewTestLogger())
	results := pool.Run(tasks)

	require.Len(t, results, 20)
	for _, result := range results {
		assert.NoError(t, result.Err)
		assert.False(t, result.Skipped)
	}
	assert.Len(t, store.saved, 20)
}

func TestPoolFailureNeverAbortsSiblings(t *testing.T) {
	fetcher := newMockFetcher()
	store := newMockStore()
	fetcher.files["http://f/1"] = []byte("one")
	fetcher.failing["http://f/2"] = errors.New("connection reset")
	fetcher.files["http://f/3"] = []byte("three")

	log := logger.NewTestLogger()
	pool := NewPool(2, fetcher, store, log)
	results := pool.Run([]Task{
		{ParentKind: "post", ParentID: 1, Kind: "photo", ID: 11, URL: "http://f/1", Name: "a.jpg"},
		{ParentKind: "post", ParentID: 2, Kind: "photo", ID: 22, URL: "http://f/2", Name: "b.jpg"},
		{ParentKind: "post", ParentID: 3, Kind: "photo", ID: 33, URL: "http://f/3", Name: "c.jpg"},
	})

	require.Len(t, results, 3)
	failed := 0
	for _, result := range results {
		if result.Err != nil {
			failed++
			assert.Equal(t, "b.jpg", result.Task.Name)
		}
	}
	assert.Equal(t, 1, failed)
	assert.Contains(t, store.saved, "a.jpg")
	assert.Contains(t, store.saved, "c.jpg")
	assert.NotContains(t, store.saved, "b.jpg")

	errs := log.MessagesAtLevel("ERROR")
	require.Len(t, errs, 1)
	assert.Equal(t, 2, errs[0].Fields["parent_id"])
	assert.Equal(t, "http://f/2", errs[0].Fields["url"])
}

func TestPoolSkipsAlreadyDownloaded(t *testing.T) {
	fetcher := newMockFetcher()
	store := newMockStore()
	store.existing["done.jpg"] = true
	fetcher.files["http://f/new"] = []byte("new")

	pool := NewPool(1, fetcher, store, logger.NewTestLogger())
	results := pool.Run([]Task{
		{URL: "http://f/done", Name: "done.jpg"},
		{URL: "http://f/new", Name: "new.jpg"},
	})

	require.Len(t, results, 2)
	skipped := 0
	for _, result := range results {
		if result.Skipped {
			skipped++
			assert.Equal(t, "done.jpg", result.Task.Name)
		}
	}
	assert.Equal(t, 1, skipped)
	assert.NotContains(t, fetcher.calls, "http://f/done", "skipped tasks never hit the network")
	assert.Contains(t, store.saved, "new.jpg")
}

func TestPoolReportsSaveFailure(t *testing.T) {
	fetcher := newMockFetcher()
	store := newMockStore()
	store.saveErr = errors.New("disk full")
	fetcher.files["http://f/1"] = []byte("one")

	pool := NewPool(1, fetcher, store, logger.NewTestLogger())
	results := pool.Run([]Task{{URL: "http://f/1", Name: "a.jpg", ID: 1}})

	require.Len(t, results, 1)
	assert.EqualError(t, results[0].Err, "disk full")
}

func TestPoolEmptyBatch(t *testing.T) {
	pool := NewPool(4, newMockFetcher(), newMockStore(), logger.NewTestLogger())
	assert.Nil(t, pool.Run(nil))
}
