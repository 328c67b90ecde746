// Package dump drives the sequential content collection: one API call at a
// time, adaptive page sizing, item enrichment and one JSON file per method.
package dump

import (
	"vkdumper/pkg/logger"
	"vkdumper/pkg/vkapi"
)

// Transport is the slice of the VK client the fetch pipeline uses
type Transport interface {
	Call(method string, params vkapi.Params) (interface{}, error)
	CallAll(method string, pageSize int, params vkapi.Params) (map[string]interface{}, error)
}

// Fetcher issues one logical API call, adapting the page size when the server
// rejects a paginated request as too large
type Fetcher struct {
	api Transport
	log logger.Logger
}

// NewFetcher creates a fetcher on top of the given transport
func NewFetcher(api Transport, log logger.Logger) *Fetcher {
	if log == nil {
		log = logger.GetLogger()
	}
	return &Fetcher{api: api, log: log}
}

// Fetch performs one logical call. A pageSize of zero or less means the
// method is not paginated and a single raw call is made. Otherwise the full
// collection is fetched at pageSize, shrinking the page and restarting from
// the beginning whenever the server reports the response as too big. The
// shrink is geometric so it converges quickly, and the size is bounded below
// by 1 so the loop always terminates.
func (f *Fetcher) Fetch(method string, params vkapi.Params, pageSize int) (interface{}, error) {
	if pageSize <= 0 {
		return f.api.Call(method, params)
	}

	size := pageSize
	for {
		result, err := f.api.CallAll(method, size, params)
		if err == nil {
			return result, nil
		}
		if !vkapi.IsTooBigResponse(err) || size == 1 {
			return nil, err
		}

		size = ReducePageSize(size)
		f.log.InfoWithFields("page size reduced", map[string]interface{}{
			"method":    method,
			"page_size": size,
		})
	}
}

// ReducePageSize returns the next smaller page size: ceil(size/5), never
// below 1
func ReducePageSize(size int) int {
	next := (size + 4) / 5
	if next < 1 {
		return 1
	}
	return next
}
