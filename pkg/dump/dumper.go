package dump

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"vkdumper/pkg/logger"
	"vkdumper/pkg/storage"
	"vkdumper/pkg/vkapi"
)

// groupFields is the field list requested from groups.getById
var groupFields = []string{
	"activity", "ban_info", "can_post", "can_see_all_posts", "city", "contacts",
	"counters", "country", "cover", "description", "finish_date", "fixed_post",
	"links", "market", "members_count", "place", "site", "start_date", "status",
	"verified", "wiki_page",
}

// methodRequest describes one top level method: what to call, how to page it
// and which enrichment to run on the result
type methodRequest struct {
	method   string
	params   vkapi.Params
	pageSize int
	enrich   func(interface{}) error
}

// Dumper fetches the fixed set of top level methods for one owner and
// persists each result as one JSON document
type Dumper struct {
	ownerID  int
	baseDir  string
	fetcher  *Fetcher
	enricher *Enricher
	statFrom int64
	log      logger.Logger
}

// New creates a dumper for one owner. statFrom is the unix timestamp the
// statistics dump starts at; zero disables the statistics method entirely.
func New(ownerID int, baseDir string, api Transport, statFrom int64, log logger.Logger) *Dumper {
	if log == nil {
		log = logger.GetLogger()
	}
	fetcher := NewFetcher(api, log)
	return &Dumper{
		ownerID:  ownerID,
		baseDir:  baseDir,
		fetcher:  fetcher,
		enricher: NewEnricher(ownerID, fetcher, log),
		statFrom: statFrom,
		log:      log,
	}
}

// requests returns the fixed method table for one run
func (d *Dumper) requests() []methodRequest {
	reqs := []methodRequest{
		{
			method: "groups.getById",
			params: vkapi.Params{
				"group_id": -d.ownerID,
				"fields":   strings.Join(groupFields, ","),
			},
		},
		{
			method:   "wall.get",
			params:   vkapi.Params{"owner_id": d.ownerID},
			pageSize: 100,
			enrich:   d.enricher.EnrichWall,
		},
		{
			method:   "board.getTopics",
			params:   vkapi.Params{"group_id": -d.ownerID},
			pageSize: 100,
			enrich:   d.enricher.EnrichTopics,
		},
		{
			method:   "video.get",
			params:   vkapi.Params{"owner_id": d.ownerID},
			pageSize: 100,
		},
		{
			method:   "docs.get",
			params:   vkapi.Params{"owner_id": d.ownerID},
			pageSize: 2000,
		},
		{
			method:   "groups.getMembers",
			params:   vkapi.Params{"group_id": -d.ownerID, "sort": "id_asc"},
			pageSize: 1000,
		},
		{
			method: "pages.getTitles",
			params: vkapi.Params{"group_id": -d.ownerID},
			enrich: d.enricher.EnrichPages,
		},
		{
			method: "photos.getAlbums",
			params: vkapi.Params{
				"owner_id":    d.ownerID,
				"need_system": 1,
				"need_covers": 1,
			},
			enrich: d.enricher.EnrichAlbums,
		},
	}

	if d.statFrom != 0 {
		reqs = append(reqs, methodRequest{
			method: "stats.get",
			params: vkapi.Params{
				"group_id":       -d.ownerID,
				"timestamp_from": d.statFrom,
			},
		})
	}
	return reqs
}

// Run fetches, enriches and persists every top level method. A failed method
// is logged and skipped; the remaining methods are still attempted.
func (d *Dumper) Run() error {
	if err := os.MkdirAll(storage.OwnerDir(d.baseDir, d.ownerID), 0o755); err != nil {
		return fmt.Errorf("failed to create owner directory: %w", err)
	}

	for _, req := range d.requests() {
		result, err := d.fetcher.Fetch(req.method, req.params, req.pageSize)
		if err == nil && req.enrich != nil {
			err = req.enrich(result)
		}
		if err != nil {
			d.log.WarnWithFields("failed to make request", map[string]interface{}{
				"method": req.method,
				"error":  err.Error(),
			})
			continue
		}

		if err := d.writeMethodResult(req.method, result); err != nil {
			d.log.WarnWithFields("failed to persist result", map[string]interface{}{
				"method": req.method,
				"error":  err.Error(),
			})
		}
	}
	return nil
}

// writeMethodResult persists one method result as an indented JSON document
func (d *Dumper) writeMethodResult(method string, data interface{}) error {
	encoded, err := json.MarshalIndent(data, "", "    ")
	if err != nil {
		return fmt.Errorf("failed to encode %s result: %w", method, err)
	}

	path := storage.MethodPath(d.baseDir, d.ownerID, method)
	if err := os.WriteFile(path, encoded, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}

	d.log.InfoWithFields("method response saved", map[string]interface{}{
		"method": method,
		"path":   path,
	})
	return nil
}
