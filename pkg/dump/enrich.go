package dump

import (
	"vkdumper/pkg/logger"
	"vkdumper/pkg/vkapi"
)

// Page sizes for the enrichment follow-up calls
const (
	likesPageSize    = 1000
	commentsPageSize = 100
	photosPageSize   = 1000
)

// Enricher issues per item follow-up calls that attach likes, comments, page
// bodies and album photos to a freshly fetched top level collection. It
// mutates the generic decoded tree in place so the persisted dump keeps every
// field the API returned.
type Enricher struct {
	ownerID int
	fetcher *Fetcher
	log     logger.Logger
}

// NewEnricher creates an enricher for one owner
func NewEnricher(ownerID int, fetcher *Fetcher, log logger.Logger) *Enricher {
	if log == nil {
		log = logger.GetLogger()
	}
	return &Enricher{ownerID: ownerID, fetcher: fetcher, log: log}
}

// EnrichWall attaches like lists and comment threads to every wall post
func (e *Enricher) EnrichWall(wall interface{}) error {
	for _, item := range listItems(wall) {
		post, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		postID := intOf(post["id"])

		if counterOf(post, "likes") != 0 {
			likes, err := e.fetcher.Fetch("likes.getList", vkapi.Params{
				"owner_id": e.ownerID,
				"item_id":  postID,
				"type":     "post",
			}, likesPageSize)
			if err != nil {
				return err
			}
			post["likes_info"] = likes
		}

		if counterOf(post, "comments") != 0 {
			comments, err := e.fetcher.Fetch("wall.getComments", vkapi.Params{
				"owner_id":   e.ownerID,
				"post_id":    postID,
				"need_likes": 1,
			}, commentsPageSize)
			if err != nil {
				return err
			}
			post["comments_list"] = comments

			if err := e.enrichCommentLikes(listItems(comments), "comment"); err != nil {
				return err
			}
		}
	}
	return nil
}

// EnrichTopics attaches the comment thread of every board topic, plus the
// like lists of those comments
func (e *Enricher) EnrichTopics(topics interface{}) error {
	for _, item := range listItems(topics) {
		topic, ok := item.(map[string]interface{})
		if !ok {
			continue
		}

		comments, err := e.fetcher.Fetch("board.getComments", vkapi.Params{
			"group_id":   -e.ownerID,
			"topic_id":   intOf(topic["id"]),
			"need_likes": 1,
		}, commentsPageSize)
		if err != nil {
			return err
		}
		topic["topics_info"] = comments

		if err := e.enrichCommentLikes(listItems(comments), "topic_comment"); err != nil {
			return err
		}
	}
	return nil
}

// enrichCommentLikes attaches the like list of every liked comment
func (e *Enricher) enrichCommentLikes(comments []interface{}, likeType string) error {
	for _, item := range comments {
		comment, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		if _, present := comment["likes"]; !present || counterOf(comment, "likes") == 0 {
			continue
		}

		likes, err := e.fetcher.Fetch("likes.getList", vkapi.Params{
			"owner_id": e.ownerID,
			"item_id":  intOf(comment["id"]),
			"type":     likeType,
		}, likesPageSize)
		if err != nil {
			return err
		}
		comment["likes_info"] = likes
	}
	return nil
}

// EnrichPages attaches the full body, source and rendered, to every static
// page title
func (e *Enricher) EnrichPages(titles interface{}) error {
	for _, item := range listItems(titles) {
		title, ok := item.(map[string]interface{})
		if !ok {
			continue
		}

		page, err := e.fetcher.Fetch("pages.get", vkapi.Params{
			"owner_id":    e.ownerID,
			"page_id":     intOf(title["id"]),
			"need_source": 1,
			"need_html":   1,
		}, 0)
		if err != nil {
			return err
		}
		title["page"] = page
	}
	return nil
}

// EnrichAlbums attaches the full photo list to every album
func (e *Enricher) EnrichAlbums(albums interface{}) error {
	for _, item := range listItems(albums) {
		album, ok := item.(map[string]interface{})
		if !ok {
			continue
		}

		photos, err := e.fetcher.Fetch("photos.get", vkapi.Params{
			"owner_id":    e.ownerID,
			"album_id":    intOf(album["id"]),
			"photo_sizes": 1,
		}, photosPageSize)
		if err != nil {
			return err
		}
		album["photos_list"] = photos
	}
	return nil
}

// listItems returns the item slice of a decoded collection. A paginated
// result wraps it under "items"; some methods return a bare array.
func listItems(v interface{}) []interface{} {
	switch t := v.(type) {
	case []interface{}:
		return t
	case map[string]interface{}:
		items, _ := t["items"].([]interface{})
		return items
	default:
		return nil
	}
}

// counterOf reads the count of a nested counter object such as likes.count
func counterOf(m map[string]interface{}, key string) int {
	nested, ok := m[key].(map[string]interface{})
	if !ok {
		return 0
	}
	return intOf(nested["count"])
}

// intOf reads a decoded JSON number as int
func intOf(v interface{}) int {
	switch t := v.(type) {
	case float64:
		return int(t)
	case int:
		return t
	default:
		return 0
	}
}
