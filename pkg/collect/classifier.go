// Package collect walks the persisted content dumps, classifies every
// attachment and downloads the file backed ones.
package collect

import (
	"fmt"
	"net/url"
	"path"
	"strings"
	"unicode"

	"vkdumper/internal/downloader"
	"vkdumper/pkg/logger"
	"vkdumper/pkg/vkapi"
)

// photoSizeRank orders the photo size classes by quality. The lowest rank is
// the preferred variant. The letters encode a fixed quality ordering that the
// declared pixel dimensions do not reliably reflect, so the table is
// authoritative.
var photoSizeRank = map[string]int{
	"w": 0, "z": 1, "y": 2, "x": 3, "r": 4,
	"q": 5, "p": 6, "o": 7, "m": 8, "s": 9,
}

// titlePunctuation is the punctuation kept by file name normalization, on top
// of letters and digits
const titlePunctuation = " _-—.,"

// Node is one content tree node the classifier visits. The closed set of
// variants is posts, post comments, board topics and board comments.
type Node interface {
	NodeKind() string
	NodeID() int
	NodeAttachments() []vkapi.Attachment
}

// PostNode is a wall post
type PostNode struct{ vkapi.Post }

func (n PostNode) NodeKind() string                    { return "post" }
func (n PostNode) NodeID() int                         { return n.ID }
func (n PostNode) NodeAttachments() []vkapi.Attachment { return n.Attachments }

// CommentNode is a wall post comment
type CommentNode struct{ vkapi.Comment }

func (n CommentNode) NodeKind() string                    { return "comment" }
func (n CommentNode) NodeID() int                         { return n.ID }
func (n CommentNode) NodeAttachments() []vkapi.Attachment { return n.Attachments }

// TopicNode is a board topic; topics themselves carry no attachments
type TopicNode struct{ vkapi.Topic }

func (n TopicNode) NodeKind() string                    { return "topic" }
func (n TopicNode) NodeID() int                         { return n.ID }
func (n TopicNode) NodeAttachments() []vkapi.Attachment { return nil }

// TopicCommentNode is a board topic comment
type TopicCommentNode struct{ vkapi.Comment }

func (n TopicCommentNode) NodeKind() string                    { return "brd_com" }
func (n TopicCommentNode) NodeID() int                         { return n.ID }
func (n TopicCommentNode) NodeAttachments() []vkapi.Attachment { return n.Attachments }

// Classifier routes every attachment of a classification pass to either a
// download task or a no-file record. Unsupported kinds are warned about once
// per pass.
type Classifier struct {
	log     logger.Logger
	skipped map[string]bool
	tasks   []downloader.Task
	records []NoFileRecord
}

// NewClassifier creates a classifier for one pass
func NewClassifier(log logger.Logger) *Classifier {
	if log == nil {
		log = logger.GetLogger()
	}
	return &Classifier{
		log:     log,
		skipped: make(map[string]bool),
	}
}

// WalkWall visits every post and every post comment depth first
func (c *Classifier) WalkWall(wall *vkapi.Wall) {
	for _, post := range wall.Items {
		c.Classify(PostNode{post})
		if post.CommentsList == nil {
			continue
		}
		for _, comment := range post.CommentsList.Items {
			c.Classify(CommentNode{comment})
		}
	}
}

// WalkTopics visits every board topic and every topic comment depth first
func (c *Classifier) WalkTopics(topics *vkapi.TopicList) {
	for _, topic := range topics.Items {
		c.Classify(TopicNode{topic})
		if topic.TopicsInfo == nil {
			continue
		}
		for _, comment := range topic.TopicsInfo.Items {
			c.Classify(TopicCommentNode{comment})
		}
	}
}

// Classify dispatches every attachment of one node
func (c *Classifier) Classify(n Node) {
	for _, att := range n.NodeAttachments() {
		c.classifyAttachment(n.NodeKind(), n.NodeID(), att)
	}
}

// Tasks returns the download tasks collected so far
func (c *Classifier) Tasks() []downloader.Task {
	return c.tasks
}

// Records returns the no-file records collected so far
func (c *Classifier) Records() []NoFileRecord {
	return c.records
}

func (c *Classifier) classifyAttachment(parentKind string, parentID int, att vkapi.Attachment) {
	switch att.Type {
	case "video":
		if att.Video == nil {
			c.warnMalformed(att.Type, parentKind, parentID)
			return
		}
		c.addRecord(parentKind, parentID, att.Type, att.Video.Title)

	case "audio":
		if att.Audio == nil {
			c.warnMalformed(att.Type, parentKind, parentID)
			return
		}
		c.addRecord(parentKind, parentID, att.Type,
			fmt.Sprintf("%s — %s", att.Audio.Artist, att.Audio.Title))

	case "link":
		if att.Link == nil {
			c.warnMalformed(att.Type, parentKind, parentID)
			return
		}
		c.addRecord(parentKind, parentID, att.Type,
			fmt.Sprintf("%s [%s]", att.Link.Title, att.Link.URL))

	case "photo":
		if att.Photo == nil {
			c.warnMalformed(att.Type, parentKind, parentID)
			return
		}
		photoURL, ext, ok := PickPhotoSize(att.Photo)
		if !ok {
			c.log.WarnWithFields("empty photo object", map[string]interface{}{
				"parent_kind": parentKind,
				"parent_id":   parentID,
				"photo_id":    att.Photo.ID,
			})
			return
		}
		c.tasks = append(c.tasks, downloader.Task{
			ParentKind: parentKind,
			ParentID:   parentID,
			Kind:       att.Type,
			ID:         att.Photo.ID,
			URL:        photoURL,
			Name:       fmt.Sprintf("%s%d_photo%d%s", parentKind, parentID, att.Photo.ID, ext),
		})

	case "doc":
		if att.Doc == nil {
			c.warnMalformed(att.Type, parentKind, parentID)
			return
		}
		c.tasks = append(c.tasks, downloader.Task{
			ParentKind: parentKind,
			ParentID:   parentID,
			Kind:       att.Type,
			ID:         att.Doc.ID,
			URL:        att.Doc.URL,
			Name:       fmt.Sprintf("%s%d_doc%d_%s", parentKind, parentID, att.Doc.ID, DocFileName(att.Doc)),
		})

	default:
		if !c.skipped[att.Type] {
			c.skipped[att.Type] = true
			c.log.WarnWithFields("skip not supported attachment kind", map[string]interface{}{
				"kind":        att.Type,
				"parent_kind": parentKind,
				"parent_id":   parentID,
			})
		}
	}
}

func (c *Classifier) addRecord(parentKind string, parentID int, kind, text string) {
	c.records = append(c.records, NoFileRecord{
		ParentKind: parentKind,
		ParentID:   parentID,
		Kind:       kind,
		Text:       text,
	})
}

func (c *Classifier) warnMalformed(kind, parentKind string, parentID int) {
	c.log.WarnWithFields("malformed attachment object", map[string]interface{}{
		"kind":        kind,
		"parent_kind": parentKind,
		"parent_id":   parentID,
	})
}

// PickPhotoSize selects the best size variant of a photo by the fixed rank
// table and returns its URL and the file extension derived from the URL path.
// ok is false when the photo has no size variants at all.
func PickPhotoSize(photo *vkapi.Photo) (photoURL, ext string, ok bool) {
	best := -1
	bestRank := 0
	for i, size := range photo.Sizes {
		rank, known := photoSizeRank[size.Type]
		if !known {
			// Unknown size classes lose to every listed one
			rank = len(photoSizeRank)
		}
		if best == -1 || rank < bestRank {
			best = i
			bestRank = rank
		}
	}
	if best == -1 {
		return "", "", false
	}

	chosen := photo.Sizes[best].URL
	return chosen, ExtFromURL(chosen), true
}

// ExtFromURL returns the extension of a URL's path, query string stripped
func ExtFromURL(raw string) string {
	if u, err := url.Parse(raw); err == nil {
		return path.Ext(u.Path)
	}
	if i := strings.IndexByte(raw, '?'); i >= 0 {
		raw = raw[:i]
	}
	return path.Ext(raw)
}

// NormalizeTitle strips every rune that is neither alphanumeric nor in the
// allowed punctuation set and trims trailing whitespace
func NormalizeTitle(title string) string {
	var b strings.Builder
	for _, r := range title {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || strings.ContainsRune(titlePunctuation, r) {
			b.WriteRune(r)
		}
	}
	return strings.TrimRightFunc(b.String(), unicode.IsSpace)
}

// DocFileName returns the normalized document title with the document's
// extension appended exactly once
func DocFileName(doc *vkapi.Doc) string {
	name := NormalizeTitle(doc.Title)
	ext := "." + doc.Ext
	if !strings.HasSuffix(name, ext) {
		name += ext
	}
	return name
}
