package vkapi

// The persisted dumps keep every field the API returned, so the fetch side
// works on generic decoded JSON. These types cover only the slice of the
// content tree the attachment collection pass needs; unknown fields are
// ignored on unmarshal.

// Wall is the persisted wall.get result
type Wall struct {
	Count int    `json:"count"`
	Items []Post `json:"items"`
}

// Post is a single wall post, possibly enriched with its comment list
type Post struct {
	ID           int          `json:"id"`
	Attachments  []Attachment `json:"attachments"`
	CommentsList *CommentList `json:"comments_list"`
}

// CommentList is an attached comment collection
type CommentList struct {
	Count int       `json:"count"`
	Items []Comment `json:"items"`
}

// Comment is a post or board comment
type Comment struct {
	ID          int          `json:"id"`
	Attachments []Attachment `json:"attachments"`
}

// TopicList is the persisted board.getTopics result
type TopicList struct {
	Count int     `json:"count"`
	Items []Topic `json:"items"`
}

// Topic is a board discussion topic, possibly enriched with its comments
type Topic struct {
	ID         int          `json:"id"`
	Title      string       `json:"title"`
	TopicsInfo *CommentList `json:"topics_info"`
}

// Attachment is the tagged union of attachment kinds. Type names the kind and
// exactly one of the pointer fields is populated for the kinds this archiver
// handles; every other kind is classified as unsupported.
type Attachment struct {
	Type  string `json:"type"`
	Video *Video `json:"video"`
	Audio *Audio `json:"audio"`
	Link  *Link  `json:"link"`
	Photo *Photo `json:"photo"`
	Doc   *Doc   `json:"doc"`
}

// Video carries the descriptive part of a video attachment
type Video struct {
	ID    int    `json:"id"`
	Title string `json:"title"`
}

// Audio carries the descriptive part of an audio attachment
type Audio struct {
	ID     int    `json:"id"`
	Artist string `json:"artist"`
	Title  string `json:"title"`
}

// Link carries the descriptive part of a link attachment
type Link struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

// Photo is a photo attachment or an album photo with its size variants
type Photo struct {
	ID    int         `json:"id"`
	Sizes []PhotoSize `json:"sizes"`
}

// PhotoSize is one size variant of a photo. Type is the single letter size
// class the API assigns.
type PhotoSize struct {
	Type   string `json:"type"`
	URL    string `json:"url"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// Doc is a document attachment or a document library entry
type Doc struct {
	ID    int    `json:"id"`
	Title string `json:"title"`
	Ext   string `json:"ext"`
	URL   string `json:"url"`
}

// AlbumList is the persisted photos.getAlbums result
type AlbumList struct {
	Count int     `json:"count"`
	Items []Album `json:"items"`
}

// Album is a photo album enriched with its full photo list
type Album struct {
	ID         int        `json:"id"`
	Title      string     `json:"title"`
	PhotosList *PhotoList `json:"photos_list"`
}

// PhotoList is an attached album photo collection
type PhotoList struct {
	Count int     `json:"count"`
	Items []Photo `json:"items"`
}

// DocList is the persisted docs.get result
type DocList struct {
	Count int   `json:"count"`
	Items []Doc `json:"items"`
}

// Group is one entry of the persisted groups.getById result
type Group struct {
	ID    int    `json:"id"`
	Name  string `json:"name"`
	Cover *Cover `json:"cover"`
}

// Cover is the community banner with its size variants
type Cover struct {
	Enabled int          `json:"enabled"`
	Images  []CoverImage `json:"images"`
}

// CoverImage is one size variant of the community banner
type CoverImage struct {
	URL    string `json:"url"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}
