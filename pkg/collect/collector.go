package collect

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"vkdumper/internal/downloader"
	"vkdumper/pkg/logger"
	"vkdumper/pkg/storage"
	"vkdumper/pkg/vkapi"
)

// Collector reads the persisted method dumps of one owner and downloads every
// referenced file: banner, post and comment attachments, album photos and
// documents. A missing dump simply skips its sweep, so a partially failed
// fetch run still yields a partial file archive.
type Collector struct {
	ownerID int
	baseDir string
	client  downloader.Fetcher
	workers int
	log     logger.Logger
}

// New creates a collector for one owner
func New(ownerID int, baseDir string, client downloader.Fetcher, workers int, log logger.Logger) *Collector {
	if log == nil {
		log = logger.GetLogger()
	}
	return &Collector{
		ownerID: ownerID,
		baseDir: baseDir,
		client:  client,
		workers: workers,
		log:     log,
	}
}

// readDump decodes one persisted method result into v. The boolean reports
// whether the dump exists at all.
func (c *Collector) readDump(method string, v interface{}) (bool, error) {
	data, err := os.ReadFile(storage.MethodPath(c.baseDir, c.ownerID, method))
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read %s dump: %w", method, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("failed to decode %s dump: %w", method, err)
	}
	return true, nil
}

// newPool creates a download pool owning the given destination directory
func (c *Collector) newPool(dir string) (*downloader.Pool, error) {
	store, err := storage.NewManager(dir)
	if err != nil {
		return nil, err
	}
	return downloader.NewPool(c.workers, c.client, store, c.log), nil
}

// DownloadBanner saves the widest community cover image as banner.{ext} in
// the owner directory
func (c *Collector) DownloadBanner() error {
	var groups []vkapi.Group
	found, err := c.readDump("groups.getById", &groups)
	if err != nil || !found {
		return err
	}
	if len(groups) == 0 || groups[0].Cover == nil || len(groups[0].Cover.Images) == 0 {
		return nil
	}

	images := append([]vkapi.CoverImage(nil), groups[0].Cover.Images...)
	sort.Slice(images, func(i, j int) bool { return images[i].Width > images[j].Width })
	coverURL := images[0].URL

	data, err := c.client.Download(coverURL)
	if err != nil {
		return fmt.Errorf("failed to download banner: %w", err)
	}

	store, err := storage.NewManager(storage.OwnerDir(c.baseDir, c.ownerID))
	if err != nil {
		return err
	}
	name := "banner" + ExtFromURL(coverURL)
	if err := store.SaveFile(bytes.NewReader(data), name); err != nil {
		return err
	}

	c.log.InfoWithFields("banner downloaded", map[string]interface{}{"name": name})
	return nil
}

// DownloadAttachments classifies every attachment of the wall and board
// dumps, persists the no-file report and downloads the file backed ones into
// the attachments directory
func (c *Collector) DownloadAttachments() error {
	classifier := NewClassifier(c.log)

	var wall vkapi.Wall
	if found, err := c.readDump("wall.get", &wall); err != nil {
		return err
	} else if found {
		classifier.WalkWall(&wall)
	}

	var topics vkapi.TopicList
	if found, err := c.readDump("board.getTopics", &topics); err != nil {
		return err
	} else if found {
		classifier.WalkTopics(&topics)
	}

	sink := NewNoFileSink(c.log)
	sink.AddAll(classifier.Records())
	if err := sink.Flush(storage.OwnerDir(c.baseDir, c.ownerID)); err != nil {
		return err
	}

	tasks := classifier.Tasks()
	if len(tasks) == 0 {
		return nil
	}
	pool, err := c.newPool(storage.AttachmentsDir(c.baseDir, c.ownerID))
	if err != nil {
		return err
	}
	pool.Run(tasks)
	return nil
}

// DownloadPhotos downloads every album photo, one flat directory and one
// batch per album
func (c *Collector) DownloadPhotos() error {
	var albums vkapi.AlbumList
	found, err := c.readDump("photos.getAlbums", &albums)
	if err != nil || !found {
		return err
	}

	for _, album := range albums.Items {
		if album.PhotosList == nil {
			continue
		}

		var tasks []downloader.Task
		for _, photo := range album.PhotosList.Items {
			photoURL, ext, ok := PickPhotoSize(&photo)
			if !ok {
				c.log.WarnWithFields("empty photo object", map[string]interface{}{
					"album_id": album.ID,
					"photo_id": photo.ID,
				})
				continue
			}
			tasks = append(tasks, downloader.Task{
				ParentKind: "album",
				ParentID:   album.ID,
				Kind:       "album_photo",
				ID:         photo.ID,
				URL:        photoURL,
				Name:       fmt.Sprintf("a%d_p%d%s", album.ID, photo.ID, ext),
			})
		}

		pool, err := c.newPool(storage.AlbumDir(c.baseDir, c.ownerID, NormalizeTitle(album.Title)))
		if err != nil {
			return err
		}
		pool.Run(tasks)
	}
	return nil
}

// DownloadDocs downloads the whole document library into one shared directory
func (c *Collector) DownloadDocs() error {
	var docs vkapi.DocList
	found, err := c.readDump("docs.get", &docs)
	if err != nil || !found {
		return err
	}

	var tasks []downloader.Task
	for _, doc := range docs.Items {
		tasks = append(tasks, downloader.Task{
			ParentKind: "docs",
			Kind:       "doc",
			ID:         doc.ID,
			URL:        doc.URL,
			Name:       fmt.Sprintf("doc%d_%s", doc.ID, DocFileName(&doc)),
		})
	}

	pool, err := c.newPool(storage.DocsDir(c.baseDir, c.ownerID))
	if err != nil {
		return err
	}
	pool.Run(tasks)
	return nil
}
