package storage

import (
	"fmt"
	"path/filepath"
	"strings"
)

// NoFileReportName is the tab separated dump of attachments that have no
// downloadable file.
const NoFileReportName = "attachments.txt"

// DirForOwner returns the data directory name for one archived community.
// Group owner ids are negative by API convention; the directory name carries
// the positive id.
func DirForOwner(ownerID int) string {
	return fmt.Sprintf("data_club%d", -ownerID)
}

// FileForMethod returns the JSON dump file name for one top level API method.
func FileForMethod(ownerID int, method string) string {
	return fmt.Sprintf("club%d_%s.json", -ownerID, strings.ReplaceAll(method, ".", "_"))
}

// OwnerDir returns the absolute owner data directory under the base directory.
func OwnerDir(baseDir string, ownerID int) string {
	return filepath.Join(baseDir, DirForOwner(ownerID))
}

// MethodPath returns the full path of one method's JSON dump.
func MethodPath(baseDir string, ownerID int, method string) string {
	return filepath.Join(OwnerDir(baseDir, ownerID), FileForMethod(ownerID, method))
}

// AttachmentsDir returns the directory holding post and comment attachment
// files.
func AttachmentsDir(baseDir string, ownerID int) string {
	return filepath.Join(OwnerDir(baseDir, ownerID), "attachments")
}

// AlbumDir returns the directory holding one photo album's files. The album
// title must already be normalized for path use.
func AlbumDir(baseDir string, ownerID int, albumTitle string) string {
	return filepath.Join(OwnerDir(baseDir, ownerID), "photos", albumTitle)
}

// DocsDir returns the shared directory holding all document files.
func DocsDir(baseDir string, ownerID int) string {
	return filepath.Join(OwnerDir(baseDir, ownerID), "docs")
}
