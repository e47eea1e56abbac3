package imagebed

import (
	"strings"

	"github.com/mx-space/paste-uploader/internal/config"
)

const renameDelimiter = "-"

// rootAlbum derives the album for the query encoding: the first segment of a
// path that has at least one folder component.
func rootAlbum(activePath string) string {
	segments := strings.Split(activePath, "/")
	if len(segments) > 1 {
		return segments[0]
	}
	return ""
}

// folderAlbum derives the album for the multipart encoding. The leaf name is
// dropped, the first folder becomes the album and the remaining folders are
// returned so they can be folded into the uploaded file name.
func folderAlbum(activePath string) (album string, rest []string) {
	segments := strings.Split(activePath, "/")
	segments = segments[:len(segments)-1]
	if len(segments) == 0 {
		return "", nil
	}
	return segments[0], segments[1:]
}

// qualifyAlbum applies the default album prefix. It returns "" when the album
// is blank, in which case no album_name field is sent.
func qualifyAlbum(album string, settings config.Settings) string {
	if strings.TrimSpace(album) == "" {
		return ""
	}
	if prefix := settings.DefaultUploadAlbum; strings.TrimSpace(prefix) != "" {
		return prefix + "/" + album
	}
	return album
}

func renamedFileName(rest []string, name string) string {
	return strings.Join(rest, renameDelimiter) + renameDelimiter + name
}
