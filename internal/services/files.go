package services

import (
	"path/filepath"
	"strings"

	"connect-service/internal/models"
)

const mb = 1 << 20

// Size limits per message type.
var sizeLimits = map[models.MessageType]int64{
	models.MessageTypeImage: 5 * mb,
	models.MessageTypeVideo: 25 * mb,
	models.MessageTypePDF:   10 * mb,
	models.MessageTypeFile:  10 * mb,
}

// ProfilePhotoLimit caps profile photo uploads.
const ProfilePhotoLimit = 5 * mb

var allowedMIME = func() map[string]struct{} {
	set := make(map[string]struct{})
	for _, m := range []string{
		"image/jpeg",
		"image/png",
		"image/gif",
		"image/webp",
		"video/mp4",
		"video/webm",
		"video/quicktime",
		"application/pdf",
		"text/plain",
		"text/csv",
		"application/zip",
		"application/msword",
		"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
		"application/vnd.ms-excel",
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		"application/vnd.ms-powerpoint",
		"application/vnd.openxmlformats-officedocument.presentationml.presentation",
	} {
		set[m] = struct{}{}
	}
	return set
}()

// Upload describes a file already written to a temporary path.
type Upload struct {
	TempPath string
	FileName string
	Size     int64
	MimeType string
}

// normalizeMIME drops parameters such as "; charset=utf-8".
func normalizeMIME(mime string) string {
	if i := strings.IndexByte(mime, ';'); i >= 0 {
		mime = mime[:i]
	}
	return strings.ToLower(strings.TrimSpace(mime))
}

// ClassifyMIME maps a declared MIME type to a message type.
func ClassifyMIME(mime string) models.MessageType {
	mime = normalizeMIME(mime)
	switch {
	case strings.HasPrefix(mime, "image/"):
		return models.MessageTypeImage
	case strings.HasPrefix(mime, "video/"):
		return models.MessageTypeVideo
	case mime == "application/pdf":
		return models.MessageTypePDF
	default:
		return models.MessageTypeFile
	}
}

// MIMEAllowed reports whether uploads of mime are accepted.
func MIMEAllowed(mime string) bool {
	_, ok := allowedMIME[normalizeMIME(mime)]
	return ok
}

// SizeLimit returns the maximum upload size for a message type.
func SizeLimit(t models.MessageType) int64 {
	if limit, ok := sizeLimits[t]; ok {
		return limit
	}
	return sizeLimits[models.MessageTypeFile]
}

func validateUpload(u Upload) (models.MessageType, error) {
	if u.TempPath == "" {
		return "", validation("file is required")
	}
	if !MIMEAllowed(u.MimeType) {
		return "", validation("file type %q is not allowed", normalizeMIME(u.MimeType))
	}
	msgType := ClassifyMIME(u.MimeType)
	if limit := SizeLimit(msgType); u.Size > limit {
		return "", validation("%s exceeds the %dMB limit", msgType, limit/mb)
	}
	return msgType, nil
}

// storedName keeps the original extension on a generated name.
func storedName(id, original string) string {
	ext := strings.ToLower(filepath.Ext(filepath.Base(original)))
	if len(ext) > 10 {
		ext = ""
	}
	return id + ext
}
