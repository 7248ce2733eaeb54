package handlers

import (
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"connect-service/internal/models"
	"connect-service/internal/services"
)

// multipartOverhead leaves room for form fields next to the largest allowed file.
const multipartOverhead = 1 << 20

var maxUploadBody = services.SizeLimit(models.MessageTypeVideo) + multipartOverhead

var (
	errNoFile         = errors.New("no file uploaded")
	errUploadTooLarge = errors.New("file exceeds the upload limit")
)

// receiveUpload writes the multipart file under field to tempDir. The caller owns
// the temporary file from then on.
func receiveUpload(c *gin.Context, field, tempDir string) (services.Upload, error) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadBody)

	fh, err := c.FormFile(field)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return services.Upload{}, errUploadTooLarge
		}
		return services.Upload{}, errNoFile
	}

	if tempDir == "" {
		tempDir = os.TempDir()
	}
	if err := os.MkdirAll(tempDir, 0o755); err != nil {
		return services.Upload{}, err
	}
	path := filepath.Join(tempDir, uuid.NewString()+strings.ToLower(filepath.Ext(fh.Filename)))
	if err := c.SaveUploadedFile(fh, path); err != nil {
		_ = os.Remove(path)
		return services.Upload{}, err
	}

	mimeType := fh.Header.Get("Content-Type")
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}
	return services.Upload{
		TempPath: path,
		FileName: filepath.Base(fh.Filename),
		Size:     fh.Size,
		MimeType: mimeType,
	}, nil
}

// respondUploadError answers a failed receiveUpload.
func respondUploadError(c *gin.Context, err error) {
	if errors.Is(err, errNoFile) || errors.Is(err, errUploadTooLarge) {
		badRequest(c, err.Error())
		return
	}
	respondError(c, err)
}
