package storage

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	FolderAvatars   = "portify/avatars"
	FolderTemplates = "portify/templates"
)

// Upload 描述一次待上传的图片。
type Upload struct {
	Folder      string
	Prefix      string
	Filename    string
	ContentType string
	Size        int64
	Body        io.Reader
}

// Image 是上传完成后的可访问地址；不支持变换的后端三个 URL 相同。
type Image struct {
	URL          string `json:"originalUrl"`
	PublicID     string `json:"publicId"`
	PreviewURL   string `json:"previewUrl"`
	ThumbnailURL string `json:"thumbnailUrl"`
}

// ImageHost 由 MinIO 与 Cloudinary 两种后端实现。
type ImageHost interface {
	UploadImage(ctx context.Context, up Upload) (*Image, error)
	DeleteImage(ctx context.Context, publicID string) error
}

// NewPublicID 生成 <prefix>_<unix>_<random> 形式的对象名。
func NewPublicID(prefix string, now time.Time) string {
	if prefix == "" {
		prefix = "image"
	}
	random := strings.ReplaceAll(uuid.NewString(), "-", "")[:16]
	return fmt.Sprintf("%s_%d_%s", prefix, now.Unix(), random)
}

var extByContentType = map[string]string{
	"image/jpeg": ".jpg",
	"image/jpg":  ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
	"image/gif":  ".gif",
	"image/avif": ".avif",
}

// extensionFor 优先使用文件名里的扩展名，否则按 Content-Type 推断。
func extensionFor(filename, contentType string) string {
	if ext := strings.ToLower(path.Ext(filename)); ext != "" && len(ext) <= 6 {
		return ext
	}
	return extByContentType[strings.ToLower(contentType)]
}
