package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"

	"portify/internal/config"
)

const (
	previewTransformation   = "w_800,h_600,c_fill,q_auto,f_auto"
	thumbnailTransformation = "w_300,h_225,c_fill,q_auto,f_auto"
)

// CloudinaryHost 把图片交给 Cloudinary 托管，签名由 SDK 完成。
type CloudinaryHost struct {
	cld *cloudinary.Cloudinary
	now func() time.Time
}

var _ ImageHost = (*CloudinaryHost)(nil)

// NewCloudinaryHost 用账号凭据构造客户端；BaseURL 非空时替换上传接口地址。
func NewCloudinaryHost(cfg config.CloudinaryConfig) (*CloudinaryHost, error) {
	cld, err := cloudinary.NewFromParams(cfg.CloudName, cfg.APIKey, cfg.APISecret)
	if err != nil {
		return nil, fmt.Errorf("init cloudinary: %w", err)
	}
	if base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"); base != "" {
		cld.Config.API.UploadPrefix = base
	}
	return &CloudinaryHost{cld: cld, now: time.Now}, nil
}

func (h *CloudinaryHost) UploadImage(ctx context.Context, up Upload) (*Image, error) {
	res, err := h.cld.Upload.Upload(ctx, up.Body, uploader.UploadParams{
		PublicID:     NewPublicID(up.Prefix, h.now()),
		Folder:       up.Folder,
		ResourceType: "image",
		Overwrite:    api.Bool(false),
	})
	if err != nil {
		return nil, fmt.Errorf("cloudinary upload: %w", err)
	}
	if msg := res.Error.Message; msg != "" {
		return nil, fmt.Errorf("cloudinary upload: %s", msg)
	}
	if res.SecureURL == "" {
		return nil, fmt.Errorf("cloudinary upload: empty delivery url for %s", res.PublicID)
	}
	return &Image{
		URL:          res.SecureURL,
		PublicID:     res.PublicID,
		PreviewURL:   withTransformation(res.SecureURL, previewTransformation),
		ThumbnailURL: withTransformation(res.SecureURL, thumbnailTransformation),
	}, nil
}

// DeleteImage 对不存在的资源（result=not found）视为成功。
func (h *CloudinaryHost) DeleteImage(ctx context.Context, publicID string) error {
	publicID = strings.TrimSpace(publicID)
	if publicID == "" {
		return nil
	}
	res, err := h.cld.Upload.Destroy(ctx, uploader.DestroyParams{
		PublicID:     publicID,
		ResourceType: "image",
		Invalidate:   api.Bool(true),
	})
	if err != nil {
		return fmt.Errorf("cloudinary destroy %s: %w", publicID, err)
	}
	if msg := res.Error.Message; msg != "" {
		return fmt.Errorf("cloudinary destroy %s: %s", publicID, msg)
	}
	switch res.Result {
	case "ok", "not found":
		return nil
	default:
		return fmt.Errorf("cloudinary destroy %s: unexpected result %q", publicID, res.Result)
	}
}

// withTransformation 在投递地址的 /upload/ 之后插入变换参数。
func withTransformation(deliveryURL, transformation string) string {
	const marker = "/upload/"
	idx := strings.Index(deliveryURL, marker)
	if idx < 0 {
		return deliveryURL
	}
	cut := idx + len(marker)
	return deliveryURL[:cut] + transformation + "/" + deliveryURL[cut:]
}
