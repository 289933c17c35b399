package api

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"regexp"
	"strconv"
	"strings"

	"github.com/dutchcoders/go-clamd"
	"github.com/gabriel-vasile/mimetype"
	"github.com/gin-gonic/gin"

	"portify/internal/api/middleware"
	"portify/internal/metrics"
	"portify/internal/storage"
)

var allowedImageMIME = regexp.MustCompile(`^image/(jpeg|jpg|png|webp|gif|avif)$`)

const (
	uploadKindAvatar          = "avatar"
	uploadKindPortfolioAvatar = "portfolio-avatar"
	uploadKindTemplate        = "template"
)

// ScanFunc 对图片内容做病毒扫描，返回 errMalicious 表示命中。
type ScanFunc func(r io.Reader) error

var errMalicious = errors.New("malicious file detected")

// ClamdScanner 返回基于 clamd 的扫描函数；addr 为空时不扫描。
func ClamdScanner(addr string) ScanFunc {
	if strings.TrimSpace(addr) == "" {
		return nil
	}
	return func(r io.Reader) error {
		abortChan := make(chan bool)
		defer close(abortChan)

		scanChan, err := clamd.NewClamd(addr).ScanStream(r, abortChan)
		if err != nil {
			return fmt.Errorf("scan stream: %w", err)
		}
		for result := range scanChan {
			if result.Status != clamd.RES_OK {
				return errMalicious
			}
		}
		return nil
	}
}

// UploadHandler 负责头像与模板图片的上传，之后把 URL 写回对应记录。
type UploadHandler struct {
	host       storage.ImageHost
	accounts   AccountService
	portfolios PortfolioService
	templates  TemplateService
	scan       ScanFunc
	maxBytes   int64
}

func NewUploadHandler(host storage.ImageHost, accounts AccountService, portfolios PortfolioService, templates TemplateService, scan ScanFunc, maxBytes int64) *UploadHandler {
	return &UploadHandler{
		host:       host,
		accounts:   accounts,
		portfolios: portfolios,
		templates:  templates,
		scan:       scan,
		maxBytes:   maxBytes,
	}
}

// POST /v1/users/avatar
func (h *UploadHandler) UploadAccountAvatar(c *gin.Context) {
	accountID, ok := accountIDFromContext(c)
	if !ok {
		return
	}
	img, ok := h.receive(c, uploadKindAvatar, storage.FolderAvatars, "user")
	if !ok {
		return
	}

	acc, err := h.accounts.SetAvatar(c.Request.Context(), accountID, img.URL)
	if err != nil {
		h.discard(c, img)
		respondError(c, err)
		return
	}
	OK(c, gin.H{
		"avatarUrl": img.URL,
		"publicId":  img.PublicID,
		"user":      acc,
	}, "Avatar uploaded and profile updated successfully")
}

// POST /v1/portfolio/avatar，表单中的 portfolioId 指定目标作品集。
func (h *UploadHandler) UploadPortfolioAvatar(c *gin.Context) {
	accountID, ok := accountIDFromContext(c)
	if !ok {
		return
	}
	portfolioID, err := strconv.ParseUint(c.PostForm("portfolioId"), 10, 64)
	if err != nil || portfolioID == 0 {
		BadRequest(c, "portfolioId is required")
		return
	}
	// 先确认归属，避免为无权访问的作品集上传文件。
	if _, err := h.portfolios.Get(c.Request.Context(), accountID, uint(portfolioID)); err != nil {
		respondError(c, err)
		return
	}

	img, ok := h.receive(c, uploadKindPortfolioAvatar, storage.FolderAvatars, "portfolio")
	if !ok {
		return
	}
	p, err := h.portfolios.SetAvatar(c.Request.Context(), accountID, uint(portfolioID), img.URL)
	if err != nil {
		h.discard(c, img)
		respondError(c, err)
		return
	}
	OK(c, gin.H{
		"avatarUrl": img.URL,
		"publicId":  img.PublicID,
		"portfolio": p,
	}, "Portfolio avatar uploaded successfully")
}

// POST /v1/templates/upload-image（管理员）。带 templateId 时同时更新模板的预览图。
func (h *UploadHandler) UploadTemplateImage(c *gin.Context) {
	var templateID uint64
	if raw := strings.TrimSpace(c.PostForm("templateId")); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil || id == 0 {
			BadRequest(c, "Invalid templateId")
			return
		}
		templateID = id
	}

	img, ok := h.receive(c, uploadKindTemplate, storage.FolderTemplates, "template")
	if !ok {
		return
	}
	if templateID == 0 {
		OK(c, img, "Template image uploaded successfully. Use originalUrl for full size, previewUrl for medium size, and thumbnailUrl for small size.")
		return
	}

	tpl, err := h.templates.SetPreviewImage(c.Request.Context(), uint(templateID), img.PreviewURL, img.ThumbnailURL)
	if err != nil {
		h.discard(c, img)
		respondError(c, err)
		return
	}
	OK(c, gin.H{
		"originalUrl":  img.URL,
		"previewUrl":   img.PreviewURL,
		"thumbnailUrl": img.ThumbnailURL,
		"publicId":     img.PublicID,
		"template":     tpl,
	}, "Template image uploaded and template updated successfully")
}

// multipartOverhead 是表单字段与分隔符占用的额外字节。
const multipartOverhead = 64 * 1024

// LimitBody 必须挂在上传处理器之前：先套上 MaxBytesReader 再解析 multipart，
// 之后处理器读取的任何表单字段都来自已限长的请求体。
func (h *UploadHandler) LimitBody(kind string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if h.maxBytes <= 0 {
			c.Next()
			return
		}
		limit := h.maxBytes + multipartOverhead
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)

		err := c.Request.ParseMultipartForm(limit)
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.tooLarge(c, kind)
			c.Abort()
			return
		}
		// 其他解析错误交给处理器按“缺少文件”处理。
		c.Next()
	}
}

func (h *UploadHandler) tooLarge(c *gin.Context, kind string) {
	metrics.ImageUpload(kind, "too_large")
	Error(c, http.StatusRequestEntityTooLarge, fmt.Sprintf("Image exceeds %d bytes", h.maxBytes))
}

// receive 校验、扫描并上传 file 字段；失败时已写好响应。
func (h *UploadHandler) receive(c *gin.Context, kind, folder, prefix string) (*storage.Image, bool) {
	logger := middleware.LoggerFromContext(c).With(slog.String("upload_kind", kind))

	file, err := c.FormFile("file")
	if err != nil {
		BadRequest(c, "No file provided")
		return nil, false
	}
	if h.maxBytes > 0 && file.Size > h.maxBytes {
		h.tooLarge(c, kind)
		return nil, false
	}

	data, err := readAll(file)
	if err != nil {
		logger.Error("read upload failed", slog.Any("error", err))
		Internal(c)
		return nil, false
	}

	declared := strings.ToLower(strings.TrimSpace(file.Header.Get("Content-Type")))
	sniffed := mimetype.Detect(data).String()
	if !allowedImageMIME.MatchString(declared) || !allowedImageMIME.MatchString(sniffed) {
		metrics.ImageUpload(kind, "rejected_type")
		BadRequest(c, "Only image files are allowed (jpeg, png, webp, gif, avif)")
		return nil, false
	}

	if h.scan != nil {
		if err := h.scan(bytes.NewReader(data)); err != nil {
			if errors.Is(err, errMalicious) {
				metrics.ImageUpload(kind, "malicious")
				logger.Warn("malicious upload rejected", slog.String("filename", file.Filename))
				BadRequest(c, "Malicious file detected")
				return nil, false
			}
			metrics.ImageUpload(kind, "scan_error")
			logger.Error("scan upload failed", slog.Any("error", err))
			Internal(c)
			return nil, false
		}
	}

	img, err := h.host.UploadImage(c.Request.Context(), storage.Upload{
		Folder:      folder,
		Prefix:      prefix,
		Filename:    file.Filename,
		ContentType: sniffed,
		Size:        int64(len(data)),
		Body:        bytes.NewReader(data),
	})
	if err != nil {
		if errors.Is(err, storage.ErrHostUnavailable) {
			metrics.ImageUpload(kind, "host_unavailable")
			logger.Warn("image host unavailable", slog.Any("error", err))
			Error(c, http.StatusServiceUnavailable, "Image service temporarily unavailable")
			return nil, false
		}
		metrics.ImageUpload(kind, "host_error")
		logger.Error("image host upload failed", slog.Any("error", err))
		Error(c, http.StatusBadGateway, "Image upload failed")
		return nil, false
	}

	metrics.ImageUpload(kind, "ok")
	logger.Info("image uploaded", slog.String("public_id", img.PublicID), slog.Int("bytes", len(data)))
	return img, true
}

// discard 在记录更新失败后删除已上传的图片；失败只记日志。
func (h *UploadHandler) discard(c *gin.Context, img *storage.Image) {
	ctx := context.WithoutCancel(c.Request.Context())
	if err := h.host.DeleteImage(ctx, img.PublicID); err != nil {
		middleware.LoggerFromContext(c).Warn("discard uploaded image failed",
			slog.String("public_id", img.PublicID),
			slog.Any("error", err),
		)
	}
}

func readAll(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("open upload: %w", err)
	}
	defer f.Close()
	return io.ReadAll(f)
}
