package handlers

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/parsekit/parsekit-converter/internal/converter"
	"github.com/parsekit/parsekit-converter/internal/models"
	"github.com/parsekit/parsekit-converter/pkg/logger"
)

const (
	defaultImageFormat = "png"
	defaultDPI         = 150
)

type ConvertHandler struct {
	service converter.Converter
	logger  logger.Logger
}

func NewConvertHandler(service converter.Converter, log logger.Logger) *ConvertHandler {
	return &ConvertHandler{
		service: service,
		logger:  log,
	}
}

// Document converts an upload to PDF and returns it base64-encoded inside
// the envelope.
func (h *ConvertHandler) Document(c *gin.Context) {
	up, ok := h.readUpload(c)
	if !ok {
		return
	}

	res, err := h.service.ToPDF(c.Request.Context(), up)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	h.logger.Info("converted document",
		logger.String("input", up.Filename),
		logger.String("output", res.Filename),
		logger.Int("size", len(res.Content)),
		logger.Bool("converted", res.Converted),
	)

	respondOK(c, models.ConvertResponse{
		Filename:  res.Filename,
		Content:   base64.StdEncoding.EncodeToString(res.Content),
		Size:      len(res.Content),
		Converted: res.Converted,
	})
}

// Raw converts an upload to PDF and streams the bytes back directly.
func (h *ConvertHandler) Raw(c *gin.Context) {
	up, ok := h.readUpload(c)
	if !ok {
		return
	}

	res, err := h.service.ToPDF(c.Request.Context(), up)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	h.logger.Info("converted document (raw)",
		logger.String("input", up.Filename),
		logger.String("output", res.Filename),
		logger.Int("size", len(res.Content)),
	)

	extraHeaders := map[string]string{
		"Content-Disposition": fmt.Sprintf("attachment; filename=%q", res.Filename),
	}
	c.DataFromReader(http.StatusOK, int64(len(res.Content)), "application/pdf",
		bytes.NewReader(res.Content), extraHeaders)
}

// Images converts an upload to one image per page, returned all at once
// inside the envelope.
func (h *ConvertHandler) Images(c *gin.Context) {
	up, ok := h.readUpload(c)
	if !ok {
		return
	}
	format, dpi, ok := h.imageParams(c)
	if !ok {
		return
	}

	pages, err := h.service.ToImages(c.Request.Context(), up, format, dpi)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	resp := models.ImageConvertResponse{
		Format: format,
		Pages:  make([]models.ImagePage, len(pages)),
	}
	for i, page := range pages {
		resp.Pages[i] = models.ImagePage{
			Page:    page.Page,
			Content: base64.StdEncoding.EncodeToString(page.Content),
			Size:    len(page.Content),
		}
		resp.TotalPages = page.TotalPages
	}

	h.logger.Info("converted document to images",
		logger.String("input", up.Filename),
		logger.String("format", format),
		logger.Int("pages", len(pages)),
	)
	respondOK(c, resp)
}

// ImagesStream converts an upload to images and emits one NDJSON record per
// page as soon as it is rendered. Errors after the first page terminate the
// stream; pages already written stay with the client.
func (h *ConvertHandler) ImagesStream(c *gin.Context) {
	up, ok := h.readUpload(c)
	if !ok {
		return
	}
	format, dpi, ok := h.imageParams(c)
	if !ok {
		return
	}

	stream, err := h.service.StreamImages(c.Request.Context(), up, format, dpi)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	defer stream.Close()

	c.Header("Content-Type", "application/x-ndjson")
	c.Status(http.StatusOK)

	ctx := c.Request.Context()
	c.Stream(func(w io.Writer) bool {
		page, err := stream.Next(ctx)
		if errors.Is(err, io.EOF) {
			return false
		}
		if err != nil {
			h.logger.Error("page rendering aborted",
				logger.String("input", up.Filename),
				logger.Error(err),
			)
			return false
		}

		record := models.StreamPage{
			Page:       page.Page,
			Content:    base64.StdEncoding.EncodeToString(page.Content),
			Size:       len(page.Content),
			TotalPages: page.TotalPages,
		}
		line, err := json.Marshal(record)
		if err != nil {
			h.logger.Error("encode stream page", logger.Error(err))
			return false
		}
		w.Write(line)
		w.Write([]byte("\n"))
		return true
	})
}

// readUpload pulls the multipart "file" field fully into memory. Malformed
// uploads are rejected before the core sees them.
func (h *ConvertHandler) readUpload(c *gin.Context) (*models.Upload, bool) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		respondBadRequest(c, h.logger, "Invalid file upload", err)
		return nil, false
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		respondBadRequest(c, h.logger, "Failed to read file", err)
		return nil, false
	}

	filename := header.Filename
	if filename == "" {
		filename = "document"
	}
	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	return &models.Upload{
		Filename:    filename,
		ContentType: contentType,
		Content:     content,
	}, true
}

func (h *ConvertHandler) imageParams(c *gin.Context) (string, int, bool) {
	format := c.DefaultQuery("format", defaultImageFormat)

	dpi, err := strconv.Atoi(c.DefaultQuery("dpi", strconv.Itoa(defaultDPI)))
	if err != nil || dpi <= 0 {
		respondBadRequest(c, h.logger, "Invalid dpi parameter", err)
		return "", 0, false
	}
	return format, dpi, true
}
