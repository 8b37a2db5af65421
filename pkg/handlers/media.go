package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"site-cms/pkg/logger"
	"site-cms/pkg/services"
)

type MediaHandler struct {
	media *services.MediaService
	log   logger.Logger
}

func NewMediaHandler(media *services.MediaService, log logger.Logger) *MediaHandler {
	if log == nil {
		log = logger.NewNop()
	}
	return &MediaHandler{media: media, log: log}
}

// Upload is POST /api/media with a multipart "file" and an optional "alt".
func (h *MediaHandler) Upload(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, services.MaxUploadSize+1<<20)
	header, err := c.FormFile("file")
	if err != nil {
		apiError(c, http.StatusBadRequest, "No files were uploaded.")
		return
	}
	file, err := header.Open()
	if err != nil {
		apiFailure(c, fmt.Errorf("open upload: %w", err))
		return
	}
	defer file.Close()

	doc, err := h.media.Upload(c.Request.Context(), header.Filename, file, c.PostForm("alt"))
	if err != nil {
		apiFailure(c, err)
		return
	}
	h.log.Info("media uploaded", logger.String("filename", doc.Filename), logger.Int64("size", doc.Filesize))
	c.JSON(http.StatusCreated, gin.H{"doc": doc, "message": "Media successfully created."})
}

// Serve is GET /api/media/file/:filename.
func (h *MediaHandler) Serve(c *gin.Context) {
	rc, contentType, err := h.media.Open(c.Request.Context(), c.Param("filename"))
	if errors.Is(err, services.ErrBlobNotFound) {
		apiError(c, http.StatusNotFound, "The requested resource was not found.")
		return
	}
	if err != nil {
		apiFailure(c, err)
		return
	}
	defer rc.Close()

	c.Header("Content-Type", contentType)
	c.Header("Cache-Control", "public, max-age="+strconv.Itoa(24*60*60))
	c.Status(http.StatusOK)
	if _, err := io.Copy(c.Writer, rc); err != nil {
		h.log.Warn("stream media failed", logger.String("filename", c.Param("filename")), logger.Error(err))
	}
}
