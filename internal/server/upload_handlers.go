package server

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/launchkit-dev/launchkit/internal/models"
	"github.com/launchkit-dev/launchkit/internal/storage"
	"github.com/launchkit-dev/launchkit/internal/tasks"
)

const sniffLen = 512

// @Summary Upload a file
// @Description Stores a file in object storage and records its metadata
// @Tags uploads
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param file formData file true "File to upload"
// @Success 201 {object} models.Upload
// @Failure 400 {object} map[string]interface{}
// @Failure 413 {object} map[string]interface{}
// @Router /api/uploads [post]
func (s *Server) createUpload(c *gin.Context) {
	sessionData, _ := GetSessionData(c)
	maxBytes := s.config.Storage.MaxUploadBytes

	// Leave room for the multipart envelope; the file size is checked below
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes+1<<20)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "File too large"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing file"})
		return
	}
	if fileHeader.Size > maxBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "File too large"})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to open uploaded file")
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read file"})
		return
	}
	defer file.Close()

	head := make([]byte, sniffLen)
	n, err := io.ReadFull(file, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		s.logger.Error().Err(err).Msg("Failed to read uploaded file")
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read file"})
		return
	}
	head = head[:n]

	upload := models.Upload{
		UserID:      sessionData.UserID,
		Bucket:      s.store.Bucket(),
		Key:         storage.ObjectKey(sessionData.UserID, fileHeader.Filename),
		Filename:    storage.SanitizeFilename(fileHeader.Filename),
		ContentType: storage.DetectContentType(head, fileHeader.Header.Get("Content-Type")),
		Size:        fileHeader.Size,
	}

	log := s.logger.With().Str("user_id", upload.UserID).Str("key", upload.Key).Logger()

	err = s.store.Put(c.Request.Context(), storage.Object{
		Key:         upload.Key,
		ContentType: upload.ContentType,
		Size:        upload.Size,
		Body:        io.MultiReader(bytes.NewReader(head), file),
	})
	if err != nil {
		log.Error().Err(err).Msg("Failed to store object")
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to store file"})
		return
	}

	if err := s.db.WithContext(c.Request.Context()).Create(&upload).Error; err != nil {
		log.Error().Err(err).Msg("Failed to record upload")
		s.removeObject(context.WithoutCancel(c.Request.Context()), upload.Bucket, upload.Key)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to record upload"})
		return
	}

	s.metrics.RecordUpload(upload.Size)
	log.Info().Int64("size", upload.Size).Str("content_type", upload.ContentType).Msg("File uploaded")

	c.JSON(http.StatusCreated, upload)
}

// @Summary List uploads
// @Description Lists the uploads of the current user, newest first
// @Tags uploads
// @Produce json
// @Security BearerAuth
// @Success 200 {array} models.Upload
// @Router /api/uploads [get]
func (s *Server) listUploads(c *gin.Context) {
	sessionData, _ := GetSessionData(c)

	var uploads []models.Upload
	err := s.db.WithContext(c.Request.Context()).
		Where("user_id = ?", sessionData.UserID).
		Order("created_at DESC").
		Order("id DESC").
		Find(&uploads).Error
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to list uploads")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	c.JSON(http.StatusOK, uploads)
}

// findUpload loads an upload of the current user, answering 404 when it is not theirs
func (s *Server) findUpload(c *gin.Context) (*models.Upload, bool) {
	sessionData, _ := GetSessionData(c)

	var upload models.Upload
	err := s.db.WithContext(c.Request.Context()).
		Where("id = ? AND user_id = ?", c.Param("id"), sessionData.UserID).
		First(&upload).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Upload not found"})
			return nil, false
		}
		s.logger.Error().Err(err).Msg("Failed to find upload")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return nil, false
	}
	return &upload, true
}

// @Summary Download an upload
// @Description Redirects to a short-lived presigned URL of the object
// @Tags uploads
// @Security BearerAuth
// @Param id path string true "Upload ID"
// @Success 302
// @Failure 404 {object} map[string]interface{}
// @Router /api/uploads/{id} [get]
func (s *Server) downloadUpload(c *gin.Context) {
	upload, ok := s.findUpload(c)
	if !ok {
		return
	}

	u, err := s.store.PresignGet(c.Request.Context(), upload.Key, upload.Filename, s.config.Storage.PresignTTL)
	if err != nil {
		s.logger.Error().Err(err).Str("key", upload.Key).Msg("Failed to presign object")
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to create download link"})
		return
	}

	c.Redirect(http.StatusFound, u.String())
}

// @Summary Delete an upload
// @Description Deletes the upload record; the object is removed in the background
// @Tags uploads
// @Produce json
// @Security BearerAuth
// @Param id path string true "Upload ID"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Router /api/uploads/{id} [delete]
func (s *Server) deleteUpload(c *gin.Context) {
	upload, ok := s.findUpload(c)
	if !ok {
		return
	}

	if err := s.db.WithContext(c.Request.Context()).Delete(upload).Error; err != nil {
		s.logger.Error().Err(err).Str("upload_id", upload.ID).Msg("Failed to delete upload")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	s.scheduleObjectRemoval(c.Request.Context(), upload.Bucket, upload.Key)

	c.JSON(http.StatusOK, gin.H{"message": "Upload deleted"})
}

// scheduleObjectRemoval enqueues the object removal, or removes it inline
// when no queue is configured or the enqueue fails
func (s *Server) scheduleObjectRemoval(ctx context.Context, bucket, key string) {
	if s.queue != nil {
		task, err := tasks.NewRemoveObjectTask(bucket, key)
		if err == nil {
			_, err = s.queue.Enqueue(task)
		}
		if err == nil {
			return
		}
		s.logger.Warn().Err(err).Str("key", key).Msg("Failed to enqueue object removal, removing inline")
	}

	s.removeObject(context.WithoutCancel(ctx), bucket, key)
}

func (s *Server) removeObject(ctx context.Context, bucket, key string) {
	if err := s.store.Remove(ctx, bucket, key); err != nil {
		s.logger.Error().Err(err).Str("bucket", bucket).Str("key", key).Msg("Failed to remove object")
	}
}
