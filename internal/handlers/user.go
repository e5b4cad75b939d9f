package handlers

import (
	"context"
	"fmt"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"datingluck-server/internal/config"
	"datingluck-server/internal/models"
	"datingluck-server/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ProfileStore is the slice of the profile store the user handler needs.
type ProfileStore interface {
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	UpdateProfile(ctx context.Context, id primitive.ObjectID, bio, gender *string) (*models.User, error)
	AddPhotos(ctx context.Context, id primitive.ObjectID, urls []string) ([]string, error)
	RemovePhoto(ctx context.Context, id primitive.ObjectID, url string) ([]string, error)
}

type UserHandler struct {
	users ProfileStore
	feed  *services.FeedService
	blobs services.BlobStore
	cfg   *config.Config
}

type DeletePhotoRequest struct {
	UserID   string `json:"userId" binding:"required"`
	PhotoURL string `json:"photoUrl" binding:"required"`
}

type UpdateProfileRequest struct {
	UserID string  `json:"userId" binding:"required"`
	Bio    *string `json:"bio,omitempty"`
	Gender *string `json:"gender,omitempty" binding:"omitempty,gender"`
}

func NewUserHandler(users ProfileStore, feed *services.FeedService, blobs services.BlobStore, cfg *config.Config) *UserHandler {
	return &UserHandler{users: users, feed: feed, blobs: blobs, cfg: cfg}
}

// UploadPhotos stores up to MaxPhotosPerBatch image files and appends
// their URLs to the user's photo list.
func (h *UserHandler) UploadPhotos(c *gin.Context) {
	userID, ok := objectIDFromHex(c, c.PostForm("userId"), "user ID")
	if !ok {
		return
	}

	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid multipart form"})
		return
	}

	files := form.File["photos"]
	if len(files) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No photos uploaded"})
		return
	}
	if len(files) > h.cfg.MaxPhotosPerBatch {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("At most %d photos per upload", h.cfg.MaxPhotosPerBatch)})
		return
	}

	for _, header := range files {
		if err := h.validateImageFile(header); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	ctx, cancel := requestContext(c, h.cfg.RequestTimeout)
	defer cancel()

	urls := make([]string, 0, len(files))
	for _, header := range files {
		file, err := header.Open()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Could not read uploaded file"})
			return
		}

		objectName := services.GenerateObjectName(header.Filename)
		url, err := h.blobs.Upload(ctx, file, header.Size, objectName, header.Header.Get("Content-Type"))
		file.Close()
		if err != nil {
			logrus.WithError(err).Error("Photo upload failed")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to upload photos"})
			return
		}
		urls = append(urls, url)
	}

	photos, err := h.users.AddPhotos(ctx, userID, urls)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Photos uploaded successfully",
		"photos":  photos,
		"urls":    urls,
	})
}

// DeletePhoto removes one URL from the user's list and best-effort
// deletes the blob; a missing blob is not an error.
func (h *UserHandler) DeletePhoto(c *gin.Context) {
	var req DeletePhotoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID, ok := objectIDFromHex(c, req.UserID, "user ID")
	if !ok {
		return
	}

	ctx, cancel := requestContext(c, h.cfg.RequestTimeout)
	defer cancel()

	photos, err := h.users.RemovePhoto(ctx, userID, req.PhotoURL)
	if err != nil {
		respondError(c, err)
		return
	}

	if err := h.blobs.Delete(ctx, req.PhotoURL); err != nil {
		logrus.WithError(err).WithField("url", req.PhotoURL).Warn("Could not delete photo blob")
	}

	c.JSON(http.StatusOK, gin.H{"message": "Photo deleted", "photos": photos})
}

// UpdateProfile patches bio and/or gender.
func (h *UserHandler) UpdateProfile(c *gin.Context) {
	var req UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID, ok := objectIDFromHex(c, req.UserID, "user ID")
	if !ok {
		return
	}

	ctx, cancel := requestContext(c, h.cfg.RequestTimeout)
	defer cancel()

	user, err := h.users.UpdateProfile(ctx, userID, req.Bio, req.Gender)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Profile updated", "user": user})
}

// GetUser returns one profile; the password hash never serializes.
func (h *UserHandler) GetUser(c *gin.Context) {
	userID, ok := objectIDFromHex(c, c.Param("id"), "user ID")
	if !ok {
		return
	}

	ctx, cancel := requestContext(c, h.cfg.RequestTimeout)
	defer cancel()

	user, err := h.users.FindByID(ctx, userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, user)
}

// Feed returns discovery candidates near the requester, nearest first.
func (h *UserHandler) Feed(c *gin.Context) {
	userID, ok := objectIDFromHex(c, c.Query("myId"), "user ID")
	if !ok {
		return
	}

	req := services.FeedRequest{
		UserID:           userID,
		Longitude:        parseFloatQuery(c, "lon"),
		Latitude:         parseFloatQuery(c, "lat"),
		MaxDistance:      parseIntQuery(c, "maxDistance"),
		AgeMin:           parseIntQuery(c, "ageMin"),
		AgeMax:           parseIntQuery(c, "ageMax"),
		GenderPreference: c.Query("genderPreference"),
	}

	ctx, cancel := requestContext(c, h.cfg.RequestTimeout)
	defer cancel()

	candidates, err := h.feed.Candidates(ctx, req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, candidates)
}

func (h *UserHandler) validateImageFile(header *multipart.FileHeader) error {
	if header.Size > h.cfg.MaxFileSize {
		return fmt.Errorf("file %s too large, maximum size is %d bytes", header.Filename, h.cfg.MaxFileSize)
	}

	ext := strings.ToLower(filepath.Ext(header.Filename))
	for _, allowed := range h.cfg.AllowedImageExts {
		if ext == allowed {
			return nil
		}
	}
	return fmt.Errorf("invalid file type %s, allowed types are: %s", ext, strings.Join(h.cfg.AllowedImageExts, ", "))
}

func parseFloatQuery(c *gin.Context, name string) *float64 {
	raw := c.Query(name)
	if raw == "" {
		return nil
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil
	}
	return &value
}

func parseIntQuery(c *gin.Context, name string) int {
	raw := c.Query(name)
	if raw == "" {
		return 0
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0
	}
	return value
}
