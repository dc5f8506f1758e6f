package controllers

import (
	"io"
	"net/http"
	"path"
	"strconv"
	"strings"

	"github.com/CUknot/chat_backend/middleware"
	"github.com/CUknot/chat_backend/services"
	"github.com/CUknot/chat_backend/storage"
	"github.com/gin-gonic/gin"
	"github.com/spf13/afero"
)

// MaxUploadSize caps a single attachment.
const MaxUploadSize = 10 << 20

// FileOpener serves objects behind signed links. Only the disk gateway
// implements it.
type FileOpener interface {
	Open(key, expires, sig string) (afero.File, error)
}

type AttachmentController struct {
	ledger  *services.Ledger
	gateway storage.Gateway
}

func NewAttachmentController(ledger *services.Ledger, gateway storage.Gateway) *AttachmentController {
	return &AttachmentController{ledger: ledger, gateway: gateway}
}

// Upload godoc
// @Summary Upload an attachment to a room
// @Description Members only. Returns the permanent key to reference from a message and a URL valid for one hour.
// @Tags attachments
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param id path int true "Room ID"
// @Param file formData file true "File to upload"
// @Success 201 {object} models.Attachment
// @Failure 400 {object} map[string]string "Missing or oversized file"
// @Failure 403 {object} map[string]string "Forbidden"
// @Failure 404 {object} map[string]string "Room not found"
// @Failure 500 {object} map[string]string "Storage failure"
// @Router /api/rooms/{id}/attachments [post]
func (a *AttachmentController) Upload(c *gin.Context) {
	roomID, ok := paramID(c, "id")
	if !ok {
		return
	}
	ctx := c.Request.Context()
	userID := middleware.UserID(c)

	if _, err := a.ledger.GetRoom(ctx, roomID); err != nil {
		respondError(c, err)
		return
	}
	member, err := a.ledger.IsMember(ctx, roomID, userID)
	if err != nil {
		respondError(c, err)
		return
	}
	if !member {
		c.JSON(http.StatusForbidden, gin.H{"error": "You are not a member of this room"})
		return
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, MaxUploadSize+1<<20)
	header, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return
	}
	if header.Size > MaxUploadSize {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file too large"})
		return
	}
	f, err := header.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable file"})
		return
	}
	defer f.Close()
	data, err := io.ReadAll(io.LimitReader(f, MaxUploadSize))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable file"})
		return
	}

	att, err := a.gateway.Store(ctx, storage.NewKey(roomID, header.Filename), data)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, att)
}

// ReissueURL godoc
// @Summary Get a fresh URL for an uploaded attachment
// @Tags attachments
// @Produce json
// @Security BearerAuth
// @Param key query string true "Storage key"
// @Param hours query int false "Validity in hours (default 1)"
// @Success 200 {object} models.Attachment
// @Failure 400 {object} map[string]string "Invalid key or validity"
// @Failure 403 {object} map[string]string "Forbidden"
// @Failure 404 {object} map[string]string "Unknown key"
// @Router /api/attachments/url [get]
func (a *AttachmentController) ReissueURL(c *gin.Context) {
	key := c.Query("key")
	roomID, ok := roomOfKey(key)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid key"})
		return
	}
	hours := 1
	if raw := c.Query("hours"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid hours"})
			return
		}
		hours = n
	}

	ctx := c.Request.Context()
	if err := a.ledger.CanRead(ctx, roomID, middleware.UserID(c)); err != nil {
		respondError(c, err)
		return
	}
	att, err := a.gateway.ReissueAccessURL(ctx, key, hours)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, att)
}

// ServeUpload returns a handler for signed links issued by the disk gateway.
func ServeUpload(files FileOpener) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := strings.TrimPrefix(c.Param("key"), "/")
		f, err := files.Open(key, c.Query("expires"), c.Query("sig"))
		if err != nil {
			respondError(c, err)
			return
		}
		defer f.Close()

		info, err := f.Stat()
		if err != nil {
			respondError(c, err)
			return
		}
		http.ServeContent(c.Writer, c.Request, path.Base(key), info.ModTime(), f)
	}
}

// roomOfKey extracts the room id from a key made by storage.NewKey.
func roomOfKey(key string) (uint, bool) {
	parts := strings.SplitN(key, "/", 3)
	if len(parts) != 3 || parts[0] != "rooms" || parts[2] == "" {
		return 0, false
	}
	id, err := strconv.ParseUint(parts[1], 10, 32)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

