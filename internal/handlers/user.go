package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"connect-service/internal/models"
	"connect-service/internal/services"
	"connect-service/internal/telemetry"
)

// UserHandler manages the caller's profile, photo and block list.
type UserHandler struct {
	users   *services.UserService
	emitter *telemetry.AuditEmitter
	tempDir string
}

// NewUserHandler builds a UserHandler. Uploads are staged in tempDir.
func NewUserHandler(users *services.UserService, emitter *telemetry.AuditEmitter, tempDir string) *UserHandler {
	return &UserHandler{users: users, emitter: emitter, tempDir: tempDir}
}

type profileRequest struct {
	Username     *string `json:"username"`
	Bio          *string `json:"bio"`
	Status       *string `json:"status"`
	Phone        *string `json:"phone"`
	ShowLastSeen *bool   `json:"showLastSeen"`
	ShowPhoto    *bool   `json:"showPhoto"`
}

type passwordRequest struct {
	CurrentPassword string `json:"currentPassword" binding:"required"`
	NewPassword     string `json:"newPassword" binding:"required"`
}

type deleteAccountRequest struct {
	Password string `json:"password" binding:"required"`
}

// UpdateProfile applies the provided profile fields.
func (h *UserHandler) UpdateProfile(c *gin.Context) {
	var req profileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid profile payload")
		return
	}

	user, err := h.users.UpdateProfile(c.Request.Context(), c.GetInt("userID"), models.ProfileUpdate{
		Username:     req.Username,
		Bio:          req.Bio,
		Status:       req.Status,
		Phone:        req.Phone,
		ShowLastSeen: req.ShowLastSeen,
		ShowPhoto:    req.ShowPhoto,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Profile updated", "user": user})
}

// ChangePassword replaces the password after checking the current one.
func (h *UserHandler) ChangePassword(c *gin.Context) {
	var req passwordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "currentPassword and newPassword are required")
		return
	}

	if err := h.users.ChangePassword(c.Request.Context(), c.GetInt("userID"), req.CurrentPassword, req.NewPassword); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Password updated"})
}

// UploadPhoto stores the multipart "photo" file as the profile photo.
func (h *UserHandler) UploadPhoto(c *gin.Context) {
	upload, err := receiveUpload(c, "photo", h.tempDir)
	if err != nil {
		respondUploadError(c, err)
		return
	}

	url, err := h.users.SetPhoto(c.Request.Context(), c.GetInt("userID"), upload)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Photo uploaded", "photoUrl": url})
}

// RemovePhoto clears the profile photo.
func (h *UserHandler) RemovePhoto(c *gin.Context) {
	if err := h.users.RemovePhoto(c.Request.Context(), c.GetInt("userID")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Photo removed"})
}

// DeleteAccount removes the caller's account.
func (h *UserHandler) DeleteAccount(c *gin.Context) {
	var req deleteAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "password is required")
		return
	}

	userID := c.GetInt("userID")
	if err := h.users.DeleteAccount(c.Request.Context(), userID, req.Password); err != nil {
		respondError(c, err)
		return
	}

	h.emitter.Action(c.Request.Context(), "user.deleted", requestIDFromContext(c), &userID, nil)
	c.JSON(http.StatusOK, gin.H{"message": "Account deleted"})
}

// Block adds the :userId path user to the caller's block list.
func (h *UserHandler) Block(c *gin.Context) {
	targetID, ok := pathID(c, "userId")
	if !ok {
		return
	}
	if err := h.users.Block(c.Request.Context(), c.GetInt("userID"), targetID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "User blocked"})
}

// Unblock removes the :userId path user from the caller's block list.
func (h *UserHandler) Unblock(c *gin.Context) {
	targetID, ok := pathID(c, "userId")
	if !ok {
		return
	}
	if err := h.users.Unblock(c.Request.Context(), c.GetInt("userID"), targetID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "User unblocked"})
}

// ListBlocked returns the caller's block list.
func (h *UserHandler) ListBlocked(c *gin.Context) {
	users, err := h.users.ListBlocked(c.Request.Context(), c.GetInt("userID"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": users})
}

// pathID parses a positive integer path parameter, answering 400 otherwise.
func pathID(c *gin.Context, name string) (int, bool) {
	id, err := strconv.Atoi(c.Param(name))
	if err != nil || id <= 0 {
		badRequest(c, "invalid "+name)
		return 0, false
	}
	return id, true
}
