package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"connect-service/internal/services"
	"connect-service/internal/telemetry"
)

// AuthHandler serves registration, login and account lookup.
type AuthHandler struct {
	users   *services.UserService
	emitter *telemetry.AuditEmitter
}

// NewAuthHandler builds an AuthHandler.
func NewAuthHandler(users *services.UserService, emitter *telemetry.AuditEmitter) *AuthHandler {
	return &AuthHandler{users: users, emitter: emitter}
}

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password" binding:"required"`
}

// Register creates an account and returns it with a token.
func (h *AuthHandler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "email and password are required")
		return
	}

	session, err := h.users.Register(c.Request.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		respondError(c, err)
		return
	}

	h.emitter.Action(c.Request.Context(), "user.registered", requestIDFromContext(c), &session.User.ID, nil)
	c.JSON(http.StatusCreated, session)
}

// Login authenticates by email or username.
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil || (req.Email == "" && req.Username == "") {
		badRequest(c, "provide email or username, and password")
		return
	}

	session, err := h.users.Login(c.Request.Context(), req.Email, req.Username, req.Password)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, session)
}

// Me returns the authenticated account.
func (h *AuthHandler) Me(c *gin.Context) {
	user, err := h.users.Get(c.Request.Context(), c.GetInt("userID"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}

// ByEmail looks up a public profile by email.
func (h *AuthHandler) ByEmail(c *gin.Context) {
	email := c.Query("email")
	if email == "" {
		badRequest(c, "email is required")
		return
	}
	user, err := h.users.FindByEmail(c.Request.Context(), email)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}

// ByUsername looks up a public profile by username, ignoring case.
func (h *AuthHandler) ByUsername(c *gin.Context) {
	username := c.Query("username")
	if username == "" {
		badRequest(c, "username is required")
		return
	}
	user, err := h.users.FindByUsername(c.Request.Context(), username)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}
