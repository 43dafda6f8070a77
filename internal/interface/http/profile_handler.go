package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	userapp "github.com/socialapp/user-service/internal/application"
	"github.com/socialapp/user-service/internal/interface/middleware"
	"github.com/socialapp/user-service/pkg/response"
	"github.com/socialapp/user-service/pkg/validation"
)

// ProfileHandler covers the authenticated self-service surface: profile
// edits, password verification, avatar upload, and user search.
type ProfileHandler struct {
	Svc    *userapp.Service
	Logger *logrus.Logger
}

func NewProfileHandler(svc *userapp.Service, logger *logrus.Logger) *ProfileHandler {
	return &ProfileHandler{Svc: svc, Logger: logger}
}

type updateProfileRequest struct {
	Name      string `json:"name"`
	Email     string `json:"email" binding:"omitempty,email"`
	Password  string `json:"password" binding:"omitempty,pwd"`
	Role      string `json:"role"`
	AvatarURL string `json:"avatar_url"`
}

type verifyPasswordRequest struct {
	Password string `json:"password" binding:"required"`
}

// UpdateProfile handles PATCH /update-profile. Unknown users get a 404
// rather than the usual 400, matching the route contract.
func (h *ProfileHandler) UpdateProfile(c *gin.Context) {
	var req updateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	in := userapp.UpdateProfileInput{
		Name:      req.Name,
		Email:     req.Email,
		Password:  req.Password,
		Role:      req.Role,
		AvatarURL: req.AvatarURL,
	}
	u, err := h.Svc.UpdateProfile(c.Request.Context(), c.GetString(middleware.CtxUserIDKey), in)
	if err != nil {
		if errors.Is(err, userapp.ErrUserNotFound) {
			response.Fail(c, http.StatusNotFound, "user not found", nil)
			return
		}
		fail(c, h.Logger, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"user": u}, "profile updated")
}

// VerifyPassword handles POST /verify-password: re-checks the acting user's
// password, typically before a sensitive change.
func (h *ProfileHandler) VerifyPassword(c *gin.Context) {
	var req verifyPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	if err := h.Svc.VerifyPassword(c.Request.Context(), c.GetString(middleware.CtxUserIDKey), req.Password); err != nil {
		fail(c, h.Logger, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"verified": true}, "password verified")
}

// UploadAvatar handles POST /update-avatar (multipart field "avatar").
func (h *ProfileHandler) UploadAvatar(c *gin.Context) {
	fh, err := c.FormFile("avatar")
	if err != nil {
		response.Fail(c, http.StatusBadRequest, "avatar file is required", nil)
		return
	}
	f, err := fh.Open()
	if err != nil {
		fail(c, h.Logger, err)
		return
	}
	defer func() { _ = f.Close() }()

	u, err := h.Svc.UploadAvatar(c.Request.Context(), c.GetString(middleware.CtxUserIDKey),
		f, fh.Filename, fh.Header.Get("Content-Type"))
	if err != nil {
		fail(c, h.Logger, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"user": u}, "avatar updated")
}

// Search handles GET /search?q=&size=.
func (h *ProfileHandler) Search(c *gin.Context) {
	q := c.Query("q")
	if q == "" {
		response.Fail(c, http.StatusBadRequest, "query parameter q is required", nil)
		return
	}
	size, _ := strconv.Atoi(c.Query("size"))
	hits, err := h.Svc.SearchUsers(c.Request.Context(), q, size)
	if err != nil {
		fail(c, h.Logger, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"results": hits}, "search results")
}
