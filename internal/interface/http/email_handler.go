package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	userapp "github.com/socialapp/user-service/internal/application"
	"github.com/socialapp/user-service/internal/interface/middleware"
	"github.com/socialapp/user-service/pkg/response"
	"github.com/socialapp/user-service/pkg/validation"
)

// EmailHandler covers the email-change lane for an authenticated user.
type EmailHandler struct {
	Svc    *userapp.Service
	Logger *logrus.Logger
}

func NewEmailHandler(svc *userapp.Service, logger *logrus.Logger) *EmailHandler {
	return &EmailHandler{Svc: svc, Logger: logger}
}

type emailRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// RequestUpdateOTP handles POST /request-email-update-otp: the OTP goes to
// the address being claimed, and the send is awaited so a relay failure
// surfaces here instead of leaving the user waiting for a code.
func (h *EmailHandler) RequestUpdateOTP(c *gin.Context) {
	var req emailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	err := h.Svc.RequestEmailChange(c.Request.Context(), sessionID(c), c.GetString(middleware.CtxUserIDKey), req.Email)
	if err != nil {
		fail(c, h.Logger, err)
		return
	}
	response.JSON[any](c, http.StatusOK, nil, "otp sent to your new email")
}

// ConfirmUpdate handles PATCH /confirm-email-update; returns 201 with the
// updated user on success.
func (h *EmailHandler) ConfirmUpdate(c *gin.Context) {
	var req otpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	u, err := h.Svc.ConfirmEmailChange(c.Request.Context(), sessionID(c), c.GetString(middleware.CtxUserIDKey), req.OTP)
	if err != nil {
		fail(c, h.Logger, err)
		return
	}
	response.JSON(c, http.StatusCreated, gin.H{"user": u}, "email updated")
}
