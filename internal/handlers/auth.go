package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/claimlab/annotation-backend/internal/config"
	"github.com/claimlab/annotation-backend/internal/logger"
	"github.com/claimlab/annotation-backend/internal/middleware"
	"github.com/claimlab/annotation-backend/internal/services"
)

type AuthHandler struct {
	log     *logger.Logger
	service *services.AnnotationService
}

func NewAuthHandler(log *logger.Logger, service *services.AnnotationService) *AuthHandler {
	return &AuthHandler{
		log:     log.With("handler", "AuthHandler"),
		service: service,
	}
}

type loginRequest struct {
	AnnotatorID string `json:"annotator_id" binding:"required"`
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}

	token, sess, err := h.service.Login(c.Request.Context(), req.AnnotatorID)
	if err != nil {
		var cfgErr *config.ConfigurationError
		if errors.As(err, &cfgErr) {
			RespondError(c, http.StatusForbidden, "annotator_rejected", err)
			return
		}
		h.log.Error("Login failed", "annotator_id", req.AnnotatorID, "error", err)
		RespondError(c, http.StatusInternalServerError, "login_failed", err)
		return
	}

	RespondOK(c, gin.H{
		"token":    token,
		"state":    sess.State(),
		"progress": sess.Progress(),
	})
}

func (h *AuthHandler) Logout(c *gin.Context) {
	h.service.Logout(middleware.GetToken(c))
	RespondOK(c, gin.H{"ok": true})
}
