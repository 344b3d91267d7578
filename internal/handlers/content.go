package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/claimlab/annotation-backend/internal/logger"
	"github.com/claimlab/annotation-backend/internal/middleware"
	"github.com/claimlab/annotation-backend/internal/services"
)

// ContentHandler serves the static annotation material: guideline text
// and the image files the dataset references.
type ContentHandler struct {
	log     *logger.Logger
	service *services.AnnotationService
}

func NewContentHandler(log *logger.Logger, service *services.AnnotationService) *ContentHandler {
	return &ContentHandler{
		log:     log.With("handler", "ContentHandler"),
		service: service,
	}
}

func (h *ContentHandler) Guidelines(c *gin.Context) {
	text, err := h.service.Guidelines()
	if err != nil {
		RespondError(c, http.StatusNotFound, "guidelines_unavailable", err)
		return
	}
	RespondOK(c, gin.H{"guidelines": text})
}

// Image serves one dataset image from the session's assigned directory.
// A bad or missing reference affects only the requested item.
func (h *ContentHandler) Image(c *gin.Context) {
	sess := middleware.GetSession(c)
	if sess == nil {
		RespondError(c, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	path, err := h.service.ImagePath(sess, c.Param("imageId"))
	if err != nil {
		h.log.Warn("Image not served", "annotator_id", sess.AnnotatorID(), "image_id", c.Param("imageId"), "error", err)
		RespondError(c, http.StatusNotFound, "image_unavailable", err)
		return
	}
	c.File(path)
}
