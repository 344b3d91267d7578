package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/claimlab/annotation-backend/internal/logger"
	"github.com/claimlab/annotation-backend/internal/services"
)

// StorageHandler exposes the backend reachability diagnostics. The
// checks never gate the write path; they exist so an annotator can see
// the storage status the way the sidebar of the form shows it.
type StorageHandler struct {
	log     *logger.Logger
	service *services.AnnotationService
}

func NewStorageHandler(log *logger.Logger, service *services.AnnotationService) *StorageHandler {
	return &StorageHandler{
		log:     log.With("handler", "StorageHandler"),
		service: service,
	}
}

func (h *StorageHandler) Status(c *gin.Context) {
	RespondOK(c, gin.H{
		"primary":  h.service.PrimaryStorage(),
		"backends": h.service.StorageStatus(c.Request.Context()),
	})
}
