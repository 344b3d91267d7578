package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/claimlab/annotation-backend/internal/logger"
	"github.com/claimlab/annotation-backend/internal/middleware"
	"github.com/claimlab/annotation-backend/internal/services"
	"github.com/claimlab/annotation-backend/internal/session"
	"github.com/claimlab/annotation-backend/internal/storage"
	"github.com/claimlab/annotation-backend/internal/types"
)

type AnnotationHandler struct {
	log     *logger.Logger
	service *services.AnnotationService
}

func NewAnnotationHandler(log *logger.Logger, service *services.AnnotationService) *AnnotationHandler {
	return &AnnotationHandler{
		log:     log.With("handler", "AnnotationHandler"),
		service: service,
	}
}

// itemPayload is what the form renders for one step of the flow.
type itemPayload struct {
	Item     *types.Item      `json:"item,omitempty"`
	Display  *types.Label     `json:"display,omitempty"`
	State    string           `json:"state"`
	Progress session.Progress `json:"progress"`
}

func currentPayload(sess *session.Session) itemPayload {
	payload := itemPayload{
		State:    sess.State(),
		Progress: sess.Progress(),
	}
	if item, display, ok := sess.Current(); ok {
		payload.Item = &item
		payload.Display = &display
	}
	return payload
}

// Current returns the item at the cursor with the pre-selected answer.
func (h *AnnotationHandler) Current(c *gin.Context) {
	sess := middleware.GetSession(c)
	if sess == nil {
		RespondError(c, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	RespondOK(c, currentPayload(sess))
}

type answerRequest struct {
	ClaimStatus     string  `json:"claim_status" binding:"required"`
	Checkworthiness *string `json:"checkworthiness"`
}

func (r answerRequest) label() types.Label {
	return types.Label{ClaimStatus: r.ClaimStatus, Checkworthiness: r.Checkworthiness}
}

// Next records the answer for the current item and advances.
func (h *AnnotationHandler) Next(c *gin.Context) {
	sess := middleware.GetSession(c)
	if sess == nil {
		RespondError(c, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	var req answerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	if err := sess.Next(req.label()); err != nil {
		if errors.Is(err, session.ErrComplete) {
			RespondError(c, http.StatusConflict, "already_complete", err)
			return
		}
		RespondError(c, http.StatusBadRequest, "invalid_label", err)
		return
	}
	RespondOK(c, currentPayload(sess))
}

// Previous steps back one item.
func (h *AnnotationHandler) Previous(c *gin.Context) {
	sess := middleware.GetSession(c)
	if sess == nil {
		RespondError(c, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	sess.Previous()
	RespondOK(c, currentPayload(sess))
}

// SubmitAll commits the whole pending batch. On failure the batch stays
// intact and the annotator may retry.
func (h *AnnotationHandler) SubmitAll(c *gin.Context) {
	sess := middleware.GetSession(c)
	if sess == nil {
		RespondError(c, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	count, err := sess.SubmitAll(c.Request.Context())
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrEmptyBatch):
			RespondError(c, http.StatusBadRequest, "empty_batch", err)
		case errors.Is(err, session.ErrNotComplete):
			RespondError(c, http.StatusConflict, "not_complete", err)
		default:
			h.log.Error("SubmitAll failed", "annotator_id", sess.AnnotatorID(), "error", err)
			RespondError(c, http.StatusBadGateway, "commit_failed", err)
		}
		return
	}
	RespondOK(c, gin.H{
		"submitted": count,
		"progress":  sess.Progress(),
	})
}

// Update amends an already-committed annotation by post id.
func (h *AnnotationHandler) Update(c *gin.Context) {
	sess := middleware.GetSession(c)
	if sess == nil {
		RespondError(c, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	postID := c.Param("postId")
	var req answerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	if err := sess.UpdateCommitted(c.Request.Context(), postID, req.label()); err != nil {
		switch {
		case errors.Is(err, storage.ErrNotFound):
			RespondError(c, http.StatusNotFound, "annotation_not_found", err)
		case errors.Is(err, types.ErrClaimStatusInvalid),
			errors.Is(err, types.ErrCheckworthinessNeeded),
			errors.Is(err, types.ErrCheckworthinessInvalid):
			RespondError(c, http.StatusBadRequest, "invalid_label", err)
		default:
			h.log.Error("Update failed", "annotator_id", sess.AnnotatorID(), "post_id", postID, "error", err)
			RespondError(c, http.StatusBadGateway, "update_failed", err)
		}
		return
	}
	RespondOK(c, gin.H{"ok": true})
}

// Progress reports the session counters.
func (h *AnnotationHandler) Progress(c *gin.Context) {
	sess := middleware.GetSession(c)
	if sess == nil {
		RespondError(c, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	RespondOK(c, sess.Progress())
}
