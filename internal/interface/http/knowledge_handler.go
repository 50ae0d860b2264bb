package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/hamyar-ai/hamyar/internal/domain/knowledge"
	apperrors "github.com/hamyar-ai/hamyar/pkg/errors"
)

// ListEntries returns all knowledge entries in ranked order.
func (h *Handler) ListEntries(c *gin.Context) {
	entries, err := h.kbSvc.List(c.Request.Context())
	if err != nil {
		abortWithError(c, knowledgeError(err))
		return
	}
	c.JSON(http.StatusOK, entries)
}

// CreateEntry adds a knowledge entry.
func (h *Handler) CreateEntry(c *gin.Context) {
	var fields knowledge.Fields
	if err := c.ShouldBindJSON(&fields); err != nil {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_request", "invalid entry payload", err))
		return
	}
	entry, err := h.kbSvc.Create(c.Request.Context(), fields)
	if err != nil {
		abortWithError(c, knowledgeError(err))
		return
	}
	c.JSON(http.StatusCreated, entry)
}

// UpdateEntry replaces the content fields of an entry.
func (h *Handler) UpdateEntry(c *gin.Context) {
	var fields knowledge.Fields
	if err := c.ShouldBindJSON(&fields); err != nil {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_request", "invalid entry payload", err))
		return
	}
	entry, err := h.kbSvc.Update(c.Request.Context(), c.Param("id"), fields)
	if err != nil {
		abortWithError(c, knowledgeError(err))
		return
	}
	c.JSON(http.StatusOK, entry)
}

// DeleteEntry removes an entry.
func (h *Handler) DeleteEntry(c *gin.Context) {
	if err := h.kbSvc.Delete(c.Request.Context(), c.Param("id")); err != nil {
		abortWithError(c, knowledgeError(err))
		return
	}
	c.Status(http.StatusNoContent)
}

// LikeEntry records one positive feedback vote.
func (h *Handler) LikeEntry(c *gin.Context) {
	entry, err := h.kbSvc.Like(c.Request.Context(), c.Param("id"))
	if err != nil {
		abortWithError(c, knowledgeError(err))
		return
	}
	c.JSON(http.StatusOK, entry)
}

// DislikeEntry records one negative feedback vote.
func (h *Handler) DislikeEntry(c *gin.Context) {
	entry, err := h.kbSvc.Dislike(c.Request.Context(), c.Param("id"))
	if err != nil {
		abortWithError(c, knowledgeError(err))
		return
	}
	c.JSON(http.StatusOK, entry)
}

// knowledgeError maps domain failures to HTTP responses. Store failures get a
// fixed message; the underlying error stays in the server log only.
func knowledgeError(err error) *HTTPError {
	switch apperrors.Code(err) {
	case apperrors.CodeInvalidInput:
		return NewHTTPError(http.StatusBadRequest, "invalid_request", errMessage(err), err)
	case apperrors.CodeNotFound:
		return NewHTTPError(http.StatusNotFound, "not_found", "entry not found", err)
	default:
		return NewHTTPError(http.StatusInternalServerError, "knowledge_failed", "knowledge base operation failed", err)
	}
}
