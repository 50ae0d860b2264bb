package http

import (
	"io"
	"log/slog"
	"mime"
	"net/http"
	"path/filepath"

	"github.com/gin-gonic/gin"

	"github.com/hamyar-ai/hamyar/internal/domain/auth"
	"github.com/hamyar-ai/hamyar/internal/domain/chat"
	"github.com/hamyar-ai/hamyar/internal/domain/knowledge"
	"github.com/hamyar-ai/hamyar/internal/domain/upload"
	apperrors "github.com/hamyar-ai/hamyar/pkg/errors"
)

// Handler wires the HTTP transport to domain services.
type Handler struct {
	chatSvc   chat.Service
	kbSvc     knowledge.Service
	authSvc   auth.Service
	uploadSvc upload.Service
	logger    *slog.Logger
}

// NewHandler constructs the root HTTP handler.
func NewHandler(chatSvc chat.Service, kbSvc knowledge.Service, authSvc auth.Service, uploadSvc upload.Service, logger *slog.Logger) *Handler {
	return &Handler{
		chatSvc:   chatSvc,
		kbSvc:     kbSvc,
		authSvc:   authSvc,
		uploadSvc: uploadSvc,
		logger:    logger.With("component", "http.handler"),
	}
}

// Health reports service liveness.
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Chat answers a support question grounded on the knowledge base.
func (h *Handler) Chat(c *gin.Context) {
	var req chat.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_request", "question must be a string", err))
		return
	}

	resp, err := h.chatSvc.Answer(c.Request.Context(), req)
	if err != nil {
		switch apperrors.Code(err) {
		case apperrors.CodeInvalidInput:
			abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_request", errMessage(err), err))
		default:
			// never expose the raw provider or store error to the client
			abortWithError(c, NewHTTPError(http.StatusInternalServerError, "chat_failed", "failed to answer the question", err))
		}
		return
	}

	c.JSON(http.StatusOK, resp)
}

// Trending returns the most asked questions.
func (h *Handler) Trending(c *gin.Context) {
	items, err := h.chatSvc.Trending(c.Request.Context())
	if err != nil {
		abortWithError(c, NewHTTPError(http.StatusInternalServerError, "chat_failed", "failed to load trending questions", err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"trending": items})
}

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Login authenticates an admin and issues a bearer token.
func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_request", "username and password are required", err))
		return
	}
	token, err := h.authSvc.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		if apperrors.IsCode(err, apperrors.CodeUnauthorized) {
			abortWithError(c, NewHTTPError(http.StatusUnauthorized, "unauthorized", "invalid credentials", err))
			return
		}
		abortWithError(c, NewHTTPError(http.StatusInternalServerError, "login_failed", "login failed", err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token})
}

// UploadAttachment stores an entry attachment and returns its URL.
func (h *Handler) UploadAttachment(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_request", "file field is required", err))
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_request", "failed to read file", err))
		return
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_request", "failed to read file", err))
		return
	}

	mimeType := fileHeader.Header.Get("Content-Type")
	if mimeType == "" {
		mimeType = mime.TypeByExtension(filepath.Ext(fileHeader.Filename))
	}

	object, err := h.uploadSvc.Upload(c.Request.Context(), fileHeader.Filename, mimeType, data)
	if err != nil {
		if apperrors.IsCode(err, apperrors.CodeInvalidInput) {
			abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_request", errMessage(err), err))
			return
		}
		abortWithError(c, NewHTTPError(http.StatusInternalServerError, "upload_failed", "failed to store attachment", err))
		return
	}
	c.JSON(http.StatusCreated, object)
}

func errMessage(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
