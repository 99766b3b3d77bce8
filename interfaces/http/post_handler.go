package http

import (
	"net/http"

	"blog-publisher/domain/dto"
	"blog-publisher/domain/model"
	"blog-publisher/infrastructure/logger"
	"blog-publisher/usecase"

	"github.com/gin-gonic/gin"
)

type IPostHandler interface {
	Create(ctx *gin.Context)
	Get(ctx *gin.Context)
	History(ctx *gin.Context)
	Publish(ctx *gin.Context)
	Retry(ctx *gin.Context)
	UpdateRemote(ctx *gin.Context)
}

type PostHandler struct {
	postUsecase usecase.IPostUsecase
}

func NewPostHandler(postUsecase usecase.IPostUsecase) IPostHandler {
	return &PostHandler{postUsecase: postUsecase}
}

// Create handles POST /api/posts
func (h *PostHandler) Create(ctx *gin.Context) {
	uid, ok := userID(ctx)
	if !ok {
		return
	}
	var req dto.CreatePostRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		logger.GetLogger().WithField("error", err).Error(ErrorUnmarshal)
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	post, err := h.postUsecase.CreatePost(ctx.Request.Context(), uid, req)
	if err != nil {
		abortWithError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, post)
}

// Get handles GET /api/posts/:postId
func (h *PostHandler) Get(ctx *gin.Context) {
	uid, ok := userID(ctx)
	if !ok {
		return
	}
	post, err := h.postUsecase.GetPost(ctx.Request.Context(), uid, ctx.Param("postId"))
	if err != nil {
		abortWithError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, post)
}

// History handles GET /api/posts/:postId/history
func (h *PostHandler) History(ctx *gin.Context) {
	uid, ok := userID(ctx)
	if !ok {
		return
	}
	postID := ctx.Param("postId")
	attempts, err := h.postUsecase.History(ctx.Request.Context(), uid, postID)
	if err != nil {
		abortWithError(ctx, err)
		return
	}
	if attempts == nil {
		attempts = []model.PublishAudit{}
	}
	ctx.JSON(http.StatusOK, gin.H{"post_id": postID, "attempts": attempts})
}

// Publish handles POST /api/posts/:postId/publish
func (h *PostHandler) Publish(ctx *gin.Context) {
	uid, ok := userID(ctx)
	if !ok {
		return
	}
	out := h.postUsecase.PublishAndUpdate(ctx.Request.Context(), uid, ctx.Param("postId"))
	ctx.JSON(outcomeStatus(out), out)
}

// Retry handles POST /api/posts/:postId/retry
func (h *PostHandler) Retry(ctx *gin.Context) {
	uid, ok := userID(ctx)
	if !ok {
		return
	}
	out := h.postUsecase.RetryFailedPost(ctx.Request.Context(), uid, ctx.Param("postId"))
	ctx.JSON(outcomeStatus(out), out)
}

// UpdateRemote handles PUT /api/posts/:postId/remote
func (h *PostHandler) UpdateRemote(ctx *gin.Context) {
	uid, ok := userID(ctx)
	if !ok {
		return
	}
	var req dto.UpdateRemotePostRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		logger.GetLogger().WithField("error", err).Error(ErrorUnmarshal)
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	out := h.postUsecase.UpdatePublishedPost(ctx.Request.Context(), uid, ctx.Param("postId"), req)
	ctx.JSON(outcomeStatus(out), out)
}
