package http

import (
	"net/http"

	"blog-publisher/domain/dto"
	"blog-publisher/domain/model"
	"blog-publisher/infrastructure/logger"
	"blog-publisher/usecase"

	"github.com/gin-gonic/gin"
)

type IConnectionHandler interface {
	List(ctx *gin.Context)
	ConnectWordPress(ctx *gin.Context)
	ConnectTistory(ctx *gin.Context)
	Disconnect(ctx *gin.Context)
	BloggerAuthURL(ctx *gin.Context)
	BloggerCallback(ctx *gin.Context)
}

type ConnectionHandler struct {
	connectionUsecase usecase.IConnectionUsecase
	// successRedirect is where the browser lands after the OAuth callback.
	successRedirect string
}

func NewConnectionHandler(uc usecase.IConnectionUsecase, successRedirect string) IConnectionHandler {
	return &ConnectionHandler{connectionUsecase: uc, successRedirect: successRedirect}
}

// List handles GET /api/connections
func (h *ConnectionHandler) List(ctx *gin.Context) {
	uid, ok := userID(ctx)
	if !ok {
		return
	}
	list, err := h.connectionUsecase.List(ctx.Request.Context(), uid)
	if err != nil {
		abortWithError(ctx, err)
		return
	}
	if list == nil {
		list = []*model.Connection{}
	}
	ctx.JSON(http.StatusOK, gin.H{"connections": list})
}

// ConnectWordPress handles POST /api/connections/wordpress
func (h *ConnectionHandler) ConnectWordPress(ctx *gin.Context) {
	uid, ok := userID(ctx)
	if !ok {
		return
	}
	var req dto.ConnectWordPressRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		logger.GetLogger().WithField("error", err).Error(ErrorUnmarshal)
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	conn, err := h.connectionUsecase.ConnectWordPress(ctx.Request.Context(), uid, req)
	if err != nil {
		abortWithError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, conn)
}

// ConnectTistory handles POST /api/connections/tistory
func (h *ConnectionHandler) ConnectTistory(ctx *gin.Context) {
	uid, ok := userID(ctx)
	if !ok {
		return
	}
	var req dto.ConnectTistoryRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		logger.GetLogger().WithField("error", err).Error(ErrorUnmarshal)
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	conn, err := h.connectionUsecase.ConnectTistory(ctx.Request.Context(), uid, req)
	if err != nil {
		abortWithError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, conn)
}

// Disconnect handles DELETE /api/connections/:connectionId
func (h *ConnectionHandler) Disconnect(ctx *gin.Context) {
	uid, ok := userID(ctx)
	if !ok {
		return
	}
	if err := h.connectionUsecase.Disconnect(ctx.Request.Context(), uid, ctx.Param("connectionId")); err != nil {
		abortWithError(ctx, err)
		return
	}
	ctx.Status(http.StatusNoContent)
}

// BloggerAuthURL handles GET /auth/blogger. The caller is authenticated, so
// the URL is returned for the client to navigate to.
func (h *ConnectionHandler) BloggerAuthURL(ctx *gin.Context) {
	uid, ok := userID(ctx)
	if !ok {
		return
	}
	url, err := h.connectionUsecase.BloggerAuthURL(ctx.Request.Context(), uid)
	if err != nil {
		abortWithError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"auth_url": url})
}

// BloggerCallback handles GET /auth/blogger/callback
func (h *ConnectionHandler) BloggerCallback(ctx *gin.Context) {
	if msg := ctx.Query("error"); msg != "" {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "authorization denied: " + msg})
		return
	}
	state, code := ctx.Query("state"), ctx.Query("code")
	if state == "" || code == "" {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "missing state or code"})
		return
	}
	conn, err := h.connectionUsecase.BloggerCallback(ctx.Request.Context(), state, code)
	if err != nil {
		abortWithError(ctx, err)
		return
	}
	if h.successRedirect != "" {
		ctx.Redirect(http.StatusFound, h.successRedirect+"?connection_id="+conn.ID)
		return
	}
	ctx.JSON(http.StatusCreated, conn)
}
