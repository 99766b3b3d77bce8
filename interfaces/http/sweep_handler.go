package http

import (
	"net/http"

	"blog-publisher/usecase"

	"github.com/gin-gonic/gin"
)

type ISweepHandler interface {
	Run(ctx *gin.Context)
}

type SweepHandler struct {
	sweepUsecase usecase.ISweepUsecase
}

func NewSweepHandler(uc usecase.ISweepUsecase) ISweepHandler {
	return &SweepHandler{sweepUsecase: uc}
}

// Run handles POST /api/sweep/run
func (h *SweepHandler) Run(ctx *gin.Context) {
	report, err := h.sweepUsecase.PublishScheduledPosts(ctx.Request.Context())
	if err != nil {
		abortWithError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, report)
}
