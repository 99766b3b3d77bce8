package http

import (
	"errors"
	"net/http"

	"blog-publisher/domain/model"
	"blog-publisher/infrastructure/clients/platform"
	"blog-publisher/infrastructure/logger"

	"github.com/gin-gonic/gin"
)

const ErrorUnmarshal = "Error while unmarshal"

// outcomeStatus maps a failed Outcome kind to an HTTP status. The Outcome's
// error text is returned to the caller untouched.
func outcomeStatus(out model.Outcome) int {
	if out.Success {
		return http.StatusOK
	}
	switch out.Kind {
	case model.ErrorKindNotFound:
		return http.StatusNotFound
	case model.ErrorKindQuota:
		return http.StatusTooManyRequests
	case model.ErrorKindTransient, model.ErrorKindRetryExhausted:
		return http.StatusBadGateway
	case model.ErrorKindInternal:
		return http.StatusInternalServerError
	default:
		return http.StatusUnprocessableEntity
	}
}

func errorStatus(err error) int {
	var callErr *platform.CallError
	switch {
	case errors.Is(err, model.ErrPostNotFound), errors.Is(err, model.ErrConnectionNotFound):
		return http.StatusNotFound
	case errors.Is(err, model.ErrInvalidVisibility), errors.Is(err, model.ErrInvalidState):
		return http.StatusBadRequest
	case errors.Is(err, model.ErrOAuthNotConfigured):
		return http.StatusServiceUnavailable
	case errors.As(err, &callErr):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func abortWithError(ctx *gin.Context, err error) {
	status := errorStatus(err)
	if status >= http.StatusInternalServerError {
		logger.GetLogger().WithFields(map[string]interface{}{
			"error": err,
			"path":  ctx.FullPath(),
		}).Error("request failed")
	}
	ctx.JSON(status, gin.H{"error": err.Error()})
}

func userID(ctx *gin.Context) (string, bool) {
	id := ctx.GetString("user_id")
	if id == "" {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized: missing user_id"})
		return "", false
	}
	return id, true
}
