package platform

import (
	"context"
	"errors"
	"fmt"

	"blog-publisher/domain/model"
	"blog-publisher/infrastructure/retry"

	"github.com/failsafe-go/failsafe-go/circuitbreaker"
)

// CallError is a non-2xx response or a platform-reported business error.
type CallError struct {
	Status  int
	Message string
	// Business marks errors reported inside a 2xx body; these never retry.
	Business bool
}

func (e *CallError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("status %d", e.Status)
	}
	return fmt.Sprintf("status %d: %s", e.Status, e.Message)
}

// ExhaustedError is returned once every retry has been spent.
type ExhaustedError struct {
	Retries int
	Last    error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("failed after %d retries: %v", e.Retries, e.Last)
}

func (e *ExhaustedError) Unwrap() error { return e.Last }

// Retryable reports whether err is worth another attempt.
func Retryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, circuitbreaker.ErrOpen) {
		return false
	}
	var ce *CallError
	if errors.As(err, &ce) {
		return !ce.Business && retry.IsRetryable(ce.Status)
	}
	// Transport failures without a response (timeouts, resets) count as transient.
	return true
}

// Result turns the outcome of a runner into a PublishResult.
func Result(platform string, retries int, err error) model.PublishResult {
	var exhausted *ExhaustedError
	switch {
	case errors.As(err, &exhausted):
		res := model.PublishFailed(model.ErrorKindRetryExhausted, "%s: %s", platform, exhausted.Error())
		res.Retries = retries
		return res
	case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
		res := model.PublishFailed(model.ErrorKindTransient, "%s: %v", platform, err)
		res.Retries = retries
		return res
	case errors.Is(err, circuitbreaker.ErrOpen):
		res := model.PublishFailed(model.ErrorKindTransient, "%s: circuit open, platform temporarily unavailable", platform)
		res.Retries = retries
		return res
	}
	var ce *CallError
	if errors.As(err, &ce) {
		msg := ce.Message
		if msg == "" {
			msg = ce.Error()
		}
		kind := model.ErrorKindPermanent
		if ce.Status == 401 || ce.Status == 403 {
			kind = model.ErrorKindCredential
		}
		res := model.PublishFailed(kind, "%s: %s", platform, msg)
		res.Retries = retries
		return res
	}
	res := model.PublishFailed(model.ErrorKindTransient, "%s: %v", platform, err)
	res.Retries = retries
	return res
}

// MissingCredentials builds the configuration failure for absent fields.
func MissingCredentials(platform string, fields ...string) model.PublishResult {
	return model.PublishFailed(model.ErrorKindConfiguration, "%s: missing credentials: %v", platform, fields)
}
