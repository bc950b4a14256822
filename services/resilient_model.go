package services

import (
	"context"
	"time"

	"github.com/tmc/langchaingo/llms"
	"golang.org/x/time/rate"
)

// ResilientModel wraps an llms.Model with a per-call timeout, retries with
// exponential backoff, and client-side pacing.
type ResilientModel struct {
	model      llms.Model
	limiter    *rate.Limiter
	timeout    time.Duration
	maxRetries int
	backoff    time.Duration
}

// NewResilientModel wraps model. requestsPerSecond <= 0 disables pacing and
// timeout <= 0 disables the per-call deadline.
func NewResilientModel(model llms.Model, timeout time.Duration, maxRetries int, backoff time.Duration, requestsPerSecond float64) *ResilientModel {
	r := &ResilientModel{
		model:      model,
		timeout:    timeout,
		maxRetries: maxRetries,
		backoff:    backoff,
	}
	if requestsPerSecond > 0 {
		r.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), 1)
	}
	return r
}

func (r *ResilientModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, r, prompt, options...)
}

func (r *ResilientModel) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	var resp *llms.ContentResponse
	err := retry(ctx, "llm", r.maxRetries, r.backoff, func(ctx context.Context) error {
		if r.limiter != nil {
			if err := r.limiter.Wait(ctx); err != nil {
				return err
			}
		}
		callCtx := ctx
		if r.timeout > 0 {
			var cancel context.CancelFunc
			callCtx, cancel = context.WithTimeout(ctx, r.timeout)
			defer cancel()
		}
		var err error
		resp, err = r.model.GenerateContent(callCtx, messages, options...)
		return err
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}
