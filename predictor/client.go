package predictor

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"MamaCare/models"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// Client calls the external maternal risk model.
type Client struct {
	httpClient *resty.Client
	logger     *zap.Logger
}

type errorBody struct {
	Detail interface{} `json:"detail"`
}

func NewClient(baseURL string, logger *zap.Logger) *Client {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(15*time.Second).
		SetRetryCount(2).
		SetRetryWaitTime(500*time.Millisecond).
		SetRetryMaxWaitTime(2*time.Second).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			return err != nil || r.StatusCode() >= http.StatusInternalServerError
		}).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	return &Client{httpClient: client, logger: logger}
}

// StatusError is a non 2xx answer from the model service.
type StatusError struct {
	StatusCode int
	Detail     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("predictor returned status %d: %s", e.StatusCode, e.Detail)
}

func (c *Client) Predict(ctx context.Context, v models.Vitals) (models.Prediction, error) {
	var result models.Prediction
	var failure errorBody
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetBody(v).
		SetResult(&result).
		SetError(&failure).
		Post("/predict")
	if err != nil {
		c.logger.Error("predictor call failed", zap.Error(err))
		return models.Prediction{}, fmt.Errorf("failed to call predictor: %w", err)
	}
	if resp.IsError() {
		c.logger.Warn("predictor rejected request",
			zap.Int("status_code", resp.StatusCode()),
			zap.Any("detail", failure.Detail),
		)
		return models.Prediction{}, &StatusError{StatusCode: resp.StatusCode(), Detail: fmt.Sprint(failure.Detail)}
	}
	return result, nil
}
