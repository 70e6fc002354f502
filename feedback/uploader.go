package feedback

import (
	iface "RouteGrader/interface"
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

// Uploader posts feedback records to a remote collection, e.g. a realtime
// database REST endpoint. The endpoint answers with {"name": "<id>"}.
type Uploader struct {
	url    string
	client *resty.Client
}

type uploadResponse struct {
	Name string `json:"name"`
}

func NewUploader(url string, timeout time.Duration) *Uploader {
	return &Uploader{
		url:    url,
		client: resty.New().SetTimeout(timeout),
	}
}

func (u *Uploader) Upload(ctx context.Context, rec iface.FeedbackRecord) (string, error) {
	var out uploadResponse
	resp, err := u.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(rec).
		SetResult(&out).
		Post(u.url)
	if err != nil {
		return "", fmt.Errorf("upload feedback: %w", err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("upload feedback: server returned %s: %s", resp.Status(), resp.String())
	}
	return out.Name, nil
}
