package detector

import (
	iface "RouteGrader/interface"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// HoldClass is the class name the hold detector assigns to holds.
const HoldClass = "Hold"

var ErrNoEndpoint = errors.New("detector endpoint not configured")

type Config struct {
	URL        string
	APIKey     string
	Confidence float64
	Timeout    time.Duration
}

type prediction struct {
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Width      float64 `json:"width"`
	Height     float64 `json:"height"`
	Confidence float64 `json:"confidence"`
	Class      string  `json:"class"`
}

type response struct {
	Predictions []prediction `json:"predictions"`
	Image       struct {
		Width  float64 `json:"width"`
		Height float64 `json:"height"`
	} `json:"image"`
}

// Detection holds the boxes found on one image. Box IDs are their index.
type Detection struct {
	Boxes  []iface.Box       `json:"boxes"`
	Extent iface.ImageExtent `json:"extent"`
}

// Client calls a hosted object detector that takes a base64 image body and
// answers with center-based boxes.
type Client struct {
	cfg    Config
	client *resty.Client
}

func NewClient(cfg Config) *Client {
	return &Client{
		cfg:    cfg,
		client: resty.New().SetTimeout(cfg.Timeout),
	}
}

func (c *Client) Detect(ctx context.Context, image []byte) (Detection, error) {
	if c.cfg.URL == "" {
		return Detection{}, ErrNoEndpoint
	}
	var out response
	req := c.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/x-www-form-urlencoded").
		SetBody(base64.StdEncoding.EncodeToString(image)).
		SetResult(&out)
	if c.cfg.APIKey != "" {
		req.SetQueryParam("api_key", c.cfg.APIKey)
	}
	resp, err := req.Post(c.cfg.URL)
	if err != nil {
		return Detection{}, fmt.Errorf("detect holds: %w", err)
	}
	if resp.IsError() {
		return Detection{}, fmt.Errorf("detect holds: server returned %s: %s", resp.Status(), resp.String())
	}

	det := Detection{
		Boxes:  make([]iface.Box, 0, len(out.Predictions)),
		Extent: iface.ImageExtent{Width: out.Image.Width, Height: out.Image.Height},
	}
	for _, p := range out.Predictions {
		if p.Class != "" && !strings.EqualFold(p.Class, HoldClass) {
			continue
		}
		if p.Confidence < c.cfg.Confidence || p.Width < 0 || p.Height < 0 {
			continue
		}
		det.Boxes = append(det.Boxes, iface.Box{
			X:      p.X,
			Y:      p.Y,
			Width:  p.Width,
			Height: p.Height,
			ID:     len(det.Boxes),
		})
	}
	return det, nil
}
