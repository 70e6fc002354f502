package detector

import (
	iface "RouteGrader/interface"
	"context"
	"encoding/base64"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const payload = `{
  "predictions": [
    {"x": 120.5, "y": 300, "width": 40, "height": 38, "confidence": 0.91, "class": "Hold"},
    {"x": 500, "y": 80, "width": 20, "height": 22, "confidence": 0.12, "class": "Hold"},
    {"x": 10, "y": 10, "width": 5, "height": 5, "confidence": 0.99, "class": "Volume"},
    {"x": 640, "y": 900, "width": 70, "height": 66, "confidence": 0.30, "class": "hold"}
  ],
  "image": {"width": 1080, "height": 1920}
}`

func TestClient_Detect(t *testing.T) {
	image := []byte{0xff, 0xd8, 0xff, 0xe0, 1, 2, 3}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "k3y", r.URL.Query().Get("api_key"))
		assert.Equal(t, "application/x-www-form-urlencoded", r.Header.Get("Content-Type"))
		body, _ := io.ReadAll(r.Body)
		assert.Equal(t, base64.StdEncoding.EncodeToString(image), string(body))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(payload))
	}))
	defer srv.Close()

	c := NewClient(Config{URL: srv.URL + "/holds/1", APIKey: "k3y", Confidence: 0.3, Timeout: time.Second})
	det, err := c.Detect(context.Background(), image)
	require.NoError(t, err)
	assert.Equal(t, iface.ImageExtent{Width: 1080, Height: 1920}, det.Extent)
	assert.Equal(t, []iface.Box{
		{X: 120.5, Y: 300, Width: 40, Height: 38, ID: 0},
		{X: 640, Y: 900, Width: 70, Height: 66, ID: 1},
	}, det.Boxes)
}

func TestClient_Errors(t *testing.T) {
	_, err := NewClient(Config{}).Detect(context.Background(), []byte{1})
	assert.ErrorIs(t, err, ErrNoEndpoint)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "invalid api key", http.StatusForbidden)
	}))
	defer srv.Close()
	_, err = NewClient(Config{URL: srv.URL, Timeout: time.Second}).Detect(context.Background(), []byte{1})
	assert.ErrorContains(t, err, "403")
}
