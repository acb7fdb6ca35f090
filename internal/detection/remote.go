package detection

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/jpeg"
	"net/http"
	"time"
)

// Remote calls an HTTP inference service (a YOLO sidecar) for detections.
// The service accepts a JPEG body on POST /detect and answers with a JSON
// array of {label, confidence, box:[x1,y1,x2,y2]} objects.
type Remote struct {
	BaseURL string
	Client  *http.Client
}

func NewRemote(baseURL string, timeout time.Duration) *Remote {
	return &Remote{
		BaseURL: baseURL,
		Client:  &http.Client{Timeout: timeout},
	}
}

type remoteDetection struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
	Box        [4]int  `json:"box"`
}

func (r *Remote) Detect(ctx context.Context, img image.Image) ([]Detection, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, nil); err != nil {
		return nil, fmt.Errorf("encode frame: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.BaseURL+"/detect", &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "image/jpeg")

	resp, err := r.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("inference request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("inference service returned %d", resp.StatusCode)
	}

	var raw []remoteDetection
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode inference response: %w", err)
	}

	out := make([]Detection, 0, len(raw))
	for _, d := range raw {
		out = append(out, Detection{
			Label:      d.Label,
			Confidence: d.Confidence,
			Box:        image.Rect(d.Box[0], d.Box[1], d.Box[2], d.Box[3]),
		})
	}
	return out, nil
}
