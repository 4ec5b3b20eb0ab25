// Package clients talks to a remote animation host (for example a bridge
// running inside a 3D editor) over JSON POST requests to <url>/host/<op>.
package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/mmsplayer/mmsplayer/host"
)

type HTTP struct {
	c   *http.Client
	url string
}

var _ host.Host = (*HTTP)(nil)

func NewHTTP(url string, timeout time.Duration) *HTTP {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &HTTP{c: &http.Client{Timeout: timeout}, url: url}
}

// Error codes the bridge uses in failed responses.
const (
	CodeNotFound   = "not_found"
	CodeStaleFrame = "stale_frame"
	CodeExists     = "exists"
)

// ErrorResp is the body of a non-2xx response.
type ErrorResp struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func remoteError(op string, status string, body []byte) error {
	var e ErrorResp
	if json.Unmarshal(body, &e) == nil && e.Error != "" {
		switch e.Code {
		case CodeNotFound:
			return fmt.Errorf("%s %s: %s: %w", op, status, e.Error, host.ErrNotFound)
		case CodeStaleFrame:
			return fmt.Errorf("%s %s: %s: %w", op, status, e.Error, host.ErrStaleFrame)
		case CodeExists:
			return fmt.Errorf("%s %s: %s: %w", op, status, e.Error, host.ErrExists)
		}
		return fmt.Errorf("%s %s: %s", op, status, e.Error)
	}
	return fmt.Errorf("%s %s: %s", op, status, string(body))
}

// call posts in to the operation endpoint and decodes the reply into out
// when out is non-nil.
func (h *HTTP) call(ctx context.Context, op string, in, out any) error {
	b, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("%s encode: %w", op, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.url+"/host/"+op, bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.c.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(resp.Body)
		return remoteError(op, resp.Status, body)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s decode: %w", op, err)
	}
	return nil
}
