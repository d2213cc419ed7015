package services

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/desertthunder/mediactl/internal/shared"
)

// Transfer methods accepted by [Client.Transfer].
const (
	TransferPOST = http.MethodPost
	TransferPUT  = http.MethodPut
)

// ProgressFunc receives the bytes sent so far and the total, which is -1 when unknown.
type ProgressFunc func(sent, total int64)

// TransferRequest describes one binary upload to a resolved endpoint.
type TransferRequest struct {
	URL  string
	Body io.Reader
	Name string
	// Size is the body length in bytes, or a negative value when unknown.
	Size int64
	// Method is TransferPOST (multipart, field "file") or TransferPUT (raw body).
	Method   string
	Progress ProgressFunc
}

type progressReader struct {
	r        io.Reader
	sent     int64
	total    int64
	progress ProgressFunc
	record   func(int64)
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if n > 0 {
		p.sent += int64(n)
		p.record(int64(n))
		if p.progress != nil {
			p.progress(p.sent, p.total)
		}
	}
	return n, err
}

// Transfer sends the request body to the endpoint and reports byte progress.
//
// Any 2xx response is success; anything else is an [*APIError].
func (c *Client) Transfer(ctx context.Context, tr TransferRequest) error {
	if tr.URL == "" {
		return fmt.Errorf("%w: transfer url", shared.ErrMissingArgument)
	}
	if tr.Body == nil {
		return fmt.Errorf("%w: transfer body", shared.ErrMissingArgument)
	}

	method := tr.Method
	if method == "" {
		method = TransferPOST
	}
	if method != TransferPOST && method != TransferPUT {
		return fmt.Errorf("%w: transfer method %q", shared.ErrInvalidArgument, method)
	}

	total := tr.Size
	if total < 0 {
		total = -1
	}
	body := &progressReader{r: tr.Body, total: total, progress: tr.Progress, record: c.metrics.AddTransferBytes}

	var (
		req *http.Request
		err error
	)
	switch method {
	case TransferPUT:
		req, err = http.NewRequestWithContext(ctx, method, tr.URL, body)
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}
		if total >= 0 {
			req.ContentLength = total
		}
		req.Header.Set("Content-Type", "application/octet-stream")
	default:
		pr, pw := io.Pipe()
		form := multipart.NewWriter(pw)

		go func() {
			part, err := form.CreateFormFile("file", tr.Name)
			if err == nil {
				_, err = io.Copy(part, body)
			}
			if err == nil {
				err = form.Close()
			}
			pw.CloseWithError(err)
		}()
		defer pr.Close()

		req, err = http.NewRequestWithContext(ctx, method, tr.URL, pr)
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Content-Type", form.FormDataContentType())
	}

	c.logger.Debug("transfer", "method", method, "name", tr.Name, "size", total)

	resp, err := c.transferClient.Do(req)
	if err != nil {
		c.metrics.ObserveRequest(method, 0)
		return fmt.Errorf("%w: transfer %s: %w", shared.ErrTransport, tr.Name, err)
	}
	defer resp.Body.Close()

	c.metrics.ObserveRequest(method, resp.StatusCode)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &APIError{Method: method, URL: tr.URL, StatusCode: resp.StatusCode, Body: data}
	}

	if tr.Progress != nil && total < 0 {
		tr.Progress(body.sent, body.sent)
	}
	return nil
}
