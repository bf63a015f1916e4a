package adapters

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"

	"video-sequence-api/application/ports/outbound"
)

// ErrContentTooLarge is returned when a download exceeds the caller's byte
// limit, before or during the transfer.
var ErrContentTooLarge = errors.New("content exceeds the maximum allowed size")

type ContentFetcher interface {
	// DownloadToFile streams the URL into destPath. On any failure the
	// partial file is removed. maxBytes of zero disables the size limit.
	DownloadToFile(ctx context.Context, url string, destPath string, maxBytes int64) error
}

type contentFetcher struct {
	logger outbound.LoggerPort
	client *http.Client
}

func NewContentFetcher(logger outbound.LoggerPort) ContentFetcher {
	return &contentFetcher{
		logger: logger,
		client: &http.Client{},
	}
}

func (c *contentFetcher) DownloadToFile(ctx context.Context, url string, destPath string, maxBytes int64) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}

	res, err := c.client.Do(req)
	if err != nil {
		c.logger.ErrorWithFields(err, "Failed to send the HTTP request", map[string]interface{}{
			"URL": url,
		})
		return err
	}

	defer func(body io.ReadCloser) {
		err := body.Close()
		if err != nil {
			c.logger.ErrorWithFields(err, "Failed to close the response body", map[string]interface{}{
				"URL": url,
			})
		}
	}(res.Body)

	if res.StatusCode != http.StatusOK {
		c.logger.ErrorWithFields(nil, "HTTP request returned non-OK status code", map[string]interface{}{
			"URL":    url,
			"status": res.StatusCode,
		})
		return fmt.Errorf("HTTP request returned non-OK status code: %d", res.StatusCode)
	}

	if maxBytes > 0 && res.ContentLength > maxBytes {
		return ErrContentTooLarge
	}

	dest, err := os.Create(destPath)
	if err != nil {
		return err
	}

	reader := io.Reader(res.Body)
	if maxBytes > 0 {
		reader = io.LimitReader(res.Body, maxBytes+1)
	}

	written, err := io.Copy(dest, reader)
	closeErr := dest.Close()

	if err == nil && closeErr != nil {
		err = closeErr
	}
	if err == nil && maxBytes > 0 && written > maxBytes {
		err = ErrContentTooLarge
	}
	if err != nil {
		removeErr := os.Remove(destPath)
		if removeErr != nil {
			c.logger.Error(removeErr, "Failed to remove partial download")
		}
		return err
	}

	return nil
}
