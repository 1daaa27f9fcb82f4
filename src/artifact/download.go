package artifact

import (
	"context"
	"fmt"
	"net/http"

	"easlog/src/logger"
)

// Downloader fetches single-file artifacts and hands the raw bytes to a Saver.
type Downloader struct {
	client *http.Client
	saver  Saver
	logger logger.Logger
}

// NewDownloader creates a downloader. A nil client uses http.DefaultClient.
func NewDownloader(client *http.Client, saver Saver, log logger.Logger) *Downloader {
	if client == nil {
		client = http.DefaultClient
	}
	if log == nil {
		log = &logger.SilentLogger{}
	}
	return &Downloader{client: client, saver: saver, logger: log}
}

// Open issues the GET and returns the response for streaming. The caller
// closes the body.
func (d *Downloader) Open(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download failed: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		resp.Body.Close()
		return nil, fmt.Errorf("download failed with status %d", resp.StatusCode)
	}
	return resp, nil
}

// Download saves url under filename and returns the written path and size.
func (d *Downloader) Download(ctx context.Context, url, filename string) (string, int64, error) {
	resp, err := d.Open(ctx, url)
	if err != nil {
		d.logger.Error("[Downloader] %s: %v", filename, err)
		return "", 0, err
	}
	defer resp.Body.Close()

	path, n, err := d.saver.Save(filename, resp.Body)
	if err != nil {
		d.logger.Error("[Downloader] %s: %v", filename, err)
		return "", n, err
	}
	d.logger.Info("[Downloader] Saved %s (%d bytes)", path, n)
	return path, n, nil
}
