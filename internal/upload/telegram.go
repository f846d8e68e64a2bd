package upload

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/mymmrac/telego"
)

// FileAPI is the part of the bot client needed to locate uploaded files.
type FileAPI interface {
	GetFile(ctx context.Context, params *telego.GetFileParams) (*telego.File, error)
	FileDownloadURL(filepath string) string
}

// TelegramDownloader resolves a file id through getFile and streams the file
// from the bot API's file endpoint.
type TelegramDownloader struct {
	api    FileAPI
	client *http.Client
}

func NewTelegramDownloader(api FileAPI, client *http.Client) *TelegramDownloader {
	if client == nil {
		client = http.DefaultClient
	}
	return &TelegramDownloader{api: api, client: client}
}

func (d *TelegramDownloader) Open(ctx context.Context, fileID string) (io.ReadCloser, error) {
	file, err := d.api.GetFile(ctx, &telego.GetFileParams{FileID: fileID})
	if err != nil {
		return nil, fmt.Errorf("getFile: %w", err)
	}
	if file.FilePath == "" {
		return nil, fmt.Errorf("getFile: no path for %s", fileID)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.api.FileDownloadURL(file.FilePath), nil)
	if err != nil {
		return nil, err
	}
	resp, err := d.client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("file endpoint returned %s", resp.Status)
	}
	return resp.Body, nil
}
