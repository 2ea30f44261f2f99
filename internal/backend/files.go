package backend

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
)

// UploadedFile is the backend's record of an uploaded report.
type UploadedFile struct {
	ID       string `json:"id"`
	FileName string `json:"fileName"`
	URL      string `json:"url,omitempty"`
	MimeType string `json:"mimeType,omitempty"`
	Size     int64  `json:"size,omitempty"`
}

type uploadResponse struct {
	Success bool         `json:"success"`
	Data    UploadedFile `json:"data"`
}

// UploadFile sends one file as multipart/form-data field "file".
func (c *Client) UploadFile(ctx context.Context, name, contentType string, r io.Reader) (UploadedFile, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, name))
	if strings.TrimSpace(contentType) == "" {
		contentType = "application/octet-stream"
	}
	header.Set("Content-Type", contentType)
	part, err := mw.CreatePart(header)
	if err != nil {
		return UploadedFile{}, fmt.Errorf("backend: upload_file: %w", err)
	}
	if _, err := io.Copy(part, r); err != nil {
		return UploadedFile{}, fmt.Errorf("backend: upload_file: copy: %w", err)
	}
	if err := mw.Close(); err != nil {
		return UploadedFile{}, fmt.Errorf("backend: upload_file: %w", err)
	}

	var resp uploadResponse
	if err := c.do(ctx, "upload_file", http.MethodPost, "/files/upload", nil, &buf, mw.FormDataContentType(), &resp); err != nil {
		return UploadedFile{}, err
	}
	if strings.TrimSpace(resp.Data.ID) == "" {
		return UploadedFile{}, fmt.Errorf("backend: upload_file: response missing file id")
	}
	if resp.Data.FileName == "" {
		resp.Data.FileName = name
	}
	return resp.Data, nil
}
