package ingest

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// HTTPUploader 通过预签名URL把文件字节PUT到对象存储
// 每次上传带独立超时，超时与其他失败同等对待。
type HTTPUploader struct {
	Client  *http.Client
	Timeout time.Duration
}

// NewHTTPUploader 创建直传上传器
func NewHTTPUploader(timeout time.Duration) *HTTPUploader {
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	return &HTTPUploader{
		Client:  &http.Client{},
		Timeout: timeout,
	}
}

// Upload 执行单个文件的字节直传
func (u *HTTPUploader) Upload(ctx context.Context, cred UploadCredential, file FileRef) error {
	ctx, cancel := context.WithTimeout(ctx, u.Timeout)
	defer cancel()

	body, err := file.Open()
	if err != nil {
		return fmt.Errorf("failed to open file %s: %w", file.Name, err)
	}
	defer body.Close()

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, cred.UploadURL, body)
	if err != nil {
		return fmt.Errorf("failed to build upload request: %w", err)
	}
	req.ContentLength = file.Size
	if file.MIMEType != "" {
		req.Header.Set("Content-Type", file.MIMEType)
	}

	resp, err := u.Client.Do(req)
	if err != nil {
		return fmt.Errorf("upload request failed: %w", err)
	}
	defer resp.Body.Close()
	// 读掉响应体以便连接复用
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("upload rejected with status %d", resp.StatusCode)
	}
	return nil
}
