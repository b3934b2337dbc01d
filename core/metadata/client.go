package metadata

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"Bside/core/ingest"
)

// Client 元数据提取服务的HTTP客户端
// 请求携带文件原始字节，响应为 {"metadata": {...}}。
// 它实现 ingest.MetadataExtractor；提取失败如何兜底由流水线决定。
type Client struct {
	url        string
	httpClient *http.Client
	timeout    time.Duration
}

// NewClient 创建提取服务客户端
func NewClient(url string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		url:        url,
		httpClient: &http.Client{},
		timeout:    timeout,
	}
}

// extractResponse 提取服务的响应体
type extractResponse struct {
	Metadata ingest.Metadata `json:"metadata"`
}

// Extract 上送单个文件的字节并解析返回的元数据
func (c *Client) Extract(ctx context.Context, file ingest.FileRef) (*ingest.Metadata, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	src, err := file.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open file %s: %w", file.Name, err)
	}
	defer src.Close()

	// 构造multipart请求体
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", file.Name)
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := io.Copy(part, src); err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", file.Name, err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, body)
	if err != nil {
		return nil, fmt.Errorf("failed to build extract request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("extract request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("extract service returned status %d", resp.StatusCode)
	}

	var parsed extractResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to decode extract response: %w", err)
	}

	return &parsed.Metadata, nil
}
