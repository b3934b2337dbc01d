package storage

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"Bside/core/ingest"
	"Bside/logger"
)

var nonAlphaNumeric = regexp.MustCompile(`[^a-zA-Z0-9_\-\.]`)
var multipleSpaces = regexp.MustCompile(`\s+`)

// generateUniqueSuffix 生成8位随机十六进制后缀，避免对象键冲突
func generateUniqueSuffix() string {
	b := make([]byte, 4)
	rand.Read(b)
	return hex.EncodeToString(b)
}

// safeObjectName 把原始文件名清洗成可用的对象键片段
func safeObjectName(name string) string {
	ext := filepath.Ext(name)
	base := strings.TrimSuffix(filepath.Base(name), ext)

	base = multipleSpaces.ReplaceAllString(strings.TrimSpace(base), "_")
	base = nonAlphaNumeric.ReplaceAllString(base, "")

	maxLength := 100
	if len(base) > maxLength {
		base = base[:maxLength]
	}
	if base == "" {
		base = "track"
	}
	if ext == "" {
		ext = ".dat"
	}
	return base + "_" + generateUniqueSuffix() + ext
}

// PresignIssuer 基于MinIO预签名PUT的上传凭证签发器
// 实现 ingest.CredentialIssuer：一次请求换一批凭证，
// 返回值与请求列表按位置严格对齐。
type PresignIssuer struct {
	Bucket     string
	CDNBaseURL string
	Expiry     time.Duration
}

// NewPresignIssuer 创建凭证签发器
func NewPresignIssuer(bucket, cdnBaseURL string, expiry time.Duration) *PresignIssuer {
	if expiry <= 0 {
		expiry = 15 * time.Minute
	}
	return &PresignIssuer{
		Bucket:     bucket,
		CDNBaseURL: strings.TrimRight(cdnBaseURL, "/"),
		Expiry:     expiry,
	}
}

// Issue 为每个待上传文件签发一份预签名写入凭证
// 任何一个文件签发失败都视为整体失败：调用方要么拿到
// 完整的一批凭证，要么一个都拿不到。
func (p *PresignIssuer) Issue(ctx context.Context, files []ingest.FileSpec) ([]ingest.UploadCredential, error) {
	client := GetMinioClient()
	if client == nil {
		return nil, fmt.Errorf("MinIO client not initialized")
	}

	creds := make([]ingest.UploadCredential, 0, len(files))
	for _, f := range files {
		key := "audio/" + safeObjectName(f.FileName)

		uploadURL, err := client.PresignedPutObject(ctx, p.Bucket, key, p.Expiry)
		if err != nil {
			logger.Error("签发预签名上传地址失败",
				logger.String("fileName", f.FileName),
				logger.String("key", key),
				logger.ErrorField(err))
			return nil, fmt.Errorf("failed to presign upload for %s: %w", f.FileName, err)
		}

		creds = append(creds, ingest.UploadCredential{
			UploadURL: uploadURL.String(),
			CDNURL:    fmt.Sprintf("%s/%s/%s", p.CDNBaseURL, p.Bucket, key),
			Key:       key,
		})
	}

	logger.Info("批量签发上传凭证成功",
		logger.Int("count", len(creds)),
		logger.Duration("expiry", p.Expiry))
	return creds, nil
}
