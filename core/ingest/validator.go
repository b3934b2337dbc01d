package ingest

import (
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// 支持的音频MIME类型
var supportedMIMETypes = map[string]bool{
	"audio/mpeg":   true, // MP3
	"audio/mp3":    true,
	"audio/wav":    true, // WAV
	"audio/x-wav":  true,
	"audio/wave":   true,
	"audio/flac":   true, // FLAC
	"audio/x-flac": true,
	"audio/aac":    true, // AAC
	"audio/ogg":    true, // OGG
	"audio/mp4":    true, // M4A
	"audio/x-m4a":  true,
}

// 支持的扩展名，MIME类型缺失或不可靠时的兜底判断
var supportedExtensions = map[string]bool{
	".mp3":  true,
	".wav":  true,
	".flac": true,
	".aac":  true,
	".ogg":  true,
	".m4a":  true,
}

// SupportedFile 判断文件是否为受支持的音频类型
// MIME类型或扩展名二者任一命中即接受
func SupportedFile(name, mimeType string) bool {
	if supportedMIMETypes[strings.ToLower(mimeType)] {
		return true
	}
	return supportedExtensions[strings.ToLower(filepath.Ext(name))]
}

// ValidationResult 文件校验结果
// Accepted 为空且 RejectedCount > 0 表示"没有受支持的文件"，
// 两者都非零表示"部分文件被跳过"，调用方需要区分上报。
type ValidationResult struct {
	Accepted      []*UploadableTrack
	RejectedCount int
}

// ValidateFiles 对候选文件逐个分类，纯函数，无副作用
// 接受的文件被包装为 pending 状态的 UploadableTrack，
// Position 由批次在加入时分配。
func ValidateFiles(files []FileRef) ValidationResult {
	result := ValidationResult{
		Accepted: make([]*UploadableTrack, 0, len(files)),
	}

	for _, f := range files {
		if !SupportedFile(f.Name, f.MIMEType) {
			result.RejectedCount++
			continue
		}
		result.Accepted = append(result.Accepted, &UploadableTrack{
			LocalID: uuid.New().String(),
			File:    f,
			Status:  StatusPending,
		})
	}

	return result
}
