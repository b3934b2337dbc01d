package ingest

import (
	"io"
	"path/filepath"
	"strings"
)

// FileRef 指向一份待摄取的本地字节源
// Open 每次调用都返回一个新的读取器，上传重试时不会互相干扰
type FileRef struct {
	Name     string `json:"name"`
	Size     int64  `json:"size"`
	MIMEType string `json:"mimeType"`
	Open     func() (io.ReadCloser, error) `json:"-"`
}

// TitleFromFilename 从文件名推导标题（去掉扩展名），元数据提取失败时的兜底
func TitleFromFilename(name string) string {
	base := filepath.Base(name)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// UploadableTrack 批次内的一个条目，进度跟踪的最小单位
// 字段只由批次和流水线修改，外部通过 Snapshot 读取副本
type UploadableTrack struct {
	LocalID string  `json:"localId"` // 批次内稳定标识，不落库
	File    FileRef `json:"file"`

	// 可编辑元数据，先由提取服务填充，提交前允许用户修改
	Title           string  `json:"title"`
	Album           string  `json:"album,omitempty"`
	Artist          string  `json:"artist,omitempty"`
	DurationSeconds float64 `json:"durationSeconds,omitempty"`
	TrackNumber     int     `json:"trackNumber,omitempty"`

	// Position 排序提示，默认为加入批次的顺序
	Position int `json:"position"`

	Status TrackStatus `json:"status"`
	Error  string      `json:"error,omitempty"` // 仅 failed 状态有值

	// 上传成功后填充，提交阶段的必要输入
	RemoteKey string `json:"remoteKey,omitempty"`
	CDNURL    string `json:"cdnUrl,omitempty"`

	// 提交成功后填充
	TrackID        int64  `json:"trackId,omitempty"`
	ReleaseID      int64  `json:"releaseId,omitempty"`
	ReleaseTitle   string `json:"releaseTitle,omitempty"`
	ReleaseCreated bool   `json:"releaseCreated,omitempty"`
}

// clone 返回浅拷贝，用于对外快照
func (t *UploadableTrack) clone() UploadableTrack {
	cp := *t
	return cp
}
