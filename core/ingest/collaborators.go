package ingest

import "context"

// 流水线依赖的四个外部协作方。核心只消费这些契约，
// 具体实现分别由元数据提取服务、MinIO预签名、对象存储直传
// 和曲目落库服务提供。

// Metadata 提取服务返回的元数据，零值字段视为缺失
type Metadata struct {
	Title       string  `json:"title,omitempty"`
	Artist      string  `json:"artist,omitempty"`
	Album       string  `json:"album,omitempty"`
	Duration    float64 `json:"duration,omitempty"`
	TrackNumber int     `json:"trackNumber,omitempty"`
}

// MetadataExtractor 对单个文件做异步元数据提取
type MetadataExtractor interface {
	Extract(ctx context.Context, file FileRef) (*Metadata, error)
}

// FileSpec 凭证申请中描述一个待上传文件
type FileSpec struct {
	FileName string `json:"fileName"`
	MIMEType string `json:"mimeType"`
}

// UploadCredential 一份预签名写入凭证
type UploadCredential struct {
	UploadURL string `json:"uploadUrl"` // 预签名PUT地址
	CDNURL    string `json:"cdnUrl"`    // 上传完成后的公开访问地址
	Key       string `json:"key"`       // 对象存储键
}

// CredentialIssuer 批量签发上传凭证，返回值与请求列表按位置对齐
type CredentialIssuer interface {
	Issue(ctx context.Context, files []FileSpec) ([]UploadCredential, error)
}

// Uploader 将单个文件的字节写入凭证指定的位置
type Uploader interface {
	Upload(ctx context.Context, cred UploadCredential, file FileRef) error
}

// CommitItem 批量提交中的一条曲目
type CommitItem struct {
	Index     int     `json:"index"` // 在本次提交中的下标，结果按它对账
	Title     string  `json:"title"`
	Album     string  `json:"album,omitempty"`
	Artist    string  `json:"artist,omitempty"`
	Duration  float64 `json:"duration,omitempty"`
	Position  int     `json:"position"`
	RemoteKey string  `json:"remoteKey"`
	CDNURL    string  `json:"cdnUrl"`
}

// CommitRequest 批量提交请求
type CommitRequest struct {
	Items                    []CommitItem `json:"items"`
	AutoMatchOrCreateRelease bool         `json:"autoMatchOrCreateRelease"`
	PublishOnCreate          bool         `json:"publishOnCreate"`
}

// CommitItemResult 单条曲目的提交结果
// Index 对应 CommitItem.Index；服务端可能乱序返回，
// 对账必须以 Index 为准而不是数组位置。
type CommitItemResult struct {
	Index          int    `json:"index"`
	Success        bool   `json:"success"`
	Title          string `json:"title"`
	TrackID        int64  `json:"trackId,omitempty"`
	ReleaseID      int64  `json:"releaseId,omitempty"`
	ReleaseTitle   string `json:"releaseTitle,omitempty"`
	ReleaseCreated bool   `json:"releaseCreated,omitempty"`
	Error          string `json:"error,omitempty"`
}

// CommitResponse 批量提交响应
type CommitResponse struct {
	Success      bool               `json:"success"`
	SuccessCount int                `json:"successCount"`
	FailedCount  int                `json:"failedCount"`
	Results      []CommitItemResult `json:"results"`
	Error        string             `json:"error,omitempty"`
}

// Committer 将全部上传成功的曲目一次性持久化为正式记录
type Committer interface {
	Commit(ctx context.Context, req *CommitRequest) (*CommitResponse, error)
}
