package ingest

// TrackStatus 批次内单个文件的流水线状态
// 状态只能沿 pending → extracting → ready → uploading → uploaded →
// committing → created/failed 向前推进；唯一的例外是用户手动编辑
// failed/extracting 状态的曲目时回到 ready。
type TrackStatus string

const (
	StatusPending    TrackStatus = "pending"
	StatusExtracting TrackStatus = "extracting"
	StatusReady      TrackStatus = "ready"
	StatusUploading  TrackStatus = "uploading"
	StatusUploaded   TrackStatus = "uploaded"
	StatusCommitting TrackStatus = "committing"
	StatusCreated    TrackStatus = "created"
	StatusFailed     TrackStatus = "failed"
)

// statusRank 给每个状态一个序号，用于校验只前进不后退
var statusRank = map[TrackStatus]int{
	StatusPending:    0,
	StatusExtracting: 1,
	StatusReady:      2,
	StatusUploading:  3,
	StatusUploaded:   4,
	StatusCommitting: 5,
	StatusCreated:    6,
	StatusFailed:     6, // failed 与 created 同为终态
}

// Editable 返回该状态下曲目是否允许用户编辑或移除
func (s TrackStatus) Editable() bool {
	switch s {
	case StatusPending, StatusExtracting, StatusReady, StatusFailed:
		return true
	}
	return false
}

// Terminal 返回该状态是否为终态
func (s TrackStatus) Terminal() bool {
	return s == StatusCreated || s == StatusFailed
}

// canAdvance 判断从 from 到 to 是否是合法的前向转移
func canAdvance(from, to TrackStatus) bool {
	return statusRank[to] > statusRank[from]
}
