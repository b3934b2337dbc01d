package ingest

// Summary 按状态聚合的批次计数，纯派生数据，只用于上报
type Summary struct {
	PendingCount   int `json:"pendingCount"`   // pending + extracting + ready
	UploadingCount int `json:"uploadingCount"` // uploading + uploaded + committing
	CreatedCount   int `json:"createdCount"`
	FailedCount    int `json:"failedCount"`
	Total          int `json:"total"`
}

// summarize 从曲目列表派生计数，不驱动任何状态转移
func summarize(tracks []*UploadableTrack) Summary {
	var s Summary
	for _, t := range tracks {
		switch t.Status {
		case StatusPending, StatusExtracting, StatusReady:
			s.PendingCount++
		case StatusUploading, StatusUploaded, StatusCommitting:
			s.UploadingCount++
		case StatusCreated:
			s.CreatedCount++
		case StatusFailed:
			s.FailedCount++
		}
	}
	s.Total = len(tracks)
	return s
}

// Summarize 对外暴露的聚合入口，供状态页等只读消费方使用
func Summarize(tracks []UploadableTrack) Summary {
	ptrs := make([]*UploadableTrack, len(tracks))
	for i := range tracks {
		ptrs[i] = &tracks[i]
	}
	return summarize(ptrs)
}
