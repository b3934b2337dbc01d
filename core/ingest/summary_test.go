package ingest

import "testing"

func TestSummarize(t *testing.T) {
	tracks := []UploadableTrack{
		{Status: StatusPending},
		{Status: StatusExtracting},
		{Status: StatusReady},
		{Status: StatusUploading},
		{Status: StatusUploaded},
		{Status: StatusCommitting},
		{Status: StatusCreated},
		{Status: StatusCreated},
		{Status: StatusFailed},
	}

	s := Summarize(tracks)

	if s.PendingCount != 3 {
		t.Errorf("PendingCount = %d, want 3", s.PendingCount)
	}
	if s.UploadingCount != 3 {
		t.Errorf("UploadingCount = %d, want 3", s.UploadingCount)
	}
	if s.CreatedCount != 2 {
		t.Errorf("CreatedCount = %d, want 2", s.CreatedCount)
	}
	if s.FailedCount != 1 {
		t.Errorf("FailedCount = %d, want 1", s.FailedCount)
	}
	if s.Total != 9 {
		t.Errorf("Total = %d, want 9", s.Total)
	}
}

func TestSummarizeEmpty(t *testing.T) {
	s := Summarize(nil)
	if s.Total != 0 || s.PendingCount != 0 || s.CreatedCount != 0 {
		t.Errorf("empty summary not zero: %+v", s)
	}
}

func TestBatchSummaryIsDerived(t *testing.T) {
	b, added := newTestBatch(t, "a.mp3", "b.mp3")

	b.mu.Lock()
	b.find(added[0].LocalID).Status = StatusCreated
	b.find(added[1].LocalID).Status = StatusFailed
	b.mu.Unlock()

	s := b.Summary()
	if s.CreatedCount != 1 || s.FailedCount != 1 || s.Total != 2 {
		t.Errorf("summary = %+v", s)
	}
}
