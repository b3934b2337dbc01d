package ingest

import (
	"context"
	"errors"
	"sync"
	"testing"
)

// fakeExtractor 按文件名返回预置元数据，可指定某些文件报错
type fakeExtractor struct {
	mu    sync.Mutex
	metas map[string]*Metadata
	fails map[string]bool
	calls int
}

func (f *fakeExtractor) Extract(ctx context.Context, file FileRef) (*Metadata, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.fails[file.Name] {
		return nil, errors.New("extractor unavailable")
	}
	return f.metas[file.Name], nil
}

func TestExtractAllFillsMetadata(t *testing.T) {
	b, added := newTestBatch(t, "a.mp3", "b.mp3")

	p := &Pipeline{Extractor: &fakeExtractor{
		metas: map[string]*Metadata{
			"a.mp3": {Title: "Alpha", Artist: "Ann", Album: "First", Duration: 201.5, TrackNumber: 1},
			"b.mp3": {Title: "Beta", Artist: "Ann", Album: "First", Duration: 180, TrackNumber: 2},
		},
	}}
	p.ExtractAll(context.Background(), b)

	snap := b.Snapshot()
	for _, tr := range snap.Tracks {
		if tr.Status != StatusReady {
			t.Errorf("track %s status = %s, want ready", tr.File.Name, tr.Status)
		}
	}

	first := findSnapshot(t, snap, added[0].LocalID)
	if first.Title != "Alpha" || first.Artist != "Ann" || first.DurationSeconds != 201.5 || first.TrackNumber != 1 {
		t.Errorf("metadata not applied: %+v", first)
	}
}

func TestExtractFailureFallsBackToFilename(t *testing.T) {
	b, added := newTestBatch(t, "Demo Take 3.mp3")

	p := &Pipeline{Extractor: &fakeExtractor{fails: map[string]bool{"Demo Take 3.mp3": true}}}
	p.ExtractAll(context.Background(), b)

	tr := findSnapshot(t, b.Snapshot(), added[0].LocalID)
	if tr.Status != StatusReady {
		t.Fatalf("status = %s, want ready", tr.Status)
	}
	if tr.Title != "Demo Take 3" {
		t.Errorf("title = %q, want filename fallback", tr.Title)
	}
}

func TestExtractMissingTitleFallsBack(t *testing.T) {
	b, added := newTestBatch(t, "untagged.flac")

	// 提取成功但没有标题，其余字段照常回填
	p := &Pipeline{Extractor: &fakeExtractor{
		metas: map[string]*Metadata{"untagged.flac": {Artist: "Ann", Duration: 95}},
	}}
	p.ExtractAll(context.Background(), b)

	tr := findSnapshot(t, b.Snapshot(), added[0].LocalID)
	if tr.Title != "untagged" {
		t.Errorf("title = %q, want %q", tr.Title, "untagged")
	}
	if tr.Artist != "Ann" || tr.DurationSeconds != 95 {
		t.Errorf("metadata dropped: %+v", tr)
	}
}

func TestExtractOnlyTouchesPending(t *testing.T) {
	b, added := newTestBatch(t, "a.mp3", "b.mp3")

	// 第二条已经 ready，重复提取不应重跑
	b.mu.Lock()
	b.find(added[1].LocalID).Status = StatusReady
	b.find(added[1].LocalID).Title = "Kept"
	b.mu.Unlock()

	fe := &fakeExtractor{metas: map[string]*Metadata{
		"a.mp3": {Title: "Alpha"},
		"b.mp3": {Title: "Overwritten"},
	}}
	p := &Pipeline{Extractor: fe}
	p.ExtractAll(context.Background(), b)

	if fe.calls != 1 {
		t.Errorf("extractor calls = %d, want 1", fe.calls)
	}
	if got := findSnapshot(t, b.Snapshot(), added[1].LocalID).Title; got != "Kept" {
		t.Errorf("ready track re-extracted: title = %q", got)
	}
}

func findSnapshot(t *testing.T, snap Snapshot, localID string) UploadableTrack {
	t.Helper()
	for _, tr := range snap.Tracks {
		if tr.LocalID == localID {
			return tr
		}
	}
	t.Fatalf("track %s not in snapshot", localID)
	return UploadableTrack{}
}
