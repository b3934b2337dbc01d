package ingest

import (
	"errors"
	"testing"
	"time"
)

func newTestBatch(t *testing.T, names ...string) (*Batch, []UploadableTrack) {
	t.Helper()
	b := NewBatch(Options{AutoMatchOrCreateRelease: true})
	files := make([]FileRef, 0, len(names))
	for _, n := range names {
		files = append(files, testFile(n, "audio/mpeg"))
	}
	added, skipped, err := b.AddFiles(files)
	if err != nil {
		t.Fatalf("AddFiles: %v", err)
	}
	if skipped != 0 {
		t.Fatalf("skipped = %d, want 0", skipped)
	}
	return b, added
}

func TestAddFilesAssignsPositions(t *testing.T) {
	b, added := newTestBatch(t, "a.mp3", "b.mp3", "c.mp3")

	for i, tr := range added {
		if tr.Position != i+1 {
			t.Errorf("track %d position = %d, want %d", i, tr.Position, i+1)
		}
	}

	// 第二次追加在已有位置之后继续编号
	more, _, err := b.AddFiles([]FileRef{testFile("d.mp3", "audio/mpeg")})
	if err != nil {
		t.Fatalf("AddFiles: %v", err)
	}
	if more[0].Position != 4 {
		t.Errorf("appended position = %d, want 4", more[0].Position)
	}
}

func TestAddFilesNoSupported(t *testing.T) {
	b := NewBatch(Options{})
	_, skipped, err := b.AddFiles([]FileRef{
		testFile("a.txt", ""),
		testFile("b.pdf", ""),
	})
	if !errors.Is(err, ErrNoSupportedFiles) {
		t.Fatalf("err = %v, want ErrNoSupportedFiles", err)
	}
	if skipped != 2 {
		t.Errorf("skipped = %d, want 2", skipped)
	}
}

func TestAddFilesPartialSkip(t *testing.T) {
	b := NewBatch(Options{})
	added, skipped, err := b.AddFiles([]FileRef{
		testFile("a.mp3", "audio/mpeg"),
		testFile("b.txt", ""),
	})
	if err != nil {
		t.Fatalf("AddFiles: %v", err)
	}
	if len(added) != 1 || skipped != 1 {
		t.Errorf("added = %d skipped = %d, want 1/1", len(added), skipped)
	}
}

func TestEditUpdatesFields(t *testing.T) {
	b, added := newTestBatch(t, "a.mp3")
	id := added[0].LocalID

	title := "New Title"
	artist := "Someone"
	pos := 9
	if err := b.Edit(id, EditRequest{Title: &title, Artist: &artist, Position: &pos}); err != nil {
		t.Fatalf("Edit: %v", err)
	}

	snap := b.Snapshot()
	tr := snap.Tracks[0]
	if tr.Title != "New Title" || tr.Artist != "Someone" || tr.Position != 9 {
		t.Errorf("edit not applied: %+v", tr)
	}
	// 未提供的字段保持原值
	if tr.Album != "" {
		t.Errorf("album changed unexpectedly: %q", tr.Album)
	}
}

func TestEditFailedTrackResetsToReady(t *testing.T) {
	b, added := newTestBatch(t, "a.mp3")
	id := added[0].LocalID

	b.mu.Lock()
	tr := b.find(id)
	tr.Status = StatusFailed
	tr.Error = "upload rejected with status 500"
	tr.RemoteKey = "audio/stale_key.mp3"
	tr.CDNURL = "http://cdn/stale"
	b.mu.Unlock()

	title := "Second Attempt"
	if err := b.Edit(id, EditRequest{Title: &title}); err != nil {
		t.Fatalf("Edit: %v", err)
	}

	got := b.Snapshot().Tracks[0]
	if got.Status != StatusReady {
		t.Errorf("status = %s, want ready", got.Status)
	}
	if got.Error != "" || got.RemoteKey != "" || got.CDNURL != "" {
		t.Errorf("stale failure state not cleared: %+v", got)
	}
}

func TestEditRejectsNonEditableStatus(t *testing.T) {
	b, added := newTestBatch(t, "a.mp3")
	id := added[0].LocalID

	for _, st := range []TrackStatus{StatusUploading, StatusUploaded, StatusCommitting, StatusCreated} {
		b.mu.Lock()
		b.find(id).Status = st
		b.mu.Unlock()

		title := "x"
		if err := b.Edit(id, EditRequest{Title: &title}); !errors.Is(err, ErrTrackNotEditable) {
			t.Errorf("Edit in %s: err = %v, want ErrTrackNotEditable", st, err)
		}
	}
}

func TestEditUnknownTrack(t *testing.T) {
	b, _ := newTestBatch(t, "a.mp3")
	title := "x"
	if err := b.Edit("nope", EditRequest{Title: &title}); !errors.Is(err, ErrTrackNotFound) {
		t.Errorf("err = %v, want ErrTrackNotFound", err)
	}
}

func TestRemove(t *testing.T) {
	b, added := newTestBatch(t, "a.mp3", "b.mp3")

	if err := b.Remove(added[0].LocalID); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	snap := b.Snapshot()
	if len(snap.Tracks) != 1 || snap.Tracks[0].LocalID != added[1].LocalID {
		t.Errorf("unexpected tracks after remove: %+v", snap.Tracks)
	}

	if err := b.Remove("nope"); !errors.Is(err, ErrTrackNotFound) {
		t.Errorf("err = %v, want ErrTrackNotFound", err)
	}

	b.mu.Lock()
	b.find(added[1].LocalID).Status = StatusUploading
	b.mu.Unlock()
	if err := b.Remove(added[1].LocalID); !errors.Is(err, ErrTrackNotEditable) {
		t.Errorf("err = %v, want ErrTrackNotEditable", err)
	}
}

func TestClear(t *testing.T) {
	b, _ := newTestBatch(t, "a.mp3", "b.mp3")

	if err := b.Clear(); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if got := len(b.Snapshot().Tracks); got != 0 {
		t.Errorf("tracks after clear = %d, want 0", got)
	}

	// 清空后位置编号重新开始
	added, _, err := b.AddFiles([]FileRef{testFile("c.mp3", "audio/mpeg")})
	if err != nil {
		t.Fatalf("AddFiles: %v", err)
	}
	if added[0].Position != 1 {
		t.Errorf("position after clear = %d, want 1", added[0].Position)
	}
}

func TestClearWhileProcessing(t *testing.T) {
	b, _ := newTestBatch(t, "a.mp3")
	b.mu.Lock()
	b.processing = true
	b.mu.Unlock()

	if err := b.Clear(); !errors.Is(err, ErrRunInProgress) {
		t.Errorf("err = %v, want ErrRunInProgress", err)
	}
}

func TestSnapshotSortedByPosition(t *testing.T) {
	b, added := newTestBatch(t, "a.mp3", "b.mp3", "c.mp3")

	// 把第一条排到最后
	pos := 10
	if err := b.Edit(added[0].LocalID, EditRequest{Position: &pos}); err != nil {
		t.Fatalf("Edit: %v", err)
	}

	snap := b.Snapshot()
	want := []string{added[1].LocalID, added[2].LocalID, added[0].LocalID}
	for i, tr := range snap.Tracks {
		if tr.LocalID != want[i] {
			t.Fatalf("snapshot order[%d] = %s, want %s", i, tr.LocalID, want[i])
		}
	}
}

func TestSnapshotIsACopy(t *testing.T) {
	b, _ := newTestBatch(t, "a.mp3")
	snap := b.Snapshot()
	snap.Tracks[0].Title = "mutated"

	if got := b.Snapshot().Tracks[0].Title; got == "mutated" {
		t.Error("mutating a snapshot leaked into the batch")
	}
}

func TestSubscribePublishesSnapshots(t *testing.T) {
	b := NewBatch(Options{})
	sub := b.Subscribe()
	defer b.Unsubscribe(sub)

	if _, _, err := b.AddFiles([]FileRef{testFile("a.mp3", "audio/mpeg")}); err != nil {
		t.Fatalf("AddFiles: %v", err)
	}

	select {
	case snap := <-sub:
		if len(snap.Tracks) != 1 {
			t.Errorf("snapshot tracks = %d, want 1", len(snap.Tracks))
		}
	case <-time.After(time.Second):
		t.Fatal("no snapshot published after AddFiles")
	}
}

func TestCanAdvance(t *testing.T) {
	tests := []struct {
		from, to TrackStatus
		want     bool
	}{
		{StatusPending, StatusExtracting, true},
		{StatusReady, StatusUploading, true},
		{StatusUploading, StatusUploaded, true},
		{StatusCommitting, StatusCreated, true},
		{StatusReady, StatusCreated, true}, // 跳级前进允许
		{StatusUploaded, StatusReady, false},
		{StatusCreated, StatusFailed, false}, // 终态之间不互转
		{StatusFailed, StatusCreated, false},
		{StatusUploading, StatusUploading, false},
	}
	for _, tt := range tests {
		if got := canAdvance(tt.from, tt.to); got != tt.want {
			t.Errorf("canAdvance(%s, %s) = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestEditableAndTerminal(t *testing.T) {
	editable := map[TrackStatus]bool{
		StatusPending:    true,
		StatusExtracting: true,
		StatusReady:      true,
		StatusFailed:     true,
		StatusUploading:  false,
		StatusUploaded:   false,
		StatusCommitting: false,
		StatusCreated:    false,
	}
	for st, want := range editable {
		if got := st.Editable(); got != want {
			t.Errorf("%s.Editable() = %v, want %v", st, got, want)
		}
	}

	if !StatusCreated.Terminal() || !StatusFailed.Terminal() {
		t.Error("created/failed should be terminal")
	}
	if StatusReady.Terminal() {
		t.Error("ready should not be terminal")
	}
}
