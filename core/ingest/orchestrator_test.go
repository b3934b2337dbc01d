package ingest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
)

// fakeIssuer 按文件名生成确定性的凭证
type fakeIssuer struct {
	err   error
	calls int
}

func (f *fakeIssuer) Issue(ctx context.Context, files []FileSpec) ([]UploadCredential, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	creds := make([]UploadCredential, len(files))
	for i, spec := range files {
		creds[i] = UploadCredential{
			UploadURL: "http://minio/presigned/" + spec.FileName,
			CDNURL:    "http://cdn/bside/audio/" + spec.FileName,
			Key:       "audio/" + spec.FileName,
		}
	}
	return creds, nil
}

// fakeUploader 可指定按文件名失败
type fakeUploader struct {
	mu    sync.Mutex
	fails map[string]bool
	calls int
}

func (f *fakeUploader) Upload(ctx context.Context, cred UploadCredential, file FileRef) error {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.fails[file.Name] {
		return fmt.Errorf("upload rejected with status 500")
	}
	return nil
}

// fakeCommitter 默认全部成功并乱序返回结果，测试对账逻辑
type fakeCommitter struct {
	err        error
	nilResp    bool
	reject     string          // 非空时整体拒绝，Results 为空
	failTitles map[string]string // 标题到逐条失败原因
	omitTitles map[string]bool   // 响应中直接缺失的条目
	calls      int
	lastReq    *CommitRequest
	nextID     int64
}

func (f *fakeCommitter) Commit(ctx context.Context, req *CommitRequest) (*CommitResponse, error) {
	f.calls++
	f.lastReq = req
	if f.err != nil {
		return nil, f.err
	}
	if f.nilResp {
		return nil, nil
	}
	if f.reject != "" {
		return &CommitResponse{Success: false, Error: f.reject}, nil
	}

	resp := &CommitResponse{}
	for _, item := range req.Items {
		if f.omitTitles[item.Title] {
			continue
		}
		res := CommitItemResult{Index: item.Index, Title: item.Title}
		if reason, bad := f.failTitles[item.Title]; bad {
			res.Error = reason
			resp.FailedCount++
		} else {
			f.nextID++
			res.Success = true
			res.TrackID = f.nextID
			res.ReleaseID = 7
			res.ReleaseTitle = item.Album
			resp.SuccessCount++
		}
		resp.Results = append(resp.Results, res)
	}
	// 故意倒序，调用方必须按 index 对账
	for i, j := 0, len(resp.Results)-1; i < j; i, j = i+1, j-1 {
		resp.Results[i], resp.Results[j] = resp.Results[j], resp.Results[i]
	}
	resp.Success = resp.FailedCount == 0
	return resp, nil
}

func readyBatch(t *testing.T, names ...string) (*Batch, []UploadableTrack) {
	t.Helper()
	b, added := newTestBatch(t, names...)
	metas := make(map[string]*Metadata, len(names))
	for i, n := range names {
		metas[n] = &Metadata{
			Title:  TitleFromFilename(n),
			Artist: "Ann",
			Album:  "First",
			Duration: float64(100 + i),
		}
	}
	p := &Pipeline{Extractor: &fakeExtractor{metas: metas}}
	p.ExtractAll(context.Background(), b)
	return b, added
}

func TestRunAllSuccess(t *testing.T) {
	b, added := readyBatch(t, "a.mp3", "b.mp3", "c.mp3")
	fc := &fakeCommitter{}
	p := &Pipeline{Issuer: &fakeIssuer{}, Uploader: &fakeUploader{}, Committer: fc}

	report, err := p.Run(context.Background(), b)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if report.Outcome != OutcomeSuccess {
		t.Errorf("outcome = %s, want success", report.Outcome)
	}
	if report.Message != "Successfully created 3 track(s)" {
		t.Errorf("message = %q", report.Message)
	}
	if report.CreatedCount != 3 || report.FailedCount != 0 {
		t.Errorf("counts = %d/%d, want 3/0", report.CreatedCount, report.FailedCount)
	}

	snap := b.Snapshot()
	seen := map[int64]bool{}
	for _, id := range []string{added[0].LocalID, added[1].LocalID, added[2].LocalID} {
		tr := findSnapshot(t, snap, id)
		if tr.Status != StatusCreated {
			t.Errorf("track %s status = %s, want created", tr.File.Name, tr.Status)
		}
		if tr.TrackID == 0 || seen[tr.TrackID] {
			t.Errorf("track %s got bad trackId %d", tr.File.Name, tr.TrackID)
		}
		seen[tr.TrackID] = true
		if tr.RemoteKey != "audio/"+tr.File.Name {
			t.Errorf("track %s remoteKey = %q", tr.File.Name, tr.RemoteKey)
		}
		if !strings.HasPrefix(tr.CDNURL, "http://cdn/") {
			t.Errorf("track %s cdnUrl = %q", tr.File.Name, tr.CDNURL)
		}
	}

	if b.Processing() {
		t.Error("batch still marked processing after run")
	}
}

// 响应乱序时每条结果必须落回它自己的那条曲目
func TestRunReconcilesByIndexNotOrder(t *testing.T) {
	b, added := readyBatch(t, "a.mp3", "b.mp3", "c.mp3")
	fc := &fakeCommitter{failTitles: map[string]string{"b": "Duplicate title"}}
	p := &Pipeline{Issuer: &fakeIssuer{}, Uploader: &fakeUploader{}, Committer: fc}

	if _, err := p.Run(context.Background(), b); err != nil {
		t.Fatalf("Run: %v", err)
	}

	snap := b.Snapshot()
	for i, id := range []string{added[0].LocalID, added[1].LocalID, added[2].LocalID} {
		tr := findSnapshot(t, snap, id)
		if i == 1 {
			if tr.Status != StatusFailed || tr.Error != "Duplicate title" {
				t.Errorf("middle track: status = %s error = %q", tr.Status, tr.Error)
			}
			continue
		}
		if tr.Status != StatusCreated {
			t.Errorf("track %d status = %s, want created", i, tr.Status)
		}
	}
}

func TestRunPartialCommitFailure(t *testing.T) {
	b, _ := readyBatch(t, "a.mp3", "b.mp3", "c.mp3")
	fc := &fakeCommitter{failTitles: map[string]string{"c": "Duplicate title"}}
	p := &Pipeline{Issuer: &fakeIssuer{}, Uploader: &fakeUploader{}, Committer: fc}

	report, err := p.Run(context.Background(), b)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if report.Outcome != OutcomePartial {
		t.Errorf("outcome = %s, want partial", report.Outcome)
	}
	if report.Message != "Created 2 track(s), 1 failed" {
		t.Errorf("message = %q", report.Message)
	}
}

func TestRunCredentialFailure(t *testing.T) {
	b, added := readyBatch(t, "a.mp3", "b.mp3")
	fu := &fakeUploader{}
	fc := &fakeCommitter{}
	p := &Pipeline{
		Issuer:    &fakeIssuer{err: errors.New("minio unreachable")},
		Uploader:  fu,
		Committer: fc,
	}

	report, err := p.Run(context.Background(), b)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if report.Outcome != OutcomeFailure {
		t.Errorf("outcome = %s, want failure", report.Outcome)
	}
	if report.Message != "Failed to get upload credentials: minio unreachable" {
		t.Errorf("message = %q", report.Message)
	}

	// 凭证整体失败等价于运行未发生：全部回到 ready，后续阶段零调用
	snap := b.Snapshot()
	for _, a := range added {
		if tr := findSnapshot(t, snap, a.LocalID); tr.Status != StatusReady {
			t.Errorf("track %s status = %s, want ready", tr.File.Name, tr.Status)
		}
	}
	if fu.calls != 0 {
		t.Errorf("uploader calls = %d, want 0", fu.calls)
	}
	if fc.calls != 0 {
		t.Errorf("committer calls = %d, want 0", fc.calls)
	}
	if b.Processing() {
		t.Error("batch still processing")
	}
}

func TestRunAllUploadsFailed(t *testing.T) {
	b, added := readyBatch(t, "a.mp3", "b.mp3")
	fc := &fakeCommitter{}
	p := &Pipeline{
		Issuer:    &fakeIssuer{},
		Uploader:  &fakeUploader{fails: map[string]bool{"a.mp3": true, "b.mp3": true}},
		Committer: fc,
	}

	report, err := p.Run(context.Background(), b)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if report.Outcome != OutcomeFailure {
		t.Errorf("outcome = %s, want failure", report.Outcome)
	}
	if report.Message != "All file uploads failed" {
		t.Errorf("message = %q", report.Message)
	}
	if fc.calls != 0 {
		t.Errorf("committer calls = %d, want 0", fc.calls)
	}

	snap := b.Snapshot()
	for _, a := range added {
		tr := findSnapshot(t, snap, a.LocalID)
		if tr.Status != StatusFailed || tr.Error == "" {
			t.Errorf("track %s: status = %s error = %q", tr.File.Name, tr.Status, tr.Error)
		}
	}
}

func TestRunPartialUploadFailure(t *testing.T) {
	b, added := readyBatch(t, "a.mp3", "b.mp3", "c.mp3")
	fc := &fakeCommitter{}
	p := &Pipeline{
		Issuer:    &fakeIssuer{},
		Uploader:  &fakeUploader{fails: map[string]bool{"b.mp3": true}},
		Committer: fc,
	}

	report, err := p.Run(context.Background(), b)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if report.Outcome != OutcomePartial || report.CreatedCount != 2 || report.FailedCount != 1 {
		t.Errorf("report = %+v", report)
	}

	// 只有上传成功的子集进入提交
	if len(fc.lastReq.Items) != 2 {
		t.Fatalf("committed items = %d, want 2", len(fc.lastReq.Items))
	}
	for _, item := range fc.lastReq.Items {
		if item.Title == "b" {
			t.Error("failed upload leaked into commit request")
		}
		if item.RemoteKey == "" || item.CDNURL == "" {
			t.Errorf("commit item missing upload artifacts: %+v", item)
		}
	}

	tr := findSnapshot(t, b.Snapshot(), added[1].LocalID)
	if tr.Status != StatusFailed {
		t.Errorf("failed upload status = %s", tr.Status)
	}
}

func TestRunCommitTotalFailure(t *testing.T) {
	b, added := readyBatch(t, "a.mp3", "b.mp3")
	p := &Pipeline{
		Issuer:    &fakeIssuer{},
		Uploader:  &fakeUploader{},
		Committer: &fakeCommitter{err: errors.New("database is down")},
	}

	report, err := p.Run(context.Background(), b)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if report.Outcome != OutcomeFailure {
		t.Errorf("outcome = %s, want failure", report.Outcome)
	}
	if report.Message != "Failed to create tracks: database is down" {
		t.Errorf("message = %q", report.Message)
	}

	snap := b.Snapshot()
	for _, a := range added {
		tr := findSnapshot(t, snap, a.LocalID)
		if tr.Status != StatusFailed || tr.Error != "database is down" {
			t.Errorf("track %s: %+v", tr.File.Name, tr)
		}
	}
}

func TestRunCommitRejectedWithoutResults(t *testing.T) {
	b, _ := readyBatch(t, "a.mp3")
	p := &Pipeline{
		Issuer:    &fakeIssuer{},
		Uploader:  &fakeUploader{},
		Committer: &fakeCommitter{reject: "catalog is read-only"},
	}

	report, err := p.Run(context.Background(), b)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.Message != "Failed to create tracks: catalog is read-only" {
		t.Errorf("message = %q", report.Message)
	}
}

func TestRunMissingCommitResult(t *testing.T) {
	b, added := readyBatch(t, "a.mp3", "b.mp3")
	p := &Pipeline{
		Issuer:    &fakeIssuer{},
		Uploader:  &fakeUploader{},
		Committer: &fakeCommitter{omitTitles: map[string]bool{"b": true}},
	}

	if _, err := p.Run(context.Background(), b); err != nil {
		t.Fatalf("Run: %v", err)
	}

	tr := findSnapshot(t, b.Snapshot(), added[1].LocalID)
	if tr.Status != StatusFailed || tr.Error != "no commit result returned for track" {
		t.Errorf("omitted track: status = %s error = %q", tr.Status, tr.Error)
	}
}

// 第二次运行只处理重新 ready 的失败曲目，已创建的不重复提交
func TestRerunAfterEditOnlyRetriesFailed(t *testing.T) {
	b, added := readyBatch(t, "a.mp3", "b.mp3")
	fc := &fakeCommitter{failTitles: map[string]string{"b": "Duplicate title"}}
	p := &Pipeline{Issuer: &fakeIssuer{}, Uploader: &fakeUploader{}, Committer: fc}

	if _, err := p.Run(context.Background(), b); err != nil {
		t.Fatalf("first run: %v", err)
	}

	createdID := findSnapshot(t, b.Snapshot(), added[0].LocalID).TrackID

	// 用户改名后失败曲目重新变为 ready
	title := "b renamed"
	if err := b.Edit(added[1].LocalID, EditRequest{Title: &title}); err != nil {
		t.Fatalf("Edit: %v", err)
	}

	fc.failTitles = nil
	report, err := p.Run(context.Background(), b)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}

	if report.Outcome != OutcomeSuccess || report.CreatedCount != 1 {
		t.Errorf("second report = %+v", report)
	}
	if len(fc.lastReq.Items) != 1 || fc.lastReq.Items[0].Title != "b renamed" {
		t.Errorf("second commit items: %+v", fc.lastReq.Items)
	}

	// 已创建曲目不受第二次运行影响
	if got := findSnapshot(t, b.Snapshot(), added[0].LocalID).TrackID; got != createdID {
		t.Errorf("created track mutated on rerun: %d != %d", got, createdID)
	}
}

func TestRunNoReadyTracks(t *testing.T) {
	b := NewBatch(Options{})
	p := &Pipeline{Issuer: &fakeIssuer{}, Uploader: &fakeUploader{}, Committer: &fakeCommitter{}}

	if _, err := p.Run(context.Background(), b); !errors.Is(err, ErrNoReadyTracks) {
		t.Errorf("err = %v, want ErrNoReadyTracks", err)
	}
}

func TestRunWhileExtracting(t *testing.T) {
	b, added := newTestBatch(t, "a.mp3")
	b.mu.Lock()
	b.find(added[0].LocalID).Status = StatusExtracting
	b.mu.Unlock()

	p := &Pipeline{Issuer: &fakeIssuer{}, Uploader: &fakeUploader{}, Committer: &fakeCommitter{}}
	if _, err := p.Run(context.Background(), b); !errors.Is(err, ErrExtracting) {
		t.Errorf("err = %v, want ErrExtracting", err)
	}
}

func TestRunWhileRunning(t *testing.T) {
	b, _ := readyBatch(t, "a.mp3")
	b.mu.Lock()
	b.processing = true
	b.mu.Unlock()

	p := &Pipeline{Issuer: &fakeIssuer{}, Uploader: &fakeUploader{}, Committer: &fakeCommitter{}}
	if _, err := p.Run(context.Background(), b); !errors.Is(err, ErrRunInProgress) {
		t.Errorf("err = %v, want ErrRunInProgress", err)
	}
}

func TestRunPassesBatchOptions(t *testing.T) {
	b := NewBatch(Options{AutoMatchOrCreateRelease: true, PublishOnCreate: true})
	if _, _, err := b.AddFiles([]FileRef{testFile("a.mp3", "audio/mpeg")}); err != nil {
		t.Fatalf("AddFiles: %v", err)
	}
	p := &Pipeline{Extractor: &fakeExtractor{}, Issuer: &fakeIssuer{}, Uploader: &fakeUploader{}, Committer: &fakeCommitter{}}
	p.ExtractAll(context.Background(), b)

	fc := p.Committer.(*fakeCommitter)
	if _, err := p.Run(context.Background(), b); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if !fc.lastReq.AutoMatchOrCreateRelease || !fc.lastReq.PublishOnCreate {
		t.Errorf("options not forwarded: %+v", fc.lastReq)
	}
}
