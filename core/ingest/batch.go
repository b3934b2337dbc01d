package ingest

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrRunInProgress 同一批次同时只允许一次流水线运行
	ErrRunInProgress = errors.New("batch run already in progress")
	// ErrExtracting 有曲目仍在提取元数据时不允许触发上传
	ErrExtracting = errors.New("metadata extraction still in progress")
	// ErrNoReadyTracks 批次中没有处于 ready 状态的曲目
	ErrNoReadyTracks = errors.New("no tracks ready for upload")
	// ErrNoSupportedFiles 选择的文件全部不受支持
	ErrNoSupportedFiles = errors.New("no supported audio files")
	// ErrTrackNotFound 批次中找不到指定曲目
	ErrTrackNotFound = errors.New("track not found in batch")
	// ErrTrackNotEditable 曲目所处状态不允许编辑或移除
	ErrTrackNotEditable = errors.New("track is not editable in its current status")
)

// Options 批次级提交选项
type Options struct {
	AutoMatchOrCreateRelease bool `json:"autoMatchOrCreateRelease"`
	PublishOnCreate          bool `json:"publishOnCreate"`
}

// Batch 一次摄取会话内选择的全部文件及其状态
// 全部可变状态都收拢在这里，运行期间流水线是唯一写者，
// 外部只能拿到 Snapshot 副本。
type Batch struct {
	id   string
	opts Options

	mu         sync.Mutex
	tracks     []*UploadableTrack
	processing bool
	nextPos    int

	subs map[chan Snapshot]struct{}
}

// Snapshot 批次状态的只读副本，交给展示层和进度推送
type Snapshot struct {
	BatchID    string            `json:"batchId"`
	Processing bool              `json:"processing"`
	Tracks     []UploadableTrack `json:"tracks"`
	Summary    Summary           `json:"summary"`
	Taken      time.Time         `json:"taken"`
}

// NewBatch 创建空批次
func NewBatch(opts Options) *Batch {
	return &Batch{
		id:   uuid.New().String(),
		opts: opts,
		subs: make(map[chan Snapshot]struct{}),
	}
}

// ID 返回批次标识
func (b *Batch) ID() string {
	return b.id
}

// Options 返回批次级提交选项
func (b *Batch) Options() Options {
	return b.opts
}

// AddFiles 校验并把受支持的文件加入批次
// 返回新增曲目的快照和被拒绝的数量；全部文件都不受支持时
// 返回 ErrNoSupportedFiles，与"部分被跳过"区分上报。
func (b *Batch) AddFiles(files []FileRef) ([]UploadableTrack, int, error) {
	result := ValidateFiles(files)
	if len(result.Accepted) == 0 && result.RejectedCount > 0 {
		return nil, result.RejectedCount, ErrNoSupportedFiles
	}

	b.mu.Lock()
	added := make([]UploadableTrack, 0, len(result.Accepted))
	for _, t := range result.Accepted {
		b.nextPos++
		t.Position = b.nextPos
		b.tracks = append(b.tracks, t)
		added = append(added, t.clone())
	}
	b.mu.Unlock()

	if len(added) > 0 {
		b.publish()
	}
	return added, result.RejectedCount, nil
}

// EditRequest 用户对单条曲目的部分更新，nil 字段保持不变
type EditRequest struct {
	Title           *string  `json:"title,omitempty"`
	Album           *string  `json:"album,omitempty"`
	Artist          *string  `json:"artist,omitempty"`
	Position        *int     `json:"position,omitempty"`
	TrackNumber     *int     `json:"trackNumber,omitempty"`
	DurationSeconds *float64 `json:"durationSeconds,omitempty"`
}

// Edit 更新曲目元数据
// 仅 pending/extracting/ready/failed 状态允许；编辑 failed 曲目会
// 清掉错误并回到 ready，由此重新进入下一次运行的候选集，这是
// 本实现选择的重试策略。
func (b *Batch) Edit(localID string, req EditRequest) error {
	b.mu.Lock()
	t := b.find(localID)
	if t == nil {
		b.mu.Unlock()
		return ErrTrackNotFound
	}
	if !t.Status.Editable() {
		b.mu.Unlock()
		return ErrTrackNotEditable
	}

	if req.Title != nil {
		t.Title = *req.Title
	}
	if req.Album != nil {
		t.Album = *req.Album
	}
	if req.Artist != nil {
		t.Artist = *req.Artist
	}
	if req.Position != nil {
		t.Position = *req.Position
	}
	if req.TrackNumber != nil {
		t.TrackNumber = *req.TrackNumber
	}
	if req.DurationSeconds != nil {
		t.DurationSeconds = *req.DurationSeconds
	}

	// 编辑失败曲目视为清除错误状态，重新变为可提交
	if t.Status == StatusFailed {
		t.Status = StatusReady
		t.Error = ""
		t.RemoteKey = ""
		t.CDNURL = ""
	}
	b.mu.Unlock()

	b.publish()
	return nil
}

// Remove 从批次中移除曲目，uploading/uploaded/committing/created 状态禁止
func (b *Batch) Remove(localID string) error {
	b.mu.Lock()
	idx := -1
	for i, t := range b.tracks {
		if t.LocalID == localID {
			idx = i
			break
		}
	}
	if idx < 0 {
		b.mu.Unlock()
		return ErrTrackNotFound
	}
	if !b.tracks[idx].Status.Editable() {
		b.mu.Unlock()
		return ErrTrackNotEditable
	}
	b.tracks = append(b.tracks[:idx], b.tracks[idx+1:]...)
	b.mu.Unlock()

	b.publish()
	return nil
}

// Clear 清空批次，运行期间禁止
func (b *Batch) Clear() error {
	b.mu.Lock()
	if b.processing {
		b.mu.Unlock()
		return ErrRunInProgress
	}
	b.tracks = nil
	b.nextPos = 0
	b.mu.Unlock()

	b.publish()
	return nil
}

// Snapshot 返回批次当前状态的深拷贝，曲目按 Position 排序
func (b *Batch) Snapshot() Snapshot {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.snapshotLocked()
}

func (b *Batch) snapshotLocked() Snapshot {
	tracks := make([]UploadableTrack, 0, len(b.tracks))
	for _, t := range b.tracks {
		tracks = append(tracks, t.clone())
	}
	sort.SliceStable(tracks, func(i, j int) bool {
		return tracks[i].Position < tracks[j].Position
	})
	return Snapshot{
		BatchID:    b.id,
		Processing: b.processing,
		Tracks:     tracks,
		Summary:    summarize(b.tracks),
		Taken:      time.Now(),
	}
}

// Summary 返回按状态聚合的计数
func (b *Batch) Summary() Summary {
	b.mu.Lock()
	defer b.mu.Unlock()
	return summarize(b.tracks)
}

// Processing 返回批次是否有流水线运行在途
func (b *Batch) Processing() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.processing
}

// Subscribe 注册一个快照订阅通道，每次状态变化后收到最新快照
// 通道缓冲写满时丢弃本次推送，慢消费者不会阻塞流水线。
func (b *Batch) Subscribe() chan Snapshot {
	ch := make(chan Snapshot, 16)
	b.mu.Lock()
	b.subs[ch] = struct{}{}
	b.mu.Unlock()
	return ch
}

// Unsubscribe 注销订阅通道
func (b *Batch) Unsubscribe(ch chan Snapshot) {
	b.mu.Lock()
	delete(b.subs, ch)
	b.mu.Unlock()
	close(ch)
}

// publish 向所有订阅者推送最新快照
func (b *Batch) publish() {
	b.mu.Lock()
	snap := b.snapshotLocked()
	for ch := range b.subs {
		select {
		case ch <- snap:
		default: // 订阅方来不及消费，丢弃
		}
	}
	b.mu.Unlock()
}

// find 按 LocalID 查找曲目，调用方必须持有锁
func (b *Batch) find(localID string) *UploadableTrack {
	for _, t := range b.tracks {
		if t.LocalID == localID {
			return t
		}
	}
	return nil
}

// ========== 以下方法仅供流水线使用 ==========

// beginRun 抢占运行权并圈定活动集
// processing 标志是批次级互斥门：在途运行未结束前再次触发
// 直接失败，而不是排队或取消。
func (b *Batch) beginRun() ([]*UploadableTrack, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.processing {
		return nil, ErrRunInProgress
	}
	for _, t := range b.tracks {
		if t.Status == StatusExtracting {
			return nil, ErrExtracting
		}
	}

	active := make([]*UploadableTrack, 0, len(b.tracks))
	for _, t := range b.tracks {
		if t.Status == StatusReady {
			active = append(active, t)
		}
	}
	if len(active) == 0 {
		return nil, ErrNoReadyTracks
	}

	b.processing = true
	return active, nil
}

// endRun 释放运行权
func (b *Batch) endRun() {
	b.mu.Lock()
	b.processing = false
	b.mu.Unlock()
	b.publish()
}

// advance 推进单条曲目状态，拒绝后退转移
func (b *Batch) advance(t *UploadableTrack, to TrackStatus) bool {
	b.mu.Lock()
	ok := canAdvance(t.Status, to)
	if ok {
		t.Status = to
	}
	b.mu.Unlock()
	if ok {
		b.publish()
	}
	return ok
}

// advanceAll 批量推进状态
func (b *Batch) advanceAll(tracks []*UploadableTrack, to TrackStatus) {
	b.mu.Lock()
	for _, t := range tracks {
		if canAdvance(t.Status, to) {
			t.Status = to
		}
	}
	b.mu.Unlock()
	b.publish()
}

// revertToReady 凭证批量申请整体失败时把活动集放回 ready
// 这是状态机唯一的"回退"，语义上等价于本次运行从未开始。
func (b *Batch) revertToReady(tracks []*UploadableTrack) {
	b.mu.Lock()
	for _, t := range tracks {
		if !t.Status.Terminal() {
			t.Status = StatusReady
		}
	}
	b.mu.Unlock()
	b.publish()
}

// markFailed 将曲目置为 failed 并记录原因
func (b *Batch) markFailed(t *UploadableTrack, reason string) {
	b.mu.Lock()
	t.Status = StatusFailed
	t.Error = reason
	b.mu.Unlock()
	b.publish()
}

// markUploaded 记录上传产物并置为 uploaded
func (b *Batch) markUploaded(t *UploadableTrack, key, cdnURL string) {
	b.mu.Lock()
	t.Status = StatusUploaded
	t.RemoteKey = key
	t.CDNURL = cdnURL
	b.mu.Unlock()
	b.publish()
}

// markCreated 记录提交结果并置为 created
func (b *Batch) markCreated(t *UploadableTrack, res CommitItemResult) {
	b.mu.Lock()
	t.Status = StatusCreated
	t.TrackID = res.TrackID
	t.ReleaseID = res.ReleaseID
	t.ReleaseTitle = res.ReleaseTitle
	t.ReleaseCreated = res.ReleaseCreated
	b.mu.Unlock()
	b.publish()
}
