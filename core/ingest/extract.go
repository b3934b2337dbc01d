package ingest

import (
	"context"
	"sync"

	"Bside/logger"
)

// Pipeline 摄取流水线，持有四个协作方的实现
// 元数据提取和上传按文件并发扇出，凭证申请和提交是批量单次往返。
type Pipeline struct {
	Extractor MetadataExtractor
	Issuer    CredentialIssuer
	Uploader  Uploader
	Committer Committer
}

// ExtractAll 对批次中所有 pending 曲目并发提取元数据
// 每个文件独立提取，互不阻塞；单个文件失败只影响它自己的
// 元数据质量：回退为文件名标题，仍然照常进入 ready。
func (p *Pipeline) ExtractAll(ctx context.Context, b *Batch) {
	b.mu.Lock()
	pending := make([]*UploadableTrack, 0, len(b.tracks))
	for _, t := range b.tracks {
		if t.Status == StatusPending {
			t.Status = StatusExtracting
			pending = append(pending, t)
		}
	}
	b.mu.Unlock()

	if len(pending) == 0 {
		return
	}
	b.publish()

	var wg sync.WaitGroup
	for _, t := range pending {
		wg.Add(1)
		go func(t *UploadableTrack) {
			defer wg.Done()
			p.extractOne(ctx, b, t)
		}(t)
	}
	wg.Wait()
}

// extractOne 提取单个文件的元数据并推进到 ready
func (p *Pipeline) extractOne(ctx context.Context, b *Batch, t *UploadableTrack) {
	meta, err := p.Extractor.Extract(ctx, t.File)
	if err != nil {
		// 提取失败不致命，回退为文件名标题
		logger.Warn("元数据提取失败，使用文件名作为标题",
			logger.String("file", t.File.Name),
			logger.ErrorField(err))
		meta = nil
	}
	b.applyMetadata(t, meta)
}

// applyMetadata 写入提取结果并推进状态，meta 为 nil 表示提取失败
func (b *Batch) applyMetadata(t *UploadableTrack, meta *Metadata) {
	b.mu.Lock()
	if meta != nil {
		if meta.Title != "" {
			t.Title = meta.Title
		}
		t.Artist = meta.Artist
		t.Album = meta.Album
		t.DurationSeconds = meta.Duration
		t.TrackNumber = meta.TrackNumber
	}
	// 标题缺失时兜底用文件名，保证后续提交始终有标题可用
	if t.Title == "" {
		t.Title = TitleFromFilename(t.File.Name)
	}
	if t.Status == StatusExtracting {
		t.Status = StatusReady
	}
	b.mu.Unlock()
	b.publish()
}
