package ingest

import (
	"context"
	"fmt"
	"sync"

	"Bside/logger"
)

// Outcome 一次流水线运行的聚合结果
type Outcome string

const (
	OutcomeSuccess Outcome = "success" // 全部创建成功
	OutcomePartial Outcome = "partial" // 部分成功部分失败
	OutcomeFailure Outcome = "failure" // 没有任何曲目创建成功
)

// RunReport 运行结束后交给调用方的汇总报告
// 它是活动集终态的纯派生结果，从不落库。
type RunReport struct {
	Outcome      Outcome `json:"outcome"`
	Message      string  `json:"message"`
	CreatedCount int     `json:"createdCount"`
	FailedCount  int     `json:"failedCount"`
}

// Run 驱动一次完整的流水线运行：
//
//	1. 批量申请上传凭证（整体失败则中止，活动集回到 ready）
//	2. 并发直传文件字节（全部失败则中止，不进入提交）
//	3. 批量提交成功子集（按 index 对账逐条结果）
//	4. 结束运行并汇总
//
// 流水线没有中途取消：每个阶段要么是一次批量往返，要么是
// 有界的并发扇出，重入完全由 processing 标志挡住。
// 阶段内的失败一律转成曲目的 failed 状态或批级报告，不向外抛。
func (p *Pipeline) Run(ctx context.Context, b *Batch) (*RunReport, error) {
	active, err := b.beginRun()
	if err != nil {
		return nil, err
	}
	defer b.endRun()

	logger.Info("开始批量摄取运行",
		logger.String("batchId", b.ID()),
		logger.Int("trackCount", len(active)))

	// ---- 阶段一：批量申请上传凭证 ----
	specs := make([]FileSpec, len(active))
	for i, t := range active {
		specs[i] = FileSpec{FileName: t.File.Name, MIMEType: t.File.MIMEType}
	}

	creds, err := p.Issuer.Issue(ctx, specs)
	if err != nil || len(creds) == 0 {
		if err == nil {
			err = fmt.Errorf("no upload credentials returned")
		}
		// 整体失败：活动集放回 ready，本次运行等价于未发生
		b.revertToReady(active)
		logger.Error("申请上传凭证失败，中止运行",
			logger.String("batchId", b.ID()),
			logger.ErrorField(err))
		return &RunReport{
			Outcome:     OutcomeFailure,
			Message:     fmt.Sprintf("Failed to get upload credentials: %v", err),
			FailedCount: 0,
		}, nil
	}

	// 凭证到手后活动集才进入 uploading
	b.advanceAll(active, StatusUploading)

	// ---- 阶段二：并发直传 ----
	// 每个文件独立成败，结果按下标对位回填，不依赖完成顺序
	uploadErrs := make([]error, len(active))
	var wg sync.WaitGroup
	for i, t := range active {
		if i >= len(creds) {
			uploadErrs[i] = fmt.Errorf("no upload credential returned for file")
			continue
		}
		wg.Add(1)
		go func(i int, t *UploadableTrack) {
			defer wg.Done()
			uploadErrs[i] = p.Uploader.Upload(ctx, creds[i], t.File)
		}(i, t)
	}
	wg.Wait()

	uploaded := make([]*UploadableTrack, 0, len(active))
	for i, t := range active {
		if uploadErrs[i] != nil {
			b.markFailed(t, uploadErrs[i].Error())
			continue
		}
		b.markUploaded(t, creds[i].Key, creds[i].CDNURL)
		uploaded = append(uploaded, t)
	}

	if len(uploaded) == 0 {
		logger.Error("全部文件上传失败，中止运行",
			logger.String("batchId", b.ID()),
			logger.Int("trackCount", len(active)))
		return &RunReport{
			Outcome:     OutcomeFailure,
			Message:     "All file uploads failed",
			FailedCount: len(active),
		}, nil
	}

	// ---- 阶段三：批量提交 ----
	b.advanceAll(uploaded, StatusCommitting)

	opts := b.Options()
	req := &CommitRequest{
		Items:                    make([]CommitItem, len(uploaded)),
		AutoMatchOrCreateRelease: opts.AutoMatchOrCreateRelease,
		PublishOnCreate:          opts.PublishOnCreate,
	}
	for i, t := range uploaded {
		req.Items[i] = CommitItem{
			Index:     i,
			Title:     t.Title,
			Album:     t.Album,
			Artist:    t.Artist,
			Duration:  t.DurationSeconds,
			Position:  t.Position,
			RemoteKey: t.RemoteKey,
			CDNURL:    t.CDNURL,
		}
	}

	var failureReason string
	resp, err := p.Committer.Commit(ctx, req)
	switch {
	case err != nil:
		failureReason = err.Error()
	case resp == nil:
		failureReason = "empty commit response"
	case !resp.Success && len(resp.Results) == 0:
		failureReason = resp.Error
		if failureReason == "" {
			failureReason = "commit rejected"
		}
	}

	if failureReason != "" {
		// 整体失败且没有逐条结果可对账，全部标记失败
		for _, t := range uploaded {
			b.markFailed(t, failureReason)
		}
		logger.Error("批量提交整体失败",
			logger.String("batchId", b.ID()),
			logger.String("reason", failureReason))
	} else {
		// 按 index 对账：响应可能乱序，绝不能按数组位置回填
		byIndex := make(map[int]CommitItemResult, len(resp.Results))
		for _, r := range resp.Results {
			byIndex[r.Index] = r
		}
		for i, t := range uploaded {
			res, ok := byIndex[i]
			switch {
			case !ok:
				b.markFailed(t, "no commit result returned for track")
			case res.Success:
				b.markCreated(t, res)
			default:
				reason := res.Error
				if reason == "" {
					reason = "commit failed"
				}
				b.markFailed(t, reason)
			}
		}
	}

	// ---- 阶段四：汇总 ----
	created, failed := 0, 0
	snap := b.Snapshot()
	activeIDs := make(map[string]bool, len(active))
	for _, t := range active {
		activeIDs[t.LocalID] = true
	}
	for _, t := range snap.Tracks {
		if !activeIDs[t.LocalID] {
			continue
		}
		switch t.Status {
		case StatusCreated:
			created++
		case StatusFailed:
			failed++
		}
	}

	report := &RunReport{CreatedCount: created, FailedCount: failed}
	switch {
	case failed == 0:
		report.Outcome = OutcomeSuccess
		report.Message = fmt.Sprintf("Successfully created %d track(s)", created)
	case created > 0:
		report.Outcome = OutcomePartial
		report.Message = fmt.Sprintf("Created %d track(s), %d failed", created, failed)
	default:
		report.Outcome = OutcomeFailure
		if failureReason != "" {
			report.Message = fmt.Sprintf("Failed to create tracks: %s", failureReason)
		} else {
			report.Message = fmt.Sprintf("Created 0 track(s), %d failed", failed)
		}
	}

	logger.Info("批量摄取运行结束",
		logger.String("batchId", b.ID()),
		logger.String("outcome", string(report.Outcome)),
		logger.Int("created", created),
		logger.Int("failed", failed))

	return report, nil
}
