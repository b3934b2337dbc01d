package server

import (
	"context"
	"fmt"
	"strings"

	"Bside/cache"
	"Bside/core/ingest"
	"Bside/logger"
	"Bside/model"
	"Bside/repository"
)

// trackCommitService 实现 ingest.Committer，把一批上传完成的
// 曲目落库为正式记录。逐条处理：单条失败（典型是重名）不影响
// 其余条目，结果按 Index 对账。
type trackCommitService struct {
	releaseRepo repository.ReleaseRepository
	trackRepo   repository.TrackRepository
}

// NewTrackCommitService 创建曲目落库服务
func NewTrackCommitService(releaseRepo repository.ReleaseRepository, trackRepo repository.TrackRepository) ingest.Committer {
	return &trackCommitService{
		releaseRepo: releaseRepo,
		trackRepo:   trackRepo,
	}
}

func releaseKey(artist, title string) string {
	return artist + "\x00" + title
}

// Commit 逐条创建曲目，必要时自动匹配或创建所属发行
func (s *trackCommitService) Commit(ctx context.Context, req *ingest.CommitRequest) (*ingest.CommitResponse, error) {
	if req == nil || len(req.Items) == 0 {
		return &ingest.CommitResponse{Success: false, Error: "no items to commit"}, nil
	}

	resp := &ingest.CommitResponse{
		Results: make([]ingest.CommitItemResult, 0, len(req.Items)),
	}

	// 同一批里多条曲目常属于同一发行，只解析一次
	resolved := make(map[string]*model.Release)
	created := make(map[string]bool)

	for _, item := range req.Items {
		result := ingest.CommitItemResult{
			Index: item.Index,
			Title: item.Title,
		}

		release, wasCreated, err := s.resolveRelease(ctx, req, item, resolved, created)
		if err != nil {
			result.Error = err.Error()
			resp.Results = append(resp.Results, result)
			resp.FailedCount++
			continue
		}

		track := &model.Track{
			ReleaseID: release.ID,
			Title:     item.Title,
			Artist:    item.Artist,
			Album:     release.Title,
			Position:  item.Position,
			Duration:  item.Duration,
			ObjectKey: item.RemoteKey,
			CDNURL:    item.CDNURL,
			State:     1,
		}

		trackID, err := s.trackRepo.CreateTrack(track)
		if err != nil {
			if strings.Contains(strings.ToLower(err.Error()), "duplicate entry") {
				result.Error = "Duplicate title"
			} else {
				result.Error = fmt.Sprintf("failed to create track: %v", err)
			}
			logger.Warn("曲目落库失败",
				logger.String("title", item.Title),
				logger.Int64("releaseId", release.ID),
				logger.ErrorField(err),
			)
			resp.Results = append(resp.Results, result)
			resp.FailedCount++
			continue
		}

		result.Success = true
		result.TrackID = trackID
		result.ReleaseID = release.ID
		result.ReleaseTitle = release.Title
		result.ReleaseCreated = wasCreated
		resp.Results = append(resp.Results, result)
		resp.SuccessCount++
	}

	resp.Success = resp.FailedCount == 0

	logger.Info("批量落库完成",
		logger.Int("success", resp.SuccessCount),
		logger.Int("failed", resp.FailedCount),
	)
	return resp, nil
}

// resolveRelease 确定条目所属的发行。没有专辑名的条目按单曲
// 处理，发行标题取曲目标题。
func (s *trackCommitService) resolveRelease(
	ctx context.Context,
	req *ingest.CommitRequest,
	item ingest.CommitItem,
	resolved map[string]*model.Release,
	created map[string]bool,
) (*model.Release, bool, error) {
	title := strings.TrimSpace(item.Album)
	if title == "" {
		title = strings.TrimSpace(item.Title)
	}
	if title == "" {
		return nil, false, fmt.Errorf("cannot determine release for untitled track")
	}
	artist := strings.TrimSpace(item.Artist)

	key := releaseKey(artist, title)
	if r, ok := resolved[key]; ok {
		return r, created[key], nil
	}

	release, err := s.releaseRepo.GetByArtistAndTitle(ctx, artist, title)
	if err != nil {
		return nil, false, fmt.Errorf("failed to look up release: %v", err)
	}

	if release == nil {
		if !req.AutoMatchOrCreateRelease {
			return nil, false, fmt.Errorf("no matching release for %q by %q", title, artist)
		}
		release = &model.Release{
			Title:     title,
			Artist:    artist,
			Published: req.PublishOnCreate,
		}
		if err := s.releaseRepo.Create(ctx, release); err != nil {
			return nil, false, fmt.Errorf("failed to create release: %v", err)
		}
		created[key] = true
		if release.Published {
			cache.InvalidateCatalog(ctx)
		}
		logger.Info("自动创建发行",
			logger.Int64("releaseId", release.ID),
			logger.String("artist", artist),
			logger.String("title", title),
		)
	}

	resolved[key] = release
	return release, created[key], nil
}
