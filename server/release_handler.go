package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"Bside/cache"
	"Bside/logger"
	"Bside/model"

	"github.com/gorilla/mux"
)

// ListReleasesHandler 获取全部发行（后台视角，含未发布）
func (h *APIHandler) ListReleasesHandler(w http.ResponseWriter, r *http.Request) {
	releases, err := h.releaseRepo.List(r.Context(), false)
	if err != nil {
		logger.Error("Failed to list releases", logger.ErrorField(err))
		http.Error(w, "Failed to list releases", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, releases)
}

// CatalogHandler 公开的发行目录，只含已发布的发行
// 读路径走Redis缓存，未命中回源数据库并重建缓存。
func (h *APIHandler) CatalogHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	releases, hit, err := cache.GetCatalog(ctx)
	if err != nil {
		// 缓存故障降级为直接读库
		logger.Warn("目录缓存读取失败，回源数据库", logger.ErrorField(err))
	}
	if !hit {
		releases, err = h.releaseRepo.List(ctx, true)
		if err != nil {
			logger.Error("Failed to load catalog", logger.ErrorField(err))
			http.Error(w, "Failed to load catalog", http.StatusInternalServerError)
			return
		}
		if cerr := cache.SetCatalog(ctx, releases); cerr != nil {
			logger.Warn("目录缓存写入失败", logger.ErrorField(cerr))
		}
	}

	writeJSON(w, http.StatusOK, releases)
}

// CreateReleaseHandler 创建新发行
func (h *APIHandler) CreateReleaseHandler(w http.ResponseWriter, r *http.Request) {
	var release model.Release
	if err := json.NewDecoder(r.Body).Decode(&release); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if strings.TrimSpace(release.Title) == "" || strings.TrimSpace(release.Artist) == "" {
		http.Error(w, "Release title and artist are required", http.StatusBadRequest)
		return
	}

	if err := h.releaseRepo.Create(r.Context(), &release); err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "duplicate entry") {
			http.Error(w, "Release already exists for this artist", http.StatusConflict)
			return
		}
		logger.Error("Failed to create release",
			logger.String("artist", release.Artist),
			logger.String("title", release.Title),
			logger.ErrorField(err),
		)
		http.Error(w, "Failed to create release", http.StatusInternalServerError)
		return
	}

	if release.Published {
		cache.InvalidateCatalog(r.Context())
	}

	logger.Info("Release created",
		logger.Int64("releaseId", release.ID),
		logger.String("artist", release.Artist),
		logger.String("title", release.Title),
	)
	writeJSON(w, http.StatusCreated, release)
}

// GetReleaseHandler 获取单个发行及其曲目
func (h *APIHandler) GetReleaseHandler(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	releaseID, err := strconv.ParseInt(vars["id"], 10, 64)
	if err != nil {
		http.Error(w, "Invalid release ID", http.StatusBadRequest)
		return
	}

	release, err := h.releaseRepo.GetByID(r.Context(), releaseID)
	if err != nil {
		logger.Error("Failed to get release", logger.Int64("releaseId", releaseID), logger.ErrorField(err))
		http.Error(w, "Failed to get release", http.StatusInternalServerError)
		return
	}
	if release == nil {
		http.Error(w, "Release not found", http.StatusNotFound)
		return
	}

	tracks, err := h.trackRepo.GetTracksByReleaseID(releaseID)
	if err != nil {
		logger.Error("Failed to get release tracks", logger.Int64("releaseId", releaseID), logger.ErrorField(err))
		http.Error(w, "Failed to get release tracks", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, model.ReleaseWithTracks{
		Release: *release,
		Tracks:  tracks,
	})
}

// UpdateReleaseHandler 更新发行信息
func (h *APIHandler) UpdateReleaseHandler(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	releaseID, err := strconv.ParseInt(vars["id"], 10, 64)
	if err != nil {
		http.Error(w, "Invalid release ID", http.StatusBadRequest)
		return
	}

	var release model.Release
	if err := json.NewDecoder(r.Body).Decode(&release); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	release.ID = releaseID

	existing, err := h.releaseRepo.GetByID(r.Context(), releaseID)
	if err != nil {
		http.Error(w, "Failed to get release", http.StatusInternalServerError)
		return
	}
	if existing == nil {
		http.Error(w, "Release not found", http.StatusNotFound)
		return
	}

	if err := h.releaseRepo.Update(r.Context(), &release); err != nil {
		logger.Error("Failed to update release", logger.Int64("releaseId", releaseID), logger.ErrorField(err))
		http.Error(w, "Failed to update release", http.StatusInternalServerError)
		return
	}

	cache.InvalidateCatalog(r.Context())

	logger.Info("Release updated", logger.Int64("releaseId", releaseID))
	writeJSON(w, http.StatusOK, release)
}

// SetReleasePublishedHandler 发布或下架发行
func (h *APIHandler) SetReleasePublishedHandler(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	releaseID, err := strconv.ParseInt(vars["id"], 10, 64)
	if err != nil {
		http.Error(w, "Invalid release ID", http.StatusBadRequest)
		return
	}

	var req struct {
		Published bool `json:"published"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	release, err := h.releaseRepo.GetByID(r.Context(), releaseID)
	if err != nil {
		http.Error(w, "Failed to get release", http.StatusInternalServerError)
		return
	}
	if release == nil {
		http.Error(w, "Release not found", http.StatusNotFound)
		return
	}

	if err := h.releaseRepo.SetPublished(r.Context(), releaseID, req.Published); err != nil {
		logger.Error("Failed to change publish state",
			logger.Int64("releaseId", releaseID),
			logger.Bool("published", req.Published),
			logger.ErrorField(err),
		)
		http.Error(w, "Failed to change publish state", http.StatusInternalServerError)
		return
	}

	cache.InvalidateCatalog(r.Context())

	release.Published = req.Published
	if req.Published {
		now := time.Now()
		release.PublishedAt = &now
	} else {
		release.PublishedAt = nil
	}

	logger.Info("Release publish state changed",
		logger.Int64("releaseId", releaseID),
		logger.Bool("published", req.Published),
	)
	writeJSON(w, http.StatusOK, release)
}

// DeleteReleaseHandler 删除发行
func (h *APIHandler) DeleteReleaseHandler(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	releaseID, err := strconv.ParseInt(vars["id"], 10, 64)
	if err != nil {
		http.Error(w, "Invalid release ID", http.StatusBadRequest)
		return
	}

	if err := h.releaseRepo.Delete(r.Context(), releaseID); err != nil {
		logger.Error("Failed to delete release", logger.Int64("releaseId", releaseID), logger.ErrorField(err))
		http.Error(w, "Failed to delete release", http.StatusInternalServerError)
		return
	}

	cache.InvalidateCatalog(r.Context())

	logger.Info("Release deleted", logger.Int64("releaseId", releaseID))
	w.WriteHeader(http.StatusNoContent)
}
