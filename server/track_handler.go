package server

import (
	"encoding/json"
	"net/http"
	"strconv"

	"Bside/core/ingest"
	"Bside/logger"

	"github.com/gorilla/mux"
)

// GetReleaseTracksHandler 获取某个发行下的所有曲目
func (h *APIHandler) GetReleaseTracksHandler(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	releaseID, err := strconv.ParseInt(vars["id"], 10, 64)
	if err != nil {
		http.Error(w, "Invalid release ID", http.StatusBadRequest)
		return
	}

	tracks, err := h.trackRepo.GetTracksByReleaseID(releaseID)
	if err != nil {
		logger.Error("Failed to get tracks", logger.Int64("releaseId", releaseID), logger.ErrorField(err))
		http.Error(w, "Failed to get tracks", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, tracks)
}

// GetTrackHandler 获取单条曲目
func (h *APIHandler) GetTrackHandler(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	trackID, err := strconv.ParseInt(vars["id"], 10, 64)
	if err != nil {
		http.Error(w, "Invalid track ID", http.StatusBadRequest)
		return
	}

	track, err := h.trackRepo.GetTrackByID(trackID)
	if err != nil {
		logger.Error("Failed to get track", logger.Int64("trackId", trackID), logger.ErrorField(err))
		http.Error(w, "Failed to get track", http.StatusInternalServerError)
		return
	}
	if track == nil {
		http.Error(w, "Track not found", http.StatusNotFound)
		return
	}

	writeJSON(w, http.StatusOK, track)
}

// DeleteTrackHandler 软删除曲目，只改状态不动对象存储
func (h *APIHandler) DeleteTrackHandler(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	trackID, err := strconv.ParseInt(vars["id"], 10, 64)
	if err != nil {
		http.Error(w, "Invalid track ID", http.StatusBadRequest)
		return
	}

	track, err := h.trackRepo.GetTrackByID(trackID)
	if err != nil {
		http.Error(w, "Failed to get track", http.StatusInternalServerError)
		return
	}
	if track == nil {
		http.Error(w, "Track not found", http.StatusNotFound)
		return
	}

	if err := h.trackRepo.UpdateTrackState(trackID, 0); err != nil {
		logger.Error("Failed to delete track", logger.Int64("trackId", trackID), logger.ErrorField(err))
		http.Error(w, "Failed to delete track", http.StatusInternalServerError)
		return
	}

	logger.Info("Track deleted", logger.Int64("trackId", trackID))
	w.WriteHeader(http.StatusNoContent)
}

// BatchCreateTracksHandler 批量落库接口
// 请求体是一组已上传完成的曲目，响应逐条给出结果，
// 调用方按 index 字段对账，不能依赖数组顺序。
func (h *APIHandler) BatchCreateTracksHandler(w http.ResponseWriter, r *http.Request) {
	var req ingest.CommitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if len(req.Items) == 0 {
		http.Error(w, "No items to commit", http.StatusBadRequest)
		return
	}

	resp, err := h.pipeline.Committer.Commit(r.Context(), &req)
	if err != nil {
		logger.Error("批量落库异常", logger.ErrorField(err))
		http.Error(w, "Failed to create tracks", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}
