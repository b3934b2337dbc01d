package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"Bside/logger"
	"Bside/model"

	"github.com/gorilla/mux"
)

// ListArtistsHandler 获取全部艺人
func (h *APIHandler) ListArtistsHandler(w http.ResponseWriter, r *http.Request) {
	artists, err := h.artistRepo.List(r.Context())
	if err != nil {
		logger.Error("Failed to list artists", logger.ErrorField(err))
		http.Error(w, "Failed to list artists", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, artists)
}

// CreateArtistHandler 创建新艺人
func (h *APIHandler) CreateArtistHandler(w http.ResponseWriter, r *http.Request) {
	var artist model.Artist
	if err := json.NewDecoder(r.Body).Decode(&artist); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if strings.TrimSpace(artist.Name) == "" {
		http.Error(w, "Artist name is required", http.StatusBadRequest)
		return
	}

	if err := h.artistRepo.Create(r.Context(), &artist); err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "duplicate entry") {
			http.Error(w, "Artist already exists", http.StatusConflict)
			return
		}
		logger.Error("Failed to create artist",
			logger.String("name", artist.Name),
			logger.ErrorField(err),
		)
		http.Error(w, "Failed to create artist", http.StatusInternalServerError)
		return
	}

	logger.Info("Artist created",
		logger.Int64("artistId", artist.ID),
		logger.String("name", artist.Name),
	)
	writeJSON(w, http.StatusCreated, artist)
}

// GetArtistHandler 获取单个艺人
func (h *APIHandler) GetArtistHandler(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	artistID, err := strconv.ParseInt(vars["id"], 10, 64)
	if err != nil {
		http.Error(w, "Invalid artist ID", http.StatusBadRequest)
		return
	}

	artist, err := h.artistRepo.GetByID(r.Context(), artistID)
	if err != nil {
		logger.Error("Failed to get artist", logger.Int64("artistId", artistID), logger.ErrorField(err))
		http.Error(w, "Failed to get artist", http.StatusInternalServerError)
		return
	}
	if artist == nil {
		http.Error(w, "Artist not found", http.StatusNotFound)
		return
	}

	writeJSON(w, http.StatusOK, artist)
}

// UpdateArtistHandler 更新艺人信息
func (h *APIHandler) UpdateArtistHandler(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	artistID, err := strconv.ParseInt(vars["id"], 10, 64)
	if err != nil {
		http.Error(w, "Invalid artist ID", http.StatusBadRequest)
		return
	}

	var artist model.Artist
	if err := json.NewDecoder(r.Body).Decode(&artist); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	artist.ID = artistID

	existing, err := h.artistRepo.GetByID(r.Context(), artistID)
	if err != nil {
		http.Error(w, "Failed to get artist", http.StatusInternalServerError)
		return
	}
	if existing == nil {
		http.Error(w, "Artist not found", http.StatusNotFound)
		return
	}

	if err := h.artistRepo.Update(r.Context(), &artist); err != nil {
		logger.Error("Failed to update artist", logger.Int64("artistId", artistID), logger.ErrorField(err))
		http.Error(w, "Failed to update artist", http.StatusInternalServerError)
		return
	}

	logger.Info("Artist updated", logger.Int64("artistId", artistID))
	writeJSON(w, http.StatusOK, artist)
}

// DeleteArtistHandler 删除艺人
func (h *APIHandler) DeleteArtistHandler(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	artistID, err := strconv.ParseInt(vars["id"], 10, 64)
	if err != nil {
		http.Error(w, "Invalid artist ID", http.StatusBadRequest)
		return
	}

	if err := h.artistRepo.Delete(r.Context(), artistID); err != nil {
		logger.Error("Failed to delete artist", logger.Int64("artistId", artistID), logger.ErrorField(err))
		http.Error(w, "Failed to delete artist", http.StatusInternalServerError)
		return
	}

	logger.Info("Artist deleted", logger.Int64("artistId", artistID))
	w.WriteHeader(http.StatusNoContent)
}
