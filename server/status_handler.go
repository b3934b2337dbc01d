package server

import (
	"net/http"

	"Bside/core/ingest"
	"Bside/db"
	"Bside/storage"
)

// StatusHandler 基础健康检查，逐个探测后端依赖
func (h *APIHandler) StatusHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	status := map[string]string{
		"database": "ok",
		"redis":    "ok",
		"storage":  "ok",
	}
	healthy := true

	if err := db.DB.PingContext(ctx); err != nil {
		status["database"] = err.Error()
		healthy = false
	}
	if err := db.PingRedis(ctx); err != nil {
		status["redis"] = err.Error()
		healthy = false
	}
	if err := storage.PingMinio(ctx, h.cfg.MinioBucket); err != nil {
		status["storage"] = err.Error()
		healthy = false
	}

	code := http.StatusOK
	if !healthy {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, map[string]interface{}{
		"healthy":  healthy,
		"services": status,
	})
}

// IngestStatusHandler 汇总所有在途摄取会话的进度
func (h *APIHandler) IngestStatusHandler(w http.ResponseWriter, r *http.Request) {
	snapshots := h.batches.Snapshots()

	var total ingest.Summary
	for _, s := range snapshots {
		total.PendingCount += s.Summary.PendingCount
		total.UploadingCount += s.Summary.UploadingCount
		total.CreatedCount += s.Summary.CreatedCount
		total.FailedCount += s.Summary.FailedCount
		total.Total += s.Summary.Total
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"sessions": snapshots,
		"summary":  total,
	})
}
