package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"Bside/core/ingest"
	"Bside/logger"

	"github.com/gorilla/mux"
)

// 摄取会话接口。一个会话对应一个内存批次：先交文件、
// 改元数据，最后一次 run 走完整条流水线。

// CreateIngestSessionHandler 创建摄取会话
func (h *APIHandler) CreateIngestSessionHandler(w http.ResponseWriter, r *http.Request) {
	var opts ingest.Options
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&opts); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}
	}

	batch := h.batches.Create(opts)

	logger.Info("创建摄取会话", logger.String("batchId", batch.ID()))
	writeJSON(w, http.StatusCreated, batch.Snapshot())
}

// GetIngestSessionHandler 获取会话当前状态快照
func (h *APIHandler) GetIngestSessionHandler(w http.ResponseWriter, r *http.Request) {
	batch := h.lookupBatch(w, r)
	if batch == nil {
		return
	}

	writeJSON(w, http.StatusOK, batch.Snapshot())
}

// DeleteIngestSessionHandler 丢弃整个会话
func (h *APIHandler) DeleteIngestSessionHandler(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	h.batches.Remove(vars["id"])
	w.WriteHeader(http.StatusNoContent)
}

// AddIngestFilesHandler 向会话追加文件
// multipart 表单的 files 字段，可多个。不支持的类型跳过不报错，
// 只有全部被跳过才算失败。文件内容读进内存，提取和直传阶段
// 各自需要重新打开一次。
func (h *APIHandler) AddIngestFilesHandler(w http.ResponseWriter, r *http.Request) {
	batch := h.lookupBatch(w, r)
	if batch == nil {
		return
	}

	maxBytes := h.cfg.MaxIngestFileMB << 20
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		http.Error(w, fmt.Sprintf("Failed to parse multipart form: %v", err), http.StatusBadRequest)
		return
	}

	if r.MultipartForm == nil || len(r.MultipartForm.File["files"]) == 0 {
		http.Error(w, "Missing 'files' in form", http.StatusBadRequest)
		return
	}

	var refs []ingest.FileRef
	for _, header := range r.MultipartForm.File["files"] {
		if header.Size > maxBytes {
			http.Error(w, fmt.Sprintf("File %s exceeds the %dMB limit", header.Filename, h.cfg.MaxIngestFileMB), http.StatusRequestEntityTooLarge)
			return
		}

		f, err := header.Open()
		if err != nil {
			http.Error(w, fmt.Sprintf("Failed to read file %s: %v", header.Filename, err), http.StatusBadRequest)
			return
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			http.Error(w, fmt.Sprintf("Failed to read file %s: %v", header.Filename, err), http.StatusBadRequest)
			return
		}

		refs = append(refs, ingest.FileRef{
			Name:     header.Filename,
			Size:     header.Size,
			MIMEType: header.Header.Get("Content-Type"),
			Open: func() (io.ReadCloser, error) {
				return io.NopCloser(bytes.NewReader(data)), nil
			},
		})
	}

	added, skipped, err := batch.AddFiles(refs)
	if err != nil {
		if errors.Is(err, ingest.ErrNoSupportedFiles) {
			http.Error(w, "No supported audio files in upload", http.StatusBadRequest)
			return
		}
		http.Error(w, fmt.Sprintf("Failed to add files: %v", err), http.StatusInternalServerError)
		return
	}

	// 元数据提取在后台跑，前端靠快照或WebSocket看进度
	// 不能挂在请求上下文上，响应返回后提取还在继续
	go h.pipeline.ExtractAll(context.Background(), batch)

	logger.Info("会话新增文件",
		logger.String("batchId", batch.ID()),
		logger.Int("added", len(added)),
		logger.Int("skipped", skipped),
	)

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"added":   added,
		"skipped": skipped,
	})
}

// EditIngestTrackHandler 修改会话内单条曲目的元数据
func (h *APIHandler) EditIngestTrackHandler(w http.ResponseWriter, r *http.Request) {
	batch := h.lookupBatch(w, r)
	if batch == nil {
		return
	}

	var req ingest.EditRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	vars := mux.Vars(r)
	if err := batch.Edit(vars["localId"], req); err != nil {
		writeBatchError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, batch.Snapshot())
}

// RemoveIngestTrackHandler 从会话移除单条曲目
func (h *APIHandler) RemoveIngestTrackHandler(w http.ResponseWriter, r *http.Request) {
	batch := h.lookupBatch(w, r)
	if batch == nil {
		return
	}

	vars := mux.Vars(r)
	if err := batch.Remove(vars["localId"]); err != nil {
		writeBatchError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, batch.Snapshot())
}

// ClearIngestTracksHandler 清空会话内全部曲目
func (h *APIHandler) ClearIngestTracksHandler(w http.ResponseWriter, r *http.Request) {
	batch := h.lookupBatch(w, r)
	if batch == nil {
		return
	}

	if err := batch.Clear(); err != nil {
		writeBatchError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, batch.Snapshot())
}

// RunIngestSessionHandler 对会话发起一次完整的流水线运行
// 同步等待运行结束，返回运行报告和最终快照。
func (h *APIHandler) RunIngestSessionHandler(w http.ResponseWriter, r *http.Request) {
	batch := h.lookupBatch(w, r)
	if batch == nil {
		return
	}

	report, err := h.pipeline.Run(r.Context(), batch)
	if err != nil {
		writeBatchError(w, err)
		return
	}

	logger.Info("摄取运行结束",
		logger.String("batchId", batch.ID()),
		logger.String("outcome", string(report.Outcome)),
		logger.Int("created", report.CreatedCount),
		logger.Int("failed", report.FailedCount),
	)

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"report":   report,
		"snapshot": batch.Snapshot(),
	})
}

// PresignUploadsHandler 为外部客户端批量签发预签名上传凭证
func (h *APIHandler) PresignUploadsHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Files []ingest.FileSpec `json:"files"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if len(req.Files) == 0 {
		http.Error(w, "No files to presign", http.StatusBadRequest)
		return
	}

	creds, err := h.pipeline.Issuer.Issue(r.Context(), req.Files)
	if err != nil {
		logger.Error("签发上传凭证失败", logger.ErrorField(err))
		http.Error(w, "Failed to issue upload credentials", http.StatusBadGateway)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"credentials": creds})
}

func (h *APIHandler) lookupBatch(w http.ResponseWriter, r *http.Request) *ingest.Batch {
	vars := mux.Vars(r)
	batch := h.batches.Get(vars["id"])
	if batch == nil {
		http.Error(w, "Ingest session not found", http.StatusNotFound)
		return nil
	}
	return batch
}

func writeBatchError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ingest.ErrTrackNotFound):
		http.Error(w, "Track not found in session", http.StatusNotFound)
	case errors.Is(err, ingest.ErrTrackNotEditable):
		http.Error(w, "Track cannot be modified in its current state", http.StatusConflict)
	case errors.Is(err, ingest.ErrRunInProgress):
		http.Error(w, "A run is already in progress for this session", http.StatusConflict)
	case errors.Is(err, ingest.ErrExtracting):
		http.Error(w, "Metadata extraction is still in progress", http.StatusConflict)
	case errors.Is(err, ingest.ErrNoReadyTracks):
		http.Error(w, "No tracks ready for upload", http.StatusBadRequest)
	default:
		http.Error(w, fmt.Sprintf("Ingest operation failed: %v", err), http.StatusInternalServerError)
	}
}
