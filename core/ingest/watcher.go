package ingest

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"Bside/logger"

	"github.com/fsnotify/fsnotify"
)

// 扩展名到MIME类型的映射，目录摄取时没有浏览器替我们填
var extMIMETypes = map[string]string{
	".mp3":  "audio/mpeg",
	".wav":  "audio/wav",
	".flac": "audio/flac",
	".aac":  "audio/aac",
	".ogg":  "audio/ogg",
	".m4a":  "audio/mp4",
}

// FileRefFromPath 把本地文件包装为 FileRef
func FileRefFromPath(path string) (FileRef, error) {
	info, err := os.Stat(path)
	if err != nil {
		return FileRef{}, fmt.Errorf("failed to stat %s: %w", path, err)
	}
	return FileRef{
		Name:     filepath.Base(path),
		Size:     info.Size(),
		MIMEType: extMIMETypes[strings.ToLower(filepath.Ext(path))],
		Open: func() (io.ReadCloser, error) {
			return os.Open(path)
		},
	}, nil
}

// WatchDir 监听投递目录，把落盘稳定的音频文件攒成批次走流水线
// 架构：fsnotify 监听 → 静默窗口攒批 → ExtractAll → Run
// 阻塞直到 ctx 结束。
func (p *Pipeline) WatchDir(ctx context.Context, dir string, opts Options, settle time.Duration) error {
	if settle <= 0 {
		settle = 5 * time.Second
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	logger.Info("开始监听投递目录",
		logger.String("dir", dir),
		logger.Duration("settle", settle))

	// 文件最后一次写入事件的时间，静默窗口过后才认为落盘完成
	pending := make(map[string]time.Time)
	processed := make(map[string]bool)

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			name := filepath.Base(event.Name)
			if processed[name] || !SupportedFile(name, "") {
				continue
			}
			pending[event.Name] = time.Now()

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("目录监听错误", logger.ErrorField(err))

		case <-ticker.C:
			var settled []string
			cutoff := time.Now().Add(-settle)
			for path, last := range pending {
				if last.Before(cutoff) {
					settled = append(settled, path)
				}
			}
			if len(settled) == 0 {
				continue
			}

			files := make([]FileRef, 0, len(settled))
			for _, path := range settled {
				delete(pending, path)
				processed[filepath.Base(path)] = true

				ref, err := FileRefFromPath(path)
				if err != nil {
					logger.Warn("读取投递文件失败，跳过",
						logger.String("path", path),
						logger.ErrorField(err))
					continue
				}
				files = append(files, ref)
			}
			if len(files) == 0 {
				continue
			}

			p.runDropBatch(ctx, files, opts)
		}
	}
}

// runDropBatch 把一组落盘文件作为独立批次跑完整流水线
func (p *Pipeline) runDropBatch(ctx context.Context, files []FileRef, opts Options) {
	b := NewBatch(opts)
	added, rejected, err := b.AddFiles(files)
	if err != nil {
		logger.Warn("投递批次没有可用文件",
			logger.Int("rejected", rejected),
			logger.ErrorField(err))
		return
	}

	logger.Info("投递批次开始处理",
		logger.String("batchId", b.ID()),
		logger.Int("accepted", len(added)),
		logger.Int("rejected", rejected))

	p.ExtractAll(ctx, b)

	report, err := p.Run(ctx, b)
	if err != nil {
		logger.Error("投递批次运行失败",
			logger.String("batchId", b.ID()),
			logger.ErrorField(err))
		return
	}

	logger.Info("投递批次处理完成",
		logger.String("batchId", b.ID()),
		logger.String("outcome", string(report.Outcome)),
		logger.String("message", report.Message))
}
