package server

import (
	"net/http"
	"time"

	"Bside/logger"

	"github.com/gorilla/websocket"
)

var wsUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// IngestProgressWSHandler 会话进度的WebSocket推送
// 连接后先推一次当前快照，之后批次每次状态变化都推全量快照。
// 客户端不上行数据，读循环只用来感知断开。
func (h *APIHandler) IngestProgressWSHandler(w http.ResponseWriter, r *http.Request) {
	batch := h.lookupBatch(w, r)
	if batch == nil {
		return
	}

	conn, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Error("websocket upgrade failed", logger.ErrorField(err))
		return
	}
	defer conn.Close()

	sub := batch.Subscribe()
	defer batch.Unsubscribe(sub)

	logger.Debug("进度订阅建立", logger.String("batchId", batch.ID()))

	// 读循环只负责发现对端关闭
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	if err := conn.WriteJSON(batch.Snapshot()); err != nil {
		return
	}

	// 定期ping，跨代理的空闲连接才不会被掐
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case snap, ok := <-sub:
			if !ok {
				return
			}
			conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := conn.WriteJSON(snap); err != nil {
				logger.Debug("进度推送失败，关闭连接",
					logger.String("batchId", batch.ID()),
					logger.ErrorField(err),
				)
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}
