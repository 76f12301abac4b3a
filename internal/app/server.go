package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"paper-trader/internal/monitor"
	"paper-trader/internal/paper"
)

// startControlServer 暴露只读渲染快照与用户操作接口。
// 这是核心与渲染层之间唯一的边界：核心只产出数据，不做任何渲染。
func startControlServer(ctx context.Context, engine *Engine, svc *monitor.Service, port int, logger *zap.Logger) error {
	mux := http.NewServeMux()

	mux.HandleFunc("/state", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, engine.Snapshot(), logger)
	})

	mux.HandleFunc("/events", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		limit := 200
		if qs := q.Get("limit"); qs != "" {
			if v, err := strconv.Atoi(qs); err == nil && v > 0 {
				if v > 1000 {
					v = 1000
				}
				limit = v
			}
		}

		eventType := monitor.EventType("")
		if typ := strings.TrimSpace(q.Get("type")); typ != "" {
			eventType = monitor.EventType(strings.ToLower(typ))
		}

		events, err := svc.ListEvents(r.Context(), eventType, limit)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, events, logger)
	})

	mux.HandleFunc("/bot/start", func(w http.ResponseWriter, r *http.Request) {
		if !requirePost(w, r) {
			return
		}
		if err := engine.StartBot(r.Context()); err != nil {
			http.Error(w, err.Error(), http.StatusConflict)
			return
		}
		writeJSON(w, engine.Snapshot(), logger)
	})

	mux.HandleFunc("/bot/stop", func(w http.ResponseWriter, r *http.Request) {
		if !requirePost(w, r) {
			return
		}
		if err := engine.StopBot(r.Context()); err != nil {
			http.Error(w, err.Error(), http.StatusConflict)
			return
		}
		writeJSON(w, engine.Snapshot(), logger)
	})

	mux.HandleFunc("/positions/open", func(w http.ResponseWriter, r *http.Request) {
		if !requirePost(w, r) {
			return
		}
		symbol := strings.TrimSpace(r.URL.Query().Get("symbol"))
		if symbol == "" {
			http.Error(w, "缺少 symbol 参数", http.StatusBadRequest)
			return
		}
		pos, err := engine.ManualOpen(r.Context(), symbol)
		if err != nil {
			http.Error(w, err.Error(), rejectionStatus(err))
			return
		}
		writeJSON(w, pos, logger)
	})

	mux.HandleFunc("/positions/close", func(w http.ResponseWriter, r *http.Request) {
		if !requirePost(w, r) {
			return
		}
		id := strings.TrimSpace(r.URL.Query().Get("id"))
		if id == "" {
			http.Error(w, "缺少 id 参数", http.StatusBadRequest)
			return
		}
		trade, err := engine.ManualClose(r.Context(), id)
		if err != nil {
			http.Error(w, err.Error(), rejectionStatus(err))
			return
		}
		writeJSON(w, trade, logger)
	})

	mux.HandleFunc("/reset", func(w http.ResponseWriter, r *http.Request) {
		if !requirePost(w, r) {
			return
		}
		engine.Reset(r.Context())
		writeJSON(w, engine.Snapshot(), logger)
	})

	addr := fmt.Sprintf(":%d", port)
	srv := &http.Server{Addr: addr, Handler: mux}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil && err != http.ErrServerClosed {
			logger.Warn("关闭控制接口失败", zap.Error(err))
		}
	}()

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("控制接口异常", zap.Error(err))
		}
	}()

	logger.Info("控制接口已启动", zap.String("addr", addr))
	return nil
}

func requirePost(w http.ResponseWriter, r *http.Request) bool {
	if r.Method != http.MethodPost {
		http.Error(w, "仅支持 POST", http.StatusMethodNotAllowed)
		return false
	}
	return true
}

func rejectionStatus(err error) int {
	switch {
	case errors.Is(err, paper.ErrPositionNotFound):
		return http.StatusNotFound
	case errors.Is(err, paper.ErrInsufficientBalance),
		errors.Is(err, paper.ErrPositionExists),
		errors.Is(err, paper.ErrMaxPositions),
		errors.Is(err, paper.ErrInvalidPrice),
		errors.Is(err, ErrManualOnly),
		errors.Is(err, ErrAutoOnly),
		errors.Is(err, ErrNoQuote):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, payload interface{}, logger *zap.Logger) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.Warn("写入响应失败", zap.Error(err))
	}
}
