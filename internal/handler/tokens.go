package handler

import (
	"encoding/json"
	"fmt"
	"net/http"

	"pump-sentinel-sol/internal/sentinel"
)

// ListTrackedTokens 返回当前跟踪中的代币列表
func ListTrackedTokens(app *sentinel.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// 使用 defer 和 recover 捕获 panic 错误
		defer func() {
			if r := recover(); r != nil {
				http.Error(w, fmt.Sprintf("Internal server error: %v", r), http.StatusInternalServerError)
			}
		}()

		tokens := app.TrackedTokens()

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		response := map[string]interface{}{
			"count":  len(tokens),
			"tokens": tokens,
		}
		_ = json.NewEncoder(w).Encode(response)
	}
}

// RuntimeStats 返回运行时概况（跟踪数、状态数、上游会话数）
func RuntimeStats(app *sentinel.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if r := recover(); r != nil {
				http.Error(w, fmt.Sprintf("Internal server error: %v", r), http.StatusInternalServerError)
			}
		}()

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(app.Stats())
	}
}
