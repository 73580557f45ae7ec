// Package upstream holds the error types and HTTP helpers shared by the
// clients that talk to DuckDuckGo, crawled pages and Ollama.
package upstream

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// エラー定義
var (
	ErrAPIRequestFailed = errors.New("upstream request failed")
	ErrInvalidResponse  = errors.New("invalid upstream response")
)

// maxErrorBody はエラーメッセージに含めるレスポンスボディの上限
const maxErrorBody = 512

// APIError は詳細なHTTPエラー情報を保持
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error (status %d): %s", e.StatusCode, e.Message)
}

func (e *APIError) Is(target error) bool {
	return target == ErrAPIRequestFailed
}

// CheckStatus は2xx以外のレスポンスを*APIErrorに変換する
// ボディは先頭maxErrorBodyバイトのみ読む
func CheckStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	msg := strings.TrimSpace(string(body))
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}
	return &APIError{StatusCode: resp.StatusCode, Message: msg}
}

// NewHTTPClient はタイムアウト付きのHTTPクライアントを作成
func NewHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{Timeout: timeout}
}
