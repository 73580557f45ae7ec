// Package stdio implements the line-delimited stdio transport for mcp-websearch.
package stdio

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"io"
	"os"

	"github.com/rs/zerolog"

	"github.com/brbranch/websearch_mcp/internal/log"
)

// MaxBufferSize はScannerの最大バッファサイズ（1MB）
const MaxBufferSize = 1024 * 1024

// Handler はJSON-RPCリクエストを処理するインターフェース
// 応答不要（通知）の場合はnilを返す
type Handler interface {
	Handle(ctx context.Context, requestBytes []byte) []byte
}

// Server はstdio JSON-RPCサーバー
type Server struct {
	handler Handler
	reader  io.Reader
	writer  io.Writer
	logger  zerolog.Logger
}

// Option はサーバーオプション
type Option func(*Server)

// WithReader はreaderを設定（テスト用）
func WithReader(r io.Reader) Option {
	return func(s *Server) {
		s.reader = r
	}
}

// WithWriter はwriterを設定（テスト用）
func WithWriter(w io.Writer) Option {
	return func(s *Server) {
		s.writer = w
	}
}

// New は新しいServerを生成
func New(handler Handler, opts ...Option) *Server {
	s := &Server{
		handler: handler,
		reader:  os.Stdin,
		writer:  os.Stdout,
		logger:  log.WithComponent("stdio"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type scanResult struct {
	line []byte
	err  error
}

// Run はEOFまたはcontextキャンセルまでリクエストを1行ずつ処理する
// EOFとキャンセル（シグナルによる停止）は正常終了（nil）、期限切れはctx.Err()を返す
func (s *Server) Run(ctx context.Context) error {
	lines := make(chan scanResult)
	go s.scan(ctx, lines)

	s.logger.Info().Msg("stdio transport started")
	for {
		var res scanResult
		var ok bool
		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.Canceled) {
				s.logger.Info().Msg("stdio transport stopped")
				return nil
			}
			return ctx.Err()
		case res, ok = <-lines:
		}
		if !ok {
			s.logger.Info().Msg("stdin closed")
			return nil
		}
		if res.err != nil {
			return res.err
		}

		response := s.handler.Handle(ctx, res.line)
		if response == nil {
			continue
		}
		if _, err := s.writer.Write(append(response, '\n')); err != nil {
			return err
		}
	}
}

// scan は空行を除いた各行をlinesへ送る
// Scannerのバッファは次のScanで上書きされるため行はコピーして渡す
func (s *Server) scan(ctx context.Context, lines chan<- scanResult) {
	defer close(lines)

	scanner := bufio.NewScanner(s.reader)
	scanner.Buffer(make([]byte, 64*1024), MaxBufferSize)

	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		select {
		case lines <- scanResult{line: bytes.Clone(line)}:
		case <-ctx.Done():
			return
		}
	}
	if err := scanner.Err(); err != nil {
		select {
		case lines <- scanResult{err: err}:
		case <-ctx.Done():
		}
	}
}
