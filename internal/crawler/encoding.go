package crawler

import (
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

// acceptEncoding は送信するAccept-Encoding
// 明示するとnet/httpの透過gzip展開は無効になるため、展開はdecodeBodyで行う
const acceptEncoding = "br, zstd, gzip"

// decodeBody はContent-Encodingに応じて本文を展開するReaderを返す
// 戻り値のcloseは展開器を解放する（resp.Body自体は閉じない）
func decodeBody(resp *http.Response) (io.Reader, func(), error) {
	noop := func() {}
	encoding := strings.ToLower(strings.TrimSpace(resp.Header.Get("Content-Encoding")))

	switch encoding {
	case "", "identity":
		return resp.Body, noop, nil
	case "br":
		return brotli.NewReader(resp.Body), noop, nil
	case "gzip", "x-gzip":
		zr, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, noop, fmt.Errorf("failed to read gzip body: %w", err)
		}
		return zr, func() { _ = zr.Close() }, nil
	case "zstd":
		zr, err := zstd.NewReader(resp.Body, zstd.WithDecoderConcurrency(1))
		if err != nil {
			return nil, noop, fmt.Errorf("failed to read zstd body: %w", err)
		}
		return zr, zr.Close, nil
	default:
		return nil, noop, fmt.Errorf("%w: content-encoding %s", ErrUnsupportedContent, encoding)
	}
}
