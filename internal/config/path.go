package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	// DefaultConfigDir はデフォルトの設定ディレクトリ名
	DefaultConfigDir = ".local-mcp-websearch"
	// DefaultConfigFile はデフォルトの設定ファイル名
	DefaultConfigFile = "config.json"
	// DefaultDataSubDir はデフォルトのデータサブディレクトリ名
	DefaultDataSubDir = "data"
)

// CanonicalizeScope はメモリのscopeを正規化する
// パスに見えるもの（"/", "~", "." 始まり）のみ以下を行い、それ以外はそのまま返す
// 1. "~" をホームディレクトリに展開
// 2. 絶対パス化（filepath.Abs）
// 3. シンボリックリンク解決（filepath.EvalSymlinks）※失敗時はAbsまで
func CanonicalizeScope(scope string) (string, error) {
	if !looksLikePath(scope) {
		return scope, nil
	}

	expanded, err := ExpandTilde(scope)
	if err != nil {
		return "", fmt.Errorf("failed to expand tilde: %w", err)
	}

	abs, err := filepath.Abs(expanded)
	if err != nil {
		return "", fmt.Errorf("failed to get absolute path: %w", err)
	}

	canonical, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return abs, nil
	}
	return canonical, nil
}

func looksLikePath(s string) bool {
	return strings.HasPrefix(s, "/") || strings.HasPrefix(s, "~") || strings.HasPrefix(s, ".")
}

// ExpandTilde は"~"をホームディレクトリに展開する
// "~" 単体と "~/" 始まりのみ展開し、"~user" などはそのまま返す
func ExpandTilde(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	if path == "~" {
		return home, nil
	}
	return filepath.Join(home, path[2:]), nil
}

// GetDefaultConfigPath はデフォルトの設定ファイルパスを返す
// ~/.local-mcp-websearch/config.json
func GetDefaultConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, DefaultConfigDir, DefaultConfigFile), nil
}

// GetDefaultDataDir はデフォルトのデータディレクトリを返す
// ~/.local-mcp-websearch/data
func GetDefaultDataDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, DefaultConfigDir, DefaultDataSubDir), nil
}

// EnsureDir はディレクトリが存在することを確認し、なければ作成する
func EnsureDir(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}
	return nil
}
