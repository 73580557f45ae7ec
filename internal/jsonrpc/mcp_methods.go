package jsonrpc

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/brbranch/websearch_mcp/internal/metrics"
	"github.com/brbranch/websearch_mcp/internal/model"
)

// ServerName はinitializeで返すサーバー名
const ServerName = "mcp-websearch"

// ServerVersion はサーバーのバージョン（ビルド時に設定可能）
var ServerVersion = "0.1.0"

// serverInstructions はクライアント（エージェント）向けの利用方針
const serverInstructions = `Use memory_find before answering questions about the user's environment, preferences or past decisions, and memory_store to save durable facts worth recalling later (scope them to a project path or a topic).
Use search_web when the answer depends on current or external information; it returns up to 3 pages with facts extracted for the query.`

// handleInitialize は initialize メソッドを処理
func (h *Handler) handleInitialize(ctx context.Context, params any) (any, error) {
	// パラメータは検証のみ（内容は使用しない）
	var p model.InitializeParams
	if err := mapParams(params, &p); err != nil {
		return nil, err
	}
	h.logger.Info().
		Str("client", p.ClientInfo.Name).
		Str("protocolVersion", p.ProtocolVersion).
		Msg("client initialized")

	return &model.InitializeResult{
		ProtocolVersion: model.MCPProtocolVersion,
		ServerInfo: model.ServerInfo{
			Name:    ServerName,
			Version: ServerVersion,
		},
		Capabilities: model.Capabilities{
			Tools: &model.ToolsCapability{},
		},
		Instructions: serverInstructions,
	}, nil
}

// handleToolsList は tools/list メソッドを処理
func (h *Handler) handleToolsList(ctx context.Context, params any) (any, error) {
	return &model.ToolsListResult{
		Tools: mcpTools,
	}, nil
}

// handleToolsCall は tools/call メソッドを処理
// ツールの失敗はJSON-RPCエラーではなく isError 付きのcontentとして返す
func (h *Handler) handleToolsCall(ctx context.Context, params any) (any, error) {
	var p model.ToolsCallParams
	if err := mapParams(params, &p); err != nil {
		return nil, err
	}

	if p.Name == "" {
		return model.NewToolError("Error: tool name is required"), nil
	}

	internalMethod, ok := toolNameToMethod[p.Name]
	if !ok {
		return model.NewToolError(fmt.Sprintf("Tool not found: %s", p.Name)), nil
	}

	arguments := p.Arguments
	if arguments == nil {
		arguments = map[string]any{}
	}

	result, err := h.dispatchInternal(ctx, internalMethod, arguments)
	if err != nil {
		metrics.RecordToolCall(p.Name, true)
		h.logger.Warn().Str("tool", p.Name).Err(err).Msg("tool call failed")
		return model.NewToolError(fmt.Sprintf("Error: %s", err.Error())), nil
	}

	resultJSON, err := json.Marshal(result)
	if err != nil {
		metrics.RecordToolCall(p.Name, true)
		return model.NewToolError(fmt.Sprintf("Error serializing result: %s", err.Error())), nil
	}

	metrics.RecordToolCall(p.Name, false)
	return &model.ToolsCallResult{
		Content: []model.ContentItem{
			model.NewTextContent(string(resultJSON)),
		},
	}, nil
}
