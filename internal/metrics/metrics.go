// Package metrics exposes Prometheus collectors for mcp-websearch.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	toolCallsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mcp_websearch_tool_calls_total",
		Help: "Total number of MCP tool calls by tool and outcome",
	}, []string{"tool", "outcome"}) // outcome=success|error

	searchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mcp_websearch_searches_total",
		Help: "Total number of web searches by source",
	}, []string{"source"}) // source=upstream|cache|shared|error

	searchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "mcp_websearch_search_duration_seconds",
		Help:    "End-to-end web search latency including crawl and fact extraction",
		Buckets: []float64{0.5, 1, 2, 5, 10, 20, 40, 80},
	})

	crawlPagesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mcp_websearch_crawl_pages_total",
		Help: "Total number of crawled pages by outcome",
	}, []string{"outcome"}) // outcome=success|failure

	extractionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mcp_websearch_fact_extractions_total",
		Help: "Total number of fact extraction attempts by outcome",
	}, []string{"outcome"}) // outcome=success|empty|failure

	memoryOpsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mcp_websearch_memory_operations_total",
		Help: "Total number of memory operations by operation",
	}, []string{"op"}) // op=store|find|get|delete|list_recent
)

func outcome(ok bool, success, failure string) string {
	if ok {
		return success
	}
	return failure
}

// RecordToolCall はtools/callの結果を記録する
func RecordToolCall(tool string, isError bool) {
	toolCallsTotal.WithLabelValues(tool, outcome(!isError, "success", "error")).Inc()
}

// RecordSearch は検索1回分を記録する
func RecordSearch(source string, elapsed time.Duration) {
	searchesTotal.WithLabelValues(source).Inc()
	if source == "upstream" {
		searchDuration.Observe(elapsed.Seconds())
	}
}

// RecordCrawl はページ取得結果を記録する
func RecordCrawl(ok bool) {
	crawlPagesTotal.WithLabelValues(outcome(ok, "success", "failure")).Inc()
}

// RecordExtraction は要点抽出の結果を記録する（"success" | "empty" | "failure"）
func RecordExtraction(result string) {
	extractionsTotal.WithLabelValues(result).Inc()
}

// RecordMemoryOp はメモリ操作を記録する
func RecordMemoryOp(op string) {
	memoryOpsTotal.WithLabelValues(op).Inc()
}
