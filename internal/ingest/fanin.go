package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

func runLogWriter(lines <-chan string) {
	for s := range lines {
		fmt.Println(s)
	}
}

func runResultCollector(
	results <-chan itemResult,
	mu *sync.Mutex,
	success, failed *int,
	rowsPerSymbol map[string]int,
	all *[]itemResult,
) {
	for res := range results {
		mu.Lock()
		if res.Ok {
			*success++
			rowsPerSymbol[res.Symbol] += res.Rows
		} else {
			*failed++
		}
		*all = append(*all, res)
		mu.Unlock()
	}
}

func runHeartbeat(ctx context.Context, interval time.Duration, total int, mu *sync.Mutex, success, failed *int, rowsPerSymbol map[string]int, logger *slog.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			mu.Lock()
			s, f := *success, *failed
			var rows int
			for _, n := range rowsPerSymbol {
				rows += n
			}
			mu.Unlock()
			logger.Info("heartbeat", "done", s+f, "total", total, "success", s, "failed", f, "rows", rows)
		}
	}
}
