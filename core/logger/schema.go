package logger

import (
	"log/slog"
	"strings"
)

// Status values shared by every component.
const (
	StatusOK    = "ok"
	StatusFail  = "fail"
	StatusSkip  = "skip"
	StatusRetry = "retry"
)

// defaultKeyOrder puts correlation fields first, then the fields the bot's
// components emit most, so related lines line up when read side by side.
var defaultKeyOrder = []string{
	"ts",
	"level",
	"component",
	"event",
	"status",
	"rid",
	"rid_full",
	"update_id",
	"user_id",
	"chat_id",
	"handler",
	"state",
	"next_state",
	"sheet",
	"row",
	"column",
	"category",
	"items",
	"source",
	"key",
	"backend",
	"action",
	"endpoint",
	"mode",
	"listen",
	"public_url",
	"duration_ms",
	"attempt",
	"attempts",
	"err",
	"error_kind",
}

func levelName(l slog.Level) string {
	switch {
	case l < slog.LevelInfo:
		return "DEBUG"
	case l < slog.LevelWarn:
		return "INFO"
	case l < slog.LevelError:
		return "WARN"
	default:
		return "ERROR"
	}
}

func normalizeStatus(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "error" {
		return StatusFail
	}
	return s
}

func keyRank(order []string) map[string]int {
	rank := make(map[string]int, len(order))
	for i, k := range order {
		if _, dup := rank[k]; !dup {
			rank[k] = i
		}
	}
	return rank
}
