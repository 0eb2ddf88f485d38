package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"
)

type logFormat string

const (
	formatJSON logFormat = "json"
	formatKV   logFormat = "kv"

	timeFormatMillis = "2006-01-02T15:04:05.000Z07:00"
)

// handlerOptions is shared by a handler and every clone derived from it.
type handlerOptions struct {
	level  slog.Leveler
	out    *sink
	format logFormat
	rank   map[string]int
}

type field struct {
	key string
	val any
}

// lineHandler renders each record as a single JSON or key=value line.
// Groups are flattened into dotted keys.
type lineHandler struct {
	opts   *handlerOptions
	fixed  []field
	prefix string
}

func newLineHandler(level slog.Leveler, out *sink, format logFormat, order []string) *lineHandler {
	if level == nil {
		level = slog.LevelInfo
	}
	if len(order) == 0 {
		order = defaultKeyOrder
	}
	return &lineHandler{opts: &handlerOptions{
		level:  level,
		out:    out,
		format: format,
		rank:   keyRank(order),
	}}
}

func (h *lineHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.opts.level.Level()
}

func (h *lineHandler) Handle(ctx context.Context, r slog.Record) error {
	if h.opts.out == nil {
		return errors.New("logger: sink not initialized")
	}

	rec := make(map[string]any, 16)
	for _, f := range h.fixed {
		rec[f.key] = f.val
	}
	r.Attrs(func(a slog.Attr) bool {
		collect(h.prefix, a, func(k string, v any) { rec[k] = v })
		return true
	})
	fillFromContext(ctx, rec)

	rec["ts"] = r.Time.UTC().Truncate(time.Millisecond).Format(timeFormatMillis)
	rec["level"] = levelName(r.Level)
	h.finish(rec, r.Message)

	var line []byte
	if h.opts.format == formatJSON {
		var err error
		if line, err = encodeJSON(rec, h.keys(rec)); err != nil {
			return err
		}
	} else {
		line = encodeKV(rec, h.keys(rec))
	}
	return h.opts.out.Write(append(line, '\n'))
}

func (h *lineHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	clone := *h
	clone.fixed = append([]field(nil), h.fixed...)
	for _, a := range attrs {
		collect(h.prefix, a, func(k string, v any) {
			clone.fixed = append(clone.fixed, field{key: k, val: v})
		})
	}
	return &clone
}

func (h *lineHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	clone := *h
	clone.prefix = joinKey(h.prefix, name)
	return &clone
}

// finish fills in defaults and normalizes well-known fields.
func (h *lineHandler) finish(rec map[string]any, msg string) {
	if s, _ := rec["event"].(string); s == "" {
		if msg == "" {
			msg = "unknown"
		}
		rec["event"] = msg
	}
	if s, _ := rec["component"].(string); s == "" {
		rec["component"] = "app"
	}
	if s, ok := rec["status"].(string); ok {
		rec["status"] = normalizeStatus(s)
	}
	if rid, _ := rec["rid"].(string); rid != "" {
		if compact := CompactRID(rid); compact != rid {
			rec["rid"] = compact
			if h.opts.format == formatJSON {
				rec["rid_full"] = rid
			}
		}
	}
}

func (h *lineHandler) keys(rec map[string]any) []string {
	keys := make([]string, 0, len(rec))
	for k := range rec {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		ri, iok := h.opts.rank[keys[i]]
		rj, jok := h.opts.rank[keys[j]]
		switch {
		case iok && jok:
			return ri < rj
		case iok != jok:
			return iok
		default:
			return keys[i] < keys[j]
		}
	})
	return keys
}

func joinKey(prefix, key string) string {
	switch {
	case prefix == "":
		return key
	case key == "":
		return prefix
	default:
		return prefix + "." + key
	}
}

// collect flattens a into emit calls, dropping empty strings and nil values.
func collect(prefix string, a slog.Attr, emit func(string, any)) {
	v := a.Value.Resolve()
	key := joinKey(prefix, a.Key)
	if v.Kind() == slog.KindGroup {
		for _, child := range v.Group() {
			collect(key, child, emit)
		}
		return
	}
	if key == "" {
		return
	}
	if k, val, ok := fieldValue(key, v); ok {
		emit(k, val)
	}
}

func fieldValue(key string, v slog.Value) (string, any, bool) {
	switch v.Kind() {
	case slog.KindString:
		s := strings.TrimSpace(v.String())
		return key, s, s != ""
	case slog.KindDuration:
		return durationKey(key), RoundMS(v.Duration()).Milliseconds(), true
	case slog.KindTime:
		return key, v.Time().UTC().Format(time.RFC3339Nano), true
	case slog.KindUint64:
		if u := v.Uint64(); u <= math.MaxInt64 {
			return key, int64(u), true
		}
		return key, v.Uint64(), true
	case slog.KindAny:
		switch x := v.Any().(type) {
		case nil:
			return key, nil, false
		case error:
			return key, x.Error(), true
		case time.Duration:
			return durationKey(key), RoundMS(x).Milliseconds(), true
		case fmt.Stringer:
			s := x.String()
			return key, s, s != ""
		default:
			return key, fmt.Sprint(x), true
		}
	default:
		return key, v.Any(), true
	}
}

// durationKey names duration fields in milliseconds: "duration" becomes "duration_ms".
func durationKey(key string) string {
	if strings.HasSuffix(key, "_ms") {
		return key
	}
	return key + "_ms"
}

func fillFromContext(ctx context.Context, rec map[string]any) {
	m := metaFrom(ctx)
	setDefault := func(k string, v any, present bool) {
		if !present {
			return
		}
		if _, ok := rec[k]; !ok {
			rec[k] = v
		}
	}
	setDefault("rid", m.rid, m.rid != "")
	setDefault("update_id", m.updateID, m.updateID != 0)
	setDefault("user_id", m.userID, m.userID != 0)
	setDefault("chat_id", m.chatID, m.chatID != 0)
	setDefault("handler", m.handler, m.handler != "")
}

func encodeJSON(rec map[string]any, keys []string) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range keys {
		data, err := json.Marshal(rec[k])
		if err != nil {
			return nil, fmt.Errorf("logger: encode %q: %w", k, err)
		}
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.WriteString(strconv.Quote(k))
		buf.WriteByte(':')
		buf.Write(data)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func encodeKV(rec map[string]any, keys []string) []byte {
	var buf bytes.Buffer
	for i, k := range keys {
		if i > 0 {
			buf.WriteByte(' ')
		}
		buf.WriteString(k)
		buf.WriteByte('=')
		s := fmt.Sprint(rec[k])
		if strings.ContainsFunc(s, needsQuote) {
			s = strconv.Quote(s)
		}
		buf.WriteString(s)
	}
	return buf.Bytes()
}

func needsQuote(r rune) bool {
	return r <= ' ' || r == '=' || r == '"'
}
