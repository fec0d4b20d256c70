package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"quote-engine/monitor/logschema"
)

// symbolStats 单个交易对的决策统计
type symbolStats struct {
	Decisions  int
	Quoted     int
	Suppressed int
	Hedges     int
	Discarded  int
	spreadSum  float64
	riskSum    float64
	Reasons    map[string]int
}

func (s *symbolStats) AvgSpreadBps() float64 {
	if s.Quoted == 0 {
		return 0
	}
	return s.spreadSum / float64(s.Quoted)
}

func (s *symbolStats) AvgRiskScore() float64 {
	if s.Decisions == 0 {
		return 0
	}
	return s.riskSum / float64(s.Decisions)
}

type filter struct {
	symbol string
	since  time.Time
}

// summarize 解析 runner 的 JSON 日志，按交易对汇总决策事件
func summarize(r io.Reader, f filter) (map[string]*symbolStats, error) {
	out := make(map[string]*symbolStats)
	get := func(sym string) *symbolStats {
		st, ok := out[sym]
		if !ok {
			st = &symbolStats{Reasons: make(map[string]int)}
			out[sym] = st
		}
		return st
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		idx := strings.Index(line, "{")
		if idx == -1 {
			continue
		}
		var evt map[string]interface{}
		if err := json.Unmarshal([]byte(line[idx:]), &evt); err != nil {
			continue
		}
		name, _ := evt["msg"].(string)
		if name == "" {
			name, _ = evt["event"].(string)
		}
		sym, _ := evt["symbol"].(string)
		if sym == "" || (f.symbol != "" && sym != f.symbol) {
			continue
		}
		if !f.since.IsZero() {
			if tsStr, ok := evt["ts"].(string); ok {
				if ts, err := time.Parse(time.RFC3339Nano, tsStr); err == nil && ts.Before(f.since) {
					continue
				}
			}
		}

		switch name {
		case logschema.EventQuoteDecision:
			st := get(sym)
			st.Decisions++
			st.riskSum += toFloat(evt["riskScore"])
			if quoted, _ := evt["quoted"].(bool); quoted {
				st.Quoted++
				st.spreadSum += toFloat(evt["spreadBps"])
			} else {
				st.Suppressed++
			}
		case logschema.EventRisk:
			if reason, ok := evt["reason"].(string); ok {
				get(sym).Reasons[reason]++
			}
		case logschema.EventHedgeRecommendation:
			get(sym).Hedges++
		case logschema.EventSnapshotDiscarded:
			get(sym).Discarded++
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read log: %w", err)
	}
	return out, nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func toFloat(v interface{}) float64 {
	switch val := v.(type) {
	case float64:
		return val
	case string:
		f, _ := strconv.ParseFloat(val, 64)
		return f
	default:
		return 0
	}
}
