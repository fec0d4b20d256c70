package logschema

import (
	"fmt"
	"sort"
	"strings"
)

// 引擎输出的日志事件名
const (
	EventQuoteDecision       = "quote_decision"
	EventHedgeRecommendation = "hedge_recommendation"
	EventRisk                = "risk_event"
	EventSnapshotDiscarded   = "snapshot_discarded"
	EventConfigReload        = "config_reload"
	EventError               = "error_event"
)

// Schema 定义每个日志事件所需的关键字段，便于集中校验。
type Schema struct {
	Event    string
	Required []string
}

var schemas = map[string]Schema{
	EventQuoteDecision: {
		Event:    EventQuoteDecision,
		Required: []string{"symbol", "sequence", "quoted", "mid", "riskScore"},
	},
	EventHedgeRecommendation: {
		Event:    EventHedgeRecommendation,
		Required: []string{"symbol", "action", "hedgeAmount", "netBenefit"},
	},
	EventRisk: {
		Event:    EventRisk,
		Required: []string{"symbol", "reason"},
	},
	EventSnapshotDiscarded: {
		Event:    EventSnapshotDiscarded,
		Required: []string{"symbol", "sequence", "reason"},
	},
	EventConfigReload: {
		Event:    EventConfigReload,
		Required: []string{"path", "status"},
	},
	EventError: {
		Event:    EventError,
		Required: []string{"error"},
	},
}

// Known 返回所有事件名，便于外部生成文档。
func Known() []string {
	names := make([]string, 0, len(schemas))
	for k := range schemas {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Validate 检查日志字段是否包含 schema 中要求的 key。未登记的事件不校验。
func Validate(event string, fields map[string]interface{}) error {
	s, ok := schemas[event]
	if !ok {
		return nil
	}
	var missing []string
	for _, key := range s.Required {
		if _, exists := fields[key]; !exists {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%s missing fields: %s", event, strings.Join(missing, ","))
	}
	return nil
}
