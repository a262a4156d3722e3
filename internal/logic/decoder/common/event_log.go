package common

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// NEP-297 标准事件日志前缀
const eventJSONPrefix = "EVENT_JSON:"

// EventLog 是 NEP-297 事件日志的外层信封
type EventLog struct {
	Standard string          `json:"standard"`
	Version  string          `json:"version"`
	Event    string          `json:"event"`
	Data     json.RawMessage `json:"data"`
}

// ParseEventLog 解析一条日志是否为 EVENT_JSON 事件。
// 非 EVENT_JSON 日志返回 ok=false（不是错误，链上普通日志很常见）；
// 带前缀但 JSON 非法返回 error。
func ParseEventLog(data []byte) (*EventLog, bool, error) {
	if !bytes.HasPrefix(data, []byte(eventJSONPrefix)) {
		return nil, false, nil
	}
	var ev EventLog
	if err := json.Unmarshal(data[len(eventJSONPrefix):], &ev); err != nil {
		return nil, true, fmt.Errorf("invalid EVENT_JSON payload: %w", err)
	}
	return &ev, true, nil
}

// UnmarshalSingle 将事件 data 解析为恰好一个元素的数组并取出该元素。
// NEP-297 的 data 是数组；多元素会破坏全序键唯一性（一条记录最多一个 action），
// 因此只接受单元素。
func UnmarshalSingle(data json.RawMessage, out interface{}) error {
	var items []json.RawMessage
	if err := json.Unmarshal(data, &items); err != nil {
		return fmt.Errorf("event data is not an array: %w", err)
	}
	if len(items) != 1 {
		return fmt.Errorf("event data has %d elements, want 1", len(items))
	}
	if err := json.Unmarshal(items[0], out); err != nil {
		return fmt.Errorf("decode event data: %w", err)
	}
	return nil
}
