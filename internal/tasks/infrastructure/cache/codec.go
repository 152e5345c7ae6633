package cache

import (
	"github.com/bytedance/sonic"
)

// entry wraps cached values with a schema version so stale layouts read as misses.
type entry[T any] struct {
	Version int `json:"v"`
	Value   T   `json:"value"`
}

const entryVersion = 1

func encode[T any](v T) ([]byte, error) {
	return sonic.Marshal(entry[T]{Version: entryVersion, Value: v})
}

// decode returns ok=false for undecodable or outdated entries.
func decode[T any](data []byte) (T, bool) {
	var e entry[T]
	if err := sonic.Unmarshal(data, &e); err != nil || e.Version != entryVersion {
		var zero T
		return zero, false
	}
	return e.Value, true
}
