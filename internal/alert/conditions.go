package alert

import (
	"encoding/json"
	"math"
	"sort"
	"strconv"
	"time"
)

// Conditions holds the type-specific settings of a rule, e.g.
// {"threshold": 50, "network": "ethereum"}.
type Conditions map[string]interface{}

// Number returns the numeric value stored under key. Strings holding a
// number are accepted since conditions may arrive from form posts.
// NaN and infinities are rejected.
func (c Conditions) Number(key string) (float64, bool) {
	f, ok := c.rawNumber(key)
	if !ok || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// NonFinite lists the keys, sorted, whose value parses as NaN or an
// infinity.
func (c Conditions) NonFinite() []string {
	var keys []string
	for k := range c {
		f, ok := c.rawNumber(k)
		if ok && (math.IsNaN(f) || math.IsInf(f, 0)) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}

func (c Conditions) rawNumber(key string) (float64, bool) {
	v, ok := c[key]
	if !ok || v == nil {
		return 0, false
	}

	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(n, 64)
		return f, err == nil
	default:
		return 0, false
	}
}

func (c Conditions) String(key string) string {
	s, _ := c[key].(string)
	return s
}

// Duration parses a Go duration string ("24h", "90m") stored under key.
func (c Conditions) Duration(key string, def time.Duration) time.Duration {
	s := c.String(key)
	if s == "" {
		return def
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return def
	}
	return d
}

// Merge returns a copy of c with every key of update applied on top.
func (c Conditions) Merge(update Conditions) Conditions {
	merged := make(Conditions, len(c)+len(update))
	for k, v := range c {
		merged[k] = v
	}
	for k, v := range update {
		merged[k] = v
	}
	return merged
}

func (c Conditions) clone() Conditions {
	if c == nil {
		return Conditions{}
	}
	return c.Merge(nil)
}
