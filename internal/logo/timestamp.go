package logo

import (
	"bytes"
	"encoding/json"
	"strconv"
	"time"
)

// Values at or above this are read as epoch milliseconds, below as seconds.
const epochMillisThreshold = 1e11

// Timestamp is an optional upstream time. It accepts RFC 3339 strings,
// epoch seconds or milliseconds (as numbers or numeric strings), null and
// the empty string. Anything else decodes to the zero time: a bad
// timestamp never makes a metadata document unusable.
type Timestamp struct {
	time.Time
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	t.Time = time.Time{}
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil || s == "" {
			return nil
		}
		if parsed, err := time.Parse(time.RFC3339Nano, s); err == nil {
			t.Time = parsed
			return nil
		}
		data = []byte(s)
	}
	if n, err := strconv.ParseFloat(string(data), 64); err == nil && n > 0 {
		t.Time = fromEpoch(n)
	}
	return nil
}

func fromEpoch(n float64) time.Time {
	if n >= epochMillisThreshold {
		return time.UnixMilli(int64(n)).UTC()
	}
	return time.Unix(int64(n), 0).UTC()
}
