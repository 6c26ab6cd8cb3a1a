package classifier

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"chainview/internal/core"
)

// The field types below never return an error from UnmarshalJSON, so a payload
// with a wrong-typed field still decodes with that field left at its zero value.

// text accepts a JSON string or a scalar and keeps it as a string.
type text string

func (t *text) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*t = text(s)
		return nil
	}
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] != '{' && b[0] != '[' && !bytes.Equal(b, []byte("null")) {
		*t = text(b)
	}
	return nil
}

// number accepts a JSON number or a numeric string. Values beyond the int64
// range saturate.
type number int64

func (n *number) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(bytes.TrimSpace(b)), `"`)
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		*n = number(i)
		return nil
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && !math.IsNaN(f) {
		// Out-of-range float-to-int conversion is implementation-defined.
		switch {
		case f >= math.MaxInt64:
			*n = math.MaxInt64
		case f <= math.MinInt64:
			*n = math.MinInt64
		default:
			*n = number(math.Round(f))
		}
	}
	return nil
}

// amount keeps a legacy asset string verbatim and formats numeric asset
// objects into the same legacy form.
type amount string

func (a *amount) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*a = amount(s)
		return nil
	}
	if asset, err := core.AssetFromJSON(b); err == nil {
		*a = amount(asset.String())
	}
	return nil
}

// isZero reports whether the amount parses to zero. Empty amounts count as zero;
// unparsable ones do not, so they still get shown.
func (a amount) isZero() bool {
	if strings.TrimSpace(string(a)) == "" {
		return true
	}
	asset, err := core.ParseAsset(string(a))
	return err == nil && asset.IsZero()
}

// names accepts a JSON array of strings, skipping anything else.
type names []string

func (n *names) UnmarshalJSON(b []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, r := range raw {
		var s string
		if json.Unmarshal(r, &s) == nil {
			out = append(out, s)
		}
	}
	*n = out
	return nil
}

// body is the custom_json "json" field: normally a string holding encoded JSON,
// occasionally an already-decoded value, which is kept as its raw text.
type body string

func (j *body) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*j = body(s)
		return nil
	}
	b = bytes.TrimSpace(b)
	if !bytes.Equal(b, []byte("null")) {
		*j = body(b)
	}
	return nil
}

// decodeInto fills v from payload on a best-effort basis. A payload that is not
// a JSON object leaves v untouched.
func decodeInto(payload json.RawMessage, v any) {
	if len(bytes.TrimSpace(payload)) == 0 {
		return
	}
	_ = json.Unmarshal(payload, v)
}
