package event

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// IDDelimiter joins primary-key values before hashing. Identifier values
// are not expected to contain it.
const IDDelimiter = ":"

// CanonicalID returns the hex SHA-256 digest of the primary-key values
// joined in declared order. Events referencing the same entity always
// produce the same id, which is what makes upserts idempotent under
// at-least-once delivery.
func CanonicalID(values []string) string {
	sum := sha256.Sum256([]byte(strings.Join(values, IDDelimiter)))
	return hex.EncodeToString(sum[:])
}

// Lookup resolves a dot-separated path ("issue.fields.summary",
// "changelog.items.0.field") inside a decoded JSON value. Segments that
// parse as non-negative integers index into arrays.
func Lookup(body any, path string) (any, bool) {
	cur := body
	for _, seg := range strings.Split(path, ".") {
		switch v := cur.(type) {
		case map[string]any:
			next, ok := v[seg]
			if !ok {
				return nil, false
			}
			cur = next
		case []any:
			i, err := strconv.Atoi(seg)
			if err != nil || i < 0 || i >= len(v) {
				return nil, false
			}
			cur = v[i]
		default:
			return nil, false
		}
	}
	return cur, true
}

// ValueString renders a JSON value the way it participates in identity
// hashing and template interpolation: strings verbatim, everything else
// in compact JSON form.
func ValueString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case nil:
		return "null"
	case bool:
		return strconv.FormatBool(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprintf("%v", t)
		}
		return string(b)
	}
}
