package message

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"unicode"
)

// fallbackTier is substituted when a sponsorship carries no usable tier
const fallbackTier = "sponsorship"

// Render substitutes every {fieldName} and {field_name} placeholder in tmpl
// with the matching value from data. Placeholders without a field are left
// as-is, except {tier}, which falls back to a generic name when the event
// carries a platform. The output is not escaped; templates are operator-authored.
func Render(tmpl string, data map[string]any) string {
	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	platform := stringify(data["platform"])

	out := tmpl
	for _, key := range keys {
		value := stringify(data[key])
		if key == "tier" {
			value = TierName(platform, value)
		}

		out = strings.ReplaceAll(out, "{"+key+"}", value)
		out = strings.ReplaceAll(out, "{"+SnakeCase(key)+"}", value)
	}

	// a sponsorship without a tier still gets a readable name
	if _, hasTier := data["tier"]; !hasTier {
		if _, hasPlatform := data["platform"]; hasPlatform {
			out = strings.ReplaceAll(out, "{tier}", TierName(platform, ""))
		}
	}
	return out
}

// SnakeCase inserts an underscore before every upper-case letter and lower-cases the result
func SnakeCase(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 4)
	for _, r := range s {
		if r >= 'A' && r <= 'Z' {
			b.WriteByte('_')
		}
		b.WriteRune(unicode.ToLower(r))
	}
	return b.String()
}

// TierName turns a raw subscription tier into its display form. Twitch sends
// tiers scaled by 1000 ("1000", "2000", "3000") or "prime"; other platforms
// send a free-form level name.
func TierName(platform, tier string) string {
	if platform == PlatformTwitch && !strings.EqualFold(tier, "prime") {
		n, err := strconv.ParseInt(strings.TrimSpace(tier), 10, 64)
		if err != nil {
			return fallbackTier
		}
		return strconv.FormatFloat(float64(n)/1000, 'f', -1, 64)
	}

	if tier == "" {
		return fallbackTier
	}
	return tier
}

func stringify(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case fmt.Stringer:
		return val.String()
	default:
		return fmt.Sprint(val)
	}
}
