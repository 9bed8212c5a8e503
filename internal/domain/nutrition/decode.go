package nutrition

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Accepted key spellings per field, most specific first.
var (
	carbKeys    = []string{"carbohydrate_percent", "carbohydratePercent", "carbohydrate", "karbohidrat_persen", "karbohidratPersen", "karbohidrat"}
	proteinKeys = []string{"protein_gram", "proteinGram", "protein"}
	fatKeys     = []string{"fat_percent", "fatPercent", "fat", "lemak_persen", "lemakPersen", "lemak"}
)

// decodeStrategy turns raw upstream text into an estimate, or reports no match.
type decodeStrategy struct {
	name   string
	decode func(raw string) (Estimate, bool)
}

// decodeChain is tried in order; the first match wins.
var decodeChain = []decodeStrategy{
	{name: "json_object", decode: decodeJSONObject},
	{name: "key_pattern", decode: decodeKeyPatterns},
}

// Decode runs the strategy chain over upstream text and returns the clamped
// estimate together with the name of the strategy that matched.
func Decode(raw string) (Estimate, string, error) {
	for _, s := range decodeChain {
		if est, ok := s.decode(raw); ok {
			return est.Clamped(), s.name, nil
		}
	}
	return Estimate{}, "", &Error{Kind: KindUnparseable, Err: fmt.Errorf("no strategy matched %d bytes of text", len(raw))}
}

var fencePattern = regexp.MustCompile("^```(?:json|JSON)?\\s*|\\s*```$")

// StripCodeFence removes a Markdown code fence wrapping the whole text.
func StripCodeFence(s string) string {
	return strings.TrimSpace(fencePattern.ReplaceAllString(strings.TrimSpace(s), ""))
}

// ExtractObject returns the first balanced {...} substring starting at the
// first '{'. Braces inside JSON strings are ignored. When the object never
// closes the text from the first '{' is returned unchanged.
func ExtractObject(s string) (string, bool) {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return "", false
	}
	depth := 0
	inString, escaped := false, false
	for i := start; i < len(s); i++ {
		ch := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}
	return s[start:], true
}

// decodeJSONObject matches when the text contains a JSON object with at least
// one recognised key.
func decodeJSONObject(raw string) (Estimate, bool) {
	obj, ok := ExtractObject(StripCodeFence(raw))
	if !ok {
		return Estimate{}, false
	}
	var fields map[string]interface{}
	if err := json.Unmarshal([]byte(obj), &fields); err != nil {
		return Estimate{}, false
	}

	carb, okC := lookupNumber(fields, carbKeys)
	protein, okP := lookupNumber(fields, proteinKeys)
	fat, okF := lookupNumber(fields, fatKeys)
	if !okC && !okP && !okF {
		return Estimate{}, false
	}
	return Estimate{CarbohydratePercent: carb, ProteinGram: protein, FatPercent: fat}, true
}

func lookupNumber(fields map[string]interface{}, keys []string) (float64, bool) {
	for _, k := range keys {
		v, ok := fields[k]
		if !ok || v == nil {
			continue
		}
		return toNumber(v), true
	}
	return 0, false
}

// toNumber coerces a decoded JSON value. Strings contribute their numeric
// prefix; anything else non-numeric is 0.
func toNumber(v interface{}) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case string:
		f, _ := LeadingNumber(n)
		return f
	default:
		return 0
	}
}

var keyPatterns = func() map[string]*regexp.Regexp {
	m := make(map[string]*regexp.Regexp)
	for _, keys := range [][]string{carbKeys, proteinKeys, fatKeys} {
		for _, k := range keys {
			m[k] = regexp.MustCompile(`["']?\b` + regexp.QuoteMeta(k) + `\b["']?\s*[:=]\s*["']?(\d+(?:\.\d+)?)`)
		}
	}
	return m
}()

// decodeKeyPatterns scans the raw text for "key": number pairs, one field at
// a time. A field counts as found only when its value is non-zero, and the
// strategy matches when at least one field is found.
func decodeKeyPatterns(raw string) (Estimate, bool) {
	est := Estimate{
		CarbohydratePercent: firstPatternValue(raw, carbKeys),
		ProteinGram:         firstPatternValue(raw, proteinKeys),
		FatPercent:          firstPatternValue(raw, fatKeys),
	}
	if est.CarbohydratePercent == 0 && est.ProteinGram == 0 && est.FatPercent == 0 {
		return Estimate{}, false
	}
	return est, true
}

func firstPatternValue(raw string, keys []string) float64 {
	for _, k := range keys {
		m := keyPatterns[k].FindStringSubmatch(raw)
		if m == nil {
			continue
		}
		if f, err := strconv.ParseFloat(m[1], 64); err == nil && f != 0 {
			return f
		}
	}
	return 0
}
