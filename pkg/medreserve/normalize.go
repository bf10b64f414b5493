package medreserve

import "strings"

// Coercer converts a raw form value before normalisation.
type Coercer func(any) any

// NormalizePayload prepares form values for the API: strings are trimmed,
// "true" and "false" in any case become booleans and keys left with an
// empty string are dropped. Coercers run first, per key.
func NormalizePayload(in map[string]any, coerce map[string]Coercer) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		if fn, ok := coerce[k]; ok && fn != nil {
			v = fn(v)
		}

		if s, ok := v.(string); ok {
			s = strings.TrimSpace(s)
			switch {
			case s == "":
				continue
			case strings.EqualFold(s, "true"):
				v = true
			case strings.EqualFold(s, "false"):
				v = false
			default:
				v = s
			}
		}

		out[k] = v
	}

	return out
}
