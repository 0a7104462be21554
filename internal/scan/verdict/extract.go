package verdict

// extractJSONObject finds the largest balanced top-level {...} span in raw.
// Models routinely wrap their JSON in prose or markdown fences; this pulls
// the object out without caring what surrounds it. Braces inside JSON
// strings and escaped quotes are skipped. Returns "" when no balanced
// object exists.
func extractJSONObject(raw string) string {
	var (
		best     string
		depth    int
		start    = -1
		inString bool
		escaped  bool
	)

	for i := 0; i < len(raw); i++ {
		c := raw[i]

		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}

			continue
		}

		switch c {
		case '"':
			if depth > 0 {
				inString = true
			}
		case '{':
			if depth == 0 {
				start = i
			}

			depth++
		case '}':
			if depth == 0 {
				continue
			}

			depth--

			if depth == 0 && start >= 0 {
				candidate := raw[start : i+1]
				if len(candidate) > len(best) {
					best = candidate
				}
			}
		}
	}

	return best
}
