package evidence

import "strings"

// plausibleAmount rejects numeric matches that are likely phone numbers,
// reference numbers or transaction ids rather than money. Currency hints
// always pass; otherwise grouped digits must not lead with zero, and long
// ungrouped runs are only accepted when they end on a round-amount suffix.
func plausibleAmount(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" {
		return false
	}
	low := strings.ToLower(s)
	if strings.Contains(low, "rp") || strings.Contains(low, "idr") {
		return true
	}
	d := onlyDigits(s)
	if d == "" || d[0] == '0' {
		return false
	}
	if strings.ContainsAny(s, ".,") {
		return len(d) >= 3
	}
	if len(d) < 2 || len(d) > 7 {
		return false
	}
	if len(d) >= 5 && !(strings.HasSuffix(d, "000") || strings.HasSuffix(d, "500")) {
		return false
	}
	return true
}
