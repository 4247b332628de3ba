package evidence

import "strings"

// pickBest scores every candidate and returns the winner. Currency markers
// and labeled totals dominate; grouping separators and trailing cents add
// smaller boosts. Ties resolve toward the larger amount, then the longer
// raw match, so "Rp600.000" beats a bare "600000" fragment of an id.
func pickBest(candidates []string) (int64, string, bool) {
	type scored struct {
		amt   int64
		raw   string
		score int
	}
	var best *scored
	for _, raw := range candidates {
		amt, err := ParseAmount(raw)
		if err != nil || amt <= 0 {
			continue
		}
		s := scoreCandidate(raw)
		c := scored{amt: amt, raw: raw, score: s}
		if best == nil {
			best = &c
			continue
		}
		switch {
		case c.score > best.score:
			best = &c
		case c.score == best.score && c.amt > best.amt:
			best = &c
		case c.score == best.score && c.amt == best.amt && len(c.raw) > len(best.raw):
			best = &c
		}
	}
	if best == nil {
		return 0, "", false
	}
	return best.amt, best.raw, true
}

func scoreCandidate(raw string) int {
	s := 0
	low := strings.ToLower(raw)
	if strings.Contains(low, "rp") || strings.Contains(low, "idr") {
		s += 10
	}
	if strings.Contains(low, "total") || strings.Contains(low, "jumlah") {
		s += 8
	}
	if strings.ContainsAny(raw, ".,") {
		s += 5
	}
	if strings.HasSuffix(raw, ",00") || strings.HasSuffix(raw, ".00") {
		s += 3
	}
	if len(onlyDigits(raw)) >= 4 {
		s++
	}
	return s
}
