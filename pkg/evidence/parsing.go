package evidence

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	centsRE = regexp.MustCompile(`[.,]\d{2}$`)
	ribuRE  = regexp.MustCompile(`(?i)\b([1-9][0-9]{0,3})\s*[,.:;-]?\s*ribu\b`)

	candidateRE = []*regexp.Regexp{
		regexp.MustCompile(`(?i)(?:jumlah(?:\s+transfer)?|total(?:\s+bayar)?|nominal|transfer)[:\s]*(?:Rp|IDR)?[\s]*([0-9\.,]+)`),
		regexp.MustCompile(`(?i)Rp[\s]*([0-9\.,]+)`),
		regexp.MustCompile(`(?i)IDR[\s]*([0-9\.,]+)`),
		regexp.MustCompile(`([0-9]{1,3}(?:[.,][0-9]{3})+)`),
		regexp.MustCompile(`([0-9]{5,})`),
	}
)

// ParseAmount normalizes a matched substring into whole currency units.
// A trailing two-digit decimal part (10.000,00) is stripped, not parsed as
// part of the amount.
func ParseAmount(found string) (int64, error) {
	found = strings.TrimSpace(found)
	if found == "" {
		return 0, fmt.Errorf("empty match")
	}
	digits := found
	if centsRE.MatchString(found) {
		cut := strings.LastIndexAny(found, ".,")
		digits = found[:cut]
	}
	digits = onlyDigits(digits)
	if digits == "" {
		return 0, fmt.Errorf("no digits in %q", found)
	}
	amt, err := strconv.ParseInt(digits, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse %q: %w", digits, err)
	}
	if amt < 0 {
		amt = -amt
	}
	return amt, nil
}

// parseRibu handles spelled thousands like "400 ribu" / "400ribu" meaning
// 400 * 1000. Capped at 9999 ribu to avoid scaling up stray ids.
func parseRibu(text string) (int64, string) {
	m := ribuRE.FindStringSubmatch(strings.ToLower(text))
	if len(m) < 2 {
		return 0, ""
	}
	n, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil || n <= 0 || n > 9999 {
		return 0, ""
	}
	return n * 1000, m[0]
}
