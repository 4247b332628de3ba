// Package evidence reads the transferred amount off a top-up proof image
// (bank transfer screenshot or teller receipt) using Tesseract OCR with
// light image preprocessing. The result is advisory: it pre-fills the
// detected amount on a top-up request so the reviewing admin can spot a
// mismatch, it never settles anything by itself.
package evidence

import (
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/otiai10/gosseract/v2"
)

// ExtractAmount runs the OCR passes over the image at path and returns the
// best amount candidate in whole currency units, a confidence proxy in
// [0,1], and the raw matched substring. ErrNoAmount when nothing plausible
// was found.
func ExtractAmount(path string) (int64, float64, string, error) {
	combined, err := ocrPasses(path)
	if err != nil {
		return 0, 0, "", fmt.Errorf("ocr passes: %w", err)
	}
	log.Printf("evidence: OCR %s snippet=%q", path, snippet(combined, 160))

	candidates := collectCandidates(combined)
	if len(candidates) == 0 {
		// "400 ribu" style amounts carry no digits-only pattern; try the
		// multiplier form before giving up.
		if amt, raw := parseRibu(combined); amt > 0 {
			return amt, 0.5, raw, nil
		}
		return 0, 0, "", ErrNoAmount
	}

	amt, raw, ok := pickBest(candidates)
	if !ok {
		return 0, 0, "", ErrNoAmount
	}

	conf := float64(len(raw)) / float64(len(combined)+1)
	if conf > 1 {
		conf = 1
	}
	low := strings.ToLower(raw)
	if strings.Contains(low, "rp") || strings.Contains(low, "idr") ||
		strings.HasSuffix(low, ",00") || strings.HasSuffix(low, ".00") {
		if conf < 0.85 {
			conf = 0.85
		}
	}
	return amt, conf, raw, nil
}

// ocrPasses performs preprocessing plus two Tesseract passes (a currency
// whitelist and a digits-only whitelist) and returns the concatenated text.
func ocrPasses(path string) (string, error) {
	img, err := imaging.Open(path)
	if err != nil {
		return "", fmt.Errorf("open image: %w", err)
	}
	gray := imaging.Grayscale(img)
	gray = imaging.AdjustContrast(gray, 15)
	gray = imaging.Sharpen(gray, 0.7)
	if gray.Bounds().Dy() < 900 {
		gray = imaging.Resize(gray, 0, 1300, imaging.Lanczos)
	}

	tmp := path
	if f, err := os.CreateTemp("", "evidence-*.png"); err == nil {
		tmp = f.Name()
		_ = f.Close()
		if err := imaging.Save(gray, tmp); err != nil {
			tmp = path
		} else {
			defer os.Remove(tmp)
		}
	}

	var variants []string
	for _, whitelist := range []string{
		"0123456789RpIDRidri.,:()/- ",
		"0123456789., ",
	} {
		client := gosseract.NewClient()
		_ = client.SetLanguage("eng")
		_ = client.SetWhitelist(whitelist)
		client.SetImage(tmp)
		text, err := client.Text()
		client.Close()
		if err != nil {
			return "", fmt.Errorf("tesseract: %w", err)
		}
		variants = append(variants, normalizeText(text))
	}

	// A third pass over the unprocessed image catches proofs where the
	// preprocessing destroyed thin fonts.
	client := gosseract.NewClient()
	_ = client.SetLanguage("eng")
	_ = client.SetWhitelist("0123456789RpIDRidri.,:()/- ")
	client.SetImage(path)
	if text, err := client.Text(); err == nil {
		variants = append(variants, normalizeText(text))
	}
	client.Close()

	return strings.Join(variants, " "), nil
}

// collectCandidates pulls every substring that could be the transfer amount:
// labeled amounts (jumlah/total/transfer), Rp/IDR-marked numbers, grouped
// digits, and bare 5+ digit runs, filtered through the plausibility check.
func collectCandidates(text string) []string {
	var out []string
	seen := map[string]struct{}{}
	for _, re := range candidateRE {
		for _, m := range re.FindAllStringSubmatch(text, -1) {
			if len(m) < 2 {
				continue
			}
			s := strings.TrimSpace(m[1])
			if s == "" {
				continue
			}
			// Re-attach a currency marker stripped by the capture group so
			// scoring can prioritize the match.
			full := strings.ToLower(m[0])
			if (strings.Contains(full, "rp") || strings.Contains(full, "idr")) &&
				!strings.Contains(strings.ToLower(s), "rp") {
				s = "Rp" + s
			}
			if _, ok := seen[s]; ok {
				continue
			}
			seen[s] = struct{}{}
			if !plausibleAmount(s) {
				continue
			}
			out = append(out, s)
		}
	}
	return out
}
