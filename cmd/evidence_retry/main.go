// Batch re-scan of pending top-up requests whose evidence produced no
// detected amount. Useful after tuning the OCR pipeline: reads every
// PENDING request with an evidence image and detected_amount = 0, re-runs
// extraction, and writes back anything it finds. With -file it instead
// scans a single image and prints the result, no database involved.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"kampuspay/models"
	"kampuspay/pkg/evidence"
)

func main() {
	dryRun := flag.Bool("dry-run", false, "scan and report without writing")
	file := flag.String("file", "", "scan one image, print the result and exit")
	flag.Parse()

	if *file != "" {
		amt, conf, raw, err := evidence.ExtractAmount(*file)
		if err != nil {
			log.Fatalf("extract error: %v", err)
		}
		fmt.Printf("amt=%d conf=%.4f found=%q\n", amt, conf, raw)
		return
	}

	dsn := os.Getenv("DB_DSN")
	if dsn == "" {
		log.Fatal("DB_DSN not set")
	}
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatalf("open db: %v", err)
	}

	var reqs []models.TopupRequest
	err = db.Where("status = ? AND evidence_path <> '' AND detected_amount = 0",
		models.TopupPending).Find(&reqs).Error
	if err != nil {
		log.Fatalf("query: %v", err)
	}
	log.Printf("found %d requests to re-scan", len(reqs))

	updated := 0
	for _, req := range reqs {
		amt, conf, raw, err := evidence.ExtractAmount(req.EvidencePath)
		if err != nil || amt <= 0 {
			log.Printf("request %d: nothing detected (%v)", req.ID, err)
			continue
		}
		log.Printf("request %d: detected %d conf=%.2f raw=%q (claimed %d)",
			req.ID, amt, conf, raw, req.Amount)
		if *dryRun {
			continue
		}
		err = db.Model(&models.TopupRequest{}).
			Where("id = ? AND status = ?", req.ID, models.TopupPending).
			Updates(map[string]any{
				"detected_amount":     amt,
				"detected_confidence": conf,
			}).Error
		if err != nil {
			log.Printf("request %d: update failed: %v", req.ID, err)
			continue
		}
		updated++
	}
	log.Printf("done, updated %d requests", updated)
}
