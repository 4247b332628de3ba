package main

import (
	"log"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"kampuspay/models"
)

func isEvidenceExt(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".png", ".jpg", ".jpeg":
		return true
	}
	return false
}

// watchEvidence back-fills DetectedAmount for pending top-up requests whose
// evidence image landed in the directory without being scanned at upload
// time. Events are debounced so a file is only scanned once its writes go
// quiet. Returns a stop function.
func (a *App) watchEvidence(dir string) (func(), error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := w.Add(dir); err != nil {
		w.Close()
		return nil, err
	}
	log.Printf("watching evidence dir %s", dir)

	quit := make(chan struct{})
	go func() {
		pending := map[string]time.Time{}
		ticker := time.NewTicker(250 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if ev.Op&fsnotify.Create == fsnotify.Create && isEvidenceExt(ev.Name) {
					pending[ev.Name] = time.Now()
				}
			case <-ticker.C:
				now := time.Now()
				for path, t := range pending {
					if now.Sub(t) > 300*time.Millisecond { // writes went quiet
						delete(pending, path)
						a.backfillEvidence(path)
					}
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				log.Printf("evidence watch error: %v", err)
			case <-quit:
				return
			}
		}
	}()
	return func() {
		close(quit)
		w.Close()
	}, nil
}

func (a *App) backfillEvidence(path string) {
	var req models.TopupRequest
	err := a.db.Where("evidence_path = ? AND status = ? AND detected_amount = 0",
		path, models.TopupPending).First(&req).Error
	if err != nil {
		return
	}
	amount, confidence, _, err := a.extract(path)
	if err != nil || amount <= 0 {
		return
	}
	updates := map[string]any{
		"detected_amount":     amount,
		"detected_confidence": confidence,
	}
	if err := a.db.Model(&req).Updates(updates).Error; err != nil {
		log.Printf("evidence backfill failed for request %d: %v", req.ID, err)
		return
	}
	log.Printf("evidence backfill: request %d detected %d (conf %.2f)", req.ID, amount, confidence)
}
