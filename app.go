package main

import (
	"kampuspay/audit"
	"kampuspay/ledger"
	"kampuspay/pkg/evidence"

	"gorm.io/gorm"
)

// App holds every injected collaborator for the HTTP layer. The gorm handle
// is constructed once in main and passed in; there is no package-level DB
// singleton.
type App struct {
	db           *gorm.DB
	ledger       *ledger.Service
	audit        *audit.Sink
	jwtSecret    []byte
	evidenceBase string
	// extract is swappable in tests; defaults to the OCR pipeline.
	extract func(path string) (int64, float64, string, error)
}

func newApp(db *gorm.DB, jwtSecret []byte, evidenceBase string) *App {
	return &App{
		db:           db,
		ledger:       ledger.NewService(db),
		audit:        audit.NewSink(db),
		jwtSecret:    jwtSecret,
		evidenceBase: evidenceBase,
		extract:      evidence.ExtractAmount,
	}
}
