package main

import (
	"log"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found, relying on environment")
	}

	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		secret = "dev-secret-change-me"
		log.Println("JWT_SECRET not set, using insecure development secret")
	}

	db := openDB()

	if len(os.Args) > 1 && os.Args[1] == "migrate" {
		autoMigrate(db)
		seedDB(db)
		log.Println("migration and seeding done")
		return
	}

	evidenceBase := os.Getenv("EVIDENCE_BASE")
	if evidenceBase == "" {
		evidenceBase = "./uploads/evidence"
	}
	if err := os.MkdirAll(evidenceBase, 0o755); err != nil {
		log.Fatalf("cannot create evidence dir %s: %v", evidenceBase, err)
	}

	app := newApp(db, []byte(secret), evidenceBase)
	defer app.audit.Close()

	if os.Getenv("EVIDENCE_WATCH") == "1" {
		stop, err := app.watchEvidence(evidenceBase)
		if err != nil {
			log.Printf("evidence watcher disabled: %v", err)
		} else {
			defer stop()
		}
	}

	r := gin.Default()
	r.Use(requestIDMiddleware())
	app.setupRoutes(r)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	log.Printf("kampuspay listening on :%s", port)
	if err := r.Run(":" + port); err != nil {
		log.Fatal(err)
	}
}

// requestIDMiddleware tags every request with an X-Request-ID header for log
// correlation, honoring a caller-supplied id if present.
func requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		c.Set("requestID", id)
		c.Writer.Header().Set("X-Request-ID", id)
		c.Next()
	}
}
