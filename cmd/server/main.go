package main

import (
	"flag"
	"log"
	"net/http"

	"finance-tracker/internal/auth"
	"finance-tracker/internal/config"
	"finance-tracker/internal/handlers"
	"finance-tracker/internal/storage"
)

func main() {
	cfg := config.Load()

	port := flag.String("port", cfg.Port, "Port to listen on")
	dbPath := flag.String("db", cfg.DBPath, "Path to database file")
	reset := flag.Bool("reset", false, "Drop and recreate the database schema, destroying all data")
	flag.Parse()

	if cfg.InsecureSecret {
		log.Println("WARNING: SECRET_KEY is not set; tokens are signed with an insecure development key")
	}

	db, err := storage.NewDB(*dbPath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	if *reset {
		log.Printf("Resetting database schema at %s", *dbPath)
		if err := db.Reset(); err != nil {
			log.Fatalf("Failed to reset database: %v", err)
		}
	}

	h := handlers.NewHandlers(db, auth.NewTokenService(cfg.SecretKey))
	router := setupRouter(h)

	log.Printf("Server starting on :%s", *port)
	log.Fatal(http.ListenAndServe(":"+*port, router))
}

func setupRouter(h *handlers.Handlers) http.Handler {
	return handlers.CORS(h.Routes())
}
