package main

import (
	"log"
	"net/http"
	"os"
	"time"

	"github.com/SilkePilon/PingPong/internal/db"
	"github.com/SilkePilon/PingPong/internal/live"
	"github.com/alexedwards/scs/sqlite3store"
	"github.com/alexedwards/scs/v2"
	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	database := db.InitDB()
	defer database.Close()

	if err := db.RunMigrations(database.DB); err != nil {
		log.Fatal("Failed to run migrations:", err)
	}

	if os.Getenv("ADMIN_PIN") == "" {
		log.Println("Warning: ADMIN_PIN is not set, admin login is disabled")
	}

	sessionManager := scs.New()
	sessionManager.Lifetime = 24 * time.Hour
	sessionManager.Store = sqlite3store.New(database.DB)

	hub := live.NewHub()
	go hub.Run()

	router := newRouter(sessionManager, hub)

	addr := os.Getenv("ADDR")
	if addr == "" {
		addr = ":8080"
	}

	log.Println("Server starting on", addr)
	if err := http.ListenAndServe(addr, router); err != nil {
		log.Fatal(err)
	}
}
