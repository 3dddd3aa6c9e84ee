package main

import (
	"flag"
	"fmt"
	"log"

	"github.com/eventify/internal/config"
	"github.com/eventify/internal/db"
)

func main() {
	cfg := config.Load()

	name := flag.String("name", "Demo User", "display name")
	email := flag.String("email", "demo@eventify.local", "login email")
	password := flag.String("password", "demo123", "login password (at least 6 characters)")
	flag.Parse()

	if len(*password) < 6 {
		log.Fatal("password must be at least 6 characters")
	}

	if err := db.Init(cfg.DatabasePath); err != nil {
		log.Fatal("failed to initialize database:", err)
	}

	if err := db.EnsureUser(*name, *email, *password); err != nil {
		log.Fatal("failed to create user:", err)
	}

	fmt.Println("demo account ready")
	fmt.Println("email:", *email)
	fmt.Println("password:", *password)
}
