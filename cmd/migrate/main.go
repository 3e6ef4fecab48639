// Command migrate applies the goose SQL migrations. The database URL comes
// from AUTHCORE_DB_URL and the command (up, down, status) from the first
// argument, defaulting to up.
package main

import (
	"log"
	"os"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

func main() {
	dbURL := os.Getenv("AUTHCORE_DB_URL")
	if dbURL == "" {
		log.Fatal("AUTHCORE_DB_URL is empty")
	}
	dir := "migrations"
	if d := os.Getenv("AUTHCORE_MIGRATIONS_DIR"); d != "" {
		dir = d
	}
	command := "up"
	if len(os.Args) > 1 {
		command = os.Args[1]
	}

	if err := goose.SetDialect("postgres"); err != nil {
		log.Fatalf("set dialect: %v", err)
	}
	db, err := goose.OpenDBWithDriver("pgx", dbURL)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	defer db.Close()

	switch command {
	case "up":
		err = goose.Up(db, dir)
	case "down":
		err = goose.Down(db, dir)
	case "status":
		err = goose.Status(db, dir)
	default:
		log.Fatalf("unknown command %q", command)
	}
	if err != nil {
		log.Fatalf("migrate %s: %v", command, err)
	}
	log.Printf("migrate %s: OK", command)
}
