// Package main 数据库迁移工具
//
// 用法：bootstrap [up|down|version]，默认 up
package main

import (
	"database/sql"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	"ai-chat-api/internal/config"
	"ai-chat-api/internal/infrastructure/persistence/postgres"
)

func main() {
	_ = godotenv.Load()

	cmd := "up"
	if len(os.Args) > 1 {
		cmd = os.Args[1]
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if cfg.Database.Driver != config.DriverPostgres {
		log.Fatalf("migrations require database.driver=postgres, got %q", cfg.Database.Driver)
	}

	db, err := sql.Open("postgres", postgres.DSN(&cfg.Database.Postgres))
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		log.Fatalf("failed to connect database: %v", err)
	}

	switch cmd {
	case "up":
		if err := postgres.Migrate(db); err != nil {
			log.Fatalf("migration failed: %v", err)
		}
		fmt.Println("Migrations applied.")
	case "down":
		if err := postgres.MigrateDown(db); err != nil {
			log.Fatalf("rollback failed: %v", err)
		}
		fmt.Println("Migrations rolled back.")
	case "version":
		v, dirty, err := postgres.MigrationVersion(db)
		if err != nil {
			log.Fatalf("failed to read version: %v", err)
		}
		fmt.Printf("version=%d dirty=%t\n", v, dirty)
	default:
		log.Fatalf("unknown command %q, expected up|down|version", cmd)
	}
}
