package main

import (
	"database/sql"
	"log"

	_ "github.com/lib/pq"

	"github.com/antoinecstl/finance-portfolio/internal/api"
	"github.com/antoinecstl/finance-portfolio/internal/marketdata"
	"github.com/antoinecstl/finance-portfolio/internal/migrations"
	"github.com/antoinecstl/finance-portfolio/internal/store"
	"github.com/antoinecstl/finance-portfolio/internal/utils"
)

func main() {
	config, err := utils.LoadConfig("configs")
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := utils.NewAppLogger()
	logger.SetLevel(config.Log.Level)

	config.BuildDSN()
	db, err := sql.Open("postgres", config.Database.DSN)
	if err != nil {
		logger.Fatal("Failed to open database: %v", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		logger.Fatal("Failed to connect to database: %v", err)
	}

	if err := migrations.RunMigrations(db); err != nil {
		logger.Fatal("Failed to run migrations: %v", err)
	}

	st := store.NewPostgresStore(db, logger)
	provider := marketdata.NewClient(config.MarketData, logger)

	server := api.NewServer(logger, config, db, st, provider)
	if err := server.Start(); err != nil {
		logger.Fatal("Server error: %v", err)
	}
}
