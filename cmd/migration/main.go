package main

import (
	"context"
	"flag"
	"log"

	"gitlab.com/dirk.krummacker/contact-intake/internal/config"
	"gitlab.com/dirk.krummacker/contact-intake/internal/database"
	"gitlab.com/dirk.krummacker/contact-intake/internal/logger"
)

// Usage example on the command line:
// > DBHOST=localhost:3306 DBUSER=dirk DBPWD=bullo92 go run main.go
// > DBDRIVER=postgres DBHOST=localhost:5432 DBUSER=dirk DBPWD=bullo92 go run main.go -driver=postgres
func main() {
	driverPtr := flag.String("driver", "", "overrides DBDRIVER (mysql, postgres or sqlite)")
	flag.Parse()

	cfg, err := config.NewConfig()
	if err != nil {
		log.Fatalf("failed to parse config: %v", err)
	}
	if *driverPtr != "" {
		cfg.Database.Driver = *driverPtr
	}
	logger := logger.New(cfg.LogLevel, cfg.LogFormat)

	sqlDB, err := database.Open(context.Background(), cfg.Database)
	if err != nil {
		logger.Fatal("failed to open database", "driver", cfg.Database.Driver, "error", err)
	}
	defer sqlDB.Close()

	if err := database.Migrate(sqlDB, cfg.Database.Driver, logger); err != nil {
		logger.Fatal("migration failed", "error", err)
	}
	logger.Info("database is up to date", "driver", cfg.Database.Driver)
}
