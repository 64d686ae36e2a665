// Command academy-admin runs maintenance tasks against the academy database:
// schema migration, account creation and course seeding.
package main

import (
	"log"
	"os"

	"academy/backend/config"
	"academy/backend/utils"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Error loading config: %v", err)
	}
	logger := utils.NewLogger(utils.InitLogger(), cfg.RollbarToken, cfg.Env)
	defer logger.Close()

	db, err := utils.InitDB(cfg, logger)
	if err != nil {
		log.Fatalf("Error initializing database: %v", err)
	}

	a := &admin{db: db, log: logger}
	if err := a.app().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
