package main

import (
	"log"

	"cti-precheck/internal/app"
	"cti-precheck/internal/logger"
)

func main() {
	appLogger := logger.NewConsoleLogger(logger.LevelFromEnv())

	application, err := app.NewApplication(appLogger)
	if err != nil {
		log.Fatalf("Application initialization failed: %v", err)
	}

	if err := application.Run(); err != nil {
		log.Fatalf("Application execution failed: %v", err)
	}
}
