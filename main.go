/*
Copyright © 2025 Alexander van Eck
*/
package main

import (
	"fmt"
	"os"

	"github.com/alexandervaneck/lambda-ai-cloud-api-client/cmd"
	"github.com/alexandervaneck/lambda-ai-cloud-api-client/internal/config"
	"github.com/alexandervaneck/lambda-ai-cloud-api-client/internal/logging"
)

func main() {
	// .env may carry LOG_LEVEL, so it goes first
	if err := config.LoadDotEnv(".env"); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	if err := logging.InitLogger(""); err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}

	code := cmd.Execute()
	if err := logging.Sync(); err != nil {
		fmt.Fprintf(os.Stderr, "failed to sync logger on exit: %v\n", err)
	}
	os.Exit(code)
}
