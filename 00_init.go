package main

import (
	"log"
	"os"

	"github.com/joho/godotenv"
)

func init() {
	// Load .env before anything else reads the environment; ENV_FILE points elsewhere
	envFile := os.Getenv("ENV_FILE")
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil {
		log.Printf("No %s file found: %v", envFile, err)
	}
}
