package main

import (
	"os"

	"github.com/joho/godotenv"

	"github.com/revq-dev/revq/internal/cli"
)

func main() {
	// A local .env is a convenience for development; its absence is normal.
	_ = godotenv.Load()

	os.Exit(cli.Run())
}
