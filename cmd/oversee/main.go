package main

import (
	"os"

	"github.com/joho/godotenv"

	"oversee-cli/internal/cli"
)

func main() {
	// A .env next to the binary may carry OVERSEE_API_URL and friends.
	_ = godotenv.Load()

	cmd := cli.NewRootCmd()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
