package main

import (
	"github.com/joho/godotenv"
	"github.com/pgwrap/pgwrap/cmd"
)

func main() {
	// Load .env file if it exists, ignore errors since it's optional
	_ = godotenv.Load()

	cmd.Execute()
}
