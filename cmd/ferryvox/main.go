package main

import (
	"os"

	"github.com/joho/godotenv"
)

func main() {
	// A missing .env is normal; FERRYVOX_* variables may come from the shell.
	_ = godotenv.Load()

	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
