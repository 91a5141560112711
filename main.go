package main

import (
	"os"
	"path/filepath"

	"github.com/joho/godotenv"

	"github.com/theirongolddev/tiercost/cmd"
)

func main() {
	// .env from the working dir, then next to the binary
	_ = godotenv.Load()
	if exe, err := os.Executable(); err == nil {
		_ = godotenv.Load(filepath.Join(filepath.Dir(exe), ".env"))
	}

	cmd.Execute()
}
