package config

import (
	"os"

	"github.com/joho/godotenv"
)

// dotEnvPath is read before the process environment; variables already set
// in the environment win.
var dotEnvPath = ".env"

func loadDotEnv() error {
	if _, err := os.Stat(dotEnvPath); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return godotenv.Load(dotEnvPath)
}
