package dotenv

import (
	"os"
	"path"
	"runtime"

	"github.com/joho/godotenv"
)

// LoadDotEnvs loads .env.<VEILLE_ENV> from the repository root, falling
// back to .env.dev when VEILLE_ENV isn't set. In prod all configuration
// comes from real environment variables and nothing is loaded.
func LoadDotEnvs() error {
	env := os.Getenv("VEILLE_ENV")
	if env == "prod" {
		return nil
	}
	if env == "" {
		env = "dev"
	}

	// Resolve relative to this file so tests running from package dirs
	// still find the env file.
	_, filename, _, _ := runtime.Caller(0)
	root := path.Join(path.Dir(filename), "../..")
	return godotenv.Load(path.Join(root, ".env."+env))
}
