package cli

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// EnvFileVar names a .env file that takes precedence over the --env flag.
const EnvFileVar = "SIGN_ENV_FILE"

// EnvLoader loads .env files with a predictable override order.
type EnvLoader struct {
	value       *string
	defaultPath string
}

// AddEnvFlag registers an --env flag and returns an EnvLoader.
func AddEnvFlag(fs *flag.FlagSet, defaultPath, description string) *EnvLoader {
	if fs == nil {
		fs = flag.CommandLine
	}
	if defaultPath == "" {
		defaultPath = ".env"
	}
	if description == "" {
		description = "Path to the .env file"
	}

	return &EnvLoader{
		value:       fs.String("env", defaultPath, description),
		defaultPath: defaultPath,
	}
}

// Load applies $SIGN_ENV_FILE when set, otherwise the --env path, and returns the file used.
func (l *EnvLoader) Load() (string, error) {
	if l == nil {
		return "", fmt.Errorf("env loader is nil")
	}

	path := strings.TrimSpace(os.Getenv(EnvFileVar))
	if path == "" && l.value != nil {
		path = strings.TrimSpace(*l.value)
	}
	if path == "" {
		path = l.defaultPath
	}

	if err := godotenv.Overload(path); err != nil {
		return "", fmt.Errorf("load env file %s: %w", path, err)
	}
	return path, nil
}
