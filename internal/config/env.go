package config

import (
	"errors"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
)

const DefaultDataDir = ".brazilnut"

// Env is the process environment relevant to the CLI.
type Env struct {
	LogLevel  string
	LogFormat string
	DataDir   string
}

// LoadEnv loads the given dotenv files (".env" when none are named) into the
// process environment without overriding variables that are already set.
// Missing files are not an error.
func LoadEnv(files ...string) (Env, error) {
	if err := godotenv.Load(files...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Env{}, err
	}

	env := Env{
		LogLevel:  os.Getenv("LOG_LEVEL"),
		LogFormat: os.Getenv("LOG_FORMAT"),
		DataDir:   os.Getenv("BRAZILNUT_DATA"),
	}
	if env.DataDir == "" {
		env.DataDir = DefaultDataDir
	}
	return env, nil
}
