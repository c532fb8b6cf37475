// Package config resolves the CLI configuration from arguments, the
// environment and an optional .env file.
//
// Precedence, highest first: command line flags, LEDGER_* environment
// variables, the .env file, defaults.
package config

import (
	"flag"
	"io"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

const (
	EnvPrefix = "LEDGER"

	keyLogLevel  = "log_level"
	keyLogFormat = "log_format"

	DefaultLogLevel  = "warn"
	DefaultLogFormat = "console"
)

// Usage is printed when the arguments cannot be parsed.
const Usage = "usage: ledger [--log-level debug|info|warn|error] [--log-format json|console] <transactions.csv>"

// ErrUsage marks errors caused by bad command line arguments.
var ErrUsage = errors.New("invalid arguments")

type Config struct {
	InputPath string `validate:"required"`
	LogLevel  string `validate:"oneof=debug info warn error"`
	LogFormat string `validate:"oneof=json console"`
}

// Load builds a Config from args (without the program name). envFile names an
// optional dotenv file; a missing file is not an error.
func Load(args []string, envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, errors.Wrapf(err, "load %s", envFile)
		}
	}

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	v.SetDefault(keyLogLevel, DefaultLogLevel)
	v.SetDefault(keyLogFormat, DefaultLogFormat)

	fs := flag.NewFlagSet("ledger", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	logLevel := fs.String("log-level", "", "log level: debug, info, warn or error")
	logFormat := fs.String("log-format", "", "log encoding: json or console")
	if err := fs.Parse(args); err != nil {
		return nil, errors.Wrapf(ErrUsage, "%v", err)
	}

	if *logLevel != "" {
		v.Set(keyLogLevel, *logLevel)
	}
	if *logFormat != "" {
		v.Set(keyLogFormat, *logFormat)
	}

	switch fs.NArg() {
	case 0:
		return nil, errors.Wrap(ErrUsage, "missing input file argument")
	case 1:
	default:
		return nil, errors.Wrapf(ErrUsage, "expected one input file, got %d arguments", fs.NArg())
	}

	cfg := &Config{
		InputPath: fs.Arg(0),
		LogLevel:  strings.ToLower(v.GetString(keyLogLevel)),
		LogFormat: strings.ToLower(v.GetString(keyLogFormat)),
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(ErrUsage, err.Error())
	}
	return nil
}
