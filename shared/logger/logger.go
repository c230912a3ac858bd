package logger

import (
	"io"
	"os"
	"time"

	"carrental/config"
	"carrental/shared/constant"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func InitLogger() {
	Configure(os.Stdout, constant.ServerEnvDevelopment)
}

// Configure points the global logger at out. Development gets the human
// readable console format, every other environment gets one JSON object per line.
func Configure(out io.Writer, env string) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	zerolog.SetGlobalLevel(zerolog.TraceLevel)

	if env == constant.ServerEnvDevelopment {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}

	log.Logger = zerolog.New(out).With().Timestamp().Logger()
	log.Trace().Str("env", env).Msg("Zerolog initialized.")
}

func ErrorWithStack(err error) {
	log.Error().Msgf("%+v", errors.WithStack(err))
}

// Setup applies the environment and level from cfg.
func Setup(cfg *config.Config) {
	Configure(os.Stdout, cfg.Server.Env)
	SetLogLevel(cfg)

	if cfg.App.Name != constant.Empty {
		log.Logger = log.With().Str("app", cfg.App.Name).Logger()
	}
}

func SetLogLevel(config *config.Config) {
	level, err := zerolog.ParseLevel(config.Server.LogLevel)
	if err != nil || config.Server.LogLevel == constant.Empty {
		level = zerolog.TraceLevel
		log.Trace().Str("loglevel", level.String()).Msg("Environment has no log level set up, using default.")
	} else {
		log.Trace().Str("loglevel", level.String()).Msg("Desired log level detected.")
	}

	zerolog.SetGlobalLevel(level)
}
