package main

import (
	"io"
	"os"
	"time"

	"github.com/alecthomas/kong"
	"github.com/rs/zerolog"
)

var cli struct {
	Verbose  bool `short:"v" help:"Enable verbose logging."`
	JSON     bool `name:"json" help:"Log in JSON instead of pretty printing."`
	Progress bool `help:"Show a progress bar on stderr while processing."`

	Fix  fixCmd  `cmd:"" default:"withargs" help:"Write sidecar capture times into images missing them (default)."`
	Scan scanCmd `cmd:"" help:"Report images missing EXIF DateTime or DateTimeDigitized."`
}

type fixCmd struct {
	Folder string `arg:"" type:"path" help:"Folder holding the exported photos and their .json sidecars."`
}

func (c *fixCmd) Run(config *Config, logger zerolog.Logger) error {
	config.Folder = c.Folder

	processor := NewProcessor(config, logger)
	defer func() {
		if err := processor.Close(); err != nil {
			logger.Warn().Err(err).Msg("closing exiftool")
		}
	}()

	if err := processor.Process(); err != nil {
		return err
	}
	logger.Info().Msg("Timestamp fix complete!")
	return nil
}

type scanCmd struct {
	Folder string `arg:"" type:"path" help:"Folder to inspect."`
}

func (c *scanCmd) Run(config *Config, logger zerolog.Logger) error {
	config.Folder = c.Folder

	report, err := ScanFolder(config.Folder, logger)
	if err != nil {
		return err
	}
	report.Print(os.Stdout)
	return nil
}

func newLogger(config *Config) zerolog.Logger {
	level := zerolog.InfoLevel
	if config.Verbose {
		level = zerolog.DebugLevel
	}

	var w io.Writer = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.TimeOnly}
	if config.JSONLogs {
		w = os.Stdout
	}
	return zerolog.New(w).Level(level).With().Timestamp().Logger()
}

func main() {
	ctx := kong.Parse(&cli,
		kong.Name("takeout-timestamp-fixer"),
		kong.Description("Restore photo capture times from export sidecar JSON files into EXIF."),
		kong.UsageOnError(),
	)

	config := &Config{
		Verbose:  cli.Verbose,
		JSONLogs: cli.JSON,
		Progress: cli.Progress,
	}
	logger := newLogger(config)

	if err := ctx.Run(config, logger); err != nil {
		logger.Fatal().Err(err).Msg("fatal error")
	}
}
