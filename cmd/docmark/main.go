package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/dgallion1/docmark/internal/config"
	"github.com/dgallion1/docmark/internal/convert"
	"github.com/dgallion1/docmark/internal/document"
	"github.com/dgallion1/docmark/internal/engine"
)

// Version is set during build.
var Version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newApp().RunContext(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "docmark:", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:    "docmark",
		Usage:   "read, merge and split PDF bookmarks",
		Version: Version,
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "log debug output to stderr",
			},
			&cli.BoolFlag{
				Name:  "quiet",
				Usage: "do not report progress",
			},
		},
		Commands: []*cli.Command{
			bookmarksCommand(),
			mergeCommand(),
			extractCommand(),
			applyCommand(),
		},
	}
}

// newEngine is replaced in tests.
var newEngine = func(log *slog.Logger) engine.Engine { return engine.NewPDFCPU(log) }

// env bundles what every command needs.
type env struct {
	cfg config.Config
	log *slog.Logger
	eng engine.Engine
}

func newEnv(c *cli.Context) *env {
	level := slog.LevelWarn
	if c.Bool("verbose") {
		level = slog.LevelDebug
	}
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	return &env{
		cfg: config.Load(),
		log: log,
		eng: newEngine(log),
	}
}

func (e *env) tool(name string) *convert.Tool {
	return &convert.Tool{Timeout: e.cfg.ConvertTimeout, Log: e.log.With("converter", name)}
}

func (e *env) merger(soffice string) *document.Merger {
	if soffice == "" {
		soffice = e.cfg.SofficePath
	}
	return &document.Merger{
		Engine:  e.eng,
		Word:    &convert.Word{SofficePath: soffice, Tool: e.tool("soffice")},
		WorkDir: e.cfg.WorkDir,
		Log:     e.log,
	}
}

func (e *env) extractor(pdfaCommand string) *document.Extractor {
	if pdfaCommand == "" {
		pdfaCommand = e.cfg.PDFACommand
	}
	return &document.Extractor{
		Engine:  e.eng,
		PDFA:    &convert.PDFA{Command: pdfaCommand, Tool: e.tool("pdfa")},
		WorkDir: e.cfg.WorkDir,
		Log:     e.log,
	}
}
