// Package cmd contains the command-line entry points: the chat API
// server (default), the dev tool-provider server, and version output.
package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/richardwu/ai-chatbot/internal/config"
	"github.com/richardwu/ai-chatbot/internal/log"
)

// Version information (injected at build time via ldflags).
var (
	AppVersion = "0.0.1"
	BuildTime  = "unknown"
	GitCommit  = "unknown"
)

// Execute is the main entry point. It routes the first argument to a
// subcommand; with no arguments it runs the API server.
func Execute() error {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "version", "--version", "-v":
			printVersionInfo(os.Stdout)
			return nil
		case "help", "--help", "-h":
			printHelp(os.Stdout)
			return nil
		case "serve":
			return runServe()
		case "serve-tools":
			return runServeTools()
		default:
			printHelp(os.Stderr)
			return fmt.Errorf("unknown command %q", os.Args[1])
		}
	}
	return runServe()
}

// newLogger builds the process logger from config and installs it as
// the slog default.
func newLogger(cfg *config.Config) log.Logger {
	logger := log.New(log.Config{
		Level: log.ParseLevel(cfg.LogLevel),
		JSON:  cfg.LogJSON,
	})
	slog.SetDefault(logger)
	return logger
}

func printHelp(w io.Writer) {
	fmt.Fprintf(w, `ai-chatbot - streaming chat service with tool-augmented generation

Usage:
  ai-chatbot [command]

Commands:
  serve        Run the chat API server (default)
  serve-tools  Run the dev MCP tool-provider server
  version      Show version information
  help         Show this help

Configuration is read from CHATBOT_* environment variables and
./config.yaml or ~/.ai-chatbot/config.yaml.
`)
}
