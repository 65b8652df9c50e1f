// Command mapty-mcp serves the Mapty MCP tools over stdio against a remote
// Mapty server.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/claude/mapty/internal/mcp"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	url := flag.String("url", os.Getenv("MAPTY_URL"), "base URL of the Mapty server (env MAPTY_URL)")
	flag.Parse()

	// stdout carries the MCP protocol, so logs go to stderr.
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	if *url == "" {
		fmt.Fprintf(os.Stderr, "Usage: mapty-mcp -url http://mapty.tailnet.ts.net\n")
		flag.PrintDefaults()
		os.Exit(1)
	}

	log.Info("Mapty MCP starting", "version", Version, "url", *url)
	s := mcp.New(mcp.NewHTTPClient(*url, log), Version, log)
	if err := mcpserver.ServeStdio(s); err != nil {
		log.Error("mcp server error", "error", err)
		os.Exit(1)
	}
}
