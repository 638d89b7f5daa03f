// Package main runs the PeakForm MCP server over stdio, so an MCP host can
// analyze exports from the local disk.
package main

import (
	"context"
	"flag"
	"os"

	"github.com/bhackerb/PeakForm-C/internal/config"
	peakformmcp "github.com/bhackerb/PeakForm-C/internal/mcp"
	"github.com/bhackerb/PeakForm-C/pkg"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	log "github.com/sirupsen/logrus"
)

const version = "1.0.0"

func main() {
	env := flag.String("env", "development", "environment [prod | production | dev | development]")
	configPath := flag.String("config", "./config.toml", "path to TOML config file (optional)")
	flag.Parse()

	// stdout carries the protocol
	log.SetOutput(os.Stderr)

	cfg := config.Default()
	exists, err := pkg.PathExists(*configPath, false)
	if err != nil {
		log.Fatalf("check config path: %s", err)
	}
	if exists {
		if cfg, err = config.Load(*env, *configPath); err != nil {
			log.Fatalf("load config: %s", err)
		}
	}

	svc := peakformmcp.NewAnalysisService(cfg.ColumnKeywords(), cfg.Policy, nil)
	server := peakformmcp.NewServer(svc, version)

	if err := server.Run(context.Background(), &mcp.StdioTransport{}); err != nil {
		log.Fatal(err)
	}
}
