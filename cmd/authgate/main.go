// Package main is the entry point for authgate.
package main

import (
	"context"
	"os"

	"github.com/charmbracelet/fang/v2"
	"github.com/spf13/cobra"
)

const (
	defaultConfigFile = "config.yaml"
	appName           = "authgate"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   appName,
	Short: "Pluggable authentication gateway for HTTP APIs",
	Long: `authgate guards an HTTP API with a configurable authentication strategy:
HTTP Basic, in-memory sessions, expiring sessions, or sessions persisted to a
file, Redis, Postgres, S3 or an embedded key-value store.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		"config file path (default: ./"+defaultConfigFile+" or ~/.config/"+appName+"/"+defaultConfigFile+")")
}

func main() {
	if err := fang.Execute(context.Background(), rootCmd); err != nil {
		os.Exit(1)
	}
}
