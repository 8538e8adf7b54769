/*
Package main is the entry point for eventrank-cli.

Usage:

	eventrank-cli [command]

Available Commands:

	sanitize    Validate, deduplicate and normalize raw calendar records
	rank        Rank events for a student profile
	version     Show version information

Examples:

	# Clean a raw feed
	eventrank-cli sanitize --in feed.json --out events.json

	# Rank the cleaned events
	eventrank-cli rank --profile me.json --events events.json
*/
package main

import (
	"fmt"
	"os"

	"github.com/kailas-cloud/eventrank/internal/cli"
)

func main() {
	if err := cli.NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
