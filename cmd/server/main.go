// Package main is the entry point for the octatools API server
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/james-see/octatools/pkg/api"
	"github.com/james-see/octatools/pkg/history"
	"github.com/james-see/octatools/pkg/transplant"
)

func main() {
	defaultHistory, _ := history.DefaultPath()
	port := flag.Int("port", 8080, "Server port")
	historyPath := flag.String("history", defaultHistory, "Bank copy journal (empty disables)")
	noBackup := flag.Bool("no-backup", false, "Skip backups of destination files")
	flag.Parse()

	if err := run(*port, *historyPath, transplant.Options{NoBackup: *noBackup}); err != nil {
		fmt.Fprintf(os.Stderr, "Server error: %v\n", err)
		os.Exit(1)
	}
}

// run serves the API until it fails. The journal is closed before returning.
func run(port int, historyPath string, opts transplant.Options) error {
	var store *history.Store
	if historyPath != "" {
		var err error
		if store, err = history.Open(historyPath); err != nil {
			return fmt.Errorf("failed to open history: %w", err)
		}
		defer func() { _ = store.Close() }()
	}

	fmt.Printf("Starting octatools API server on port %d...\n", port)
	fmt.Printf("Swagger docs available at http://localhost:%d/swagger/index.html\n", port)

	return api.StartServer(port, opts, store)
}
