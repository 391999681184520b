// Command reefcore-survival computes survival reports for stored outplanting
// events and writes them as JSON. Storage backend selection follows the
// REEFCORE_STORAGE_DRIVER environment variable.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"

	"reefcore/internal/core"
	"reefcore/internal/reconcile"
	"reefcore/pkg/domain"
)

var exitFunc = os.Exit

func main() {
	exitFunc(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("reefcore-survival", flag.ContinueOnError)
	fs.SetOutput(stderr)
	eventID := fs.String("event", "", "compute a single event report instead of all visible events")
	userID := fs.String("user", "", "restrict visibility to events owned by this user id")
	unrestricted := fs.Bool("unrestricted", false, "see all events regardless of ownership")
	pretty := fs.Bool("pretty", false, "indent JSON output")
	workers := fs.Int("workers", 0, "reconcile events concurrently with this many workers")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	store, err := core.OpenPersistentStore(core.NewDefaultRulesEngine())
	if err != nil {
		fmt.Fprintf(stderr, "open store: %v\n", err)
		return 1
	}
	defer closeStore(store)

	opts := []core.ServiceOption{}
	if *workers > 0 {
		opts = append(opts, core.WithReconcileEngine(newEngine(*workers)))
	}
	svc := core.NewService(store, opts...)

	// No -user means operator access: see everything.
	scope := domain.Scope{UserID: *userID, Unrestricted: *unrestricted || *userID == ""}

	ctx := context.Background()
	var payload any
	switch {
	case *eventID != "":
		report, ok, err := svc.ComputeSurvivalReport(ctx, scope, *eventID)
		if err != nil {
			fmt.Fprintf(stderr, "compute report: %v\n", err)
			return 1
		}
		if !ok {
			fmt.Fprintf(stderr, "event %s has no monitoring submissions\n", *eventID)
			return 1
		}
		payload = report
	default:
		reports, err := svc.ComputeSurvivalReports(ctx, scope)
		if err != nil {
			fmt.Fprintf(stderr, "compute reports: %v\n", err)
			return 1
		}
		payload = reports
	}

	enc := json.NewEncoder(stdout)
	if *pretty {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(payload); err != nil {
		fmt.Fprintf(stderr, "encode: %v\n", err)
		return 1
	}
	return 0
}

func newEngine(workers int) *reconcile.Engine {
	return reconcile.New(reconcile.WithWorkers(workers))
}

func closeStore(store core.PersistentStore) {
	if closer, ok := store.(io.Closer); ok {
		_ = closer.Close()
	}
}
