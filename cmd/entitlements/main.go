// Command entitlements is the operator tool for migrating wildcard
// customer entitlements to explicit per-customer grants.
//
// Subcommands:
//
//	audit            list every wildcard grant still in place
//	export-template  write a mapping skeleton for operators to fill in
//	apply            grant mapped customers and optionally drop wildcards
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rezkam/agentplane/internal/application/access"
	"github.com/rezkam/agentplane/internal/config"
	"github.com/rezkam/agentplane/internal/infrastructure/persistence/postgres"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "failed to run: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	if len(os.Args) < 2 {
		return fmt.Errorf("usage: entitlements <audit|export-template|apply> [flags]")
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if cfg.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	pool, err := postgres.NewPool(ctx, postgres.DBConfig{DSN: cfg.DatabaseURL})
	if err != nil {
		return fmt.Errorf("failed to create database pool: %w", err)
	}
	defer pool.Close()

	svc := access.NewService(postgres.NewAccessCatalog(pool), postgres.NewTenantCatalog(pool))

	switch os.Args[1] {
	case "audit":
		return audit(ctx, svc)
	case "export-template":
		return exportTemplate(ctx, svc, os.Args[2:])
	case "apply":
		return apply(ctx, svc, os.Args[2:])
	default:
		return fmt.Errorf("unknown subcommand %q", os.Args[1])
	}
}

func audit(ctx context.Context, svc *access.Service) error {
	wildcards, err := svc.AuditWildcards(ctx)
	if err != nil {
		return fmt.Errorf("failed to list wildcard grants: %w", err)
	}
	if len(wildcards) == 0 {
		fmt.Println("no wildcard entitlements found")
		return nil
	}
	for _, w := range wildcards {
		fmt.Printf("%s\t%s\tgranted %s\n", w.TenantID, w.AgentID, w.CreatedAt.Format("2006-01-02"))
	}
	fmt.Printf("%d wildcard entitlement(s)\n", len(wildcards))
	return nil
}

func exportTemplate(ctx context.Context, svc *access.Service, args []string) error {
	fs := flag.NewFlagSet("export-template", flag.ContinueOnError)
	output := fs.String("output", "entitlement-mapping.json", "path for the mapping skeleton")
	if err := fs.Parse(args); err != nil {
		return err
	}

	entries, err := svc.ExportTemplate(ctx)
	if err != nil {
		return fmt.Errorf("failed to build template: %w", err)
	}

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode template: %w", err)
	}
	if err := os.WriteFile(*output, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", *output, err)
	}
	fmt.Printf("wrote %d entries to %s\n", len(entries), *output)
	return nil
}

func apply(ctx context.Context, svc *access.Service, args []string) error {
	fs := flag.NewFlagSet("apply", flag.ContinueOnError)
	mappingFile := fs.String("mapping-file", "", "mapping JSON produced from export-template (required)")
	dropWildcards := fs.Bool("drop-wildcards", false, "remove the wildcard grant for fully mapped entries")
	dryRun := fs.Bool("dry-run", false, "report what would change without writing")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *mappingFile == "" {
		return fmt.Errorf("-mapping-file is required")
	}

	data, err := os.ReadFile(*mappingFile)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", *mappingFile, err)
	}
	var entries []access.MappingEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return fmt.Errorf("failed to parse %s: %w", *mappingFile, err)
	}

	report, err := svc.ApplyMapping(ctx, entries, *dropWildcards, *dryRun)
	if err != nil {
		return err
	}

	mode := "applied"
	if report.DryRun {
		mode = "dry run"
	}
	fmt.Printf("%s: %d grant(s), %d wildcard(s) dropped\n", mode, report.Granted, report.WildcardsDropped)
	return nil
}
