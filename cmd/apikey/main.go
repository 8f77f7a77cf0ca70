// Command apikey mints tenant API keys for the static-key authentication
// path and prints the TENANT_API_KEYS_JSON fragment to configure them.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/rezkam/agentplane/internal/infrastructure/keygen"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "failed to run: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	tenantID := flag.String("tenant", "", "tenant id the key belongs to (required)")
	keyType := flag.String("type", "sk", "key type prefix")
	version := flag.String("version", "v1", "key format version")
	flag.Parse()

	if *tenantID == "" {
		flag.Usage()
		return fmt.Errorf("-tenant is required")
	}

	key, err := keygen.GenerateAPIKey(*keyType, keygen.Service, *version)
	if err != nil {
		return fmt.Errorf("failed to generate key: %w", err)
	}

	fragment, err := json.Marshal(map[string]string{*tenantID: key.FullKey})
	if err != nil {
		return fmt.Errorf("failed to encode key fragment: %w", err)
	}

	fmt.Printf("API key:        %s\n", key.FullKey)
	fmt.Printf("Display form:   %s\n", key.GetDisplayKey())
	fmt.Printf("Secret digest:  %s\n", keygen.HashSecret(key.LongSecret))
	fmt.Printf("\nMerge into TENANT_API_KEYS_JSON:\n  %s\n", fragment)
	return nil
}
