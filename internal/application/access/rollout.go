package access

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/rezkam/agentplane/internal/domain"
)

// MappingEntry names the customers that should replace one wildcard grant.
type MappingEntry struct {
	TenantID  string   `json:"tenant_id"`
	AgentID   string   `json:"agent_id"`
	Customers []string `json:"customers"`
}

// ApplyReport summarises a rollout run.
type ApplyReport struct {
	Granted          int  `json:"granted"`
	WildcardsDropped int  `json:"wildcards_dropped"`
	DryRun           bool `json:"dry_run"`
}

// AuditWildcards lists every wildcard entitlement still in place.
func (s *Service) AuditWildcards(ctx context.Context) ([]domain.CustomerAgentEntitlement, error) {
	return s.catalog.ListWildcardEntitlements(ctx)
}

// ExportTemplate builds a mapping skeleton from the current wildcard
// grants, one entry per tenant/agent pair with an empty customer list for
// operators to fill in.
func (s *Service) ExportTemplate(ctx context.Context) ([]MappingEntry, error) {
	wildcards, err := s.catalog.ListWildcardEntitlements(ctx)
	if err != nil {
		return nil, err
	}
	entries := make([]MappingEntry, 0, len(wildcards))
	for _, w := range wildcards {
		entries = append(entries, MappingEntry{
			TenantID:  w.TenantID,
			AgentID:   w.AgentID,
			Customers: []string{},
		})
	}
	return entries, nil
}

// ApplyMapping grants the listed customers and, when dropWildcards is set,
// removes the wildcard grant for each fully mapped entry. With dryRun the
// catalog is left untouched and only the report is produced.
func (s *Service) ApplyMapping(ctx context.Context, entries []MappingEntry, dropWildcards, dryRun bool) (*ApplyReport, error) {
	report := &ApplyReport{DryRun: dryRun}

	for _, entry := range entries {
		if entry.TenantID == "" || entry.AgentID == "" {
			return nil, fmt.Errorf("%w: mapping entry missing tenant_id or agent_id", domain.ErrInvalidInput)
		}
		for _, customer := range entry.Customers {
			if customer == "" || customer == domain.WildcardCustomer {
				return nil, fmt.Errorf("%w: mapping for %s/%s contains an invalid customer",
					domain.ErrInvalidInput, entry.TenantID, entry.AgentID)
			}
			if !dryRun {
				err := s.catalog.GrantEntitlement(ctx, domain.CustomerAgentEntitlement{
					TenantID:   entry.TenantID,
					CustomerID: customer,
					AgentID:    entry.AgentID,
					CreatedAt:  time.Now().UTC(),
				})
				if err != nil {
					return nil, fmt.Errorf("failed to grant %s/%s/%s: %w", entry.TenantID, customer, entry.AgentID, err)
				}
			}
			report.Granted++
		}

		if dropWildcards && len(entry.Customers) > 0 {
			if !dryRun {
				if err := s.catalog.RevokeEntitlement(ctx, entry.TenantID, domain.WildcardCustomer, entry.AgentID); err != nil {
					return nil, fmt.Errorf("failed to drop wildcard for %s/%s: %w", entry.TenantID, entry.AgentID, err)
				}
			}
			report.WildcardsDropped++
		}
	}

	slog.InfoContext(ctx, "entitlement mapping applied",
		"granted", report.Granted,
		"wildcards_dropped", report.WildcardsDropped,
		"dry_run", dryRun)
	return report, nil
}
