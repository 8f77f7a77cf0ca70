// Package quota decides whether a metered request fits inside a plan's
// monthly limits. The policy is pure: callers supply the current month
// summary and the plan limits.
package quota

import "github.com/rezkam/agentplane/internal/domain"

// Decision is the outcome of a quota check.
type Decision struct {
	Allowed bool
	Reason  string
}

// AllowRequest checks one prospective request against the plan's monthly
// message and token caps. estimatedTokens below zero is treated as zero.
func AllowRequest(summary domain.TenantUsageSummary, limits domain.PlanLimits, estimatedTokens int) Decision {
	if summary.MessagesUsed+1 > limits.MonthlyMessages {
		return Decision{Allowed: false, Reason: "monthly message limit reached"}
	}
	if estimatedTokens < 0 {
		estimatedTokens = 0
	}
	if summary.TokensUsed+estimatedTokens > limits.MonthlyTokenCap {
		return Decision{Allowed: false, Reason: "monthly token cap reached"}
	}
	return Decision{Allowed: true}
}

// EstimateTokens approximates the token footprint of an inbound message
// before the agent runs: roughly one token per four bytes, doubled to
// leave room for the response.
func EstimateTokens(message string) int {
	return promptTokens(message) * 2
}

// PromptTokens approximates tokens consumed by the inbound message alone.
func PromptTokens(message string) int {
	return promptTokens(message)
}

func promptTokens(s string) int {
	n := len(s) / 4
	if n < 1 {
		n = 1
	}
	return n
}
