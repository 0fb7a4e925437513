package models

import "context"

// Model is the completion capability the agent loop drives. Complete sends
// one prompt and returns the raw completion text, cut at the first
// occurrence of any stop sequence. Providers that honor stop sequences
// server side still pass through truncateAtStop so the contract holds
// everywhere.
type Model interface {
	Complete(ctx context.Context, prompt string, stop []string) (string, error)
}
