// Package llm turns natural-language questions into candidate SQL and
// synthesizes data rows. Everything a provider returns is untrusted input:
// generated SQL goes through the policy gate and safe executor like any
// other statement, never with elevated trust for being machine-generated.
package llm

import (
	"context"

	"github.com/tabletalk-ai/tabletalk/pkg/schema"
)

// Generator defines the LLM operations the service needs.
// Use this interface for dependency injection to enable mocking in tests.
type Generator interface {
	// GenerateSQL produces a candidate SQL statement for a free-text
	// question given the current schema snapshot.
	GenerateSQL(ctx context.Context, question string, snapshot *schema.Snapshot) (string, error)

	// GenerateRandomQuery produces an example natural-language question a
	// user could ask about the current schema.
	GenerateRandomQuery(ctx context.Context, snapshot *schema.Snapshot) (string, error)

	// GenerateRows synthesizes rows that follow the patterns in the sampled
	// data. Keys of each returned row are column names.
	GenerateRows(ctx context.Context, table string, tableSchema schema.Table, sample []map[string]any, count int) ([]map[string]any, error)

	// Model returns the configured model name.
	Model() string
}

// completer is the provider seam: one text completion call. The Generator
// implementation layers prompting and response parsing on top of it.
type completer interface {
	complete(ctx context.Context, system, prompt string, temperature float32) (string, error)
	model() string
}
