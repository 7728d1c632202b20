package llm

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/tabletalk-ai/tabletalk/pkg/schema"
)

const sqlSystemPrompt = `You are a SQL expert working against a SQLite database.
Given a schema and a question, respond with exactly one SQLite SELECT statement that answers the question.
Rules:
1. Return ONLY the SQL statement, no explanation and no markdown formatting
2. Generate a single statement; never use semicolons to chain statements
3. Only SELECT (optionally starting with WITH) is allowed; never write INSERT, UPDATE, DELETE or DDL
4. Only reference tables and columns that exist in the schema`

const randomQuerySystemPrompt = `You suggest interesting questions a non-technical user could ask about their data.
Respond with exactly one short natural-language question, no quotes, no explanation.`

const rowsSystemPrompt = `You are a JSON data generator. Your responses must be ONLY valid JSON arrays.
Rules:
1. Start your response with [ and end with ]
2. Do not include any text before or after the JSON array
3. Do not include markdown formatting
4. Each object must have all required fields`

// FormatSchema renders a snapshot as prompt context, tables sorted by name
// so prompts are deterministic.
func FormatSchema(snapshot *schema.Snapshot) string {
	names := make([]string, 0, len(snapshot.Tables))
	for name := range snapshot.Tables {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	for _, name := range names {
		table := snapshot.Tables[name]
		b.WriteString(fmt.Sprintf("Table %s (%d rows):\n", name, table.RowCount))
		for _, col := range table.ColumnOrder {
			b.WriteString(fmt.Sprintf("  %s %s\n", col, table.Columns[col]))
		}
	}
	return b.String()
}

func buildSQLPrompt(question string, snapshot *schema.Snapshot) string {
	return fmt.Sprintf("Database schema:\n%s\nQuestion: %s\n\nSQL:", FormatSchema(snapshot), question)
}

func buildRandomQueryPrompt(snapshot *schema.Snapshot) string {
	return fmt.Sprintf("Database schema:\n%s\nSuggest one interesting question to ask about this data.", FormatSchema(snapshot))
}

func buildRowsPrompt(table string, tableSchema schema.Table, sample []map[string]any, count int) string {
	schemaJSON, _ := json.MarshalIndent(map[string]any{
		"table_name": table,
		"columns":    tableSchema.Columns,
	}, "", "  ")
	sampleJSON, _ := json.MarshalIndent(sample, "", "  ")

	return fmt.Sprintf(`Analyze the following table data and schema, then generate %d new synthetic rows that match the patterns.

Table Schema:
%s

Sample Data (showing patterns to follow):
%s

Instructions:
1. Analyze the data types, formats, and patterns in each column
2. Understand relationships between columns if any
3. Identify value ranges and distributions
4. Recognize patterns like emails, phone numbers, addresses, dates
5. Generate %d new realistic rows that match these patterns
6. Make the data diverse but realistic

IMPORTANT: Return ONLY a valid JSON array with no additional text or markdown.
Return exactly %d objects in this format: [{"col1": "value1", "col2": "value2"}, ...]`,
		count, schemaJSON, sampleJSON, count, count)
}
