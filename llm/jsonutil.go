package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

var (
	// fencePattern matches a fenced ```json block.
	fencePattern = regexp.MustCompile("(?s)```(?:json)?\\s*(\\{.*?\\})\\s*```")
	// trailingCommaPattern matches trailing commas before ] or }.
	trailingCommaPattern = regexp.MustCompile(`,\s*([}\]])`)
)

// ExtractJSON pulls a JSON object out of an LLM reply. Models wrap JSON in
// code fences, prose, // comments and trailing commas; all are removed.
// Returns "" when the reply has no object.
func ExtractJSON(content string) string {
	raw := ""
	if m := fencePattern.FindStringSubmatch(content); len(m) > 1 {
		raw = m[1]
	} else {
		start := strings.Index(content, "{")
		end := strings.LastIndex(content, "}")
		if start == -1 || end < start {
			return ""
		}
		raw = content[start : end+1]
	}

	lines := strings.Split(raw, "\n")
	for i, line := range lines {
		lines[i] = stripLineComment(line)
	}
	return trailingCommaPattern.ReplaceAllString(strings.Join(lines, "\n"), "$1")
}

// stripLineComment drops a // comment that sits outside any JSON string.
func stripLineComment(line string) string {
	if !strings.Contains(line, "//") {
		return line
	}

	inString, escaped := false, false
	for i := 0; i < len(line); i++ {
		ch := line[i]
		switch {
		case escaped:
			escaped = false
		case ch == '\\' && inString:
			escaped = true
		case ch == '"':
			inString = !inString
		case !inString && ch == '/' && i+1 < len(line) && line[i+1] == '/':
			return strings.TrimRight(line[:i], " \t")
		}
	}
	return line
}

// CompleteJSON runs req and decodes the JSON object in the reply into out.
func CompleteJSON(ctx context.Context, c Completer, req Request, out any) (*Response, error) {
	resp, err := c.Complete(ctx, req)
	if err != nil {
		return nil, err
	}

	raw := ExtractJSON(resp.Content)
	if raw == "" {
		return resp, fmt.Errorf("no JSON object in LLM response (%d chars)", len(resp.Content))
	}
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		return resp, fmt.Errorf("decode LLM JSON: %w", err)
	}
	return resp, nil
}
