package llm

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantKey string
	}{
		{
			name:    "plain JSON",
			input:   `{"mainTweetSummary": "1위: PM"}`,
			wantKey: "mainTweetSummary",
		},
		{
			name:    "code fence with trailing prose",
			input:   "```json\n{\"details\": [{\"rank\": 1}]}\n```\n\n오늘도 좋은 하루!",
			wantKey: "details",
		},
		{
			name:    "prose before and after",
			input:   "Here is the result:\n{\"details\": []}\nHope this helps.",
			wantKey: "details",
		},
		{
			name:    "comments and trailing commas",
			input:   "{\n  \"details\": [\n    {\"persona\": \"A\"},  // first\n    {\"persona\": \"B\"},  // second\n  ],\n}",
			wantKey: "details",
		},
		{
			name:    "URL inside a string is kept",
			input:   `{"url": "https://ko.wikipedia.org/wiki/11월_10일"}`,
			wantKey: "url",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := ExtractJSON(tt.input)
			require.NotEmpty(t, raw)

			var parsed map[string]any
			require.NoError(t, json.Unmarshal([]byte(raw), &parsed), raw)
			assert.Contains(t, parsed, tt.wantKey)
		})
	}
}

func TestExtractJSON_URLPreserved(t *testing.T) {
	raw := ExtractJSON(`{"url": "http://example.com/path"} // trailing`)
	var parsed map[string]string
	require.NoError(t, json.Unmarshal([]byte(raw), &parsed))
	assert.Equal(t, "http://example.com/path", parsed["url"])
}

func TestExtractJSON_NoObject(t *testing.T) {
	assert.Empty(t, ExtractJSON(""))
	assert.Empty(t, ExtractJSON("그냥 텍스트"))
	assert.Empty(t, ExtractJSON("} backwards {"))
}

type stubCompleter struct {
	resp *Response
	err  error
}

func (s stubCompleter) Complete(context.Context, Request) (*Response, error) {
	return s.resp, s.err
}

func TestCompleteJSON(t *testing.T) {
	var out struct {
		Summary string `json:"summary"`
	}

	_, err := CompleteJSON(context.Background(), stubCompleter{resp: &Response{Content: "```json\n{\"summary\": \"ok\"}\n```"}}, Request{}, &out)
	require.NoError(t, err)
	assert.Equal(t, "ok", out.Summary)

	_, err = CompleteJSON(context.Background(), stubCompleter{resp: &Response{Content: "no json here"}}, Request{}, &out)
	assert.ErrorContains(t, err, "no JSON object")

	_, err = CompleteJSON(context.Background(), stubCompleter{resp: &Response{Content: `{"summary": 3}`}}, Request{}, &out)
	assert.ErrorContains(t, err, "decode LLM JSON")

	boom := errors.New("boom")
	_, err = CompleteJSON(context.Background(), stubCompleter{err: boom}, Request{}, &out)
	assert.ErrorIs(t, err, boom)
}
