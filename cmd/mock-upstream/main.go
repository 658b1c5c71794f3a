// Package main implements a local stand-in for the services hakbot posts to.
// It answers OpenAI-compatible /v1/chat/completions from JSON fixture files,
// routed by the request's "model" field, and accepts X API v2 tweet creates
// on /2/tweets, recording every text it receives.
//
// Usage:
//
//	mock-upstream -fixtures ./fixtures -addr :11434
//
// Point an endpoint of the model registry at http://localhost:11434/v1 and
// set x.base_url to http://localhost:11434 to run every bot live, offline.
//
// Fixture files are named by model ("llama-3.3-70b-versatile.json" answers
// model "llama-3.3-70b-versatile"). Numbered files ("<model>.1.json",
// "<model>.2.json") are served in order first; the base file then repeats.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
)

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature *float64      `json:"temperature,omitempty"`
}

type chatResponse struct {
	ID      string       `json:"id"`
	Object  string       `json:"object"`
	Created int64        `json:"created"`
	Model   string       `json:"model"`
	Choices []chatChoice `json:"choices"`
	Usage   chatUsage    `json:"usage"`
}

type chatChoice struct {
	Index        int         `json:"index"`
	Message      chatMessage `json:"message"`
	FinishReason string      `json:"finish_reason"`
}

type chatUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

type tweetRequest struct {
	Text  string `json:"text"`
	Reply *struct {
		InReplyToTweetID string `json:"in_reply_to_tweet_id"`
	} `json:"reply,omitempty"`
}

// postedTweet is one accepted tweet create.
type postedTweet struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	InReplyTo string `json:"in_reply_to,omitempty"`
}

// capturedCompletion is one chat request as received.
type capturedCompletion struct {
	Model     string        `json:"model"`
	Messages  []chatMessage `json:"messages"`
	CallIndex int           `json:"call_index"` // 1-indexed per model
}

type server struct {
	logger   *slog.Logger
	fixtures map[string][]string

	mu          sync.Mutex
	calls       map[string]int
	completions []capturedCompletion
	tweets      []postedTweet
	nextTweetID int64
}

func newServer(fixtures map[string][]string, logger *slog.Logger) *server {
	return &server{
		logger:      logger,
		fixtures:    fixtures,
		calls:       make(map[string]int),
		nextTweetID: 1_000_000_000_000_000_000,
	}
}

func (s *server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("POST /v1/chat/completions", s.handleChatCompletions)
	mux.HandleFunc("POST /2/tweets", s.handleCreateTweet)
	mux.HandleFunc("GET /requests", s.handleRequests)
	return mux
}

func main() {
	fixtureDir := flag.String("fixtures", "", "directory containing fixture response files")
	addr := flag.String("addr", ":11434", "address to listen on")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	if envDir := os.Getenv("MOCK_UPSTREAM_FIXTURES"); envDir != "" && *fixtureDir == "" {
		*fixtureDir = envDir
	}
	if *fixtureDir == "" {
		*fixtureDir = "fixtures"
	}

	fixtures, err := loadFixtures(*fixtureDir)
	if err != nil {
		logger.Error("Failed to load fixtures", "dir", *fixtureDir, "error", err)
		os.Exit(1)
	}
	for model, seq := range fixtures {
		logger.Info("Loaded fixtures", "model", model, "count", len(seq))
	}

	srv := &http.Server{
		Addr:              *addr,
		Handler:           newServer(fixtures, logger).routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	logger.Info("Mock upstream listening", "addr", *addr)
	if err := srv.ListenAndServe(); err != nil {
		logger.Error("Server failed", "error", err)
		os.Exit(1)
	}
}

func (s *server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *server) handleChatCompletions(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": fmt.Sprintf("invalid request body: %v", err)})
		return
	}

	seq, ok := s.fixtures[req.Model]
	if !ok {
		s.logger.Warn("No fixture for model", "model", req.Model)
		writeJSON(w, http.StatusNotFound, map[string]string{"error": fmt.Sprintf("no fixture for model %q", req.Model)})
		return
	}

	s.mu.Lock()
	idx := s.calls[req.Model]
	s.calls[req.Model] = idx + 1
	s.completions = append(s.completions, capturedCompletion{
		Model:     req.Model,
		Messages:  req.Messages,
		CallIndex: idx + 1,
	})
	s.mu.Unlock()

	content := seq[min(idx, len(seq)-1)]
	s.logger.Info("Chat completion", "model", req.Model, "call", idx+1, "bytes", len(content))

	writeJSON(w, http.StatusOK, chatResponse{
		ID:      fmt.Sprintf("mock-%d", time.Now().UnixNano()),
		Object:  "chat.completion",
		Created: time.Now().Unix(),
		Model:   req.Model,
		Choices: []chatChoice{{
			Message:      chatMessage{Role: "assistant", Content: content},
			FinishReason: "stop",
		}},
		Usage: chatUsage{
			PromptTokens:     len(content) / 4,
			CompletionTokens: len(content) / 4,
			TotalTokens:      len(content) / 2,
		},
	})
}

func (s *server) handleCreateTweet(w http.ResponseWriter, r *http.Request) {
	if !strings.HasPrefix(r.Header.Get("Authorization"), "OAuth ") {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"title": "Unauthorized"})
		return
	}

	var req tweetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Text) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"title": "Invalid Request"})
		return
	}

	s.mu.Lock()
	s.nextTweetID++
	tweet := postedTweet{ID: strconv.FormatInt(s.nextTweetID, 10), Text: req.Text}
	if req.Reply != nil {
		tweet.InReplyTo = req.Reply.InReplyToTweetID
	}
	s.tweets = append(s.tweets, tweet)
	s.mu.Unlock()

	s.logger.Info("Tweet created", "id", tweet.ID, "in_reply_to", tweet.InReplyTo, "text", tweet.Text)
	writeJSON(w, http.StatusCreated, map[string]any{
		"data": map[string]string{"id": tweet.ID, "text": tweet.Text},
	})
}

// handleRequests returns what the server has received so far. The optional
// model query parameter filters completions.
func (s *server) handleRequests(w http.ResponseWriter, r *http.Request) {
	model := r.URL.Query().Get("model")

	s.mu.Lock()
	completions := make([]capturedCompletion, 0, len(s.completions))
	for _, c := range s.completions {
		if model == "" || c.Model == model {
			completions = append(completions, c)
		}
	}
	tweets := append([]postedTweet(nil), s.tweets...)
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{
		"completions": completions,
		"tweets":      tweets,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// numberedFileRe matches files like "model.1.json".
var numberedFileRe = regexp.MustCompile(`^(.+)\.(\d+)\.json$`)

// loadFixtures reads every JSON file under dir into per-model sequences:
// numbered files in numeric order, then the base file as the repeating tail.
func loadFixtures(dir string) (map[string][]string, error) {
	base := make(map[string]string)
	numbered := make(map[string]map[int]string)

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), ".json") {
			return nil
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}
		if !json.Valid(data) {
			return fmt.Errorf("invalid JSON in %s", path)
		}

		if m := numberedFileRe.FindStringSubmatch(d.Name()); m != nil {
			n, _ := strconv.Atoi(m[2])
			if numbered[m[1]] == nil {
				numbered[m[1]] = make(map[int]string)
			}
			numbered[m[1]][n] = string(data)
			return nil
		}
		base[strings.TrimSuffix(d.Name(), ".json")] = string(data)
		return nil
	})
	if err != nil {
		return nil, err
	}

	fixtures := make(map[string][]string)
	for model, files := range numbered {
		indices := make([]int, 0, len(files))
		for n := range files {
			indices = append(indices, n)
		}
		sort.Ints(indices)
		for _, n := range indices {
			fixtures[model] = append(fixtures[model], files[n])
		}
	}
	for model, content := range base {
		fixtures[model] = append(fixtures[model], content)
	}
	if len(fixtures) == 0 {
		return nil, fmt.Errorf("no fixture files found in %s", dir)
	}
	return fixtures, nil
}
