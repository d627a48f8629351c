// Package main implements a mock model server for offline development and
// wiring tests. It serves OpenAI-compatible /v1/chat/completions responses
// from JSON fixture files, routing by the "model" field in the request, so
// a full stage pipeline can run without a real model service.
//
// Usage:
//
//	mock-llm -fixtures /path/to/fixtures -port 11434
//
// Fixture files are JSON named by model (e.g., "mock-planner.json" maps to
// model "mock-planner"). The file content is returned as the assistant
// message.
//
// Sequential fixtures: if numbered files exist ("mock-editor.1.json",
// "mock-editor.2.json"), the Nth call to that model returns the Nth
// fixture, with the base "mock-editor.json" repeating after the sequence is
// exhausted. This makes validator-rejection and retry paths scriptable.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
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

type server struct {
	fixtures map[string][]string // model name -> ordered fixture contents
	calls    atomic.Int64

	mu         sync.Mutex
	modelCalls map[string]int
}

func newServer(fixtures map[string][]string) *server {
	return &server{
		fixtures:   fixtures,
		modelCalls: make(map[string]int),
	}
}

func main() {
	fixtureDir := flag.String("fixtures", "", "directory containing fixture response files")
	port := flag.Int("port", 11434, "port to listen on")
	flag.Parse()

	if envDir := os.Getenv("MOCK_LLM_FIXTURES"); envDir != "" && *fixtureDir == "" {
		*fixtureDir = envDir
	}
	if *fixtureDir == "" {
		*fixtureDir = "fixtures"
	}

	fixtures, err := loadFixtures(*fixtureDir)
	if err != nil {
		log.Fatalf("Failed to load fixtures from %s: %v", *fixtureDir, err)
	}
	log.Printf("Loaded %d model(s) from %s", len(fixtures), *fixtureDir)
	for model, seq := range fixtures {
		log.Printf("  model: %s (%d fixture(s))", model, len(seq))
	}

	s := newServer(fixtures)

	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/v1/chat/completions", s.handleChatCompletions)
	mux.HandleFunc("/stats", s.handleStats)

	addr := fmt.Sprintf(":%d", *port)
	log.Printf("Mock model server listening on %s", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}

func (s *server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *server) handleChatCompletions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf("invalid request body: %v", err), http.StatusBadRequest)
		return
	}

	callNum := s.calls.Add(1)

	seq, ok := s.fixtures[req.Model]
	if !ok {
		seq, ok = s.fixtures[strings.TrimPrefix(req.Model, "mock-")]
	}
	if !ok {
		log.Printf("[call %d] no fixture for model=%q", callNum, req.Model)
		http.Error(w, fmt.Sprintf("no fixture for model %q", req.Model), http.StatusNotFound)
		return
	}

	s.mu.Lock()
	idx := s.modelCalls[req.Model]
	s.modelCalls[req.Model]++
	s.mu.Unlock()

	if idx >= len(seq) {
		idx = len(seq) - 1 // repeat last fixture
	}
	content := seq[idx]

	log.Printf("[call %d] model=%s fixture=%d/%d messages=%d",
		callNum, req.Model, idx+1, len(seq), len(req.Messages))

	resp := chatResponse{
		ID:      fmt.Sprintf("mock-%d", time.Now().UnixNano()),
		Object:  "chat.completion",
		Created: time.Now().Unix(),
		Model:   req.Model,
		Choices: []chatChoice{
			{
				Index:        0,
				Message:      chatMessage{Role: "assistant", Content: content},
				FinishReason: "stop",
			},
		},
		Usage: chatUsage{
			PromptTokens:     len(content) / 4, // rough estimate
			CompletionTokens: len(content) / 4,
			TotalTokens:      len(content) / 2,
		},
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

// handleStats returns call counts for test assertions.
func (s *server) handleStats(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	callsByModel := make(map[string]int, len(s.modelCalls))
	for model, n := range s.modelCalls {
		callsByModel[model] = n
	}
	s.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"total_calls":    s.calls.Load(),
		"calls_by_model": callsByModel,
	})
}

// numberedFileRe matches files like "mock-editor.1.json".
var numberedFileRe = regexp.MustCompile(`^(.+)\.(\d+)\.json$`)

// loadFixtures reads JSON files from dir into model -> content sequences:
// numbered files in numeric order, then the base file as repeating
// fallback.
func loadFixtures(dir string) (map[string][]string, error) {
	baseFiles := make(map[string]string)
	numberedFiles := make(map[string]map[int]string)

	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() || !strings.HasSuffix(info.Name(), ".json") {
			return nil
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}
		if !json.Valid(data) {
			return fmt.Errorf("invalid JSON in %s", path)
		}

		if matches := numberedFileRe.FindStringSubmatch(info.Name()); matches != nil {
			model := matches[1]
			index, _ := strconv.Atoi(matches[2])
			if numberedFiles[model] == nil {
				numberedFiles[model] = make(map[int]string)
			}
			numberedFiles[model][index] = string(data)
			return nil
		}

		baseFiles[strings.TrimSuffix(info.Name(), ".json")] = string(data)
		return nil
	})
	if err != nil {
		return nil, err
	}

	fixtures := make(map[string][]string)
	allModels := make(map[string]bool)
	for m := range baseFiles {
		allModels[m] = true
	}
	for m := range numberedFiles {
		allModels[m] = true
	}

	for model := range allModels {
		var seq []string
		if numbered, ok := numberedFiles[model]; ok {
			indices := make([]int, 0, len(numbered))
			for idx := range numbered {
				indices = append(indices, idx)
			}
			sort.Ints(indices)
			for _, idx := range indices {
				seq = append(seq, numbered[idx])
			}
		}
		if base, ok := baseFiles[model]; ok {
			seq = append(seq, base)
		}
		if len(seq) > 0 {
			fixtures[model] = seq
		}
	}

	if len(fixtures) == 0 {
		return nil, fmt.Errorf("no fixture files found in %s", dir)
	}
	return fixtures, nil
}
