package services

import (
	"context"
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/tmc/langchaingo/llms"

	"github/itish2003/cricketbot/models"
)

// Sentinels substituted for degraded stage outputs.
const (
	ProcessFailed   = "Process failed"
	NoDataAvailable = "No data available"
)

// DefaultContextDocs is how many retrieved chunks reach the answer prompt.
const DefaultContextDocs = 2

// Stage is a step of a conversation turn.
type Stage int

const (
	StageReceived Stage = iota
	StageQueryRewritten
	StageRetrieved
	StagePrompted
	StageResponded
	StageMemoryUpdated
)

func (s Stage) String() string {
	switch s {
	case StageReceived:
		return "RECEIVED"
	case StageQueryRewritten:
		return "QUERY_REWRITTEN"
	case StageRetrieved:
		return "RETRIEVED"
	case StagePrompted:
		return "PROMPTED"
	case StageResponded:
		return "RESPONDED"
	case StageMemoryUpdated:
		return "MEMORY_UPDATED"
	default:
		return fmt.Sprintf("Stage(%d)", int(s))
	}
}

// TurnState carries the output of every stage reached so far.
type TurnState struct {
	Stage    Stage
	UserText string
	Memory   []models.ConversationTurn
	Query    string
	Results  []models.SearchResult
	Context  string
	Prompt   string
	Response string
}

// Assistant answers questions about the indexed corpus, remembering the last
// few turns of its conversation.
type Assistant struct {
	llm         llms.Model
	retriever   Retriever
	memory      *MemoryWindow
	contextDocs int
}

func NewAssistant(llm llms.Model, retriever Retriever, memory *MemoryWindow, contextDocs int) *Assistant {
	if contextDocs <= 0 {
		contextDocs = DefaultContextDocs
	}
	if memory == nil {
		memory = NewMemoryWindow(DefaultMemoryWindow)
	}
	return &Assistant{
		llm:         llm,
		retriever:   retriever,
		memory:      memory,
		contextDocs: contextDocs,
	}
}

// Memory returns the assistant's conversation window.
func (a *Assistant) Memory() *MemoryWindow {
	return a.memory
}

// HandleUserInput runs one conversation turn and returns the response text.
func (a *Assistant) HandleUserInput(ctx context.Context, text string) (string, error) {
	state, err := a.Run(ctx, text)
	if err != nil {
		return "", err
	}
	return state.Response, nil
}

// Run takes a turn through every stage in order. A failing stage aborts the
// turn and leaves the memory untouched.
func (a *Assistant) Run(ctx context.Context, text string) (*TurnState, error) {
	state := &TurnState{
		Stage:    StageReceived,
		UserText: text,
		Memory:   a.memory.Snapshot(),
	}
	memory := formatMemory(state.Memory)

	rewritePrompt, err := queryRewritePrompt.Format(map[string]any{"input": text, "memory": memory})
	if err != nil {
		return state, fmt.Errorf("failed to render query rewrite prompt: %w", err)
	}
	query, err := llms.GenerateFromSinglePrompt(ctx, a.llm, rewritePrompt)
	if err != nil {
		return state, fmt.Errorf("query rewrite failed: %w", err)
	}
	state.Query = strings.TrimSpace(query)
	if state.Query == "" {
		state.Query = ProcessFailed
	}
	a.advance(state, StageQueryRewritten)

	results, err := a.retriever.Invoke(ctx, state.Query)
	if err != nil {
		return state, fmt.Errorf("retrieval failed: %w", err)
	}
	if len(results) > a.contextDocs {
		results = results[:a.contextDocs]
	}
	state.Results = results
	if len(results) == 0 {
		state.Context = NoDataAvailable
	} else {
		state.Context = formatContext(results)
	}
	a.advance(state, StageRetrieved)

	state.Prompt, err = answerPrompt.Format(map[string]any{
		"system":  GetSystemPrompt(),
		"input":   text,
		"context": state.Context,
		"memory":  memory,
	})
	if err != nil {
		return state, fmt.Errorf("failed to render answer prompt: %w", err)
	}
	a.advance(state, StagePrompted)

	state.Response, err = llms.GenerateFromSinglePrompt(ctx, a.llm, state.Prompt)
	if err != nil {
		return state, fmt.Errorf("response generation failed: %w", err)
	}
	a.advance(state, StageResponded)

	a.memory.Append(models.ConversationTurn{Question: text, Response: state.Response})
	a.advance(state, StageMemoryUpdated)
	return state, nil
}

func (a *Assistant) advance(state *TurnState, next Stage) {
	state.Stage = next
	entry := log.WithField("stage", next)
	switch next {
	case StageQueryRewritten:
		entry = entry.WithField("query", state.Query)
	case StageRetrieved:
		entry = entry.WithField("results", len(state.Results))
	}
	entry.Debug("ASSISTANT: stage complete")
}
