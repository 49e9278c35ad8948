// Package session runs follow-up question threads over a generated report.
// Each session pins the report summary and an evidence index; answers are
// produced by the LLM with retrieved evidence inlined, and every turn is
// persisted so threads survive restarts.
package session

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"cyberflux/internal/ingest"
	"cyberflux/internal/llm"
	"cyberflux/internal/logging"
	"cyberflux/internal/rag"
	"cyberflux/internal/store"

	"github.com/google/uuid"
)

// retrievedPerQuestion is how many evidence rows back each answer.
const retrievedPerQuestion = 5

// Session is one follow-up thread.
type Session struct {
	ID            string
	ReportSummary string
	index         *rag.Index
	turns         []store.SessionTurn
}

// Manager owns live sessions and their persistence.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	client   llm.Client
	store    *store.Store
}

// NewManager wires the LLM client and store into a session manager.
func NewManager(client llm.Client, st *store.Store) *Manager {
	return &Manager{
		sessions: make(map[string]*Session),
		client:   client,
		store:    st,
	}
}

// Start opens a session over a report summary and its evidence rows.
// A nil embedder degrades retrieval to lexical matching.
func (m *Manager) Start(ctx context.Context, reportSummary string, evidence []ingest.EvidenceRow, embedder rag.Embedder) (*Session, error) {
	index, err := rag.BuildIndex(ctx, embedder, evidence)
	if err != nil {
		return nil, fmt.Errorf("failed to start session: %w", err)
	}

	sess := &Session{
		ID:            uuid.NewString(),
		ReportSummary: reportSummary,
		index:         index,
	}

	m.mu.Lock()
	m.sessions[sess.ID] = sess
	m.mu.Unlock()

	logging.Report("session %s started with %d evidence rows", sess.ID, len(evidence))
	return sess, nil
}

// Get returns a live session by id.
func (m *Manager) Get(id string) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sess, ok := m.sessions[id]
	return sess, ok
}

// Ask answers a follow-up question in the given session. The prompt embeds
// the original report summary, the prior turns, and the evidence rows most
// relevant to the question.
func (m *Manager) Ask(ctx context.Context, sessionID, question string) (string, error) {
	m.mu.RLock()
	sess, ok := m.sessions[sessionID]
	var prior []store.SessionTurn
	if ok {
		prior = append([]store.SessionTurn(nil), sess.turns...)
	}
	m.mu.RUnlock()
	if !ok {
		return "", fmt.Errorf("unknown session: %s", sessionID)
	}

	retrieved, err := sess.index.Retrieve(ctx, question, retrievedPerQuestion)
	if err != nil {
		return "", fmt.Errorf("failed to retrieve evidence: %w", err)
	}

	prompt := buildFollowUpPrompt(sess.ReportSummary, prior, question, retrieved)
	answer, err := m.client.CompleteWithSystem(ctx,
		"You are a security analyst answering follow-up questions about a network traffic report. Answer only from the report and evidence given.",
		prompt,
	)
	if err != nil {
		return "", fmt.Errorf("failed to answer question: %w", err)
	}

	// Turn numbers are claimed under the lock so concurrent questions on
	// the same session cannot collide and get dropped by the store.
	m.mu.Lock()
	turn := store.SessionTurn{
		SessionID:  sessionID,
		TurnNumber: len(sess.turns) + 1,
		Question:   question,
		Answer:     answer,
	}
	sess.turns = append(sess.turns, turn)
	m.mu.Unlock()

	if m.store != nil {
		if err := m.store.SaveTurn(turn); err != nil {
			logging.StoreError("failed to persist turn %d of session %s: %v", turn.TurnNumber, sessionID, err)
		}
	}
	return answer, nil
}

// Turns returns the accumulated turns of a session, preferring the store
// when available so restarted services still see history.
func (m *Manager) Turns(sessionID string) ([]store.SessionTurn, error) {
	if m.store != nil {
		return m.store.GetTurns(sessionID)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	sess, ok := m.sessions[sessionID]
	if !ok {
		return nil, fmt.Errorf("unknown session: %s", sessionID)
	}
	return append([]store.SessionTurn(nil), sess.turns...), nil
}

func buildFollowUpPrompt(summary string, prior []store.SessionTurn, question string, retrieved []ingest.EvidenceRow) string {
	var b strings.Builder

	b.WriteString("Report summary:\n")
	b.WriteString(summary)
	b.WriteString("\n\n")

	if len(prior) > 0 {
		b.WriteString("Prior conversation:\n")
		for _, t := range prior {
			fmt.Fprintf(&b, "Q: %s\nA: %s\n", t.Question, t.Answer)
		}
		b.WriteString("\n")
	}

	if len(retrieved) > 0 {
		b.WriteString("Relevant evidence rows:\n")
		b.WriteString(ingest.FormatEvidence(retrieved))
		b.WriteString("\n\n")
	}

	b.WriteString("Question: ")
	b.WriteString(question)
	return b.String()
}
