// Package agent runs conversation turns: it selects the relevant sheets,
// loads and projects them, and drives the answer generator through any tool
// calls it makes.
package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/papercomputeco/tabula/pkg/answer"
	"github.com/papercomputeco/tabula/pkg/llm"
	"github.com/papercomputeco/tabula/pkg/selector"
	"github.com/papercomputeco/tabula/pkg/sheets"
	"github.com/papercomputeco/tabula/pkg/source"
	"github.com/papercomputeco/tabula/pkg/tools"
	"github.com/papercomputeco/tabula/pkg/transcript"
)

// DefaultMaxToolRounds bounds the tool loop when Config leaves it unset.
const DefaultMaxToolRounds = 5

// ErrEmptyMessage is returned for a blank user message.
var ErrEmptyMessage = errors.New("message is empty")

// Config configures an Agent.
type Config struct {
	// Model is recorded with every transcript node.
	Model string

	// MaxToolRounds is how many times the generator may ask for tools in one
	// turn. After that it is called once more with no tools declared.
	MaxToolRounds int

	// MaxSessions caps the session registry created by New. Zero means no cap.
	MaxSessions int
}

// Agent is the turn orchestrator.
type Agent struct {
	config    Config
	selector  *selector.Selector
	fetcher   *source.Fetcher
	generator *answer.Generator
	tools     *tools.Registry
	sessions  *Sessions
	recorder  *transcript.Recorder
	logger    *zap.Logger
}

// Option customizes an Agent.
type Option func(*Agent)

// WithSessions shares a session registry with the agent.
func WithSessions(s *Sessions) Option {
	return func(a *Agent) { a.sessions = s }
}

// WithTranscript records every turn through rec.
func WithTranscript(rec *transcript.Recorder) Option {
	return func(a *Agent) { a.recorder = rec }
}

// New creates an Agent.
func New(config Config, sel *selector.Selector, fetcher *source.Fetcher, gen *answer.Generator, reg *tools.Registry, logger *zap.Logger, opts ...Option) *Agent {
	if config.MaxToolRounds <= 0 {
		config.MaxToolRounds = DefaultMaxToolRounds
	}
	a := &Agent{
		config:    config,
		selector:  sel,
		fetcher:   fetcher,
		generator: gen,
		tools:     reg,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.sessions == nil {
		a.sessions = NewSessions(WithSessionLimit(config.MaxSessions))
	}
	return a
}

// Sessions returns the agent's session registry.
func (a *Agent) Sessions() *Sessions {
	return a.sessions
}

// Transcript returns the recorder, or nil when turns are not recorded.
func (a *Agent) Transcript() *transcript.Recorder {
	return a.recorder
}

// Reply is the outcome of a turn.
type Reply struct {
	SessionID  string
	Content    string
	Selection  sheets.Selection
	ToolRounds int
	Duration   time.Duration
}

// Chat runs one turn of sessionID (the default session when empty). A failed
// turn leaves the session untouched.
func (a *Agent) Chat(ctx context.Context, sessionID, message string) (*Reply, error) {
	if strings.TrimSpace(message) == "" {
		return nil, ErrEmptyMessage
	}

	sess := a.sessions.Open(sessionID)
	sess.turn.Lock()
	defer sess.turn.Unlock()

	t := &turn{
		agent:   a,
		session: sess,
		history: sess.Messages(),
		start:   time.Now(),
		logger:  a.logger.With(zap.String("session_id", sess.ID)),
	}
	t.append(llm.UserMessage(message))

	if err := t.run(ctx); err != nil {
		return nil, err
	}

	head := a.record(ctx, sess, t.fresh)
	sess.commit(t.fresh, t.selection, t.data, head)

	t.logger.Info("turn complete",
		zap.Strings("sheets", t.selection.Sheets()),
		zap.Int("tool_rounds", t.rounds),
		zap.Duration("duration", time.Since(t.start)),
	)

	return &Reply{
		SessionID:  sess.ID,
		Content:    t.reply,
		Selection:  t.selection,
		ToolRounds: t.rounds,
		Duration:   time.Since(t.start),
	}, nil
}

func (a *Agent) record(ctx context.Context, sess *Session, msgs []llm.Message) string {
	if a.recorder == nil {
		return ""
	}
	head, err := a.recorder.Record(ctx, sess.Head(), llm.ConversationTurn{
		SessionID: sess.ID,
		Model:     a.config.Model,
		Messages:  msgs,
	})
	if err != nil {
		// The reply stands even if it could not be recorded.
		a.logger.Error("failed to record turn", zap.String("session_id", sess.ID), zap.Error(err))
		return ""
	}
	return head
}

// turn is the working state of one Chat call.
type turn struct {
	agent   *Agent
	session *Session
	logger  *zap.Logger
	start   time.Time

	history []llm.Message
	// fresh is the suffix of history added by this turn.
	fresh []llm.Message

	selection sheets.Selection
	data      sheets.Data
	view      sheets.View
	last      llm.Message
	rounds    int
	reply     string
}

func (t *turn) run(ctx context.Context) error {
	a := t.agent
	for state := Selecting; state != Done; {
		t.logger.Debug("turn state", zap.Stringer("state", state))

		switch state {
		case Selecting:
			res, err := a.selector.Select(ctx, t.history)
			if err != nil {
				return err
			}
			t.selection = res.Selection
			if t.selection == nil {
				t.selection = sheets.Selection{}
			}
			state = Loading

		case Loading:
			t.data = a.fetcher.Fetch(ctx, t.selection.Sheets())
			state = Projecting

		case Projecting:
			t.view = sheets.Project(t.data, t.selection)
			state = Answering

		case Answering:
			withTools := t.rounds < a.config.MaxToolRounds
			if !withTools {
				t.logger.Warn("tool round limit reached, requesting a final answer",
					zap.Int("rounds", t.rounds),
				)
			}
			msg, err := a.generator.Generate(ctx, t.view, t.history, withTools)
			if err != nil {
				return err
			}
			t.append(msg)
			t.last = msg
			if msg.WantsTools() {
				state = ToolExecuting
			} else {
				state = Done
			}

		case ToolExecuting:
			t.rounds++
			tctx := tools.Context{SessionID: t.session.ID, Data: t.data}
			for _, call := range t.last.ToolCalls {
				msg, err := a.tools.Execute(ctx, tctx, call)
				if err != nil {
					t.logger.Warn("tool call failed",
						zap.String("tool", call.Function.Name),
						zap.Error(err),
					)
				}
				t.append(msg)
			}
			state = Answering

		default:
			return fmt.Errorf("unexpected turn state %s", state)
		}
	}

	t.reply = strings.TrimSpace(t.last.Content)
	if t.reply == "" {
		t.reply = answer.Refusal
	}
	return nil
}

func (t *turn) append(msg llm.Message) {
	t.history = append(t.history, msg)
	t.fresh = append(t.fresh, msg)
}
