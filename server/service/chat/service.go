// Package chat orchestrates one coaching turn: gather context, render the
// prompt, call the model, and hand the bookkeeping to background workers so
// the response returns as soon as the model does.
package chat

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/teamlens/teamlens/plugin/ai"
	"github.com/teamlens/teamlens/plugin/ai/mention"
	"github.com/teamlens/teamlens/plugin/ai/prompt"
	"github.com/teamlens/teamlens/plugin/ai/semantic"
	"github.com/teamlens/teamlens/plugin/ai/teamctx"
	engineerrors "github.com/teamlens/teamlens/server/internal/errors"
	"github.com/teamlens/teamlens/server/internal/observability"
	"github.com/teamlens/teamlens/server/worker"
	"github.com/teamlens/teamlens/store"
)

// maxMessageLen bounds a single turn's input.
const maxMessageLen = 8000

// transcriptWindow is how many prior turns feed the prompt.
const transcriptWindow = 10

// offlineReply goes out when no completion provider is configured.
const offlineReply = "The assistant is running without an AI provider, so I can only record this conversation. Configure an AI provider to get coaching replies."

// ContextBuilder assembles the per-turn management context.
type ContextBuilder interface {
	BuildContext(ctx context.Context, userID int32) (*teamctx.ManagementContext, error)
}

// SemanticSearcher finds related past conversations.
type SemanticSearcher interface {
	Search(ctx context.Context, userID int32, query string, scopePersonID *int32) (*semantic.Result, error)
}

// MentionDetector extracts people referenced in the message. DetectLocal is
// the heuristic-only pass the foreground uses; Detect runs the full cascade
// including AI validation and belongs in background work.
type MentionDetector interface {
	DetectLocal(message string, existingNames []string) []mention.DetectedPerson
	Detect(ctx context.Context, userID int32, message string, existingNames []string) []mention.DetectedPerson
}

// PatternRecorder persists learning signals from finished exchanges.
type PatternRecorder interface {
	RecordFromConversation(ctx context.Context, userID int32, messages []*store.Message) error
}

// DataStore is the store surface the service touches directly.
type DataStore interface {
	GetPerson(ctx context.Context, find *store.FindPerson) (*store.Person, error)
	UpdatePerson(ctx context.Context, update *store.UpdatePerson) (*store.Person, error)
	ListMessages(ctx context.Context, find *store.FindMessage) ([]*store.Message, error)
	CreateMessage(ctx context.Context, create *store.Message) (*store.Message, error)
	UpsertMessageEmbedding(ctx context.Context, upsert *store.MessageEmbedding) (*store.MessageEmbedding, error)
}

// TurnRequest is one user turn.
type TurnRequest struct {
	UserID   int32
	PersonID *int32
	Topic    string
	Message  string
}

// TurnResponse is what the handler returns to the client.
type TurnResponse struct {
	RequestID      string                   `json:"requestId"`
	Reply          string                   `json:"reply"`
	DetectedPeople []mention.DetectedPerson `json:"detectedPeople,omitempty"`
}

type Service struct {
	store      DataStore
	builder    ContextBuilder
	searcher   SemanticSearcher
	detector   MentionDetector
	recorder   PatternRecorder
	assembler  *prompt.Assembler
	completion ai.CompletionService
	embedder   ai.EmbeddingService
	pool       *worker.Pool

	embeddingModel string
	logger         *slog.Logger
}

type Options struct {
	Store          DataStore
	Builder        ContextBuilder
	Searcher       SemanticSearcher
	Detector       MentionDetector
	Recorder       PatternRecorder
	Assembler      *prompt.Assembler
	Completion     ai.CompletionService
	Embedder       ai.EmbeddingService
	Pool           *worker.Pool
	EmbeddingModel string
	Logger         *slog.Logger
}

func NewService(opts Options) *Service {
	if opts.Assembler == nil {
		opts.Assembler = prompt.NewAssembler(prompt.DefaultConfig())
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Service{
		store:          opts.Store,
		builder:        opts.Builder,
		searcher:       opts.Searcher,
		detector:       opts.Detector,
		recorder:       opts.Recorder,
		assembler:      opts.Assembler,
		completion:     opts.Completion,
		embedder:       opts.Embedder,
		pool:           opts.Pool,
		embeddingModel: opts.EmbeddingModel,
		logger:         opts.Logger,
	}
}

// Chat runs one turn end to end. Context gathering degrades branch by branch;
// only input validation and the model call itself can fail the turn.
func (s *Service) Chat(ctx context.Context, req *TurnRequest) (*TurnResponse, error) {
	rc := observability.NewRequestContext(s.logger, "chat", req.UserID)

	message := strings.TrimSpace(req.Message)
	if message == "" {
		return nil, engineerrors.InvalidArgument("message is empty")
	}
	if len(message) > maxMessageLen {
		return nil, engineerrors.InvalidArgument("message is too long")
	}

	focus := s.resolveFocus(ctx, req)

	var (
		mgmtCtx    *teamctx.ManagementContext
		semResult  *semantic.Result
		transcript []*store.Message
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		mgmtCtx, err = s.builder.BuildContext(gctx, req.UserID)
		if err != nil {
			rc.Logger.Warn("context build degraded", "err", err)
			mgmtCtx = &teamctx.ManagementContext{}
		}
		return nil
	})
	g.Go(func() error {
		if s.searcher == nil {
			return nil
		}
		var err error
		semResult, err = s.searcher.Search(gctx, req.UserID, message, req.PersonID)
		if err != nil {
			rc.Logger.Warn("semantic search degraded", "err", err)
		}
		return nil
	})
	g.Go(func() error {
		transcript = s.loadTranscript(gctx, req)
		return nil
	})
	// Branches never return errors, they degrade in place.
	_ = g.Wait()

	mgmtCtx.Semantic = semResult

	// The response only carries the regex-tier detections. The full cascade
	// with AI validation runs as a background task after the reply is out.
	roster := rosterNames(mgmtCtx)
	var detected []mention.DetectedPerson
	if s.detector != nil {
		detected = s.detector.DetectLocal(message, roster)
	}
	systemPrompt := s.assembler.Assemble(prompt.Input{
		Context:    mgmtCtx,
		Focus:      focus,
		Transcript: transcript,
	})

	reply, err := s.complete(ctx, systemPrompt, message)
	if err != nil {
		rc.Done(err)
		return nil, engineerrors.AIUnavailable("completion failed", err)
	}

	s.dispatchBackground(req, message, reply, transcript, roster)

	rc.Done(nil)
	return &TurnResponse{
		RequestID:      rc.RequestID,
		Reply:          reply,
		DetectedPeople: detected,
	}, nil
}

func (s *Service) complete(ctx context.Context, systemPrompt, message string) (string, error) {
	if s.completion == nil {
		return offlineReply, nil
	}
	return s.completion.Complete(ctx, []ai.Message{
		ai.SystemPrompt(systemPrompt),
		ai.UserMessage(message),
	})
}

func (s *Service) resolveFocus(ctx context.Context, req *TurnRequest) *store.Person {
	if req.PersonID == nil {
		return nil
	}
	person, err := s.store.GetPerson(ctx, &store.FindPerson{ID: req.PersonID, CreatorID: &req.UserID})
	if err != nil {
		slog.Warn("focus person lookup failed", "personID", *req.PersonID, "err", err)
		return nil
	}
	return person
}

func (s *Service) loadTranscript(ctx context.Context, req *TurnRequest) []*store.Message {
	limit := transcriptWindow
	messages, err := s.store.ListMessages(ctx, &store.FindMessage{
		CreatorID: &req.UserID,
		PersonID:  req.PersonID,
		Limit:     &limit,
	})
	if err != nil {
		slog.Warn("transcript load failed", "err", err)
		return nil
	}
	return messages
}

// dispatchBackground hands persistence, mention detection, and learning to
// the worker pool. The turn's response never waits on any of this.
func (s *Service) dispatchBackground(req *TurnRequest, message, reply string, transcript []*store.Message, roster []string) {
	if s.pool == nil {
		return
	}
	userID := req.UserID
	personID := req.PersonID
	topic := req.Topic

	s.pool.Submit(worker.Task{Name: "persist-turn", Run: func(ctx context.Context) error {
		now := time.Now().Unix()
		userMsg, err := s.store.CreateMessage(ctx, &store.Message{
			CreatorID: userID,
			CreatedTs: now,
			PersonID:  personID,
			Topic:     topic,
			Role:      store.MessageRoleUser,
			Content:   message,
		})
		if err != nil {
			return err
		}
		if _, err := s.store.CreateMessage(ctx, &store.Message{
			CreatorID: userID,
			CreatedTs: now,
			PersonID:  personID,
			Topic:     topic,
			Role:      store.MessageRoleAssistant,
			Content:   reply,
		}); err != nil {
			return err
		}

		if personID != nil {
			if _, err := s.store.UpdatePerson(ctx, &store.UpdatePerson{ID: *personID, LastContactTs: &now}); err != nil {
				slog.Warn("last contact bump failed", "personID", *personID, "err", err)
			}
		}

		s.embedMessage(ctx, userMsg)
		return nil
	}})

	if s.detector != nil {
		s.pool.Submit(worker.Task{Name: "detect-mentions", Run: func(ctx context.Context) error {
			for _, p := range s.detector.Detect(ctx, userID, message, roster) {
				slog.Info("person mention detected",
					"name", p.Name,
					"confidence", p.Confidence,
					"relationship", p.RelationshipHint)
			}
			return nil
		}})
	}

	if s.recorder != nil {
		s.pool.Submit(worker.Task{Name: "record-patterns", Run: func(ctx context.Context) error {
			conversation := append([]*store.Message{}, transcript...)
			now := time.Now().Unix()
			conversation = append(conversation,
				&store.Message{CreatorID: userID, CreatedTs: now, PersonID: personID, Role: store.MessageRoleUser, Content: message},
				&store.Message{CreatorID: userID, CreatedTs: now, PersonID: personID, Role: store.MessageRoleAssistant, Content: reply},
			)
			return s.recorder.RecordFromConversation(ctx, userID, conversation)
		}})
	}
}

func rosterNames(mgmtCtx *teamctx.ManagementContext) []string {
	if mgmtCtx == nil {
		return nil
	}
	names := make([]string, 0, len(mgmtCtx.People))
	for _, p := range mgmtCtx.People {
		names = append(names, p.Name)
	}
	return names
}

func (s *Service) embedMessage(ctx context.Context, m *store.Message) {
	if s.embedder == nil || m == nil {
		return
	}
	vector, err := s.embedder.Embed(ctx, m.Content)
	if err != nil {
		// The embedding runner picks it up later.
		slog.Warn("inline embedding failed, leaving for backfill", "messageID", m.ID, "err", err)
		return
	}
	if _, err := s.store.UpsertMessageEmbedding(ctx, &store.MessageEmbedding{
		MessageID: m.ID,
		Embedding: vector,
		Model:     s.embeddingModel,
	}); err != nil {
		slog.Warn("embedding upsert failed", "messageID", m.ID, "err", err)
	}
}
