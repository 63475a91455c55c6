package chat

import (
	"context"
	"regexp"
	"time"

	"github.com/mindwell-app/mindwell-backend/internal/app/sessions"
	"github.com/mindwell-app/mindwell-backend/internal/domain"
	"github.com/mindwell-app/mindwell-backend/internal/observability"
)

// enrichTrigger gates the video lookup on reply content.
var enrichTrigger = regexp.MustCompile(`(?i)video|watch|dekh|tutorial|guide`)

// Service runs one complete conversation turn: dispatch upstream with
// fail-over, enrich the reply, persist the turn pair.
type Service struct {
	dispatcher *Dispatcher
	sessions   *sessions.Reconciler
	enricher   domain.Enricher

	enrichTimeout time.Duration
	now           func() time.Time
}

func NewService(
	dispatcher *Dispatcher,
	reconciler *sessions.Reconciler,
	enricher domain.Enricher,
	enrichTimeout time.Duration,
) *Service {
	if enrichTimeout <= 0 {
		enrichTimeout = 5 * time.Second
	}
	return &Service{
		dispatcher:    dispatcher,
		sessions:      reconciler,
		enricher:      enricher,
		enrichTimeout: enrichTimeout,
		now:           time.Now,
	}
}

type TurnInput struct {
	Identity   domain.Identity
	Prompt     string
	History    []domain.Turn
	SessionRef domain.SessionRef
}

type TurnResult struct {
	Reply      string
	SessionRef domain.SessionRef
	Videos     []domain.Video

	// FragmentsSent counts fragments that reached the caller's sink.
	FragmentsSent int

	// Persisted closes when the storage attempt finishes. Informational:
	// persistence is best-effort and never fails the turn.
	Persisted <-chan struct{}
}

// Run executes one turn, forwarding fragments through onFragment as
// they arrive.
//
// Error semantics mirror the streaming transport: a non-nil error with
// a nil result means nothing reached the client and a clean error
// response is still possible. A non-nil error WITH a result means the
// stream was interrupted mid-reply: whatever text was accumulated is
// persisted best-effort and the caller must emit an in-band error
// event.
func (s *Service) Run(
	ctx context.Context,
	in TurnInput,
	onFragment func(text string) error,
) (*TurnResult, error) {
	log := observability.LoggerFromContext(ctx).With(
		"user_id", in.Identity.StableID,
		"session_ref", in.SessionRef,
	)

	reply, sent, err := s.dispatcher.Stream(ctx, domain.GenerateRequest{
		Prompt:  in.Prompt,
		History: in.History,
	}, onFragment)

	if err != nil && sent == 0 {
		log.Error("turn failed before streaming", "error", err)
		return nil, err
	}

	res := &TurnResult{
		Reply:         reply,
		FragmentsSent: sent,
	}

	if err == nil {
		res.Videos = s.lookupVideos(ctx, in.Prompt, reply)
	} else {
		log.Warn("stream interrupted mid-reply, keeping partial text", "error", err, "fragments", sent)
	}

	// The generated ref must exist before the terminal event is written,
	// so it is derived here and persistence runs detached.
	ref := in.SessionRef
	if ref == "" {
		ref = sessions.NewRef(s.now())
	}
	res.SessionRef = ref

	if reply != "" {
		turns := []domain.Turn{
			domain.NewTurn(domain.RoleUser, in.Prompt),
			modelTurn(reply, res.Videos),
		}
		res.Persisted = s.sessions.PersistTurn(ctx, in.Identity, ref, turns)
	} else {
		closed := make(chan struct{})
		close(closed)
		res.Persisted = closed
	}

	return res, err
}

// lookupVideos is the best-effort enrichment side-channel: it runs only
// when the reply matches the trigger terms, under a bounded timeout,
// and every failure degrades to no videos.
func (s *Service) lookupVideos(ctx context.Context, prompt, reply string) []domain.Video {
	if s.enricher == nil || !enrichTrigger.MatchString(reply) {
		return nil
	}

	lookupCtx, cancel := context.WithTimeout(ctx, s.enrichTimeout)
	defer cancel()

	videos, err := s.enricher.Lookup(lookupCtx, prompt)
	if err != nil {
		observability.LoggerFromContext(ctx).Warn("video lookup failed (non-critical)", "error", err)
		return nil
	}
	return videos
}

func modelTurn(reply string, videos []domain.Video) domain.Turn {
	t := domain.NewTurn(domain.RoleModel, reply)
	t.Videos = videos
	return t
}
