package services

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"vaultrag/internal/clearance"
	"vaultrag/internal/models"

	"github.com/google/uuid"
)

// deniedAnswer is what the user sees when no cleared document matches.
const deniedAnswer = "Access Denied: No documents found matching your security clearance."

// Identity is the immutable per-session caller identity the pipeline
// operates on. It is built once from the verified token, never from
// request bodies.
type Identity struct {
	Username   string
	EmployeeID string
}

// retrievalGateway, generationGateway and historyStore are the pipeline's
// views of its collaborators; concrete services are bound in main.
type retrievalGateway interface {
	Retrieve(ctx context.Context, query string, role clearance.Role) ([]models.RetrievalResult, error)
}

type generationGateway interface {
	Generate(ctx context.Context, query, contextStr string, role clearance.Role) (string, error)
}

type answerCache interface {
	Get(ctx context.Context, key string) (*models.CacheEntry, bool)
	Put(ctx context.Context, key string, role clearance.Role, question, answer string, sources []string)
}

type historyStore interface {
	AppendHistory(ctx context.Context, username string, messages []models.ChatMessage) error
}

// PipelineService orchestrates one query end to end: resolve role, check
// the role-bound cache, retrieve within clearance, generate, classify, and
// persist. A denial arms the session's escalation state; RequestAccess
// consumes it.
//
// Within one session queries run strictly sequentially; across sessions
// everything is concurrent. Two sessions racing on the same (role, query)
// may both recompute and both write the cache; last write wins and both
// writers computed the same answer, so the race is accepted.
type PipelineService struct {
	cache      answerCache
	retrieval  retrievalGateway
	generation generationGateway
	classifier DenialClassifier
	sessions   *SessionService
	notifier   *NotifierService
	history    historyStore
	metrics    *Metrics
	timeout    time.Duration
}

// NewPipelineService creates the query pipeline.
func NewPipelineService(
	cache answerCache,
	retrieval retrievalGateway,
	generation generationGateway,
	classifier DenialClassifier,
	sessions *SessionService,
	notifier *NotifierService,
	history historyStore,
	timeout time.Duration,
) *PipelineService {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &PipelineService{
		cache:      cache,
		retrieval:  retrieval,
		generation: generation,
		classifier: classifier,
		sessions:   sessions,
		notifier:   notifier,
		history:    history,
		timeout:    timeout,
	}
}

// SetMetrics attaches Prometheus metrics (optional).
func (p *PipelineService) SetMetrics(m *Metrics) {
	p.metrics = m
}

// Ask processes one query for one session. Remote calls are bounded by the
// pipeline timeout; their failures are surfaced once, never retried here.
func (p *PipelineService) Ask(ctx context.Context, identity Identity, query string) (*models.QueryResponse, error) {
	// One in-flight query per session.
	lock := p.sessions.Lock(identity.Username)
	lock.Lock()
	defer lock.Unlock()

	started := time.Now()
	if p.metrics != nil {
		p.metrics.Queries.Inc()
		defer func() {
			p.metrics.QueryLatency.Observe(time.Since(started).Seconds())
		}()
	}

	queryID := uuid.NewString()

	role, err := clearance.Resolve(identity.EmployeeID)
	if err != nil {
		p.countError("unresolved_role")
		log.Printf("❌ [PIPELINE] %s: unresolved role for %s", queryID, identity.Username)
		return nil, err
	}

	// A new, non-identical query clears any armed denial.
	if denied, ok := p.sessions.DeniedQuery(identity.Username); ok && !sameQuery(denied, query) {
		p.sessions.ClearDenial(identity.Username)
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	key := DeriveCacheKey(role, query)

	if entry, ok := p.cache.Get(ctx, key); ok {
		if p.metrics != nil {
			p.metrics.CacheHits.Inc()
		}
		log.Printf("⚡ [PIPELINE] %s: cache hit for %s (role: %s)", queryID, identity.Username, role)
		resp := &models.QueryResponse{
			Answer:  entry.Answer,
			Sources: entry.Sources,
			Cached:  true,
		}
		p.persistExchange(ctx, identity.Username, query, resp.Answer)
		return resp, nil
	}

	results, err := p.retrieval.Retrieve(ctx, query, role)
	if err != nil {
		p.countError("retrieval_unavailable")
		return nil, err
	}

	// Zero cleared documents short-circuits to a denial; no generation call.
	if len(results) == 0 {
		return p.deny(ctx, queryID, identity, query, deniedAnswer), nil
	}

	var contextBuilder strings.Builder
	sources := make([]string, 0, len(results))
	for _, res := range results {
		contextBuilder.WriteString(res.Text)
		contextBuilder.WriteString("\n")
		sources = append(sources, res.Source)
	}

	answer, err := p.generation.Generate(ctx, query, contextBuilder.String(), role)
	if err != nil {
		p.countError("generation_unavailable")
		return nil, err
	}

	if p.classifier.Classify(answer) == VerdictDenied {
		return p.deny(ctx, queryID, identity, query, answer), nil
	}

	// Only answered results are cacheable; a denial under one role must
	// never be replayed under any evaluation.
	p.cache.Put(ctx, key, role, query, answer, sources)

	resp := &models.QueryResponse{
		Answer:  answer,
		Sources: sources,
	}
	p.persistExchange(ctx, identity.Username, query, answer)
	return resp, nil
}

// deny records a denial: the text still goes to chat history, and the
// session's escalation state is armed. Nothing is written to the shared
// answer cache.
func (p *PipelineService) deny(ctx context.Context, queryID string, identity Identity, query, answer string) *models.QueryResponse {
	if p.metrics != nil {
		p.metrics.Denials.Inc()
	}
	log.Printf("🔒 [PIPELINE] %s: denied query for %s", queryID, identity.Username)

	p.sessions.ArmDenial(identity.Username, query)
	p.persistExchange(ctx, identity.Username, query, answer)

	return &models.QueryResponse{
		Answer: answer,
		Denied: true,
	}
}

// persistExchange appends the question/answer pair to the user's chat
// history. Failures degrade history, not answers, so they are only logged.
func (p *PipelineService) persistExchange(ctx context.Context, username, question, answer string) {
	now := time.Now()
	messages := []models.ChatMessage{
		{Role: "user", Content: question, Timestamp: now},
		{Role: "assistant", Content: answer, Timestamp: now},
	}
	if err := p.history.AppendHistory(ctx, username, messages); err != nil {
		log.Printf("⚠️  [PIPELINE] Failed to persist history for %s: %v", username, err)
	}
}

// RequestAccess sends the escalation for the session's armed denial. The
// denial state is consumed only on a successful send; on failure it stays
// armed so the user can retry manually.
func (p *PipelineService) RequestAccess(ctx context.Context, identity Identity) error {
	deniedQuery, ok := p.sessions.DeniedQuery(identity.Username)
	if !ok {
		return errors.New("no denied query to escalate")
	}

	event := models.AccessRequestEvent{
		Requester:   identity.Username,
		EmployeeID:  identity.EmployeeID,
		DeniedQuery: deniedQuery,
		Timestamp:   time.Now(),
	}

	if err := p.notifier.Notify(ctx, event); err != nil {
		if p.metrics != nil {
			p.metrics.Escalations.WithLabelValues("failed").Inc()
		}
		return err
	}

	p.sessions.ClearDenial(identity.Username)
	if p.metrics != nil {
		p.metrics.Escalations.WithLabelValues("sent").Inc()
	}
	return nil
}

func (p *PipelineService) countError(errorType string) {
	if p.metrics != nil {
		p.metrics.QueryErrors.WithLabelValues(errorType).Inc()
	}
}

// sameQuery compares queries under cache-key normalization.
func sameQuery(a, b string) bool {
	return strings.ToLower(strings.TrimSpace(a)) == strings.ToLower(strings.TrimSpace(b))
}
