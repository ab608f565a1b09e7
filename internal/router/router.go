// Package router classifies queries and dispatches them to the scoring,
// explore or analysis path over the current document session.
package router

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"reportrag/internal/agents"
	"reportrag/internal/assembly"
	"reportrag/internal/config"
	"reportrag/internal/ingest"
	"reportrag/internal/models"
	"reportrag/internal/providers"
	"reportrag/internal/telemetry"
	"reportrag/internal/vector"
)

const (
	msgNoScorable   = "No documents could be scored. Please make sure you've uploaded valid PDF or TXT files."
	msgNoUserDocs   = "No user documents have been uploaded. Please upload documents first to use Explore mode."
	msgStartExplore = "Explore mode has not been started. Start an explore session first."
)

type Deps struct {
	Completer agents.Completer
	Embedder  providers.EmbeddingProvider
	// Store persists the analysis index.
	Store    vector.Store
	Criteria *models.ScoringCriteria
	Metrics  *models.MetricsSet
}

type Router struct {
	cfg       config.Config
	deps      Deps
	logger    *zap.Logger
	loader    *ingest.Loader
	assembler *assembly.Assembler
	scorer    *agents.Scorer
	index     *vector.Index
	session   *Session
}

// New opens the analysis index and builds an empty session. The analysis
// agent exists from the start, so a persisted index is searchable before any
// documents are loaded in this process.
func New(ctx context.Context, cfg config.Config, deps Deps, logger *zap.Logger) (*Router, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if deps.Completer == nil || deps.Embedder == nil {
		return nil, errors.New("router requires a completer and an embedder")
	}
	if deps.Store == nil {
		deps.Store = vector.NewMemoryStore()
	}
	loader := ingest.NewLoader(logger)
	r := &Router{
		cfg:       cfg,
		deps:      deps,
		logger:    logger,
		loader:    loader,
		assembler: assembly.New(assembly.OptionsFromConfig(cfg), loader, logger),
		scorer:    agents.NewScorer(loader, deps.Completer, deps.Criteria, cfg.ScoringMaxChars, logger),
		index:     vector.NewIndex(deps.Store, deps.Embedder, indexOptions(cfg), logger.Named("analysis_index")),
		session:   newSession(),
	}
	existed, err := r.index.CreateOrLoad(ctx)
	if err != nil {
		return nil, fmt.Errorf("open analysis index: %w", err)
	}
	r.session.analysis = r.newAnalysisAgent()
	logger.Info("router ready", zap.String("session_id", r.session.id), zap.Bool("index_loaded", existed),
		zap.Bool("criteria_loaded", deps.Criteria != nil), zap.Bool("metrics_loaded", deps.Metrics != nil))
	return r, nil
}

func indexOptions(cfg config.Config) vector.Options {
	return vector.Options{
		ChunkSize:    cfg.ChunkSize,
		ChunkOverlap: cfg.ChunkOverlap,
		DefaultK:     cfg.RetrievalK,
		Dimension:    cfg.EmbedDim,
	}
}

func (r *Router) newAnalysisAgent() *agents.RAGAgent {
	return agents.NewRAGAgent(agents.RAGConfig{Index: r.index, Metrics: r.deps.Metrics}, r.assembler, r.loader, r.deps.Completer, r.logger)
}

func (r *Router) Status() SessionStatus {
	return r.session.status()
}

// LoadDocuments replaces the session's documents. Reference files come before
// user files in the analysis corpus. A previously started explore session is
// dropped, and priority files not among the new user files are forgotten.
func (r *Router) LoadDocuments(ctx context.Context, userPaths, referencePaths []string, vectorize bool) bool {
	user := models.NewDocumentSet(models.ProvenanceUser, userPaths)
	reference := models.NewDocumentSet(models.ProvenanceReference, referencePaths)
	all := append(reference.Paths(), user.Paths()...)

	s := r.session
	s.mu.Lock()
	defer s.mu.Unlock()

	priority := keepMembers(s.priority, user)
	agent := r.newAnalysisAgent()
	agent.SetPriorityFiles(priority)
	if err := agent.LoadDocuments(ctx, all, vectorize); err != nil {
		r.logger.Error("load documents", zap.Int("files", len(all)), zap.Error(err))
		return false
	}
	s.user = user
	s.reference = reference
	s.priority = priority
	s.vectorize = vectorize
	s.analysis = agent
	s.explore = nil
	r.logger.Info("session documents loaded", zap.String("session_id", s.id),
		zap.Int("user_files", user.Len()), zap.Int("reference_files", reference.Len()), zap.Bool("vectorized", vectorize))
	return true
}

// SetPriorityFiles marks user requirement files that lead every analysis
// context. Paths outside the session's user documents are ignored.
func (r *Router) SetPriorityFiles(paths []string) {
	requested := models.NewDocumentSet(models.ProvenanceUser, paths).Paths()
	s := r.session
	s.mu.Lock()
	defer s.mu.Unlock()
	priority := keepMembers(requested, s.user)
	if dropped := len(requested) - len(priority); dropped > 0 {
		r.logger.Warn("priority files not in session", zap.Int("ignored", dropped))
	}
	s.priority = priority
	s.analysis.SetPriorityFiles(priority)
}

func keepMembers(paths []string, set models.DocumentSet) []string {
	members := make(map[string]bool, set.Len())
	for _, p := range set.Paths() {
		members[p] = true
	}
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		if members[p] {
			out = append(out, p)
		}
	}
	return out
}

// StartExplore builds the explore agent over the user documents only, with a
// private in-memory index. Calling it again keeps the existing agent.
func (r *Router) StartExplore(ctx context.Context) error {
	s := r.session
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.explore != nil {
		return nil
	}
	if s.user.Len() == 0 {
		return models.ErrNoUserDocuments
	}
	index := vector.NewIndex(vector.NewMemoryStore(), r.deps.Embedder, indexOptions(r.cfg), r.logger.Named("explore_index"))
	agent := agents.NewRAGAgent(agents.RAGConfig{Explore: true, Index: index}, r.assembler, r.loader, r.deps.Completer, r.logger)
	if err := agent.LoadDocuments(ctx, s.user.Paths(), true); err != nil {
		return fmt.Errorf("start explore: %w", err)
	}
	s.explore = agent
	r.logger.Info("explore session started", zap.String("session_id", s.id), zap.Int("user_files", s.user.Len()))
	return nil
}

// Decide derives the routing decision for a query without running it.
func (r *Router) Decide(query string, mode models.Mode) models.RoutingDecision {
	kind := Classify(query, mode)
	s := r.session
	s.mu.Lock()
	defer s.mu.Unlock()
	d := models.RoutingDecision{Kind: kind}
	switch kind {
	case models.RouteScoring, models.RouteExplore:
		d.Files = s.user.Paths()
	default:
		d.Files = append(s.reference.Paths(), s.user.Paths()...)
	}
	if kind == models.RouteExplore {
		d.Conversation = s.id + "/explore"
	}
	return d
}

// Route runs query on the path chosen by Classify. It never returns an
// error; failures are reported with Success=false.
func (r *Router) Route(ctx context.Context, query string, mode models.Mode) models.QueryResult {
	d := r.Decide(query, mode)
	r.logger.Info("routing query", zap.String("route", string(d.Kind)), zap.String("mode", string(mode)), zap.Int("files", len(d.Files)))
	switch d.Kind {
	case models.RouteScoring:
		return r.routeScoring(ctx, query, d.Files)
	case models.RouteExplore:
		return r.routeExplore(ctx, query)
	default:
		return r.routeAnalysis(ctx, query)
	}
}

func (r *Router) routeScoring(ctx context.Context, query string, files []string) models.QueryResult {
	out := models.QueryResult{Agent: agents.ScoringAgent, Query: query}
	results := make([]models.ScoreResult, 0, len(files))
	for _, path := range files {
		if err := ctx.Err(); err != nil {
			out.Results = results
			out.Error = err.Error()
			return out
		}
		res, _ := r.ScoreDocumentResult(ctx, path)
		results = append(results, res)
	}
	out.Results = results
	if len(results) == 0 {
		out.Answer = msgNoScorable
		out.Error = models.ErrNoUserDocuments.Error()
		return out
	}
	out.Answer = agents.FormatReport(results)
	for _, res := range results {
		if !res.Failed() {
			out.Success = true
			break
		}
	}
	if !out.Success {
		out.Error = "every document failed to score"
	}
	return out
}

func (r *Router) routeExplore(ctx context.Context, query string) models.QueryResult {
	s := r.session
	s.mu.Lock()
	agent, userFiles := s.explore, s.user.Len()
	s.mu.Unlock()

	out := models.QueryResult{Agent: agents.ExploreAgent, Query: query}
	if agent == nil {
		if userFiles == 0 {
			out.Answer = msgNoUserDocs
			out.Error = models.ErrNoUserDocuments.Error()
		} else {
			out.Answer = msgStartExplore
			out.Error = models.ErrExploreNotStarted.Error()
		}
		return out
	}
	res, err := agent.Process(ctx, query)
	r.capture(ctx, err, agents.ExploreAgent)
	return res
}

func (r *Router) routeAnalysis(ctx context.Context, query string) models.QueryResult {
	s := r.session
	s.mu.Lock()
	agent := s.analysis
	s.mu.Unlock()

	res, err := agent.Process(ctx, query)
	r.capture(ctx, err, agents.AnalysisAgent)
	return res
}

// ScoreDocument scores a single file. Failures come back as an error record.
func (r *Router) ScoreDocument(ctx context.Context, path string) models.ScoreResult {
	res, _ := r.ScoreDocumentResult(ctx, path)
	return res
}

// ScoreDocumentResult is ScoreDocument that also returns the failure cause.
func (r *Router) ScoreDocumentResult(ctx context.Context, path string) (models.ScoreResult, error) {
	res, err := r.scorer.ScoreDocument(ctx, path)
	r.capture(ctx, err, agents.ScoringAgent)
	return res, err
}

func (r *Router) capture(ctx context.Context, err error, agent string) {
	if err == nil || !errors.Is(err, models.ErrProvider) {
		return
	}
	telemetry.CaptureError(ctx, err, map[string]string{"agent": agent, "session_id": r.session.id})
}
