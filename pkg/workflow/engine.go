package workflow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"scopehq/meridian/pkg/asset"
	"scopehq/meridian/pkg/checkpoint"
	"scopehq/meridian/pkg/confidence"
	"scopehq/meridian/pkg/embedding"
	"scopehq/meridian/pkg/feedback"
	"scopehq/meridian/pkg/generation"
	"scopehq/meridian/pkg/retrieval"
	"scopehq/meridian/pkg/scoping"
	"scopehq/meridian/pkg/store"
	"scopehq/meridian/pkg/vectorindex"
)

// Options wires the engine's collaborators. Store, Index, Embedder and
// Generator are required; nil configs take defaults and a nil Observer
// discards telemetry.
type Options struct {
	Store     store.Store
	Index     vectorindex.Index
	Embedder  embedding.Service
	Generator generation.Generator

	Retrieval *retrieval.Config
	Feedback  *feedback.Config
	Cutoffs   confidence.Cutoffs

	// PromptTopK caps how many feedback citations reach the generator.
	// Default: 3
	PromptTopK int

	Observer Observer
}

// Engine executes the decision workflow. Sessions are independent; the
// engine is safe for concurrent Run calls.
type Engine struct {
	store      store.Store
	index      vectorindex.Index
	embedder   embedding.Service
	generator  generation.Generator
	policy     *retrieval.PolicyRetriever
	decisions  *retrieval.DecisionRetriever
	aggregator *feedback.Aggregator
	log        checkpoint.Log
	cutoffs    confidence.Cutoffs
	promptTopK int
	observer   Observer
	logger     *slog.Logger
	now        func() time.Time
}

// NewEngine creates a workflow engine from the given options.
func NewEngine(opts Options) (*Engine, error) {
	if opts.Store == nil || opts.Index == nil || opts.Embedder == nil || opts.Generator == nil {
		return nil, fmt.Errorf("workflow engine requires store, index, embedder and generator")
	}
	cutoffs := opts.Cutoffs
	if cutoffs == (confidence.Cutoffs{}) {
		cutoffs = confidence.DefaultCutoffs()
	}
	if err := cutoffs.Validate(); err != nil {
		return nil, err
	}
	promptTopK := opts.PromptTopK
	if promptTopK <= 0 {
		promptTopK = 3
	}
	observer := opts.Observer
	if observer == nil {
		observer = NopObserver{}
	}
	return &Engine{
		store:      opts.Store,
		index:      opts.Index,
		embedder:   opts.Embedder,
		generator:  opts.Generator,
		policy:     retrieval.NewPolicyRetriever(opts.Index, opts.Retrieval),
		decisions:  retrieval.NewDecisionRetriever(opts.Index, opts.Store, opts.Retrieval),
		aggregator: feedback.NewAggregator(opts.Index, opts.Store, opts.Feedback),
		log:        checkpoint.NewStoreLog(opts.Store),
		cutoffs:    cutoffs,
		promptTopK: promptTopK,
		observer:   observer,
		logger:     slog.Default().With("component", "workflow.engine"),
		now:        time.Now,
	}, nil
}

// Run executes one scoping session end to end and returns the persisted
// decision. Exactly one decision is written per session; re-running a
// session id through persistence never duplicates it.
func (e *Engine) Run(ctx context.Context, assetURI, commitmentName string) (*scoping.Decision, error) {
	return e.RunSession(ctx, "", assetURI, commitmentName)
}

// RunSession runs a session under a caller-chosen id. If the session
// already has checkpoints, execution resumes from the stage after the
// last durable checkpoint, using the state recorded there; a session
// whose trace already reached the final stage returns its persisted
// decision. An empty id starts a fresh session under a generated id.
func (e *Engine) RunSession(ctx context.Context, sessionID, assetURI, commitmentName string) (*scoping.Decision, error) {
	if sessionID == "" {
		sessionID = uuid.NewString()
	} else {
		records, err := e.log.ListBySession(ctx, sessionID)
		if err != nil {
			return nil, err
		}
		if len(records) > 0 {
			last := records[len(records)-1]
			if last.Stage == string(StageDone) {
				return e.store.GetDecisionBySession(ctx, sessionID)
			}
			var state State
			if err := json.Unmarshal(last.State, &state); err != nil {
				return nil, fmt.Errorf("session %s: decoding %s checkpoint: %w", sessionID, last.Stage, err)
			}
			e.logger.Info("workflow resumed",
				"session_id", sessionID,
				"last_stage", last.Stage,
				"last_seq", last.Seq,
			)
			return e.run(ctx, state, last.Seq, Stage(last.Stage))
		}
	}

	state := State{
		SessionID:      sessionID,
		AssetURI:       assetURI,
		CommitmentName: commitmentName,
		StartedAt:      e.now().UTC(),
	}
	e.logger.Info("workflow started",
		"session_id", state.SessionID,
		"asset_uri", assetURI,
		"commitment", commitmentName,
	)

	return e.run(ctx, state, 0, "")
}

// run drives the stage sequence from the state and checkpoint position
// given. A non-empty doneThrough skips every stage up to and including
// it; the state already reflects their effects.
func (e *Engine) run(ctx context.Context, state State, seq int64, doneThrough Stage) (*scoping.Decision, error) {
	var decision *scoping.Decision

	step := func(stage Stage, fn func(context.Context, State) (State, error)) error {
		if doneThrough != "" && stageIndex(stage) <= stageIndex(doneThrough) {
			return nil
		}
		start := time.Now()
		next, err := fn(ctx, state)
		e.observer.ObserveStage(stage, time.Since(start))
		if err != nil {
			e.logger.Error("stage failed",
				"session_id", state.SessionID,
				"stage", stage,
				"error", err,
			)
			return err
		}
		state = next
		seq++
		if err := e.appendCheckpoint(ctx, stage, seq, &state); err != nil {
			return scoping.NewPersistenceError(state.SessionID, seq-1, err)
		}
		return nil
	}

	if err := step(StageParseAsset, e.parseAsset); err != nil {
		return nil, err
	}
	if err := step(StageRetrievePolicy, e.retrievePolicy); err != nil {
		return nil, err
	}
	if err := step(StageRetrieveFeedback, e.retrieveFeedback); err != nil {
		return nil, err
	}
	if err := step(StageAssessConfidence, e.assessConfidence); err != nil {
		return nil, err
	}

	if state.Assessment.Band == scoping.BandInsufficient {
		// Confidence gate: do not guess. Skip evidence building and
		// generation, persist an insufficient-data decision that says
		// what is missing.
		e.logger.Info("confidence gate tripped",
			"session_id", state.SessionID,
			"score", state.Assessment.Score,
		)
		if err := step(StagePersistDecision, func(ctx context.Context, s State) (State, error) {
			s = e.gateInsufficient(s)
			next, d, err := e.persistDecision(ctx, s)
			decision = d
			if err != nil {
				return next, scoping.NewPersistenceError(s.SessionID, seq, err)
			}
			return next, nil
		}); err != nil {
			return nil, err
		}
	} else {
		if err := step(StageBuildEvidence, e.buildEvidence); err != nil {
			return nil, err
		}
		if err := step(StageGenerateDecision, e.generateDecision); err != nil {
			return nil, err
		}
		if err := step(StagePersistDecision, func(ctx context.Context, s State) (State, error) {
			next, d, err := e.persistDecision(ctx, s)
			decision = d
			if err != nil {
				return next, scoping.NewPersistenceError(s.SessionID, seq, err)
			}
			return next, nil
		}); err != nil {
			return nil, err
		}
	}

	if err := step(StageDone, func(ctx context.Context, s State) (State, error) {
		return s, nil
	}); err != nil {
		return nil, err
	}

	if decision == nil {
		// Resumed past the persist stage; the decision is already durable.
		d, err := e.store.GetDecisionBySession(ctx, state.SessionID)
		if err != nil {
			return nil, err
		}
		decision = d
	}

	e.logger.Info("workflow finished",
		"session_id", state.SessionID,
		"decision_id", decision.ID,
		"outcome", decision.Outcome,
		"band", decision.ConfidenceBand,
	)
	return decision, nil
}

func (e *Engine) appendCheckpoint(ctx context.Context, stage Stage, seq int64, state *State) error {
	raw, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("serializing state: %w", err)
	}
	return e.log.Append(ctx, &checkpoint.Record{
		SessionID: state.SessionID,
		Stage:     string(stage),
		Seq:       seq,
		State:     raw,
		CreatedAt: e.now().UTC(),
	})
}

func (e *Engine) parseAsset(ctx context.Context, s State) (State, error) {
	ref, err := asset.Parse(s.AssetURI)
	if err != nil {
		return s, err
	}
	s.Asset = ref
	return s, nil
}

func (e *Engine) retrievePolicy(ctx context.Context, s State) (State, error) {
	commitment, err := e.store.GetCommitmentByName(ctx, s.CommitmentName)
	if errors.Is(err, store.ErrNotFound) {
		commitment, err = e.store.GetCommitment(ctx, s.CommitmentName)
	}
	if err != nil {
		return s, fmt.Errorf("looking up commitment %q: %w", s.CommitmentName, err)
	}
	s.Commitment = commitment

	queryText := fmt.Sprintf(
		"Asset: %s. Commitment: %s. Determine if asset is in-scope or out-of-scope.",
		s.Asset.String(), commitment.Name,
	)
	embeddingVec, err := e.embedder.Embed(ctx, queryText)
	if err != nil {
		return s, fmt.Errorf("embedding query: %w", err)
	}
	s.QueryEmbedding = embeddingVec

	chunks, err := e.policy.Retrieve(ctx, s.QueryEmbedding, commitment.ID)
	if err != nil {
		return s, err
	}
	s.PolicyChunks = chunks
	e.observer.ObserveRetrieval(vectorindex.CorpusChunk, len(chunks))
	return s, nil
}

func (e *Engine) retrieveFeedback(ctx context.Context, s State) (State, error) {
	agg, err := e.aggregator.Aggregate(ctx, s.QueryEmbedding, s.Commitment.ID)
	if err != nil {
		return s, err
	}
	s.Feedback = &FeedbackSnapshot{
		Citations:      agg.Citations,
		TotalWeight:    agg.TotalWeight,
		AgreementScore: agg.AgreementScore,
		Conflicting:    agg.Conflicting,
	}
	e.observer.ObserveRetrieval(vectorindex.CorpusFeedback, agg.Count())
	return s, nil
}

func (e *Engine) assessConfidence(ctx context.Context, s State) (State, error) {
	assessment := confidence.Score(s.policySignal(), s.feedbackSignal(), e.cutoffs)
	s.Assessment = &assessment
	return s, nil
}

func (e *Engine) buildEvidence(ctx context.Context, s State) (State, error) {
	pkg := e.evidenceFromState(s)

	similar, err := e.decisions.Retrieve(ctx, s.QueryEmbedding, s.Commitment.ID)
	if err != nil {
		return s, err
	}
	pkg.SimilarDecisions = similar
	e.observer.ObserveRetrieval(vectorindex.CorpusDecision, len(similar))

	s.Evidence = pkg
	return s, nil
}

func (e *Engine) generateDecision(ctx context.Context, s State) (State, error) {
	resp, err := e.generator.Generate(ctx, &generation.Request{
		Asset:               *s.Asset,
		Commitment:          *s.Commitment,
		Evidence:            *s.Evidence,
		ConfidenceScore:     s.Assessment.Score,
		ConfidenceBand:      s.Assessment.Band,
		ConfidenceReasoning: s.Assessment.Reasoning,
	})
	if err != nil {
		return s, err
	}
	s.Outcome = resp.Outcome
	s.Reasoning = resp.Reasoning
	s.MissingInformation = resp.MissingInformation
	s.ClarifyingQuestions = resp.ClarifyingQuestions
	return s, nil
}

// evidenceFromState converts the retrieved chunks and feedback carried in
// the state into a citation package. Similar-decision citations are added
// separately by buildEvidence.
func (e *Engine) evidenceFromState(s State) *scoping.EvidencePackage {
	pkg := &scoping.EvidencePackage{}
	for _, sc := range s.PolicyChunks {
		pkg.PolicyChunks = append(pkg.PolicyChunks, scoping.ChunkCitation{
			ChunkID:      sc.Chunk.ID,
			CommitmentID: sc.Chunk.CommitmentID,
			Text:         sc.Chunk.Text,
			ChunkIndex:   sc.Chunk.ChunkIndex,
			Score:        sc.Score,
		})
	}
	if s.Feedback != nil {
		n := e.promptTopK
		if n > len(s.Feedback.Citations) {
			n = len(s.Feedback.Citations)
		}
		pkg.SimilarFeedback = s.Feedback.Citations[:n]
	}
	return pkg
}

// gateInsufficient fills the insufficient-data decision fields from the
// evidence gaps that drove the score down. Whatever was retrieved is kept
// in the persisted evidence so the reviewer sees why it was not enough.
func (e *Engine) gateInsufficient(s State) State {
	s.Outcome = scoping.OutcomeInsufficientData
	s.Reasoning = fmt.Sprintf(
		"confidence %.2f is below the decision threshold; declining to guess",
		s.Assessment.Score,
	)
	s.Evidence = e.evidenceFromState(s)

	var missing, questions []string
	if len(s.PolicyChunks) == 0 {
		missing = append(missing, "commitment policy language covering this asset")
		questions = append(questions, "What legal basis governs this asset?")
	}
	if s.Feedback == nil || len(s.Feedback.Citations) == 0 {
		missing = append(missing, "prior human review of similar assets")
		questions = append(questions, "Has a similar asset been scoped under this commitment before?")
	} else if s.Feedback.Conflicting {
		missing = append(missing, "a resolved human judgment on conflicting prior feedback")
		questions = append(questions, "Which of the conflicting prior judgments applies to this asset?")
	}
	if len(missing) == 0 {
		missing = append(missing, "stronger evidence linking this asset to the commitment")
		questions = append(questions, "What is this asset's purpose and data content?")
	}
	s.MissingInformation = missing
	s.ClarifyingQuestions = questions
	return s
}

func (e *Engine) persistDecision(ctx context.Context, s State) (State, *scoping.Decision, error) {
	evidence := scoping.EvidencePackage{}
	if s.Evidence != nil {
		evidence = *s.Evidence
	}
	d := &scoping.Decision{
		ID:                  uuid.NewString(),
		SessionID:           s.SessionID,
		AssetURI:            s.Asset.String(),
		CommitmentID:        s.Commitment.ID,
		CommitmentName:      s.Commitment.Name,
		Outcome:             s.Outcome,
		ConfidenceScore:     s.Assessment.Score,
		ConfidenceBand:      s.Assessment.Band,
		Reasoning:           s.Reasoning,
		Evidence:            evidence,
		MissingInformation:  s.MissingInformation,
		ClarifyingQuestions: s.ClarifyingQuestions,
		QueryEmbedding:      s.QueryEmbedding,
		CreatedAt:           e.now().UTC(),
	}

	err := e.store.PutDecision(ctx, d)
	if errors.Is(err, store.ErrDecisionExists) {
		existing, getErr := e.store.GetDecisionBySession(ctx, s.SessionID)
		if getErr != nil {
			return s, nil, getErr
		}
		s.DecisionID = existing.ID
		return s, existing, nil
	}
	if err != nil {
		return s, nil, err
	}
	s.DecisionID = d.ID

	// Future sessions find this decision through the decision corpus.
	if err := e.index.Upsert(ctx, vectorindex.Document{
		ID:        d.ID,
		Embedding: d.QueryEmbedding,
		Metadata: map[string]string{
			vectorindex.MetaType:         vectorindex.CorpusDecision,
			vectorindex.MetaCommitmentID: d.CommitmentID,
		},
	}); err != nil {
		e.logger.Warn("decision not indexed for similarity retrieval",
			"decision_id", d.ID,
			"error", err,
		)
	}

	e.observer.RecordDecision(d.Outcome, d.ConfidenceBand)
	return s, d, nil
}
