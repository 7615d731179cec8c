package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"vote-admin/keys"
	"vote-admin/ledger"
	"vote-admin/models"
	"vote-admin/storage"
	"vote-admin/trees"
)

// State is a step of the bootstrap state machine. States only move forward;
// any error moves the run to StateFailed, which is terminal.
type State uint8

const (
	StateInit State = iota
	StatePhraseGenerated
	StateCandidatesDerived
	StateSchemaReady
	StateSyncing
	StateNullifierRootComputed
	StateCommitmentRootComputed
	StateAssembled
	StateFailed
)

var stateNames = [...]string{
	StateInit:                   "init",
	StatePhraseGenerated:        "phrase_generated",
	StateCandidatesDerived:      "candidates_derived",
	StateSchemaReady:            "schema_ready",
	StateSyncing:                "syncing",
	StateNullifierRootComputed:  "nullifier_root_computed",
	StateCommitmentRootComputed: "commitment_root_computed",
	StateAssembled:              "assembled",
	StateFailed:                 "failed",
}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "unknown"
}

// LedgerSyncer fills a store with the election's height range.
type LedgerSyncer interface {
	Sync(ctx context.Context, store ledger.Store, election *models.Election, onHeight func(height uint32)) error
}

// RootAggregator computes the two election roots from a synchronized store.
type RootAggregator interface {
	NullifierRoot(src trees.LeafSource) (common.Hash, error)
	CommitmentRoot(src trees.LeafSource) (common.Hash, error)
}

// SyncStore is the ephemeral store owned by a single bootstrap.
type SyncStore interface {
	ledger.Store
	trees.LeafSource
	CreateSchema() error
	Verify(start, end uint32) error
	Close()
}

// Bootstrapper turns an ElectionTemplate into a complete ElectionData.
type Bootstrapper struct {
	phrases    keys.PhraseGenerator
	syncer     LedgerSyncer
	aggregator RootAggregator
	newStore   func() SyncStore
	metrics    *MetricsCollector
}

type Option func(*Bootstrapper)

func WithPhraseGenerator(g keys.PhraseGenerator) Option {
	return func(b *Bootstrapper) { b.phrases = g }
}

func WithAggregator(a RootAggregator) Option {
	return func(b *Bootstrapper) { b.aggregator = a }
}

func WithStoreFactory(f func() SyncStore) Option {
	return func(b *Bootstrapper) { b.newStore = f }
}

func WithMetrics(mc *MetricsCollector) Option {
	return func(b *Bootstrapper) { b.metrics = mc }
}

func NewBootstrapper(syncer LedgerSyncer, opts ...Option) *Bootstrapper {
	b := &Bootstrapper{
		phrases:    keys.NewMnemonicGenerator(),
		syncer:     syncer,
		aggregator: trees.NewAggregator(),
		newStore:   func() SyncStore { return storage.NewLedgerStore() },
		metrics:    NewMetricsCollector(nil),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Metrics returns the collector fed by this bootstrapper.
func (b *Bootstrapper) Metrics() *MetricsCollector {
	return b.metrics
}

// bootstrapRun carries the state of one Create call.
type bootstrapRun struct {
	b        *Bootstrapper
	state    State
	log      *log.Entry
	progress *progressReporter
}

func (r *bootstrapRun) transition(to State) {
	r.log.WithFields(log.Fields{"from": r.state.String(), "to": to.String()}).Debug("Bootstrap transition")
	r.b.metrics.RecordTransition(r.state, to)
	r.state = to
}

// phase runs fn, records its duration, and classifies its error.
func (r *bootstrapRun) phase(name string, kind Kind, fn func() error) error {
	began := time.Now()
	if err := fn(); err != nil {
		return newError(kind, name, err)
	}
	r.b.metrics.RecordPhase(name, time.Since(began))
	return nil
}

// Create runs the whole bootstrap. Progress goes to sink: a non-decreasing
// run of values below 50 while the ledger range downloads, then exactly 75
// and 100. Either the complete ElectionData is returned or an *Error, and no
// progress is reported after a failure.
func (b *Bootstrapper) Create(ctx context.Context, tmpl models.ElectionTemplate, sink ProgressSink) (data *models.ElectionData, err error) {
	logger := log.WithFields(log.Fields{
		"bootstrap_id": uuid.New().String(),
		"election":     models.ElectionID(tmpl.Name),
	})
	run := &bootstrapRun{
		b:        b,
		state:    StateInit,
		log:      logger,
		progress: newProgressReporter(sink, logger),
	}

	// The template carries no secret material; the phrase is never logged.
	logger.WithFields(log.Fields{
		"name":               tmpl.Name,
		"start":              tmpl.Start,
		"end":                tmpl.End,
		"question":           tmpl.Question,
		"choices":            tmpl.Choices,
		"signature_required": tmpl.SignatureRequired,
	}).Info("Creating election")

	b.metrics.RecordStart()
	defer func() {
		b.metrics.RecordEnd(err)
		if err != nil {
			logger.WithError(err).WithField("state", run.state.String()).Error("Election bootstrap failed")
			run.transition(StateFailed)
			data = nil
		}
	}()

	return run.execute(ctx, tmpl)
}

func (r *bootstrapRun) execute(ctx context.Context, tmpl models.ElectionTemplate) (*models.ElectionData, error) {
	labels, err := validateTemplate(tmpl)
	if err != nil {
		return nil, err
	}

	var (
		phrase string
		seed   []byte
	)
	err = r.phase(PhasePhrase, KindDerivation, func() (err error) {
		phrase, seed, err = r.b.phrases.Generate()
		return err
	})
	if err != nil {
		return nil, err
	}
	defer wipe(seed)
	r.transition(StatePhraseGenerated)

	var candidates []models.CandidateChoice
	err = r.phase(PhaseDerivation, KindDerivation, func() (err error) {
		candidates, err = keys.DeriveCandidates(seed, labels)
		return err
	})
	if err != nil {
		return nil, err
	}
	r.transition(StateCandidatesDerived)

	election := models.NewElection(tmpl, candidates)

	store := r.b.newStore()
	defer store.Close()
	if err := store.CreateSchema(); err != nil {
		return nil, newError(KindSync, "create schema", err)
	}
	r.transition(StateSchemaReady)

	r.transition(StateSyncing)
	start, end := election.StartHeight, election.EndHeight
	err = r.phase(PhaseSync, KindSync, func() error {
		return r.b.syncer.Sync(ctx, store, election, func(h uint32) {
			r.progress.report(ledger.DownloadProgress(h, start, end))
		})
	})
	if err != nil {
		return nil, err
	}

	err = r.phase(PhaseNullifierRoot, KindAggregation, func() (err error) {
		if err := store.Verify(start, end); err != nil {
			return errors.Wrap(err, "synchronized range is inconsistent")
		}
		election.Nf, err = rootOrError(r.b.aggregator.NullifierRoot(store))
		return err
	})
	if err != nil {
		return nil, err
	}
	r.progress.report(ProgressNullifierRoot)
	r.transition(StateNullifierRootComputed)

	err = r.phase(PhaseCommitmentRoot, KindAggregation, func() (err error) {
		election.Cmx, err = rootOrError(r.b.aggregator.CommitmentRoot(store))
		return err
	})
	if err != nil {
		return nil, err
	}
	r.progress.report(ProgressComplete)
	r.transition(StateCommitmentRootComputed)

	data := &models.ElectionData{
		Seed:     phrase,
		Election: *election,
	}
	r.transition(StateAssembled)

	r.log.WithFields(log.Fields{
		"candidates": len(election.Candidates),
		"nf":         election.Nf.Hex(),
		"cmx":        election.Cmx.Hex(),
	}).Info("Election created")

	return data, nil
}

// CreateJSON runs Create and returns the serialized ElectionData.
func (b *Bootstrapper) CreateJSON(ctx context.Context, tmpl models.ElectionTemplate, sink ProgressSink) (string, error) {
	data, err := b.Create(ctx, tmpl, sink)
	if err != nil {
		return "", err
	}

	out, err := json.Marshal(data)
	if err != nil {
		return "", newError(KindPersistence, "encode election data", err)
	}
	return string(out), nil
}

// validateTemplate rejects templates that cannot produce an election. It
// runs before any key material is generated or any block is fetched.
func validateTemplate(tmpl models.ElectionTemplate) ([]string, error) {
	if tmpl.Start >= tmpl.End {
		return nil, newError(KindConfig, "validate template",
			errors.Errorf("start height %d must be below end height %d", tmpl.Start, tmpl.End))
	}
	if models.ElectionID(tmpl.Name) == "" {
		return nil, newError(KindConfig, "validate template",
			errors.Errorf("election name %q does not produce an identifier", tmpl.Name))
	}

	labels := keys.ParseChoices(tmpl.Choices)
	if len(labels) == 0 {
		return nil, newError(KindConfig, "validate template", errors.New("no candidates in choices"))
	}
	return labels, nil
}

func rootOrError(root common.Hash, err error) (common.Hash, error) {
	if err != nil {
		return common.Hash{}, err
	}
	if root == (common.Hash{}) {
		return common.Hash{}, errors.New("computed an all-zero root")
	}
	return root, nil
}

func wipe(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
