package usecase

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/rs/zerolog"

	"github.com/flight-search/flight-session-orchestrator/internal/domain"
	"github.com/flight-search/flight-session-orchestrator/internal/infrastructure/metrics"
)

// AttachmentCommitter persists staged item IDs on the backend.
type AttachmentCommitter func(ctx context.Context, subscriptionID string, ids []string) error

// LedgerSeed is the state a ledger entry starts from.
type LedgerSeed struct {
	Allowance *int
	Committed []domain.Attachment
}

// LedgerSeeder loads the committed items and allowance of a subscription the
// first time the ledger touches it.
type LedgerSeeder func(ctx context.Context, subscriptionID string) (LedgerSeed, error)

// QuotaLedger stages attachments against a subscription's allowance before they
// are committed to the backend. One instance tracks one attachment kind.
//
// The invariant committed + pending <= allowance holds at all times. Committed
// items cannot be removed through the ledger.
type QuotaLedger struct {
	kind    domain.AttachmentKind
	seed    LedgerSeeder
	commit  AttachmentCommitter
	log     zerolog.Logger
	metrics *metrics.Metrics

	mu      sync.Mutex
	entries map[string]*ledgerEntry
}

// ledgerEntry is one subscription's slice of the ledger. Its mutex serialises
// stage, discard and commit, and is held across the backend commit call.
type ledgerEntry struct {
	mu        sync.Mutex
	allowance *int
	committed []domain.Attachment
	pending   []domain.Attachment
	lastErr   error
}

// NewQuotaLedger creates an empty ledger for kind.
func NewQuotaLedger(
	kind domain.AttachmentKind,
	seed LedgerSeeder,
	commit AttachmentCommitter,
	log zerolog.Logger,
	m *metrics.Metrics,
) *QuotaLedger {
	return &QuotaLedger{
		kind:    kind,
		seed:    seed,
		commit:  commit,
		log:     log,
		metrics: m,
		entries: make(map[string]*ledgerEntry),
	}
}

// Kind returns the attachment kind the ledger tracks.
func (l *QuotaLedger) Kind() domain.AttachmentKind {
	return l.kind
}

// Stage adds item to the pending list. It returns *domain.QuotaExceededError
// when the allowance is already used up.
func (l *QuotaLedger) Stage(ctx context.Context, subscriptionID string, item domain.Attachment) error {
	if item.ID == "" {
		return domain.WrapInvalidRequest("item id is required")
	}
	item.Kind = l.kind

	e, err := l.entry(ctx, subscriptionID)
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if containsItem(e.committed, item.ID) || containsItem(e.pending, item.ID) {
		return fmt.Errorf("%w: %s", domain.ErrDuplicateItem, item.ID)
	}

	if e.allowance != nil && len(e.committed)+len(e.pending) >= *e.allowance {
		qe := &domain.QuotaExceededError{
			SubscriptionID: subscriptionID,
			Kind:           l.kind,
			Allowance:      *e.allowance,
		}
		e.lastErr = qe
		l.metrics.QuotaRejected(string(l.kind))
		l.log.Info().
			Str("subscription_id", subscriptionID).
			Str("kind", string(l.kind)).
			Int("allowance", *e.allowance).
			Msg("Staging rejected, allowance reached")
		return qe
	}

	e.pending = append(e.pending, item)
	e.lastErr = nil
	return nil
}

// Discard removes a pending item. Unknown items are ignored.
func (l *QuotaLedger) Discard(subscriptionID, itemID string) error {
	e := l.existing(subscriptionID)
	if e == nil {
		return nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if containsItem(e.committed, itemID) {
		return fmt.Errorf("%w: %s", domain.ErrCommittedItem, itemID)
	}
	e.pending = slices.DeleteFunc(e.pending, func(a domain.Attachment) bool {
		return a.ID == itemID
	})
	return nil
}

// Commit sends every pending item to the backend in one call. On success they
// move to committed; on failure they stay pending and *domain.CommitError is returned.
func (l *QuotaLedger) Commit(ctx context.Context, subscriptionID string) error {
	e, err := l.entry(ctx, subscriptionID)
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if len(e.pending) == 0 {
		return domain.ErrNothingToCommit
	}

	ids := make([]string, len(e.pending))
	for i, item := range e.pending {
		ids[i] = item.ID
	}

	if err := l.commit(ctx, subscriptionID, ids); err != nil {
		ce := domain.NewCommitError(subscriptionID, l.kind, err)
		e.lastErr = ce
		l.metrics.QuotaCommitted(string(l.kind), false)
		l.log.Warn().
			Err(err).
			Str("subscription_id", subscriptionID).
			Str("kind", string(l.kind)).
			Int("items", len(ids)).
			Msg("Commit failed, items kept pending")
		return ce
	}

	e.committed = append(e.committed, e.pending...)
	e.pending = []domain.Attachment{}
	e.lastErr = nil
	l.metrics.QuotaCommitted(string(l.kind), true)
	l.log.Info().
		Str("subscription_id", subscriptionID).
		Str("kind", string(l.kind)).
		Int("items", len(ids)).
		Msg("Attachments committed")
	return nil
}

// View returns the ledger of subscriptionID, seeding it on first use.
func (l *QuotaLedger) View(ctx context.Context, subscriptionID string) (domain.LedgerView, error) {
	e, err := l.entry(ctx, subscriptionID)
	if err != nil {
		return domain.LedgerView{}, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	view := domain.LedgerView{
		SubscriptionID: subscriptionID,
		Kind:           l.kind,
		Committed:      slices.Clone(e.committed),
		Pending:        slices.Clone(e.pending),
	}
	if view.Committed == nil {
		view.Committed = []domain.Attachment{}
	}
	if view.Pending == nil {
		view.Pending = []domain.Attachment{}
	}
	if e.allowance != nil {
		allowance := *e.allowance
		remaining := max(allowance-len(e.committed)-len(e.pending), 0)
		view.Allowance = &allowance
		view.Remaining = &remaining
	}
	if e.lastErr != nil {
		view.LastError = e.lastErr.Error()
	}
	return view, nil
}

// Reset drops every entry. The next access seeds from the backend again.
func (l *QuotaLedger) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = make(map[string]*ledgerEntry)
}

func (l *QuotaLedger) existing(subscriptionID string) *ledgerEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.entries[subscriptionID]
}

// entry returns the subscription's entry, seeding it when absent. The seeder
// runs outside the ledger lock; if two callers race, the first stored entry wins.
func (l *QuotaLedger) entry(ctx context.Context, subscriptionID string) (*ledgerEntry, error) {
	if subscriptionID == "" {
		return nil, domain.WrapInvalidRequest("subscription id is required")
	}
	if e := l.existing(subscriptionID); e != nil {
		return e, nil
	}

	seed, err := l.seed(ctx, subscriptionID)
	if err != nil {
		return nil, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if e, ok := l.entries[subscriptionID]; ok {
		return e, nil
	}
	e := &ledgerEntry{
		allowance: seed.Allowance,
		committed: slices.Clone(seed.Committed),
		pending:   []domain.Attachment{},
	}
	for i := range e.committed {
		e.committed[i].Kind = l.kind
	}
	l.entries[subscriptionID] = e
	return e, nil
}

func containsItem(items []domain.Attachment, id string) bool {
	return slices.ContainsFunc(items, func(a domain.Attachment) bool {
		return a.ID == id
	})
}
