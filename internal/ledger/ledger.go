// internal/ledger/ledger.go
package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/mwidjaja/procura/internal/domain"
	"github.com/mwidjaja/procura/internal/repository"
	"github.com/mwidjaja/procura/internal/repository/memory"
	"github.com/mwidjaja/procura/pkg/logger"
)

// ErrInvalidRequest marks a record request that fails validation. Handlers
// translate it to a client error instead of a server fault.
var ErrInvalidRequest = errors.New("invalid request")

// Ledger is the append-only registry of demand-context assertions: every
// fact a planner knows about why invoiced sales differ from true demand.
// Entries are never edited; corrections deactivate and re-record.
type Ledger struct {
	store repository.LedgerStore
	log   zerolog.Logger
}

// New builds a ledger over the given store. A nil store falls back to an
// in-memory one, so record operations always echo the full entry even when
// nothing durable is wired.
func New(store repository.LedgerStore) *Ledger {
	if store == nil {
		store = memory.NewLedgerStore()
	}

	return &Ledger{store: store, log: logger.Component("ledger")}
}

// RecordSubstitution asserts that buyers of the original product bought the
// substitute during a stockout. The original's invoices understate demand by
// the moved quantity and the substitute's overstate it, so the entry carries
// two mirrored adjustments that sum to zero.
func (l *Ledger) RecordSubstitution(ctx context.Context, req domain.RecordSubstitutionRequest) (*domain.ContextEntry, error) {
	if req.OriginalProductID == "" || req.SubstituteProductID == "" {
		return nil, fmt.Errorf("%w: both product ids are required", ErrInvalidRequest)
	}
	if req.OriginalProductID == req.SubstituteProductID {
		return nil, fmt.Errorf("%w: a product cannot substitute itself", ErrInvalidRequest)
	}
	if req.Quantity <= 0 {
		return nil, fmt.Errorf("%w: quantity must be positive", ErrInvalidRequest)
	}

	date := day(req.Date)
	entry := l.newEntry(domain.EntrySubstitution, &date, req.Reason)
	entry.Detail = domain.SubstitutionDetail{
		OriginalProductID:   req.OriginalProductID,
		SubstituteProductID: req.SubstituteProductID,
		Quantity:            req.Quantity,
	}
	entry.Adjustments = []domain.Adjustment{
		{ProductID: req.OriginalProductID, Delta: req.Quantity, Reason: fmt.Sprintf("sales lost to substitute %s", req.SubstituteProductID)},
		{ProductID: req.SubstituteProductID, Delta: -req.Quantity, Reason: fmt.Sprintf("sales borrowed from %s", req.OriginalProductID)},
	}
	entry.ProductIDs = []string{req.OriginalProductID, req.SubstituteProductID}

	return l.append(ctx, entry)
}

// RecordOneTimeOrder marks a bulk purchase that will not recur, so the
// invoiced quantity overstates recurring demand.
func (l *Ledger) RecordOneTimeOrder(ctx context.Context, req domain.RecordOneTimeOrderRequest) (*domain.ContextEntry, error) {
	if req.ProductID == "" {
		return nil, fmt.Errorf("%w: product id is required", ErrInvalidRequest)
	}
	if req.Quantity <= 0 {
		return nil, fmt.Errorf("%w: quantity must be positive", ErrInvalidRequest)
	}

	date := day(req.Date)
	entry := l.newEntry(domain.EntryOneTimeOrder, &date, req.Reason)
	entry.Detail = domain.OneTimeOrderDetail{
		ProductID: req.ProductID,
		Quantity:  req.Quantity,
		Customer:  req.Customer,
	}
	entry.Adjustments = []domain.Adjustment{
		{ProductID: req.ProductID, Delta: -req.Quantity, Reason: oneOffReason(req.Customer)},
	}
	entry.ProductIDs = []string{req.ProductID}

	return l.append(ctx, entry)
}

// RecordPromotion records the estimated uplift a promotion added on top of
// organic demand.
func (l *Ledger) RecordPromotion(ctx context.Context, req domain.RecordPromotionRequest) (*domain.ContextEntry, error) {
	if req.ProductID == "" {
		return nil, fmt.Errorf("%w: product id is required", ErrInvalidRequest)
	}
	if req.UpliftQuantity <= 0 {
		return nil, fmt.Errorf("%w: uplift quantity must be positive", ErrInvalidRequest)
	}
	if req.EndDate != nil && req.EndDate.Before(req.StartDate) {
		return nil, fmt.Errorf("%w: end date precedes start date", ErrInvalidRequest)
	}

	date := day(req.StartDate)
	entry := l.newEntry(domain.EntryPromotion, &date, req.Reason)
	entry.Detail = domain.PromotionDetail{
		ProductID:      req.ProductID,
		UpliftQuantity: req.UpliftQuantity,
		StartDate:      date,
		EndDate:        dayPtr(req.EndDate),
	}
	entry.Adjustments = []domain.Adjustment{
		{ProductID: req.ProductID, Delta: -req.UpliftQuantity, Reason: "promotion uplift above organic demand"},
	}
	entry.ProductIDs = []string{req.ProductID}

	return l.append(ctx, entry)
}

// RecordSupplyDisruption records sales lost while supply was interrupted, so
// invoices understate what customers actually wanted.
func (l *Ledger) RecordSupplyDisruption(ctx context.Context, req domain.RecordSupplyDisruptionRequest) (*domain.ContextEntry, error) {
	if req.ProductID == "" {
		return nil, fmt.Errorf("%w: product id is required", ErrInvalidRequest)
	}
	if req.EstimatedLostSales <= 0 {
		return nil, fmt.Errorf("%w: estimated lost sales must be positive", ErrInvalidRequest)
	}
	if req.EndDate != nil && req.EndDate.Before(req.StartDate) {
		return nil, fmt.Errorf("%w: end date precedes start date", ErrInvalidRequest)
	}

	date := day(req.StartDate)
	entry := l.newEntry(domain.EntrySupplyDisruption, &date, req.Reason)
	entry.Detail = domain.SupplyDisruptionDetail{
		ProductID:          req.ProductID,
		EstimatedLostSales: req.EstimatedLostSales,
		StartDate:          date,
		EndDate:            dayPtr(req.EndDate),
	}
	entry.Adjustments = []domain.Adjustment{
		{ProductID: req.ProductID, Delta: req.EstimatedLostSales, Reason: "sales suppressed by supply disruption"},
	}
	entry.ProductIDs = []string{req.ProductID}

	return l.append(ctx, entry)
}

// RecordProductNote attaches planner context to a product without touching
// demand numbers.
func (l *Ledger) RecordProductNote(ctx context.Context, req domain.RecordProductNoteRequest) (*domain.ContextEntry, error) {
	if req.ProductID == "" {
		return nil, fmt.Errorf("%w: product id is required", ErrInvalidRequest)
	}
	if req.Note == "" {
		return nil, fmt.Errorf("%w: note text is required", ErrInvalidRequest)
	}

	entry := l.newEntry(domain.EntryProductNote, nil, req.Note)
	entry.Detail = domain.ProductNoteDetail{ProductID: req.ProductID, Note: req.Note}
	entry.ProductIDs = []string{req.ProductID}

	return l.append(ctx, entry)
}

// RecordRecurringOrder registers a repeating customer order so its bulk
// draws read as structural demand rather than anomalies.
func (l *Ledger) RecordRecurringOrder(ctx context.Context, req domain.RecordRecurringOrderRequest) (*domain.ContextEntry, error) {
	if req.ProductID == "" {
		return nil, fmt.Errorf("%w: product id is required", ErrInvalidRequest)
	}
	if req.Quantity <= 0 {
		return nil, fmt.Errorf("%w: quantity must be positive", ErrInvalidRequest)
	}
	if req.IntervalDays <= 0 {
		return nil, fmt.Errorf("%w: interval days must be positive", ErrInvalidRequest)
	}

	entry := l.newEntry(domain.EntryRecurringCustomerOrder, nil, req.Reason)
	entry.Detail = domain.RecurringCustomerOrderDetail{
		ProductID:    req.ProductID,
		Quantity:     req.Quantity,
		IntervalDays: req.IntervalDays,
		Customer:     req.Customer,
	}
	entry.ProductIDs = []string{req.ProductID}

	return l.append(ctx, entry)
}

// RecordSubstituteRelationship declares two products as substitutes. The
// inference engine picks these pairs up as analysis candidates.
func (l *Ledger) RecordSubstituteRelationship(ctx context.Context, req domain.RecordSubstituteRelationshipRequest) (*domain.ContextEntry, error) {
	if req.ProductID == "" || req.SubstituteProductID == "" {
		return nil, fmt.Errorf("%w: both product ids are required", ErrInvalidRequest)
	}
	if req.ProductID == req.SubstituteProductID {
		return nil, fmt.Errorf("%w: a product cannot substitute itself", ErrInvalidRequest)
	}

	entry := l.newEntry(domain.EntrySubstituteRelationship, nil, req.Note)
	entry.Detail = domain.SubstituteRelationshipDetail{
		ProductID:           req.ProductID,
		SubstituteProductID: req.SubstituteProductID,
		Bidirectional:       req.Bidirectional,
		Note:                req.Note,
	}
	entry.ProductIDs = []string{req.ProductID, req.SubstituteProductID}

	return l.append(ctx, entry)
}

// QueryAdjustments collects every active adjustment touching a product,
// optionally narrowed to a date range, and nets them into one correction.
func (l *Ledger) QueryAdjustments(ctx context.Context, q domain.AdjustmentQuery) (*domain.AdjustmentReport, error) {
	if q.ProductID == "" {
		return nil, fmt.Errorf("%w: product id is required", ErrInvalidRequest)
	}

	entries, err := l.store.EntriesForProduct(ctx, q.ProductID, false)
	if err != nil {
		return nil, fmt.Errorf("failed to load entries for %s: %w", q.ProductID, err)
	}

	report := &domain.AdjustmentReport{
		ProductID: q.ProductID,
		From:      q.From,
		To:        q.To,
		Lines:     []domain.AdjustmentLine{},
	}
	for i := range entries {
		entry := &entries[i]
		if !entry.InRange(q.From, q.To) {
			continue
		}
		delta := entry.NetDelta(q.ProductID)
		if delta == 0 {
			continue
		}
		report.NetAdjustment += delta
		report.Lines = append(report.Lines, domain.AdjustmentLine{
			EntryID:   entry.ID,
			EntryType: entry.Type,
			EventDate: entry.EventDate,
			Delta:     delta,
			Reason:    entry.Reason,
		})
	}

	return report, nil
}

// QuerySummary aggregates everything the ledger knows about one product:
// counts per entry kind, net and gross demand corrections, notes, declared
// substitutes and known recurring orders.
func (l *Ledger) QuerySummary(ctx context.Context, productID string) (*domain.ContextSummary, error) {
	if productID == "" {
		return nil, fmt.Errorf("%w: product id is required", ErrInvalidRequest)
	}

	entries, err := l.store.EntriesForProduct(ctx, productID, false)
	if err != nil {
		return nil, fmt.Errorf("failed to load entries for %s: %w", productID, err)
	}

	summary := &domain.ContextSummary{
		ProductID:     productID,
		EntriesByType: make(map[domain.EntryType]int),
	}
	for i := range entries {
		entry := &entries[i]
		summary.TotalEntries++
		summary.EntriesByType[entry.Type]++

		delta := entry.NetDelta(productID)
		summary.NetAdjustment += delta
		if delta > 0 {
			summary.SuppressedSales += delta
		} else if delta < 0 {
			summary.InflatedSales += -delta
		}

		switch detail := entry.Detail.(type) {
		case domain.ProductNoteDetail:
			summary.Notes = append(summary.Notes, detail.Note)
		case domain.RecurringCustomerOrderDetail:
			if detail.ProductID == productID {
				summary.RecurringOrders = append(summary.RecurringOrders, detail)
			}
		case domain.SubstituteRelationshipDetail:
			if detail.ProductID == productID {
				summary.SubstituteProducts = appendUnique(summary.SubstituteProducts, detail.SubstituteProductID)
			} else if detail.Bidirectional && detail.SubstituteProductID == productID {
				summary.SubstituteProducts = appendUnique(summary.SubstituteProducts, detail.ProductID)
			}
		}
	}

	switch {
	case summary.NetAdjustment > 0:
		summary.DemandTrend = domain.DemandHigherThanInvoiced
	case summary.NetAdjustment < 0:
		summary.DemandTrend = domain.DemandLowerThanInvoiced
	default:
		summary.DemandTrend = domain.DemandAligned
	}

	return summary, nil
}

// SubstitutePairs lists the declared substitute relationships, expanded in
// both directions when bidirectional.
func (l *Ledger) SubstitutePairs(ctx context.Context) ([][2]string, error) {
	entries, err := l.store.EntriesByType(ctx, domain.EntrySubstituteRelationship)
	if err != nil {
		return nil, fmt.Errorf("failed to load substitute relationships: %w", err)
	}

	var pairs [][2]string
	for i := range entries {
		detail, ok := entries[i].Detail.(domain.SubstituteRelationshipDetail)
		if !ok {
			continue
		}
		pairs = append(pairs, [2]string{detail.ProductID, detail.SubstituteProductID})
		if detail.Bidirectional {
			pairs = append(pairs, [2]string{detail.SubstituteProductID, detail.ProductID})
		}
	}

	return pairs, nil
}

// Deactivate soft-deletes an entry. It reports false when the entry does not
// exist or was already inactive; the entry itself stays in the ledger.
func (l *Ledger) Deactivate(ctx context.Context, entryID string) (bool, error) {
	if entryID == "" {
		return false, fmt.Errorf("%w: entry id is required", ErrInvalidRequest)
	}

	done, err := l.store.Deactivate(ctx, entryID, time.Now().UTC())
	if err != nil {
		return false, fmt.Errorf("failed to deactivate entry %s: %w", entryID, err)
	}
	if done {
		l.log.Info().Str("entry_id", entryID).Msg("context entry deactivated")
	}

	return done, nil
}

// Entry returns one entry by id, nil when unknown.
func (l *Ledger) Entry(ctx context.Context, entryID string) (*domain.ContextEntry, error) {
	return l.store.Entry(ctx, entryID)
}

// Entries lists a product's context entries in insertion order, active only
// unless inactive ones are asked for.
func (l *Ledger) Entries(ctx context.Context, productID string, includeInactive bool) ([]domain.ContextEntry, error) {
	if productID == "" {
		return nil, fmt.Errorf("%w: product id is required", ErrInvalidRequest)
	}

	return l.store.EntriesForProduct(ctx, productID, includeInactive)
}

func (l *Ledger) newEntry(t domain.EntryType, eventDate *time.Time, reason string) *domain.ContextEntry {
	return &domain.ContextEntry{
		ID:        uuid.NewString(),
		Type:      t,
		EventDate: eventDate,
		Reason:    reason,
		Active:    true,
		CreatedAt: time.Now().UTC(),
	}
}

func (l *Ledger) append(ctx context.Context, entry *domain.ContextEntry) (*domain.ContextEntry, error) {
	if err := l.store.Append(ctx, entry); err != nil {
		return nil, fmt.Errorf("failed to append %s entry: %w", entry.Type, err)
	}
	l.log.Info().
		Str("entry_id", entry.ID).
		Str("type", string(entry.Type)).
		Strs("products", entry.ProductIDs).
		Msg("context entry recorded")

	return entry, nil
}

func oneOffReason(customer string) string {
	if customer == "" {
		return "one-time bulk order"
	}

	return fmt.Sprintf("one-time bulk order for %s", customer)
}

// day truncates a timestamp to its UTC calendar date. Event dates are dates,
// not instants.
func day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func dayPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	d := day(*t)

	return &d
}

func appendUnique(list []string, v string) []string {
	for _, existing := range list {
		if existing == v {
			return list
		}
	}

	return append(list, v)
}
