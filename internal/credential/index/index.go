// Package index maintains read-side views of the registry, rebuilt purely
// from the credential event feed.
//
// The index is eventually consistent with the registry: a mutation becomes
// visible here only after its event has been replayed. Callers that need to
// observe their own write wait on WaitFor with the sequence they expect.
package index

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"quorumcred/internal/credential/models"
	"quorumcred/pkg/domain"
	"quorumcred/pkg/platform/poll"
)

var (
	// ErrUnknownCredential means a signature arrived before its creation event.
	ErrUnknownCredential = errors.New("event references unknown credential")
	// ErrOutOfOrder means a signature count does not follow the applied history.
	ErrOutOfOrder = errors.New("event out of order for credential")
)

// DefaultLimit caps query results when the caller passes no limit.
const DefaultLimit = 100

// Index is an arena of credential views keyed by id with secondary indexes.
// Every id slice is kept sorted ascending so pagination is stable.
//
// Events may arrive out of feed order when they come from several Kafka
// partitions. cursor is the low watermark: every sequence up to it has been
// applied. Sequences applied above it wait in ahead until the gap closes.
type Index struct {
	mu        sync.RWMutex
	views     map[domain.CredentialID]*models.View
	ids       []domain.CredentialID
	byStudent map[domain.Address][]domain.CredentialID
	byIssuer  map[domain.Address][]domain.CredentialID
	byStatus  map[models.Status][]domain.CredentialID
	bySigner  map[domain.Address][]domain.CredentialID
	cursor    uint64
	ahead     map[uint64]struct{}
}

func New() *Index {
	return &Index{
		views:     make(map[domain.CredentialID]*models.View),
		byStudent: make(map[domain.Address][]domain.CredentialID),
		byIssuer:  make(map[domain.Address][]domain.CredentialID),
		byStatus:  make(map[models.Status][]domain.CredentialID),
		bySigner:  make(map[domain.Address][]domain.CredentialID),
		ahead:     make(map[uint64]struct{}),
	}
}

// Apply folds one feed event into the index. Replaying an event that was
// already applied to its credential is a no-op, so at-least-once delivery is
// safe.
func (x *Index) Apply(e models.Event) error {
	x.mu.Lock()
	defer x.mu.Unlock()

	var err error
	switch e.Type {
	case models.EventCredentialCreated:
		err = x.applyCreated(e)
	case models.EventCredentialSigned:
		err = x.applySigned(e)
	default:
		err = fmt.Errorf("unknown event type %q", e.Type)
	}
	if err != nil {
		return err
	}
	x.markLocked(e.Sequence)
	return nil
}

// Skip records that seq will never be applied, such as an undecodable
// message, so the cursor can move past it.
func (x *Index) Skip(seq uint64) {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.markLocked(seq)
}

func (x *Index) markLocked(seq uint64) {
	if seq <= x.cursor {
		return
	}
	x.ahead[seq] = struct{}{}
	for {
		next := x.cursor + 1
		if _, ok := x.ahead[next]; !ok {
			return
		}
		delete(x.ahead, next)
		x.cursor = next
	}
}

// ApplyAll applies events in order and stops at the first failure.
func (x *Index) ApplyAll(events []models.Event) error {
	for _, e := range events {
		if err := x.Apply(e); err != nil {
			return fmt.Errorf("apply event %d: %w", e.Sequence, err)
		}
	}
	return nil
}

func (x *Index) applyCreated(e models.Event) error {
	if e.Created == nil {
		return fmt.Errorf("created event %d has no payload", e.Sequence)
	}
	if _, exists := x.views[e.CredentialID]; exists {
		return nil
	}
	view := &models.View{
		Credential: models.Credential{
			ID:                 e.CredentialID,
			Student:            e.Created.Student,
			Issuer:             e.Created.Issuer,
			MetadataRef:        e.Created.MetadataRef,
			RequiredSignatures: e.Created.RequiredSignatures,
			CreatedAt:          e.OccurredAt,
		},
		LastSequence: e.Sequence,
	}
	x.views[view.ID] = view
	x.ids = insertSorted(x.ids, view.ID)
	x.byStudent[view.Student] = insertSorted(x.byStudent[view.Student], view.ID)
	x.byIssuer[view.Issuer] = insertSorted(x.byIssuer[view.Issuer], view.ID)
	x.byStatus[view.Status()] = insertSorted(x.byStatus[view.Status()], view.ID)
	return nil
}

func (x *Index) applySigned(e models.Event) error {
	if e.Signed == nil {
		return fmt.Errorf("signed event %d has no payload", e.Sequence)
	}
	view, ok := x.views[e.CredentialID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownCredential, e.CredentialID)
	}
	if e.Sequence <= view.LastSequence || view.HasSigned(e.Signed.Signer) {
		return nil
	}
	if e.Signed.SignatureCount != view.SignatureCount()+1 {
		return fmt.Errorf("%w: credential %s has %d signatures, event carries %d",
			ErrOutOfOrder, e.CredentialID, view.SignatureCount(), e.Signed.SignatureCount)
	}

	before := view.Status()
	if _, err := view.AddSignature(e.Signed.Signer, e.OccurredAt); err != nil {
		return err
	}
	view.LastSequence = e.Sequence

	x.bySigner[e.Signed.Signer] = insertSorted(x.bySigner[e.Signed.Signer], view.ID)

	if after := view.Status(); after != before {
		x.byStatus[before] = removeSorted(x.byStatus[before], view.ID)
		x.byStatus[after] = insertSorted(x.byStatus[after], view.ID)
	}
	return nil
}

// Annotate attaches metadata labels used by text search. Unknown ids are ignored.
func (x *Index) Annotate(id domain.CredentialID, name, description string) {
	x.mu.Lock()
	defer x.mu.Unlock()
	if v, ok := x.views[id]; ok {
		v.Name = name
		v.Description = description
	}
}

// Cursor is the highest feed sequence up to which every event has been applied.
func (x *Index) Cursor() uint64 {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return x.cursor
}

func (x *Index) Len() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.views)
}

// CountByStatus reports how many indexed credentials are in status.
func (x *Index) CountByStatus(status models.Status) int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.byStatus[status])
}

// WaitFor blocks until the index has applied every sequence up to seq or
// timeout elapses.
func (x *Index) WaitFor(ctx context.Context, seq uint64, timeout time.Duration) error {
	if seq == 0 {
		return nil
	}
	return poll.Until(ctx, poll.DefaultInterval/5, timeout, func(context.Context) (bool, error) {
		return x.Cursor() >= seq, nil
	})
}

func (x *Index) Get(id domain.CredentialID) (models.View, bool) {
	x.mu.RLock()
	defer x.mu.RUnlock()
	v, ok := x.views[id]
	if !ok {
		return models.View{}, false
	}
	return cloneView(v), true
}

func (x *Index) ByStudent(student domain.Address, afterID domain.CredentialID, limit int) []models.View {
	return x.Search(models.Query{Student: &student, AfterID: afterID, Limit: limit})
}

func (x *Index) ByIssuer(issuer domain.Address, afterID domain.CredentialID, limit int) []models.View {
	return x.Search(models.Query{Issuer: &issuer, AfterID: afterID, Limit: limit})
}

func (x *Index) ByStatus(status models.Status, afterID domain.CredentialID, limit int) []models.View {
	return x.Search(models.Query{Status: &status, AfterID: afterID, Limit: limit})
}

// PendingFor lists pending credentials the validator has not signed yet.
func (x *Index) PendingFor(validator domain.Address, afterID domain.CredentialID, limit int) []models.View {
	pending := models.StatusPending
	return x.Search(models.Query{Status: &pending, NotSignedBy: &validator, AfterID: afterID, Limit: limit})
}

// Search returns views matching every set filter, ordered by id ascending.
// Candidates come from the narrowest secondary index available.
func (x *Index) Search(q models.Query) []models.View {
	limit := q.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	text := strings.ToLower(strings.TrimSpace(q.Text))

	x.mu.RLock()
	defer x.mu.RUnlock()

	out := make([]models.View, 0, min(limit, 16))
	for _, id := range x.candidates(q) {
		if id <= q.AfterID {
			continue
		}
		v := x.views[id]
		if !matches(v, q, text) {
			continue
		}
		out = append(out, cloneView(v))
		if len(out) == limit {
			break
		}
	}
	return out
}

func (x *Index) candidates(q models.Query) []domain.CredentialID {
	best := x.ids
	if q.Student != nil {
		best = shorter(best, x.byStudent[*q.Student])
	}
	if q.Issuer != nil {
		best = shorter(best, x.byIssuer[*q.Issuer])
	}
	if q.SignedBy != nil {
		best = shorter(best, x.bySigner[*q.SignedBy])
	}
	if q.Status != nil {
		best = shorter(best, x.byStatus[*q.Status])
	}
	return best
}

func matches(v *models.View, q models.Query, text string) bool {
	if q.Student != nil && v.Student != *q.Student {
		return false
	}
	if q.Issuer != nil && v.Issuer != *q.Issuer {
		return false
	}
	if q.Status != nil && v.Status() != *q.Status {
		return false
	}
	if q.SignedBy != nil && !v.HasSigned(*q.SignedBy) {
		return false
	}
	if q.NotSignedBy != nil && v.HasSigned(*q.NotSignedBy) {
		return false
	}
	if text != "" &&
		!strings.Contains(strings.ToLower(v.Name), text) &&
		!strings.Contains(strings.ToLower(v.Description), text) {
		return false
	}
	return true
}

func cloneView(v *models.View) models.View {
	out := *v
	out.Signatures = slices.Clone(v.Signatures)
	return out
}

func shorter(a, b []domain.CredentialID) []domain.CredentialID {
	if len(b) < len(a) {
		return b
	}
	return a
}

func removeSorted(ids []domain.CredentialID, id domain.CredentialID) []domain.CredentialID {
	i, found := slices.BinarySearch(ids, id)
	if !found {
		return ids
	}
	return slices.Delete(ids, i, i+1)
}

// insertSorted keeps ids ascending. Ids normally arrive in order, so the
// common case is an append.
func insertSorted(ids []domain.CredentialID, id domain.CredentialID) []domain.CredentialID {
	if n := len(ids); n == 0 || ids[n-1] < id {
		return append(ids, id)
	}
	i, found := slices.BinarySearch(ids, id)
	if found {
		return ids
	}
	return slices.Insert(ids, i, id)
}
