package session_test

import (
	"context"
	"errors"
	"sync"

	"github.com/samber/mo"

	"github.com/omarluq/authgate/internal/session"
)

var errBackendDown = errors.New("backend down")

// fakeRepository is an in-memory session.Repository with switchable failures.
type fakeRepository struct {
	records   map[string]session.Record
	saveErr   error
	findErr   error
	deleteErr error
	saves     int
	mu        sync.Mutex
}

func newFakeRepository() *fakeRepository {
	return &fakeRepository{records: make(map[string]session.Record)}
}

func (r *fakeRepository) Save(_ context.Context, rec session.Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.saves++
	if r.saveErr != nil {
		return r.saveErr
	}
	r.records[rec.Token] = rec
	return nil
}

func (r *fakeRepository) FindByToken(_ context.Context, token string) (mo.Option[session.Record], error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.findErr != nil {
		return mo.None[session.Record](), r.findErr
	}
	rec, ok := r.records[token]
	return mo.TupleToOption(rec, ok), nil
}

func (r *fakeRepository) DeleteByToken(_ context.Context, token string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.deleteErr != nil {
		return false, r.deleteErr
	}
	_, ok := r.records[token]
	delete(r.records, token)
	return ok, nil
}

func (r *fakeRepository) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.records)
}

// listingRepository adds session.Lister to fakeRepository.
type listingRepository struct {
	*fakeRepository
}

func (r listingRepository) All(_ context.Context) ([]session.Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]session.Record, 0, len(r.records))
	for _, rec := range r.records {
		out = append(out, rec)
	}
	return out, nil
}

// sequenceGenerator returns tokens from a fixed list, repeating the last one.
func sequenceGenerator(tokens ...string) session.TokenGenerator {
	var mu sync.Mutex
	i := 0
	return func() (string, error) {
		mu.Lock()
		defer mu.Unlock()
		tok := tokens[min(i, len(tokens)-1)]
		i++
		return tok, nil
	}
}
