package memory

import (
	"context"
	"errors"

	types "github.com/Apurer/go-gin-adoption-server/internal/domains/adoption/application/types"
	"github.com/Apurer/go-gin-adoption-server/internal/domains/adoption/domain"
	"github.com/Apurer/go-gin-adoption-server/internal/domains/adoption/ports"
)

// RequestRepository is the adoption requests view of a Store.
type RequestRepository struct {
	store *Store
}

type requestWatcher struct {
	query ports.RequestQuery
	ch    chan []*types.RequestProjection
}

// deliver keeps only the latest snapshot when the consumer lags behind.
func (w *requestWatcher) deliver(snapshot []*types.RequestProjection) {
	select {
	case w.ch <- snapshot:
		return
	default:
	}
	select {
	case <-w.ch:
	default:
	}
	select {
	case w.ch <- snapshot:
	default:
	}
}

// Create stores a new request; an applicant may hold one pending request per pet.
func (r *RequestRepository) Create(_ context.Context, req *domain.Request) (*types.RequestProjection, error) {
	if req == nil {
		return nil, errors.New("cannot save nil request")
	}
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.requests.docs[req.ID]; ok {
		return nil, ports.ErrDuplicate
	}
	if req.Status == domain.RequestStatusPending {
		for _, entry := range s.requests.docs {
			existing := entry.entity
			if existing.PetID == req.PetID && existing.ApplicantID == req.ApplicantID && existing.Status == domain.RequestStatusPending {
				return nil, ports.ErrDuplicate
			}
		}
	}
	saved := s.requests.create(req.ID, req, s.now())
	s.notifyLocked(nil, req)
	return saved, nil
}

func (r *RequestRepository) Get(_ context.Context, id string) (*types.RequestProjection, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.requests.get(id)
}

func (r *RequestRepository) Update(_ context.Context, req *domain.Request, expectedVersion int64) (*types.RequestProjection, error) {
	if req == nil {
		return nil, errors.New("cannot save nil request")
	}
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	var previous *domain.Request
	if entry, ok := s.requests.docs[req.ID]; ok {
		previous = entry.entity
	}
	saved, err := s.requests.update(req.ID, req, expectedVersion, s.now())
	if err != nil {
		return nil, err
	}
	s.notifyLocked(previous, req)
	return saved, nil
}

func (r *RequestRepository) Query(_ context.Context, query ports.RequestQuery) ([]*types.RequestProjection, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.queryRequestsLocked(query), nil
}

// Watch registers a subscriber that receives the full matching snapshot after every change.
func (r *RequestRepository) Watch(ctx context.Context, query ports.RequestQuery) (<-chan []*types.RequestProjection, error) {
	s := r.store
	w := &requestWatcher{query: query, ch: make(chan []*types.RequestProjection, 1)}

	s.mu.Lock()
	id := s.nextWatch
	s.nextWatch++
	s.watchers[id] = w
	w.deliver(s.queryRequestsLocked(query))
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		s.mu.Lock()
		delete(s.watchers, id)
		close(w.ch)
		s.mu.Unlock()
	}()
	return w.ch, nil
}

func (s *Store) queryRequestsLocked(query ports.RequestQuery) []*types.RequestProjection {
	result := s.requests.filter(query.Matches)
	ports.SortRequests(result, query.Order)
	return limit(result, query.Limit)
}

func (s *Store) notifyLocked(previous, current *domain.Request) {
	for _, w := range s.watchers {
		if w.query.Matches(current) || (previous != nil && w.query.Matches(previous)) {
			w.deliver(s.queryRequestsLocked(w.query))
		}
	}
}
