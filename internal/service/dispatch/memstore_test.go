package dispatch_test

import (
	"context"
	"math"
	"sort"
	"sync"
	"time"

	"service-dispatch/internal/apperr"
	"service-dispatch/internal/domain"
	"service-dispatch/internal/geo"
	"service-dispatch/internal/ports/dispatchtx"
)

// memStore is a transactional in-memory dispatch store. Transactions are serialised and a
// failing transaction restores the snapshot taken when it began.
type memStore struct {
	mu          sync.Mutex
	orders      map[int64]domain.Order
	partners    map[int64]domain.Partner
	requests    map[int64]domain.DeliveryRequest
	assignments map[int64]domain.Assignment
	history     []domain.HistoryEntry
	nextID      int64
	fail        map[string]error
	txs         int
}

func newMemStore() *memStore {
	return &memStore{
		orders:      map[int64]domain.Order{},
		partners:    map[int64]domain.Partner{},
		requests:    map[int64]domain.DeliveryRequest{},
		assignments: map[int64]domain.Assignment{},
		fail:        map[string]error{},
		nextID:      1000,
	}
}

type memSnapshot struct {
	orders      map[int64]domain.Order
	partners    map[int64]domain.Partner
	requests    map[int64]domain.DeliveryRequest
	assignments map[int64]domain.Assignment
	history     []domain.HistoryEntry
	nextID      int64
}

func copyMap[K comparable, V any](in map[K]V) map[K]V {
	out := make(map[K]V, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func (m *memStore) snapshot() memSnapshot {
	return memSnapshot{
		orders:      copyMap(m.orders),
		partners:    copyMap(m.partners),
		requests:    copyMap(m.requests),
		assignments: copyMap(m.assignments),
		history:     append([]domain.HistoryEntry(nil), m.history...),
		nextID:      m.nextID,
	}
}

func (m *memStore) restore(s memSnapshot) {
	m.orders, m.partners, m.requests, m.assignments = s.orders, s.partners, s.requests, s.assignments
	m.history, m.nextID = s.history, s.nextID
}

func (m *memStore) WithTx(_ context.Context, fn func(tx dispatchtx.Repository) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.txs++

	snap := m.snapshot()
	if err := fn(&memTx{m: m}); err != nil {
		m.restore(snap)
		return err
	}
	return nil
}

// seeding and inspection helpers; they lock like a transaction would

func (m *memStore) putOrder(o domain.Order) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.orders[o.ID] = o
}

func (m *memStore) putPartner(p domain.Partner) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.partners[p.ID] = p
}

func (m *memStore) putRequest(r domain.DeliveryRequest) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests[r.ID] = r
}

func (m *memStore) putAssignment(a domain.Assignment) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.assignments[a.OrderID] = a
}

func (m *memStore) failOn(method string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fail[method] = err
}

func (m *memStore) order(id int64) domain.Order {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.orders[id]
}

func (m *memStore) partner(id int64) domain.Partner {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.partners[id]
}

func (m *memStore) request(id int64) domain.DeliveryRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.requests[id]
}

func (m *memStore) assignmentsFor(orderID int64) []domain.Assignment {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Assignment
	if a, ok := m.assignments[orderID]; ok {
		out = append(out, a)
	}
	return out
}

func (m *memStore) historyFor(orderID int64) []domain.HistoryEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.HistoryEntry
	for _, h := range m.history {
		if h.OrderID == orderID {
			out = append(out, h)
		}
	}
	return out
}

type memTx struct {
	m *memStore
}

func (t *memTx) injected(method string) error {
	return t.m.fail[method]
}

func (t *memTx) id() int64 {
	t.m.nextID++
	return t.m.nextID
}

func (t *memTx) GetOrder(_ context.Context, id int64) (*domain.Order, error) {
	if err := t.injected("GetOrder"); err != nil {
		return nil, err
	}
	o, ok := t.m.orders[id]
	if !ok {
		return nil, nil
	}
	return &o, nil
}

func (t *memTx) LockOrder(ctx context.Context, id int64) (*domain.Order, error) {
	if err := t.injected("LockOrder"); err != nil {
		return nil, err
	}
	return t.GetOrder(ctx, id)
}

func (t *memTx) ListDispatchableOrders(_ context.Context, q dispatchtx.OrderQuery) ([]domain.Order, error) {
	statuses := map[domain.OrderStatus]bool{}
	for _, s := range q.Statuses {
		statuses[s] = true
	}
	var out []domain.Order
	for _, o := range t.m.orders {
		if !statuses[o.Status] || o.Assigned() || o.DeliveryLocation == nil {
			continue
		}
		if !q.Box.Contains(o.DeliveryLocation.Lat, o.DeliveryLocation.Lng) {
			continue
		}
		if q.ExcludePartnerID != 0 && t.hasPending(o.ID, q.ExcludePartnerID) {
			continue
		}
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (t *memTx) SetOrderPartner(_ context.Context, orderID, partnerID int64) error {
	if err := t.injected("SetOrderPartner"); err != nil {
		return err
	}
	o, ok := t.m.orders[orderID]
	if !ok {
		return apperr.ErrNotFound
	}
	if o.DeliveryPartnerID != nil {
		return apperr.ErrOrderAlreadyAssigned
	}
	id := partnerID
	o.DeliveryPartnerID = &id
	t.m.orders[orderID] = o
	return nil
}

func (t *memTx) AppendHistory(_ context.Context, e domain.HistoryEntry) error {
	if err := t.injected("AppendHistory"); err != nil {
		return err
	}
	t.m.history = append(t.m.history, e)
	return nil
}

func (t *memTx) GetPartner(_ context.Context, id int64) (*domain.Partner, error) {
	if err := t.injected("GetPartner"); err != nil {
		return nil, err
	}
	p, ok := t.m.partners[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (t *memTx) LockPartner(ctx context.Context, id int64) (*domain.Partner, error) {
	return t.GetPartner(ctx, id)
}

func (t *memTx) ListEligiblePartners(_ context.Context, box geo.Box) ([]domain.Partner, error) {
	var out []domain.Partner
	for _, p := range t.m.partners {
		if !p.IsVerified || !p.IsActive || !p.HasCapacity() || p.Location == nil {
			continue
		}
		if !box.Contains(p.Location.Lat, p.Location.Lng) {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (t *memTx) WidestServiceRadiusKm(_ context.Context) (float64, error) {
	var widest float64
	for _, p := range t.m.partners {
		if p.IsVerified && p.IsActive && p.HasCapacity() && p.Location != nil {
			widest = math.Max(widest, p.ServiceRadiusKm)
		}
	}
	return widest, nil
}

func (t *memTx) IncrementActiveOrders(_ context.Context, partnerID int64) error {
	if err := t.injected("IncrementActiveOrders"); err != nil {
		return err
	}
	p, ok := t.m.partners[partnerID]
	if !ok {
		return apperr.ErrNotFound
	}
	if p.CurrentActiveOrders >= p.MaxDailyCapacity {
		return apperr.ErrPartnerAtCapacity
	}
	p.CurrentActiveOrders++
	t.m.partners[partnerID] = p
	return nil
}

func (t *memTx) DecrementActiveOrders(_ context.Context, partnerID int64) (int, error) {
	p, ok := t.m.partners[partnerID]
	if !ok {
		return 0, apperr.ErrNotFound
	}
	if p.CurrentActiveOrders > 0 {
		p.CurrentActiveOrders--
	}
	t.m.partners[partnerID] = p
	return p.CurrentActiveOrders, nil
}

func (t *memTx) GetRequest(_ context.Context, id int64) (*domain.DeliveryRequest, error) {
	r, ok := t.m.requests[id]
	if !ok {
		return nil, nil
	}
	return &r, nil
}

func (t *memTx) LockRequest(ctx context.Context, id int64) (*domain.DeliveryRequest, error) {
	return t.GetRequest(ctx, id)
}

func (t *memTx) ListRequests(_ context.Context, f dispatchtx.RequestFilter) ([]domain.DeliveryRequest, error) {
	var out []domain.DeliveryRequest
	for _, r := range t.m.requests {
		if f.OrderID != 0 && r.OrderID != f.OrderID {
			continue
		}
		if f.PartnerID != 0 && r.PartnerID != f.PartnerID {
			continue
		}
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (t *memTx) hasPending(orderID, partnerID int64) bool {
	for _, r := range t.m.requests {
		if r.OrderID == orderID && r.PartnerID == partnerID && r.Status == domain.RequestPending {
			return true
		}
	}
	return false
}

func (t *memTx) HasPendingRequest(_ context.Context, orderID, partnerID int64) (bool, error) {
	return t.hasPending(orderID, partnerID), nil
}

func (t *memTx) InsertRequest(_ context.Context, r *domain.DeliveryRequest) error {
	if err := t.injected("InsertRequest"); err != nil {
		return err
	}
	if t.hasPending(r.OrderID, r.PartnerID) {
		return apperr.ErrPendingRequestExists
	}
	r.ID = t.id()
	t.m.requests[r.ID] = *r
	return nil
}

func (t *memTx) UpdateRequestStatus(_ context.Context, id int64, status domain.RequestStatus, response string, at time.Time) error {
	if err := t.injected("UpdateRequestStatus"); err != nil {
		return err
	}
	r, ok := t.m.requests[id]
	if !ok {
		return apperr.ErrNotFound
	}
	r.Status = status
	r.ResponseMessage = response
	r.RespondedAt = &at
	t.m.requests[id] = r
	return nil
}

func (t *memTx) RejectPendingSiblings(_ context.Context, orderID, acceptedID int64, message string, at time.Time) ([]domain.DeliveryRequest, error) {
	if err := t.injected("RejectPendingSiblings"); err != nil {
		return nil, err
	}
	var out []domain.DeliveryRequest
	for id, r := range t.m.requests {
		if r.OrderID != orderID || id == acceptedID || r.Status != domain.RequestPending {
			continue
		}
		r.Status = domain.RequestRejected
		r.ResponseMessage = message
		r.RespondedAt = &at
		t.m.requests[id] = r
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (t *memTx) ExpireStale(_ context.Context, scope dispatchtx.ExpiryScope, now time.Time) (int64, error) {
	if err := t.injected("ExpireStale"); err != nil {
		return 0, err
	}
	var n int64
	for id, r := range t.m.requests {
		if r.Status != domain.RequestPending || now.Before(r.ExpiresAt) {
			continue
		}
		if scope.OrderID != 0 && r.OrderID != scope.OrderID {
			continue
		}
		if scope.PartnerID != 0 && r.PartnerID != scope.PartnerID {
			continue
		}
		r.Status = domain.RequestExpired
		t.m.requests[id] = r
		n++
	}
	return n, nil
}

func (t *memTx) InsertAssignment(_ context.Context, a *domain.Assignment) error {
	if err := t.injected("InsertAssignment"); err != nil {
		return err
	}
	if _, ok := t.m.assignments[a.OrderID]; ok {
		return apperr.ErrOrderAlreadyAssigned
	}
	a.ID = t.id()
	t.m.assignments[a.OrderID] = *a
	return nil
}

func (t *memTx) LockAssignment(_ context.Context, orderID int64) (*domain.Assignment, error) {
	a, ok := t.m.assignments[orderID]
	if !ok {
		return nil, nil
	}
	return &a, nil
}

func (t *memTx) UpdateAssignmentStatus(_ context.Context, id int64, status domain.AssignmentStatus) error {
	for orderID, a := range t.m.assignments {
		if a.ID == id {
			a.Status = status
			t.m.assignments[orderID] = a
			return nil
		}
	}
	return apperr.ErrNotFound
}

var _ dispatchtx.Runner = (*memStore)(nil)
