package dispatch_test

import (
	"context"
	"math"
	"sync"
	"testing"
	"time"

	"service-dispatch/internal/domain"
	"service-dispatch/internal/geo"
	"service-dispatch/internal/notify"
	"service-dispatch/internal/service/dispatch"
	testlog "service-dispatch/internal/testutil"
)

const (
	sellerUserID  int64 = 100
	partnerUserID int64 = 200
	rivalUserID   int64 = 201

	orderID   int64 = 1
	partnerID int64 = 10
	rivalID   int64 = 11
)

var (
	seller  = domain.Caller{ID: sellerUserID, Roles: []string{domain.RoleSeller}}
	rider   = domain.Caller{ID: partnerUserID, Roles: []string{domain.RolePartner}}
	rival   = domain.Caller{ID: rivalUserID, Roles: []string{domain.RolePartner}}
	system  = domain.Caller{ID: 1, Roles: []string{domain.RoleSystem}}
	nobody  = domain.Caller{ID: 999}
)

var baseTime = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func ptr(v float64) *float64 { return &v }

// eastKm is the longitude of a point km east of (0,0) along the equator.
func eastKm(km float64) float64 {
	return km / (geo.EarthRadiusKm * math.Pi / 180)
}

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type eventLog struct {
	mu     sync.Mutex
	events []notify.Event
}

func (l *eventLog) Notify(_ context.Context, e notify.Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, e)
}

func (l *eventLog) all() []notify.Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]notify.Event(nil), l.events...)
}

func (l *eventLog) types() []notify.EventType {
	var out []notify.EventType
	for _, e := range l.all() {
		out = append(out, e.Type)
	}
	return out
}

type fixture struct {
	store  *memStore
	clock  *clock
	events *eventLog
	logs   *testlog.Recorder
	svc    *dispatch.Service
}

func newFixture(t *testing.T, opts ...dispatch.Option) *fixture {
	t.Helper()

	f := &fixture{
		store:  newMemStore(),
		clock:  &clock{t: baseTime},
		events: &eventLog{},
		logs:   testlog.New(),
	}
	f.store.putOrder(defaultOrder())
	f.store.putPartner(defaultPartner(partnerID, partnerUserID))
	f.store.putPartner(defaultPartner(rivalID, rivalUserID))

	opts = append([]dispatch.Option{dispatch.WithClock(f.clock.Now)}, opts...)
	f.svc = dispatch.NewService(f.store, f.events, dispatch.Config{}, f.logs.Logger(), opts...)
	return f
}

func newFixtureWithNotifier(t *testing.T, n dispatch.Notifier) *fixture {
	t.Helper()

	f := newFixture(t)
	f.svc = dispatch.NewService(f.store, n, dispatch.Config{}, f.logs.Logger(), dispatch.WithClock(f.clock.Now))
	return f
}

func defaultOrder() domain.Order {
	return domain.Order{
		ID:               orderID,
		StoreID:          5,
		SellerID:         sellerUserID,
		Status:           domain.OrderStatusConfirmed,
		DeliveryLocation: &domain.Location{Lat: 0, Lng: eastKm(3)},
		TotalAmount:      200,
		PickupAddress:    "Store 5, Main st. 1",
		DeliveryAddress:  "Oak st. 12",
		CreatedAt:        baseTime.Add(-time.Hour),
	}
}

func defaultPartner(id, userID int64) domain.Partner {
	return domain.Partner{
		ID:              id,
		UserID:          userID,
		Name:            "partner",
		Location:        &domain.Location{Lat: 0, Lng: 0},
		ServiceRadiusKm: 5,
		Rates: domain.Rates{
			Model:            domain.PricingHybrid,
			BaseCharge:       ptr(50),
			PerKmCharge:      ptr(10),
			PercentageCharge: ptr(5),
		},
		MaxDailyCapacity: 3,
		IsVerified:       true,
		IsActive:         true,
		Rating:           4.8,
	}
}

// pending stores a pending request directly and returns it.
func (f *fixture) pending(id, order, partner int64, typ domain.RequestType, requestedBy int64) domain.DeliveryRequest {
	r := domain.DeliveryRequest{
		ID:          id,
		OrderID:     order,
		PartnerID:   partner,
		Type:        typ,
		Status:      domain.RequestPending,
		ProposedFee: 90,
		RequestedBy: requestedBy,
		ExpiresAt:   f.clock.Now().Add(24 * time.Hour),
		CreatedAt:   f.clock.Now(),
	}
	f.store.putRequest(r)
	return r
}
