package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"go.uber.org/dig"

	"service-dispatch/internal/config"
	"service-dispatch/internal/http/handlers"
	"service-dispatch/internal/logx"
	"service-dispatch/internal/notify"
	"service-dispatch/internal/service/dispatch"
)

func testConfig() *config.Config {
	return &config.Config{
		Port:     8080,
		DB:       config.DefaultDB(),
		Dispatch: config.DefaultDispatch(),
		Geocoder: config.DefaultGeocoder(),
		Auth:     config.Auth{JWTSecret: "test-secret"},
		RateLimit: config.RateLimit{
			Enabled: true,
			Rate:    5,
			Burst:   5,
		},
		Log: config.Log{Level: "info", Backend: "slog"},
	}
}

func setupTestContainer(t *testing.T, cfg *config.Config) *dig.Container {
	t.Helper()

	c := dig.New()

	providers := []struct {
		name     string
		provider any
	}{
		{"context", func() context.Context { return context.Background() }},
		{"logger", logx.Nop},
		{"config", func() *config.Config { return cfg }},
		{"pgxpool", func() *pgxpool.Pool { return &pgxpool.Pool{} }},
	}

	for _, p := range providers {
		err := c.Provide(p.provider)
		require.NoErrorf(t, err, "provide %s", p.name)
	}

	require.NoError(t, registerMetrics(c))
	require.NoError(t, registerDomainServices(c))
	require.NoError(t, registerHTTP(c))

	return c
}

func verifyServer(t *testing.T, srv *http.Server) {
	t.Helper()

	require.NotNil(t, srv, "http.Server is nil")
	require.Equal(t, ":8080", srv.Addr)
	require.NotNil(t, srv.Handler)
	require.Greater(t, srv.ReadHeaderTimeout, time.Duration(0))
	require.Greater(t, srv.ReadTimeout, time.Duration(0))
	require.Greater(t, srv.WriteTimeout, time.Duration(0))
	require.Greater(t, srv.IdleTimeout, time.Duration(0))
}

func TestRegisterServiceAndHTTP_ProvidesHttpServerAndHandlers(t *testing.T) {
	t.Parallel()

	c := setupTestContainer(t, testConfig())

	err := c.Invoke(func(
		srv *http.Server,
		base *handlers.Handlers,
		dispatchHandler *handlers.DispatchHandler,
		svc *dispatch.Service,
		pub notify.Publisher,
	) {
		verifyServer(t, srv)
		require.NotNil(t, base)
		require.NotNil(t, dispatchHandler)
		require.NotNil(t, svc)
		require.Equal(t, notify.Nop(), pub)
	})
	require.NoError(t, err)
}

func TestRegisterHTTP_RequiresJWTSecret(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.Auth.JWTSecret = ""
	c := setupTestContainer(t, cfg)

	err := c.Invoke(func(*http.Server) {})
	require.Error(t, err)
	require.Contains(t, err.Error(), "JWT_SECRET is required")
}

func TestRegisterDomainServices_RejectsUnknownIsolation(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.Dispatch.TxIsolation = "snapshot"
	c := setupTestContainer(t, cfg)

	err := c.Invoke(func(*dispatch.Service) {})
	require.Error(t, err)
	require.Contains(t, err.Error(), "unknown transaction isolation")
}

func TestProvideAll_Success(t *testing.T) {
	t.Parallel()

	c := dig.New()

	err := provideAll(c,
		func() context.Context { return context.Background() },
		func() time.Duration { return 3 * time.Second },
	)
	require.NoError(t, err)

	err = c.Invoke(func(ctx context.Context, d time.Duration) {
		require.NotNil(t, ctx)
		require.Equal(t, 3*time.Second, d)
	})
	require.NoError(t, err)
}

func TestProvideAll_InvalidProvider(t *testing.T) {
	t.Parallel()

	c := dig.New()

	type bad struct{}
	err := provideAll(c, bad{})
	require.Error(t, err)
}

func TestRegisterDb_UsesDbConnectAndProvidesPool(t *testing.T) {
	t.Parallel()

	c := dig.New()
	ctx := context.Background()

	cfg := &config.Config{
		DB: config.DB{
			Host: "localhost",
			Port: "5432",
			User: "user",
			Pass: "pass",
			Name: "db",
		},
	}

	require.NoError(t, c.Provide(func() context.Context { return ctx }))
	require.NoError(t, c.Provide(func() *config.Config { return cfg }))
	require.NoError(t, c.Provide(logx.Nop))

	stubPool := &pgxpool.Pool{}

	stubConnect := func(
		gotCtx context.Context,
		_ logx.Logger,
		dsn string,
		retries int,
		delay time.Duration,
	) (*pgxpool.Pool, error) {
		require.Equal(t, ctx, gotCtx)
		require.Equal(t, cfg.DB.DSN(), dsn)
		require.Equal(t, 10, retries)
		require.Equal(t, time.Second, delay)
		return stubPool, nil
	}

	err := registerDb(c, stubConnect)
	require.NoError(t, err)

	err = c.Invoke(func(pool *pgxpool.Pool) {
		require.Equal(t, stubPool, pool)
	})
	require.NoError(t, err)
}

func TestRegisterDb_ConnectError(t *testing.T) {
	t.Parallel()

	c := dig.New()
	require.NoError(t, c.Provide(func() context.Context { return context.Background() }))
	require.NoError(t, c.Provide(func() *config.Config { return &config.Config{DB: config.DefaultDB()} }))
	require.NoError(t, c.Provide(logx.Nop))

	err := registerDb(c, func(context.Context, logx.Logger, string, int, time.Duration) (*pgxpool.Pool, error) {
		return nil, fmt.Errorf("db failed")
	})
	require.NoError(t, err)

	err = c.Invoke(func(*pgxpool.Pool) {})
	require.Error(t, err)
	require.Contains(t, err.Error(), "db failed")
}

func TestContainerBuilder_MustBuild_DoesNotCallFatal(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	builder := NewContainerBuilder().
		WithDBConnect(func(context.Context, logx.Logger, string, int, time.Duration) (*pgxpool.Pool, error) {
			return &pgxpool.Pool{}, nil
		}).
		WithLogFatalf(func(format string, args ...interface{}) {
			require.FailNowf(t, "logFatalf must not be called", format, args...)
		})

	require.NotNil(t, builder.MustBuild(ctx))
	require.NotNil(t, builder.MustBuildWorker(ctx))
}

func TestNewLogger(t *testing.T) {
	t.Parallel()

	l, err := NewLogger(&config.Config{Log: config.Log{Level: "debug", Backend: "slog"}})
	require.NoError(t, err)
	require.NotNil(t, l)

	l, err = NewLogger(&config.Config{Log: config.Log{Level: "warn", Backend: "zap"}})
	require.NoError(t, err)
	require.NotNil(t, l)

	_, err = NewLogger(&config.Config{Log: config.Log{Level: "loud", Backend: "slog"}})
	require.Error(t, err)
}

func TestNewPublisher_NilProducerIsNop(t *testing.T) {
	t.Parallel()

	require.Equal(t, notify.Nop(), newPublisher(nil, logx.Nop()))
}

func useRegistry(t *testing.T, reg prometheus.Registerer) {
	t.Helper()
	old := prometheus.DefaultRegisterer
	prometheus.DefaultRegisterer = reg
	t.Cleanup(func() { prometheus.DefaultRegisterer = old })
}

func TestProvideMetrics_Success_RegistersAndReturnsCounters(t *testing.T) {
	useRegistry(t, prometheus.NewRegistry())

	out, err := provideMetrics()
	require.NoError(t, err)
	require.NotNil(t, out.RateLimitExceededTotal)
	require.NotNil(t, out.GatewayRetriesTotal)
	require.NotNil(t, out.GeocodeFallbackTotal)
	require.NotNil(t, out.NotificationsTotal)
	require.NotNil(t, out.DispatchOperationsTotal)
	require.NotNil(t, out.RequestsExpiredTotal)
}

func TestProvideMetrics_AlreadyRegistered_ReturnsExistingCounters(t *testing.T) {
	useRegistry(t, prometheus.NewRegistry())

	first, err := provideMetrics()
	require.NoError(t, err)

	// те же метрики юзаем
	second, err := provideMetrics()
	require.NoError(t, err)

	require.Same(t, first.NotificationsTotal, second.NotificationsTotal)
	require.Equal(t, first.RateLimitExceededTotal, second.RateLimitExceededTotal)
}

type errRegisterer struct{ err error }

func (e errRegisterer) Register(prometheus.Collector) error  { return e.err }
func (e errRegisterer) MustRegister(...prometheus.Collector) {}
func (e errRegisterer) Unregister(prometheus.Collector) bool { return false }

func TestProvideMetrics_RegisterError_NotAlreadyRegistered(t *testing.T) {
	useRegistry(t, errRegisterer{err: errors.New("boom")})

	_, err := provideMetrics()
	require.Error(t, err)
	require.Contains(t, err.Error(), "register rate_limit_exceeded_total")
}
