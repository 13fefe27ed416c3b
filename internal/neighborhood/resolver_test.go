package neighborhood

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/StreetCred/SC-Backend/internal/geo"
)

var (
	timesSquare  = geo.Coordinate{Lat: 40.7580, Lng: -73.9855}
	centralPark  = geo.Coordinate{Lat: 40.763272, Lng: -73.979352}
	batteryPark  = geo.Coordinate{Lat: 40.70390676017579, Lng: -74.01372957903186}
	outsideTable = geo.Coordinate{Lat: 51.5074, Lng: -0.1278}
)

// primaryServer answers every identify call with fn and counts calls.
func primaryServer(t *testing.T, fn http.HandlerFunc) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, identifyPath, r.URL.Path)
		fn(w, r)
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func answer(status, name, msg string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(identifyResponse{Status: status, Neighborhood: name, Message: msg})
	}
}

type spyStrategy struct {
	calls atomic.Int32
	res   Result
}

func (s *spyStrategy) Name() string { return "spy" }

func (s *spyStrategy) Resolve(context.Context, geo.Coordinate) Result {
	s.calls.Add(1)
	return s.res
}

func TestChain_PrimarySuccessSkipsFallback(t *testing.T) {
	srv, _ := primaryServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "40.758", r.URL.Query().Get("lat"))
		assert.Equal(t, "-73.9855", r.URL.Query().Get("lng"))
		answer("success", "  Midtown\n", "")(w, r)
	})
	spy := &spyStrategy{res: Resolved("spy", "wrong")}
	ch := NewChain(zap.NewNop(), NewClient(srv.URL, time.Second), spy)

	res := ch.Resolve(context.Background(), timesSquare)
	assert.True(t, res.OK())
	assert.Equal(t, "Midtown", res.Name)
	assert.Equal(t, SourcePrimary, res.Source)
	assert.Zero(t, spy.calls.Load())
}

func TestChain_FallsBackWhenPrimaryDoesNotResolve(t *testing.T) {
	cases := map[string]http.HandlerFunc{
		"logical failure": answer("failure", "", "outside NYC"),
		"empty name":      answer("success", "   ", ""),
		"server error": func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		},
		"bad json": func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte("<html>"))
		},
		"not found": func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		},
	}
	for name, fn := range cases {
		t.Run(name, func(t *testing.T) {
			srv, calls := primaryServer(t, fn)
			ch := NewChain(zap.NewNop(), NewClient(srv.URL, time.Second), DefaultTable())

			res := ch.Resolve(context.Background(), timesSquare)
			require.True(t, res.OK())
			assert.Equal(t, "Times Square", res.Name)
			assert.Equal(t, SourceFallback, res.Source)
			assert.EqualValues(t, 1, calls.Load(), "logical and transient failures are not retried")
		})
	}
}

func TestClient_Outcomes(t *testing.T) {
	srv, _ := primaryServer(t, answer("failure", "", "nope"))
	res := NewClient(srv.URL, time.Second).Resolve(context.Background(), timesSquare)
	assert.Equal(t, OutcomeUnresolved, res.Outcome)

	srv, _ = primaryServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	res = NewClient(srv.URL, time.Second).Resolve(context.Background(), timesSquare)
	assert.Equal(t, OutcomeTransient, res.Outcome)
	assert.Error(t, res.Err)
}

func TestClient_TimeoutIsTransient(t *testing.T) {
	release := make(chan struct{})
	srv, _ := primaryServer(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})
	defer close(release)

	start := time.Now()
	res := NewClient(srv.URL, 50*time.Millisecond).Resolve(context.Background(), timesSquare)
	assert.Equal(t, OutcomeTransient, res.Outcome)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestClient_NetworkErrorFallsBack(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	ch := NewChain(zap.NewNop(), NewClient(url, time.Second), DefaultTable())
	res := ch.Resolve(context.Background(), batteryPark)
	assert.Equal(t, "Battery Park City", res.Name)
	assert.Equal(t, SourceFallback, res.Source)
}

func TestNewClient_EmptyURLAndTimeoutCap(t *testing.T) {
	assert.Nil(t, NewClient("", time.Second))

	c := NewClient("http://example.invalid/", time.Minute)
	require.NotNil(t, c)
	assert.Equal(t, DefaultTimeout, c.httpClient.Timeout)
	assert.Equal(t, "http://example.invalid", c.baseURL)
}

func TestChain_NothingResolves(t *testing.T) {
	srv, _ := primaryServer(t, answer("failure", "", ""))
	ch := NewChain(zap.NewNop(), NewClient(srv.URL, time.Second), DefaultTable())

	res := ch.Resolve(context.Background(), outsideTable)
	assert.False(t, res.OK())
	assert.Equal(t, SourceNone, res.Source)

	name, ok := ch.Lookup(context.Background(), outsideTable)
	assert.False(t, ok)
	assert.Empty(t, name)
}

func TestChain_InvalidCoordinate(t *testing.T) {
	spy := &spyStrategy{res: Resolved("spy", "x")}
	res := NewChain(zap.NewNop(), spy).Resolve(context.Background(), geo.Coordinate{Lat: 91})
	assert.False(t, res.OK())
	assert.Error(t, res.Err)
	assert.Zero(t, spy.calls.Load())
}

func TestChain_ParallelUse(t *testing.T) {
	srv, calls := primaryServer(t, answer("success", "Midtown", ""))
	ch := NewChain(zap.NewNop(), NewClient(srv.URL, time.Second), DefaultTable())

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			name, ok := ch.Lookup(context.Background(), timesSquare)
			assert.True(t, ok)
			assert.Equal(t, "Midtown", name)
		}()
	}
	wg.Wait()
	assert.EqualValues(t, 32, calls.Load())
}

func TestNormalizeName(t *testing.T) {
	assert.Equal(t, "Times Square", normalizeName("\tTimes Square \n"))
	assert.Equal(t, "Caf\u00e9", normalizeName("Cafe\u0301"))
	assert.Equal(t, "", normalizeName("  "))
}

type mapCache struct {
	mu     sync.Mutex
	data   map[string]string
	getErr error
	setErr error
	sets   int
}

func newMapCache() *mapCache { return &mapCache{data: map[string]string{}} }

func (m *mapCache) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return "", false, m.getErr
	}
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *mapCache) Set(_ context.Context, key, value string, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sets++
	if m.setErr != nil {
		return m.setErr
	}
	m.data[key] = value
	return nil
}

func TestCached_StoresOnlyPrimaryResolutions(t *testing.T) {
	var failing atomic.Bool
	srv, calls := primaryServer(t, func(w http.ResponseWriter, r *http.Request) {
		if failing.Load() {
			answer("failure", "", "")(w, r)
			return
		}
		answer("success", "Midtown", "")(w, r)
	})
	cache := newMapCache()
	ch := NewChain(zap.NewNop(),
		WithCache(NewClient(srv.URL, time.Second), cache, time.Hour, zap.NewNop()),
		DefaultTable())

	res := ch.Resolve(context.Background(), timesSquare)
	require.True(t, res.OK())
	assert.False(t, res.Cached)
	assert.Equal(t, "Midtown", cache.data[CacheKey(timesSquare)])

	res = ch.Resolve(context.Background(), timesSquare)
	assert.True(t, res.Cached)
	assert.Equal(t, SourcePrimary, res.Source)
	assert.EqualValues(t, 1, calls.Load())

	failing.Store(true)
	res = ch.Resolve(context.Background(), centralPark)
	assert.Equal(t, "Central Park", res.Name)
	assert.Equal(t, SourceFallback, res.Source)
	_, stored := cache.data[CacheKey(centralPark)]
	assert.False(t, stored, "fallback answers must not be cached")
	assert.Equal(t, 1, cache.sets)
}

func TestCached_ErrorsAreIgnored(t *testing.T) {
	srv, calls := primaryServer(t, answer("success", "Midtown", ""))
	cache := newMapCache()
	cache.getErr = errors.New("redis down")
	cache.setErr = errors.New("redis down")

	res := WithCache(NewClient(srv.URL, time.Second), cache, time.Hour, zap.NewNop()).
		Resolve(context.Background(), timesSquare)
	assert.True(t, res.OK())
	assert.Equal(t, "Midtown", res.Name)
	assert.EqualValues(t, 1, calls.Load())
}

func TestCacheKey(t *testing.T) {
	key := CacheKey(timesSquare)
	assert.Equal(t, cacheKeyPrefix+geo.Geohash(timesSquare, cachePrecision), key)
	assert.Len(t, key, len(cacheKeyPrefix)+cachePrecision)
	assert.NotEqual(t, key, CacheKey(batteryPark))
}
