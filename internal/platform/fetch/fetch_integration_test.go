//go:build integration

package fetch

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	platformredis "deepsearch/internal/platform/redis"
	"deepsearch/pkg/testutil/containers"
)

type FetchCacheSuite struct {
	suite.Suite
	redis *containers.RedisContainer
	cache *platformredis.Client
}

func TestFetchCacheSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(FetchCacheSuite))
}

func (s *FetchCacheSuite) SetupSuite() {
	s.redis = containers.NewRedisContainer(s.T())
	cache, err := platformredis.New(s.redis.URL)
	s.Require().NoError(err)
	s.cache = cache
}

func (s *FetchCacheSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(context.Background()))
}

func (s *FetchCacheSuite) newClient(ttl time.Duration) *Client {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(logger, WithCache(s.cache, ttl))
}

func (s *FetchCacheSuite) TestSuccessfulResponsesAreCached() {
	ctx := context.Background()
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte(`{"n": 1}`))
	}))
	defer server.Close()

	client := s.newClient(time.Minute)
	for i := 0; i < 3; i++ {
		resp, err := client.Get(ctx, server.URL, nil)
		s.Require().NoError(err)
		s.Equal(http.StatusOK, resp.StatusCode)
		s.JSONEq(`{"n": 1}`, string(resp.Body))
	}
	s.Equal(int32(1), calls.Load(), "repeat requests are served from the cache")
}

func (s *FetchCacheSuite) TestErrorResponsesAreNotCached() {
	ctx := context.Background()
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	client := s.newClient(time.Minute)
	for i := 0; i < 2; i++ {
		resp, err := client.Get(ctx, server.URL, nil)
		s.Require().NoError(err)
		s.Equal(http.StatusBadGateway, resp.StatusCode)
	}
	s.Equal(int32(2), calls.Load())
}

func (s *FetchCacheSuite) TestNoCacheBypassesTheCache() {
	ctx := context.Background()
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte("ok"))
	}))
	defer server.Close()

	client := s.newClient(time.Minute)
	for i := 0; i < 2; i++ {
		_, err := client.Get(ctx, server.URL, nil, NoCache())
		s.Require().NoError(err)
	}
	s.Equal(int32(2), calls.Load())
}

func (s *FetchCacheSuite) TestHeadersPartitionTheCache() {
	ctx := context.Background()
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte("ok"))
	}))
	defer server.Close()

	client := s.newClient(time.Minute)
	a := http.Header{}
	a.Set("X-API-Key", "key-a")
	b := http.Header{}
	b.Set("X-API-Key", "key-b")

	_, err := client.Get(ctx, server.URL, nil, WithHeaders(a))
	s.Require().NoError(err)
	_, err = client.Get(ctx, server.URL, nil, WithHeaders(b))
	s.Require().NoError(err)
	s.Equal(int32(2), calls.Load(), "different credentials never share cache entries")
}
