package middleware

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"

	"narrify/internal/gate"
	httpctx "narrify/internal/http/ctx"
)

type stubStore struct {
	record *gate.KeyRecord
}

func (s *stubStore) FindByKey(key string) (*gate.KeyRecord, error) {
	if s.record != nil && s.record.Key == key {
		cp := *s.record
		return &cp, nil
	}
	return nil, gate.ErrKeyNotFound
}

func (s *stubStore) UpdateUsage(id uint, usageCount int64, lastUsedAt time.Time) error {
	return nil
}

const stubKey = gate.KeyPrefix + "bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb"

func newKeyAuthHandler(t *testing.T, record *gate.KeyRecord) (fasthttp.RequestHandler, *bool) {
	t.Helper()
	g := gate.New(&stubStore{record: record})
	reached := false
	handler := KeyAuth(g)(func(ctx *fasthttp.RequestCtx) {
		reached = true
		res, ok := httpctx.AccessFromCtx(ctx)
		require.True(t, ok)
		require.True(t, res.Valid)
		ctx.SetStatusCode(fasthttp.StatusOK)
	})
	return handler, &reached
}

func TestKeyAuthAcceptsNarrifyHeader(t *testing.T) {
	handler, reached := newKeyAuthHandler(t, &gate.KeyRecord{ID: 1, ClientID: 7, Key: stubKey, Active: true})

	var ctx fasthttp.RequestCtx
	ctx.Request.Header.Set(HeaderNarrifyKey, stubKey)
	handler(&ctx)

	assert.True(t, *reached)
	assert.Equal(t, fasthttp.StatusOK, ctx.Response.StatusCode())
}

func TestKeyAuthFallsBackToGenericHeader(t *testing.T) {
	handler, reached := newKeyAuthHandler(t, &gate.KeyRecord{ID: 1, ClientID: 7, Key: stubKey, Active: true})

	var ctx fasthttp.RequestCtx
	ctx.Request.Header.Set(HeaderAPIKey, stubKey)
	handler(&ctx)

	assert.True(t, *reached)
	assert.Equal(t, fasthttp.StatusOK, ctx.Response.StatusCode())
}

func TestKeyAuthRejectsWithJSONError(t *testing.T) {
	handler, reached := newKeyAuthHandler(t, &gate.KeyRecord{ID: 1, ClientID: 7, Key: stubKey, Active: true})

	var ctx fasthttp.RequestCtx
	handler(&ctx)

	assert.False(t, *reached)
	assert.Equal(t, fasthttp.StatusUnauthorized, ctx.Response.StatusCode())
	assert.Equal(t, "application/json", string(ctx.Response.Header.ContentType()))

	var body map[string]string
	require.NoError(t, json.Unmarshal(ctx.Response.Body(), &body))
	assert.Equal(t, "missing API key", body["error"])
}

func TestKeyAuthEnforcesDomainRestriction(t *testing.T) {
	record := &gate.KeyRecord{ID: 1, ClientID: 7, Key: stubKey, Active: true, Domains: []string{"acme.io"}}

	t.Run("allowed origin", func(t *testing.T) {
		handler, reached := newKeyAuthHandler(t, record)
		var ctx fasthttp.RequestCtx
		ctx.Request.Header.Set(HeaderNarrifyKey, stubKey)
		ctx.Request.Header.Set("Origin", "https://dashboard.acme.io")
		handler(&ctx)
		assert.True(t, *reached)
	})

	t.Run("foreign origin", func(t *testing.T) {
		handler, reached := newKeyAuthHandler(t, record)
		var ctx fasthttp.RequestCtx
		ctx.Request.Header.Set(HeaderNarrifyKey, stubKey)
		ctx.Request.Header.Set("Origin", "https://acme.com")
		handler(&ctx)

		assert.False(t, *reached)
		assert.Equal(t, fasthttp.StatusUnauthorized, ctx.Response.StatusCode())

		var body map[string]string
		require.NoError(t, json.Unmarshal(ctx.Response.Body(), &body))
		assert.Contains(t, body["error"], "acme.com")
	})
}

func TestKeyAuthRejectsDeactivatedKey(t *testing.T) {
	handler, reached := newKeyAuthHandler(t, &gate.KeyRecord{ID: 1, ClientID: 7, Key: stubKey, Active: false})

	var ctx fasthttp.RequestCtx
	ctx.Request.Header.Set(HeaderNarrifyKey, stubKey)
	handler(&ctx)

	assert.False(t, *reached)
	assert.Equal(t, fasthttp.StatusUnauthorized, ctx.Response.StatusCode())
}
