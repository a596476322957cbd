package main

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"

	"github.com/basincode/cypress/internal/kvstore"
)

func newTestKV(t *testing.T) *kvstore.Client {
	t.Helper()
	srv := miniredis.RunT(t)
	c, err := kvstore.New(context.Background(), srv.Addr(), "", 0, "cypress-validate-test")
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestValidateAdminReferencesPasses(t *testing.T) {
	ctx := context.Background()
	kv := newTestKV(t)

	require.NoError(t, kv.UpsertAdminArea(ctx, "relation/1", `{"name":"Switzerland"}`))
	require.NoError(t, kv.UpsertPlace(ctx, "node/1", `{"source_id":"node/1","parent":{"country":"relation/1"}}`))

	places, err := kv.AllPlaces(ctx)
	require.NoError(t, err)

	p := validateAdminReferences(ctx, kv, places)
	require.True(t, p.passed())
}

func TestValidateAdminReferencesFlagsDanglingParent(t *testing.T) {
	ctx := context.Background()
	kv := newTestKV(t)

	require.NoError(t, kv.UpsertPlace(ctx, "node/1", `{"source_id":"node/1","parent":{"country":"relation/404"}}`))

	places, err := kv.AllPlaces(ctx)
	require.NoError(t, err)

	p := validateAdminReferences(ctx, kv, places)
	require.False(t, p.passed())
	require.Len(t, p.errors, 1)
	require.Contains(t, p.errors[0], "relation/404")
}

func TestValidateAdminReferencesFlagsUnparseableJSON(t *testing.T) {
	ctx := context.Background()
	kv := newTestKV(t)

	require.NoError(t, kv.UpsertPlace(ctx, "node/1", `not json`))

	places, err := kv.AllPlaces(ctx)
	require.NoError(t, err)

	p := validateAdminReferences(ctx, kv, places)
	require.False(t, p.passed())
}

func TestPhaseErrorf(t *testing.T) {
	p := &phase{name: "test"}
	require.True(t, p.passed())

	p.errorf("bad thing %d", 1)
	require.False(t, p.passed())
	require.Equal(t, "bad thing 1", p.errors[0])
}
