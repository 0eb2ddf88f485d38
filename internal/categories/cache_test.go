package categories

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/m3rciful/sheetsbot/internal/kv/memstore"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingStore struct {
	*memstore.Store
	sets atomic.Int32
	gets atomic.Int32
	err  error
}

func newCountingStore() *countingStore {
	return &countingStore{Store: memstore.New()}
}

func (s *countingStore) Get(ctx context.Context, key string) (string, bool, error) {
	s.gets.Add(1)
	if s.err != nil {
		return "", false, s.err
	}
	return s.Store.Get(ctx, key)
}

func (s *countingStore) Set(ctx context.Context, key, value string) error {
	s.sets.Add(1)
	return s.Store.Set(ctx, key, value)
}

func staticSource(items ...string) SourceFunc {
	return func(context.Context) ([]string, error) { return items, nil }
}

func TestRegisterTwicePersistsOnce(t *testing.T) {
	ctx := context.Background()
	store := newCountingStore()
	c := New(store, nil, "")

	added, err := c.Register(ctx, "Food")
	require.NoError(t, err)
	assert.True(t, added)

	added, err = c.Register(ctx, "Food")
	require.NoError(t, err)
	assert.False(t, added)

	assert.Equal(t, []string{"Food"}, c.Items())
	assert.Equal(t, int32(1), store.sets.Load())

	raw, ok, _ := store.Store.Get(ctx, DefaultKey)
	require.True(t, ok)
	assert.JSONEq(t, `{"items":["Food"]}`, raw)
}

func TestRegisterEmptyIsNoop(t *testing.T) {
	store := newCountingStore()
	c := New(store, nil, "")

	added, err := c.Register(context.Background(), "")
	require.NoError(t, err)
	assert.False(t, added)
	assert.Zero(t, store.sets.Load())
	assert.Zero(t, store.gets.Load())
}

func TestKeyboardChunksByThree(t *testing.T) {
	cases := []struct {
		items []string
		want  [][]string
	}{
		{[]string{"A", "B", "C", "D"}, [][]string{{"A", "B", "C"}, {"D"}}},
		{[]string{"A", "B", "C"}, [][]string{{"A", "B", "C"}}},
		{[]string{"A", "B", "C", "D", "E", "F", "G"}, [][]string{{"A", "B", "C"}, {"D", "E", "F"}, {"G"}}},
	}
	for _, tc := range cases {
		t.Run(fmt.Sprint(len(tc.items)), func(t *testing.T) {
			c := New(memstore.New(), staticSource(tc.items...), "")
			rows, err := c.Keyboard(context.Background())
			require.NoError(t, err)
			assert.Equal(t, tc.want, rows)
		})
	}
}

func TestKeyboardEmpty(t *testing.T) {
	c := New(memstore.New(), staticSource(), "")
	rows, err := c.Keyboard(context.Background())
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestEnsureInitializedLoadsFromStore(t *testing.T) {
	ctx := context.Background()
	store := newCountingStore()
	require.NoError(t, store.Store.Set(ctx, "cats", `{"items":["Rent","Food"]}`))

	called := false
	source := SourceFunc(func(context.Context) ([]string, error) {
		called = true
		return []string{"Other"}, nil
	})
	c := New(store, source, "cats")

	require.NoError(t, c.EnsureInitialized(ctx))
	require.NoError(t, c.EnsureInitialized(ctx))
	assert.Equal(t, []string{"Rent", "Food"}, c.Items())
	assert.False(t, called)
	assert.Equal(t, int32(1), store.gets.Load(), "a populated cache does not hit the store again")
}

func TestEnsureInitializedRefreshesFromLedger(t *testing.T) {
	ctx := context.Background()
	for name, seed := range map[string]string{"missing": "", "empty list": `{"items":[]}`} {
		t.Run(name, func(t *testing.T) {
			store := newCountingStore()
			if seed != "" {
				require.NoError(t, store.Store.Set(ctx, DefaultKey, seed))
			}
			c := New(store, staticSource("Taxi", "Food", "Taxi"), "")

			require.NoError(t, c.EnsureInitialized(ctx))
			assert.Equal(t, []string{"Taxi", "Food"}, c.Items())

			raw, _, _ := store.Store.Get(ctx, DefaultKey)
			assert.JSONEq(t, `{"items":["Taxi","Food"]}`, raw)
		})
	}
}

func TestEnsureInitializedErrors(t *testing.T) {
	ctx := context.Background()

	assert.ErrorIs(t, New(nil, nil, "").EnsureInitialized(ctx), ErrNoStore)

	down := errors.New("connection refused")
	store := newCountingStore()
	store.err = down
	assert.ErrorIs(t, New(store, nil, "").EnsureInitialized(ctx), down)

	bad := memstore.New()
	require.NoError(t, bad.Set(ctx, DefaultKey, "not json"))
	assert.Error(t, New(bad, nil, "").EnsureInitialized(ctx))

	ledgerDown := errors.New("worksheet not found")
	c := New(memstore.New(), SourceFunc(func(context.Context) ([]string, error) { return nil, ledgerDown }), "")
	assert.ErrorIs(t, c.EnsureInitialized(ctx), ledgerDown)
	assert.Empty(t, c.Items())
}

func TestFailedPersistDoesNotPublish(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	c := New(store, staticSource("Food"), "")
	require.NoError(t, c.EnsureInitialized(ctx))

	store.SetHook = func(string, string) error { return errors.New("read only replica") }
	added, err := c.Register(ctx, "Taxi")
	require.Error(t, err)
	assert.False(t, added)
	assert.Equal(t, []string{"Food"}, c.Items())

	store.SetHook = nil
	added, err = c.Register(ctx, "Taxi")
	require.NoError(t, err)
	assert.True(t, added)
	assert.Equal(t, []string{"Food", "Taxi"}, c.Items())
}

func TestPersistedListSurvivesRestart(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()

	first := New(store, nil, "")
	for _, name := range []string{"Food", "Taxi", "Rent", "Gym"} {
		_, err := first.Register(ctx, name)
		require.NoError(t, err)
	}

	second := New(store, staticSource("ignored"), "")
	rows, err := second.Keyboard(ctx)
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"Food", "Taxi", "Rent"}, {"Gym"}}, rows)
	assert.Equal(t, first.Items(), second.Items())
}

func TestConcurrentRegister(t *testing.T) {
	ctx := context.Background()
	store := newCountingStore()
	c := New(store, nil, "")

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := c.Register(ctx, fmt.Sprintf("cat-%d", i%10))
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	assert.Len(t, c.Items(), 10)
	assert.Equal(t, int32(10), store.sets.Load())
}

func TestItemsReturnsCopy(t *testing.T) {
	c := New(memstore.New(), staticSource("Food"), "")
	require.NoError(t, c.Seed(context.Background()))

	items := c.Items()
	items[0] = "changed"
	assert.Equal(t, []string{"Food"}, c.Items())
}
