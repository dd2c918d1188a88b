package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/ppiankov/covenant/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRecord(id string, content string, uploaded time.Time) *model.ContractRecord {
	fileID := "files/" + id
	return &model.ContractRecord{
		ID:       id,
		FileHash: HashContent([]byte(content)),
		FileID:   &fileID,
		Filename: id + ".pdf",
		Uploaded: uploaded,
		Dimensions: model.DimensionSet{
			DestructionRisk: 3, MutualAdvantage: 78, AttritionDepth: 60, StrategicPotential: 50,
		},
		DimensionExplanations: model.Narratives{DestructionRisk: "low exposure"},
		Recommendation:        "sign",
		SellerCompany:         "Acme Ltd",
		HealthScore:           88,
		HealthTier:            model.TierA,
		HealthTierLabel:       model.TierA.Label(),
	}
}

// runStoreSuite exercises the behaviour every backend must share
func runStoreSuite(t *testing.T, open func(t *testing.T) Store) {
	ctx := context.Background()
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("lookup misses", func(t *testing.T) {
		s := open(t)

		_, err := s.FindByID(ctx, "nope")
		assert.True(t, errors.Is(err, ErrNotFound))

		_, err = s.FindByContentHash(ctx, HashContent([]byte("nope")))
		assert.True(t, errors.Is(err, ErrNotFound))
	})

	t.Run("upsert then find", func(t *testing.T) {
		s := open(t)
		rec := newRecord("c1", "first contract", base)
		require.NoError(t, s.Upsert(ctx, rec))

		got, err := s.FindByID(ctx, "c1")
		require.NoError(t, err)
		assert.Equal(t, rec.FileHash, got.FileHash)
		assert.Equal(t, rec.Dimensions, got.Dimensions)
		assert.Equal(t, "low exposure", got.DimensionExplanations.DestructionRisk)
		require.NotNil(t, got.FileID)
		assert.Equal(t, "files/c1", *got.FileID)

		byHash, err := s.FindByContentHash(ctx, HashContent([]byte("first contract")))
		require.NoError(t, err)
		assert.Equal(t, "c1", byHash.ID)
	})

	t.Run("upsert replaces whole record", func(t *testing.T) {
		s := open(t)
		rec := newRecord("c1", "first contract", base)
		require.NoError(t, s.Upsert(ctx, rec))

		updated := time.Date(2025, 3, 2, 9, 0, 0, 0, time.UTC)
		replacement := newRecord("c1", "first contract", base)
		replacement.SellerCompany = "Beta GmbH"
		replacement.Recommendation = ""
		replacement.Updated = &updated
		require.NoError(t, s.Upsert(ctx, replacement))

		got, err := s.FindByID(ctx, "c1")
		require.NoError(t, err)
		assert.Equal(t, "Beta GmbH", got.SellerCompany)
		assert.Empty(t, got.Recommendation)
		require.NotNil(t, got.Updated)
		assert.True(t, updated.Equal(*got.Updated))

		list, err := s.ListSummaries(ctx)
		require.NoError(t, err)
		assert.Len(t, list, 1)
	})

	t.Run("hash is immutable", func(t *testing.T) {
		s := open(t)
		require.NoError(t, s.Upsert(ctx, newRecord("c1", "first contract", base)))

		err := s.Upsert(ctx, newRecord("c1", "tampered contract", base))
		assert.True(t, errors.Is(err, ErrContentHashMismatch))

		got, err := s.FindByID(ctx, "c1")
		require.NoError(t, err)
		assert.Equal(t, HashContent([]byte("first contract")), got.FileHash)
	})

	t.Run("delete", func(t *testing.T) {
		s := open(t)
		require.NoError(t, s.Upsert(ctx, newRecord("c1", "first contract", base)))

		deleted, err := s.DeleteByID(ctx, "c1")
		require.NoError(t, err)
		assert.True(t, deleted)

		deleted, err = s.DeleteByID(ctx, "c1")
		require.NoError(t, err)
		assert.False(t, deleted)

		_, err = s.FindByContentHash(ctx, HashContent([]byte("first contract")))
		assert.True(t, errors.Is(err, ErrNotFound))
	})

	t.Run("summaries ordered by upload date", func(t *testing.T) {
		s := open(t)
		require.NoError(t, s.Upsert(ctx, newRecord("late", "late contract", base.Add(2*time.Hour))))
		require.NoError(t, s.Upsert(ctx, newRecord("early", "early contract", base)))
		require.NoError(t, s.Upsert(ctx, newRecord("mid", "mid contract", base.Add(time.Hour))))

		list, err := s.ListSummaries(ctx)
		require.NoError(t, err)
		require.Len(t, list, 3)
		assert.Equal(t, "early", list[0].ID)
		assert.Equal(t, "mid", list[1].ID)
		assert.Equal(t, "late", list[2].ID)
		assert.Equal(t, model.TierA, list[0].HealthTier)
	})

	t.Run("empty list is not nil", func(t *testing.T) {
		s := open(t)
		list, err := s.ListSummaries(ctx)
		require.NoError(t, err)
		assert.NotNil(t, list)
		assert.Empty(t, list)
	})

	t.Run("rejects record without hash", func(t *testing.T) {
		s := open(t)
		rec := newRecord("c1", "x", base)
		rec.FileHash = ""
		assert.Error(t, s.Upsert(ctx, rec))
	})

	t.Run("returned records are copies", func(t *testing.T) {
		s := open(t)
		require.NoError(t, s.Upsert(ctx, newRecord("c1", "first contract", base)))

		got, err := s.FindByID(ctx, "c1")
		require.NoError(t, err)
		got.SellerCompany = "mutated"

		again, err := s.FindByID(ctx, "c1")
		require.NoError(t, err)
		assert.Equal(t, "Acme Ltd", again.SellerCompany)
	})
}

func TestMemoryStore(t *testing.T) {
	runStoreSuite(t, func(t *testing.T) Store {
		return NewMemoryStore()
	})
}

func TestFileStore(t *testing.T) {
	runStoreSuite(t, func(t *testing.T) Store {
		s, err := NewFileStore(filepath.Join(t.TempDir(), "nested", "contracts.json"))
		require.NoError(t, err)
		return s
	})
}

func TestBadgerStore(t *testing.T) {
	runStoreSuite(t, func(t *testing.T) Store {
		s, err := NewBadgerStore(BadgerConfig{InMemory: true}, nil)
		require.NoError(t, err)
		t.Cleanup(func() { s.Close() })
		return s
	})
}

func TestCachedStore(t *testing.T) {
	runStoreSuite(t, func(t *testing.T) Store {
		s, err := NewCachedStore(NewMemoryStore(), 8)
		require.NoError(t, err)
		return s
	})
}

func TestPostgresStore(t *testing.T) {
	url := os.Getenv("COVENANT_TEST_DATABASE_URL")
	if url == "" {
		t.Skip("COVENANT_TEST_DATABASE_URL not set")
	}

	runStoreSuite(t, func(t *testing.T) Store {
		ctx := context.Background()
		s, err := NewPostgresStore(ctx, url, nil)
		require.NoError(t, err)
		_, err = s.pool.Exec(ctx, `TRUNCATE contracts`)
		require.NoError(t, err)
		t.Cleanup(func() { s.Close() })
		return s
	})
}

func TestCachedStore_InvalidatesOnWrite(t *testing.T) {
	ctx := context.Background()
	s, err := NewCachedStore(NewMemoryStore(), 4)
	require.NoError(t, err)

	rec := newRecord("c1", "first contract", time.Now())
	require.NoError(t, s.Upsert(ctx, rec))

	_, err = s.FindByID(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, 1, s.Len())

	rec.SellerCompany = "Beta GmbH"
	require.NoError(t, s.Upsert(ctx, rec))
	assert.Equal(t, 0, s.Len())

	got, err := s.FindByID(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, "Beta GmbH", got.SellerCompany)

	_, err = s.DeleteByID(ctx, "c1")
	require.NoError(t, err)
	_, err = s.FindByID(ctx, "c1")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestFileStore_PersistsAcrossInstances(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "contracts.json")

	first, err := NewFileStore(path)
	require.NoError(t, err)
	require.NoError(t, first.Upsert(ctx, newRecord("c1", "first contract", time.Now())))

	second, err := NewFileStore(path)
	require.NoError(t, err)
	got, err := second.FindByID(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, "Acme Ltd", got.SellerCompany)

	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err))
}

func TestMemoryStore_ConcurrentUpserts(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := string(rune('a' + i))
			_ = s.Upsert(ctx, newRecord(id, "contract "+id, time.Now()))
		}(i)
	}
	wg.Wait()

	list, err := s.ListSummaries(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 20)
}

func TestHashContent(t *testing.T) {
	// sha256("abc")
	assert.Equal(t, "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad", HashContent([]byte("abc")))
	assert.Equal(t, HashContent([]byte("same")), HashContent([]byte("same")))
	assert.NotEqual(t, HashContent([]byte("same")), HashContent([]byte("same ")))
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	s, err := Open(ctx, model.StoreConfig{Driver: "memory"}, nil)
	require.NoError(t, err)
	_, ok := s.(*MemoryStore)
	assert.True(t, ok)

	s, err = Open(ctx, model.StoreConfig{Driver: "file", Path: t.TempDir(), CacheSize: 4}, nil)
	require.NoError(t, err)
	_, ok = s.(*CachedStore)
	assert.True(t, ok)

	_, err = Open(ctx, model.StoreConfig{Driver: "postgres"}, nil)
	assert.Error(t, err)

	_, err = Open(ctx, model.StoreConfig{Driver: "mongo"}, nil)
	assert.Error(t, err)
}

// pausingStore holds FindByID after the backend read until release is closed
type pausingStore struct {
	*MemoryStore
	read    chan struct{}
	release chan struct{}
}

func (s *pausingStore) FindByID(ctx context.Context, id string) (*model.ContractRecord, error) {
	rec, err := s.MemoryStore.FindByID(ctx, id)
	s.read <- struct{}{}
	<-s.release
	return rec, err
}

func TestCachedStore_SlowReadDoesNotOutliveWrite(t *testing.T) {
	ctx := context.Background()
	inner := &pausingStore{
		MemoryStore: NewMemoryStore(),
		read:        make(chan struct{}, 1),
		release:     make(chan struct{}),
	}
	s, err := NewCachedStore(inner, 4)
	require.NoError(t, err)

	rec := newRecord("c1", "first contract", time.Now())
	rec.SellerCompany = "Old"
	require.NoError(t, inner.MemoryStore.Upsert(ctx, rec))

	done := make(chan *model.ContractRecord)
	go func() {
		got, err := s.FindByID(ctx, "c1")
		assert.NoError(t, err)
		done <- got
	}()
	<-inner.read

	replacement := newRecord("c1", "first contract", time.Now())
	replacement.SellerCompany = "New"
	require.NoError(t, s.Upsert(ctx, replacement))

	close(inner.release)
	stale := <-done
	assert.Equal(t, "Old", stale.SellerCompany)
	assert.Equal(t, 0, s.Len())

	got, err := s.FindByID(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, "New", got.SellerCompany)
}

func TestCachedStore_SlowReadDoesNotOutliveDelete(t *testing.T) {
	ctx := context.Background()
	inner := &pausingStore{
		MemoryStore: NewMemoryStore(),
		read:        make(chan struct{}, 1),
		release:     make(chan struct{}),
	}
	s, err := NewCachedStore(inner, 4)
	require.NoError(t, err)
	require.NoError(t, inner.MemoryStore.Upsert(ctx, newRecord("c1", "first contract", time.Now())))

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, err := s.FindByID(ctx, "c1")
		assert.NoError(t, err)
	}()
	<-inner.read

	deleted, err := s.DeleteByID(ctx, "c1")
	require.NoError(t, err)
	assert.True(t, deleted)

	close(inner.release)
	<-done
	assert.Equal(t, 0, s.Len())

	_, err = s.FindByID(ctx, "c1")
	assert.True(t, errors.Is(err, ErrNotFound))
}
