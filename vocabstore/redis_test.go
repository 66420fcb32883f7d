package vocabstore

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360studio/semharvest/csvingest"
)

func newTestStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return New(rdb, "", nil), mr
}

func licences() *csvingest.Result {
	return &csvingest.Result{
		Columns:  []string{"codice_1_livello", "label"},
		IDColumn: "codice_1_livello",
		Records: []csvingest.Record{
			{"codice_1_livello": "A", "label": "Alpha"},
			{"codice_1_livello": "B", "label": "Beta"},
		},
	}
}

func TestIndexAndRead(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.IndexRecords(ctx, "agid.licences", licences()))

	recs, err := s.Records(ctx, "agid.licences")
	require.NoError(t, err)
	assert.Equal(t, licences().Records, recs)

	rec, err := s.Get(ctx, "agid.licences", "B")
	require.NoError(t, err)
	assert.Equal(t, "Beta", rec["label"])

	_, err = s.Get(ctx, "agid.licences", "Z")
	assert.ErrorIs(t, err, ErrNotFound)

	c, err := s.Describe(ctx, "agid.licences")
	require.NoError(t, err)
	assert.Equal(t, "codice_1_livello", c.IDColumn)
	assert.Equal(t, []string{"codice_1_livello", "label"}, c.Columns)
	assert.Equal(t, 2, c.Records)
	assert.False(t, c.IndexedAt.IsZero())

	names, err := s.Collections(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"agid.licences"}, names)
}

func TestIndexReplacesCollection(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.IndexRecords(ctx, "agid.licences", licences()))

	next := &csvingest.Result{
		Columns:  []string{"codice_1_livello", "label"},
		IDColumn: "codice_1_livello",
		Records:  []csvingest.Record{{"codice_1_livello": "C", "label": "Gamma"}},
	}
	require.NoError(t, s.IndexRecords(ctx, "agid.licences", next))

	recs, err := s.Records(ctx, "agid.licences")
	require.NoError(t, err)
	assert.Equal(t, next.Records, recs)
	_, err = s.Get(ctx, "agid.licences", "A")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestIndexIsIdempotent(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.IndexRecords(ctx, "agid.licences", licences()))
	require.NoError(t, s.IndexRecords(ctx, "agid.licences", licences()))

	recs, err := s.Records(ctx, "agid.licences")
	require.NoError(t, err)
	assert.Len(t, recs, 2)
}

func TestIndexEmptyResult(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.IndexRecords(ctx, "agid.empty", &csvingest.Result{Columns: []string{"code"}, IDColumn: "code", Records: []csvingest.Record{}}))

	recs, err := s.Records(ctx, "agid.empty")
	require.NoError(t, err)
	assert.Empty(t, recs)

	c, err := s.Describe(ctx, "agid.empty")
	require.NoError(t, err)
	assert.Equal(t, 0, c.Records)
}

func TestDuplicateIDsLastWins(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	res := &csvingest.Result{
		Columns:  []string{"code", "label"},
		IDColumn: "code",
		Records:  []csvingest.Record{{"code": "1", "label": "first"}, {"code": "1", "label": "second"}, {"code": "", "label": "blank"}},
	}
	require.NoError(t, s.IndexRecords(ctx, "x.dup", res))

	rec, err := s.Get(ctx, "x.dup", "1")
	require.NoError(t, err)
	assert.Equal(t, "second", rec["label"])

	recs, err := s.Records(ctx, "x.dup")
	require.NoError(t, err)
	assert.Len(t, recs, 3)
}

func TestDropCollection(t *testing.T) {
	s, mr := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.IndexRecords(ctx, "agid.licences", licences()))
	require.NoError(t, s.IndexRecords(ctx, "istat.ateco", licences()))

	require.NoError(t, s.DropCollection(ctx, "agid.licences"))
	assert.False(t, mr.Exists(DefaultPrefix+":agid.licences:rows"))
	assert.False(t, mr.Exists(DefaultPrefix+":agid.licences:meta"))

	_, err := s.Describe(ctx, "agid.licences")
	assert.ErrorIs(t, err, ErrNotFound)

	names, err := s.Collections(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"istat.ateco"}, names)

	assert.NoError(t, s.DropCollection(ctx, "never.indexed"))
}

func TestIndexRequiresName(t *testing.T) {
	s, _ := newTestStore(t)
	assert.Error(t, s.IndexRecords(context.Background(), "", licences()))
}

func TestStoreErrorsWhenRedisDown(t *testing.T) {
	s, mr := newTestStore(t)
	mr.Close()
	err := s.IndexRecords(context.Background(), "agid.licences", licences())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "index collection agid.licences")
}

func TestOpenFailsWithoutAddr(t *testing.T) {
	_, err := Open(context.Background(), Config{}, nil)
	assert.Error(t, err)
}

func TestOpen(t *testing.T) {
	mr := miniredis.RunT(t)
	s, err := Open(context.Background(), Config{Addr: mr.Addr(), Prefix: "test"}, nil)
	require.NoError(t, err)
	defer s.Close()
	require.NoError(t, s.IndexRecords(context.Background(), "a.b", licences()))
	assert.True(t, mr.Exists("test:a.b:rows"))
}
