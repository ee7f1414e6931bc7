package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testDoc struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Status string `json:"status"`
	Seq    int    `json:"seq"`
	Active bool   `json:"active"`
}

func TestMemoryStore_InsertAndFindOne(t *testing.T) {
	ctx := context.Background()
	col := NewMemoryStore().Collection("things")

	require.NoError(t, col.InsertOne(ctx, "a", testDoc{ID: "a", Name: "first", Status: "pending"}))

	var got testDoc
	require.NoError(t, col.FindOne(ctx, Filter{"id": "a"}, &got))
	assert.Equal(t, "first", got.Name)

	err := col.FindOne(ctx, Filter{"id": "missing"}, &got)
	assert.ErrorIs(t, err, ErrNoDocuments)
}

func TestMemoryStore_DuplicateInsert(t *testing.T) {
	ctx := context.Background()
	col := NewMemoryStore().Collection("things")

	require.NoError(t, col.InsertOne(ctx, "a", testDoc{ID: "a"}))
	err := col.InsertOne(ctx, "a", testDoc{ID: "a"})
	assert.ErrorIs(t, err, ErrDuplicateKey)
}

func TestMemoryStore_FilterMatching(t *testing.T) {
	ctx := context.Background()
	col := NewMemoryStore().Collection("things")

	require.NoError(t, col.InsertOne(ctx, "a", testDoc{ID: "a", Status: "pending", Seq: 1, Active: true}))
	require.NoError(t, col.InsertOne(ctx, "b", testDoc{ID: "b", Status: "paid", Seq: 2, Active: false}))
	require.NoError(t, col.InsertOne(ctx, "c", testDoc{ID: "c", Status: "pending", Seq: 3, Active: true}))

	var docs []testDoc
	require.NoError(t, col.Find(ctx, Filter{"status": "pending"}, FindOptions{}, &docs))
	assert.Len(t, docs, 2)

	n, err := col.CountDocuments(ctx, Filter{"active": true})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	require.NoError(t, col.Find(ctx, Filter{"status": "pending", "seq": 3}, FindOptions{}, &docs))
	require.Len(t, docs, 1)
	assert.Equal(t, "c", docs[0].ID)
}

func TestMemoryStore_FindSortLimit(t *testing.T) {
	ctx := context.Background()
	col := NewMemoryStore().Collection("things")

	require.NoError(t, col.InsertOne(ctx, "a", testDoc{ID: "a", Seq: 2}))
	require.NoError(t, col.InsertOne(ctx, "b", testDoc{ID: "b", Seq: 3}))
	require.NoError(t, col.InsertOne(ctx, "c", testDoc{ID: "c", Seq: 1}))

	var docs []testDoc
	require.NoError(t, col.Find(ctx, Filter{}, FindOptions{Sort: &Sort{Field: "seq", Desc: true}}, &docs))
	require.Len(t, docs, 3)
	assert.Equal(t, []int{3, 2, 1}, []int{docs[0].Seq, docs[1].Seq, docs[2].Seq})

	require.NoError(t, col.Find(ctx, Filter{}, FindOptions{Sort: &Sort{Field: "seq"}, Limit: 2}, &docs))
	require.Len(t, docs, 2)
	assert.Equal(t, 1, docs[0].Seq)

	require.NoError(t, col.Find(ctx, Filter{}, FindOptions{Sort: &Sort{Field: "seq"}, Limit: 2, Offset: 2}, &docs))
	require.Len(t, docs, 1)
	assert.Equal(t, 3, docs[0].Seq)
}

func TestMemoryStore_UpdateOne(t *testing.T) {
	ctx := context.Background()
	col := NewMemoryStore().Collection("things")

	require.NoError(t, col.InsertOne(ctx, "a", testDoc{ID: "a", Status: "pending"}))

	// Conditional replace succeeds when the status matches.
	matched, err := col.UpdateOne(ctx, Filter{"id": "a", "status": "pending"}, testDoc{ID: "a", Status: "paid"})
	require.NoError(t, err)
	assert.True(t, matched)

	// The stale-status filter no longer matches anything.
	matched, err = col.UpdateOne(ctx, Filter{"id": "a", "status": "pending"}, testDoc{ID: "a", Status: "verified"})
	require.NoError(t, err)
	assert.False(t, matched)

	var got testDoc
	require.NoError(t, col.FindOne(ctx, Filter{"id": "a"}, &got))
	assert.Equal(t, "paid", got.Status)
}

func TestMemoryStore_DeleteOne(t *testing.T) {
	ctx := context.Background()
	col := NewMemoryStore().Collection("things")

	require.NoError(t, col.InsertOne(ctx, "a", testDoc{ID: "a", Status: "pending"}))

	deleted, err := col.DeleteOne(ctx, Filter{"id": "a"})
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = col.DeleteOne(ctx, Filter{"id": "a"})
	require.NoError(t, err)
	assert.False(t, deleted)
}
