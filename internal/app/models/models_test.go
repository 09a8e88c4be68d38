package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVideoSetNormalize(t *testing.T) {
	assert.Equal(t, VideoSet{101, 102, 201}, NewVideoSet(201, 101, 102, 101, 201))
	assert.Equal(t, VideoSet{}, NewVideoSet())
	assert.NotNil(t, VideoSet(nil).Normalize())
}

func TestVideoSetOperations(t *testing.T) {
	s := NewVideoSet(101, 102)

	assert.True(t, s.Contains(102))
	assert.False(t, s.Contains(103))

	withNew := s.With(103)
	assert.Equal(t, VideoSet{101, 102, 103}, withNew)
	assert.Equal(t, VideoSet{101, 102}, s, "With must not mutate the receiver")
	assert.Equal(t, s, s.With(101))

	assert.Equal(t, VideoSet{102}, s.Without(101))
	assert.Equal(t, s, s.Without(999))

	assert.True(t, s.Equal(NewVideoSet(102, 101)))
	assert.False(t, s.Equal(NewVideoSet(101)))
	assert.True(t, VideoSet(nil).Equal(VideoSet{}))
}

func TestVideoSetJSON(t *testing.T) {
	data, err := json.Marshal(VideoSet(nil))
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, string(data))

	var s VideoSet
	require.NoError(t, json.Unmarshal([]byte(`[3,1,3,2]`), &s))
	assert.Equal(t, VideoSet{1, 2, 3}, s)
}

func TestDecodeEntitlementRecord(t *testing.T) {
	t.Run("legacy record without version", func(t *testing.T) {
		rec, err := DecodeEntitlementRecord([]byte(`{"studentId":"07","videoIds":[102,101,101]}`))
		require.NoError(t, err)
		assert.Equal(t, EntitlementSchemaVersion, rec.SchemaVersion)
		assert.Equal(t, VideoSet{101, 102}, rec.VideoIDs)
		assert.Nil(t, rec.Pending)
	})

	t.Run("future version is rejected", func(t *testing.T) {
		_, err := DecodeEntitlementRecord([]byte(`{"schemaVersion":2,"videoIds":[101]}`))
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrUnsupportedSchema)
	})

	t.Run("garbage is rejected", func(t *testing.T) {
		_, err := DecodeEntitlementRecord([]byte(`not json`))
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrUnsupportedSchema)
	})

	t.Run("non-positive ids are rejected", func(t *testing.T) {
		_, err := DecodeEntitlementRecord([]byte(`{"videoIds":[0,101]}`))
		assert.Error(t, err)
	})

	t.Run("pending stage survives a round trip", func(t *testing.T) {
		rec := &EntitlementRecord{
			StudentID: "07",
			VideoIDs:  NewVideoSet(101),
			Revision:  3,
			Pending:   &PendingChange{VideoIDs: NewVideoSet(101, 102)},
		}
		data, err := rec.Encode()
		require.NoError(t, err)

		got, err := DecodeEntitlementRecord(data)
		require.NoError(t, err)
		require.NotNil(t, got.Pending)
		assert.Equal(t, VideoSet{101, 102}, got.Pending.VideoIDs)
		assert.Equal(t, int64(3), got.Revision)
	})
}

func TestEntitlementKey(t *testing.T) {
	key := EntitlementKey("07")
	assert.Equal(t, "entitlements:07", key)

	id, ok := StudentIDFromEntitlementKey(key)
	assert.True(t, ok)
	assert.Equal(t, "07", id)

	_, ok = StudentIDFromEntitlementKey("student:07")
	assert.False(t, ok)
	_, ok = StudentIDFromEntitlementKey("entitlements:")
	assert.False(t, ok)
}

func TestCatalog(t *testing.T) {
	modules := Catalog()
	require.Len(t, modules, 4)

	counts := []int{7, 8, 9, 6}
	for i, m := range modules {
		assert.Len(t, m.Videos, counts[i], "module %d", m.ID)
		for _, v := range m.Videos {
			assert.Equal(t, m.ID, v.ModuleID)
		}
	}

	v, ok := LookupVideo(309)
	require.True(t, ok)
	assert.Equal(t, "Acordes com pestana", v.Title)
	assert.Equal(t, 3, v.ModuleID)

	_, ok = LookupVideo(999)
	assert.False(t, ok)
}
