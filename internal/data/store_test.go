package data

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/crucible/internal/value"
)

func TestCommitPublishesStaging(t *testing.T) {
	s := New(value.Map{"count": value.Int(1)})

	s.Begin()
	s.Set("count", value.Int(2))
	assert.True(t, value.Equal(value.Int(1), s.Committed()["count"]))

	s.Commit()
	assert.True(t, value.Equal(value.Int(2), s.Committed()["count"]))
}

func TestRollbackDiscardsStaging(t *testing.T) {
	s := New(value.Map{"count": value.Int(1)})

	s.Begin()
	s.Set("count", value.Int(99))
	s.Set("extra", value.String("junk"))
	s.Rollback()

	v, ok := s.Get("count")
	require.True(t, ok)
	assert.True(t, value.Equal(value.Int(1), v))
	_, ok = s.Get("extra")
	assert.False(t, ok)
}

func TestBeginResetsStagingFromCommitted(t *testing.T) {
	s := New(nil)
	s.Set("leftover", value.Int(1))
	s.Begin()
	_, ok := s.Get("leftover")
	assert.False(t, ok)
}

func TestSnapshotsAreCopies(t *testing.T) {
	s := New(value.Map{"list": value.List{value.Int(1)}})
	snap := s.Staging()
	snap["list"].(value.List)[0] = value.Int(42)

	v, _ := s.Get("list")
	assert.True(t, value.Equal(value.List{value.Int(1)}, v))
}

func TestKeysAreNFCNormalized(t *testing.T) {
	// "é" as a precomposed rune and as "e" + combining accent
	composed := "café"
	decomposed := "café"

	s := New(nil)
	s.Set(decomposed, value.Int(1))
	v, ok := s.Get(composed)
	require.True(t, ok)
	assert.True(t, value.Equal(value.Int(1), v))
}

func TestNilValueStoresNull(t *testing.T) {
	s := New(nil)
	s.Set("x", nil)
	v, ok := s.Get("x")
	require.True(t, ok)
	assert.True(t, value.IsNull(v))
}
