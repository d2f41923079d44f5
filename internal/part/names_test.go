package part_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/roach88/crucible/internal/part"
)

func TestQualify(t *testing.T) {
	assert.Equal(t, "a", part.Qualify("", "a"))
	assert.Equal(t, "outer.a", part.Qualify("outer", "a"))
	assert.Equal(t, "outer.inner.a", part.Qualify("outer.inner", "a"))
	assert.Equal(t, "done", part.Qualify("outer", "done"))
	assert.Equal(t, "quit", part.Qualify("outer", "quit"))
	assert.Equal(t, "", part.Qualify("outer", ""))
}

func TestShortName(t *testing.T) {
	assert.Equal(t, "a", part.ShortName("outer", "outer.a"))
	assert.Equal(t, "inner.a", part.ShortName("outer", "outer.inner.a"))
	assert.Equal(t, "a", part.ShortName("", "a"))
	assert.Equal(t, "other.a", part.ShortName("outer", "other.a"))
}

func TestIsChild(t *testing.T) {
	assert.True(t, part.IsChild("", "a"))
	assert.False(t, part.IsChild("", "a.b"))
	assert.True(t, part.IsChild("outer", "outer.a"))
	assert.False(t, part.IsChild("outer", "outer.a.b"))
	assert.False(t, part.IsChild("outer", "other.a"))
	assert.False(t, part.IsChild("outer", "outer"))
}

func TestChildShortNames(t *testing.T) {
	names := []string{"f", "f.a", "f.b", "f.b.deep", "g", "g.x"}
	assert.Equal(t, []string{"a", "b"}, part.ChildShortNames("f", names))
	assert.Equal(t, []string{"f", "g"}, part.ChildShortNames("", names))
}

func TestRoutes(t *testing.T) {
	assert.True(t, part.Undecided.IsUndecided())
	assert.False(t, part.Undecided.IsCommand())
	assert.True(t, part.Done().IsCommand())
	assert.True(t, part.Quit().IsCommand())

	r := part.RouteToPart("next")
	assert.False(t, r.IsUndecided())
	assert.True(t, r.CanUsePartName)
}
