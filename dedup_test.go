package bibaux

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeduplicate(t *testing.T) {
	one := parseTestString(t, `@misc{K1, title = {first}}
@misc{K2, title = {The Title}, year = 2000}`)
	two := parseTestString(t, `@misc{K3, title = {the title!}, year = 2000}
@misc{K1, title = {second}}`)

	t.Run("by key", func(t *testing.T) {
		res, dr, err := Deduplicate([]*Database{one, two}, nil, SetUnion)
		require.NoError(t, err)
		assert.Equal(t, 1, dr.DuplicateSetCount)
		assert.Equal(t, []string{"K1"}, dr.DuplicateTerms())
		assert.Equal(t, 3, dr.ResultSetCount)
		assert.Equal(t, []string{"K1", "K2", "K3"}, res.Keys())
		rec, _ := res.EntryByKey("K1")
		assert.Equal(t, "first", rec.Field("title"))
	})
	t.Run("by fields", func(t *testing.T) {
		res, dr, err := Deduplicate([]*Database{one, two}, []string{"title", "year"}, SetNoAction)
		require.NoError(t, err)
		assert.Nil(t, res)
		assert.Equal(t, []string{"thetitle2000"}, dr.DuplicateTerms())
	})
	t.Run("report", func(t *testing.T) {
		_, dr, err := Deduplicate([]*Database{one, two}, nil, SetNoAction)
		require.NoError(t, err)
		out := dr.String()
		assert.True(t, strings.HasPrefix(out, "1 duplicate sets found\n"))
		assert.Contains(t, out, "[K1] has 2 occurrences in lines\n")
		assert.Contains(t, out, "test.bib:1\n@misc{K1,\n")
		assert.Contains(t, out, "test.bib:2\n@misc{K1,\n")
	})
	t.Run("nothing to do", func(t *testing.T) {
		_, _, err := Deduplicate([]*Database{NewDatabase("empty.bib")}, nil, SetUnion)
		assert.Error(t, err)
		assert.Equal(t, 0, DuplicateKeys(NewDatabase("empty.bib")).DuplicateSetCount)
	})
}

func TestValidKeys(t *testing.T) {
	assert.True(t, ValidKeys(parseTestString(t, `@misc{A} @misc{B}`)))
	db := NewDatabase("x.bib")
	db.AddEntry(NewEntry("misc", ""))
	assert.False(t, ValidKeys(db))
}

func TestMerge(t *testing.T) {
	one := parseTestString(t, `@string{pub = "One"}
@misc{K1, publisher = pub}`)
	two := parseTestString(t, `@preamble{"two"}
@string{pub = "Two"}
@string{other = "Other"}
@misc{K1, note = {dup}}
@misc{K2}`)
	db := Merge("all.bib", one, two)
	assert.Equal(t, "all.bib", db.Name())
	assert.Equal(t, []string{"K1", "K2"}, db.Keys())
	pub, ok := db.StringByName("pub")
	require.True(t, ok)
	assert.Equal(t, "One", pub.Value.String())
	assert.Equal(t, 2, db.StringCount())
	assert.Equal(t, "two", db.Preamble.String())

	empty := Merge("none.bib", NewDatabase("a.bib"))
	assert.Equal(t, 0, empty.EntryCount())
	assert.Equal(t, "none.bib", empty.Name())
}
