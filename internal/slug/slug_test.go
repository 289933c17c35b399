package slug

import (
	"context"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"portify/internal/database"
	"portify/internal/database/dbtest"
)

var slugPattern = regexp.MustCompile(`^[a-z0-9-]+$`)

func TestGenerate(t *testing.T) {
	cases := map[string]string{
		"My Resume":                "my-resume",
		"  Hello   World  ":        "hello-world",
		"C++ & Go -- Developer!":   "c-go-developer",
		"--leading and trailing--": "leading-and-trailing",
		"Ünïcödé Name 2024":        "ncd-name-2024",
		"tabs\tand\nnewlines":      "tabs-and-newlines",
		"a - b":                    "a-b",
	}
	for in, want := range cases {
		got, err := Generate(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
		assert.Regexp(t, slugPattern, got)
	}
}

func TestGenerate_EmptyForPunctuationOnly(t *testing.T) {
	for _, in := range []string{"", "   ", "!!!", "---", "???  ...", "日本語"} {
		_, err := Generate(in)
		assert.ErrorIs(t, err, ErrEmptySlug, in)
	}
}

func seedPortfolio(t *testing.T, db *gorm.DB, accountID uint, slug string) database.Portfolio {
	t.Helper()
	p := database.Portfolio{AccountID: accountID, TemplateID: 1, Name: slug, Slug: slug, IsPublic: true}
	require.NoError(t, db.Create(&p).Error)
	return p
}

func TestAllocator_UniqueAppendsSuffix(t *testing.T) {
	db := dbtest.Open(t)
	acc := dbtest.SeedAccount(t, db, "a@example.com")
	alloc := NewAllocator(db, 0)
	ctx := context.Background()

	first, err := alloc.Unique(ctx, "My Resume", 0)
	require.NoError(t, err)
	assert.Equal(t, "my-resume", first)
	seedPortfolio(t, db, acc.ID, first)

	second, err := alloc.Unique(ctx, "My Resume", 0)
	require.NoError(t, err)
	assert.Equal(t, "my-resume-1", second)
	seedPortfolio(t, db, acc.ID, second)

	third, err := alloc.Unique(ctx, "my   resume!", 0)
	require.NoError(t, err)
	assert.Equal(t, "my-resume-2", third)
}

func TestAllocator_UniqueExcludesOwnID(t *testing.T) {
	db := dbtest.Open(t)
	acc := dbtest.SeedAccount(t, db, "a@example.com")
	alloc := NewAllocator(db, 0)
	ctx := context.Background()

	own := seedPortfolio(t, db, acc.ID, "portfolio")

	got, err := alloc.Unique(ctx, "Portfolio", own.ID)
	require.NoError(t, err)
	assert.Equal(t, "portfolio", got)

	got, err = alloc.Unique(ctx, "Portfolio", 0)
	require.NoError(t, err)
	assert.Equal(t, "portfolio-1", got)
}

func TestAllocator_UniqueBoundedProbes(t *testing.T) {
	db := dbtest.Open(t)
	acc := dbtest.SeedAccount(t, db, "a@example.com")
	alloc := NewAllocator(db, 3)
	ctx := context.Background()

	seedPortfolio(t, db, acc.ID, "busy")
	seedPortfolio(t, db, acc.ID, "busy-1")
	seedPortfolio(t, db, acc.ID, "busy-2")

	_, err := alloc.Unique(ctx, "busy", 0)
	assert.ErrorIs(t, err, ErrSlugExhausted)
}

func TestAllocator_UniqueRejectsEmptyName(t *testing.T) {
	db := dbtest.Open(t)
	_, err := NewAllocator(db, 0).Unique(context.Background(), "%%%", 0)
	assert.ErrorIs(t, err, ErrEmptySlug)
}

func TestAllocator_Available(t *testing.T) {
	db := dbtest.Open(t)
	acc := dbtest.SeedAccount(t, db, "a@example.com")
	alloc := NewAllocator(db, 0)
	ctx := context.Background()

	p := seedPortfolio(t, db, acc.ID, "taken")

	ok, err := alloc.Available(ctx, "taken", 0)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = alloc.Available(ctx, "taken", p.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = alloc.Available(ctx, "free", 0)
	require.NoError(t, err)
	assert.True(t, ok)
}
