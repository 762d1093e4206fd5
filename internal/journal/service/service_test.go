package service

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/humesociety/humesociety-sub000/internal/clock"
	"github.com/humesociety/humesociety-sub000/internal/journal/domain"
	"github.com/humesociety/humesociety-sub000/internal/storage"
	"github.com/humesociety/humesociety-sub000/pkg/db"
	"github.com/humesociety/humesociety-sub000/pkg/repository"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestService(t *testing.T) (domain.Service, storage.Store) {
	t.Helper()

	dbConn, err := db.NewTest()
	if err != nil {
		t.Fatalf("failed to open db: %v", err)
	}
	if err := dbConn.AutoMigrate(&domain.Issue{}, &domain.Article{}); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("failed to create snowflake node: %v", err)
	}

	store := storage.New(afero.NewMemMapFs(), nil)
	svc := New(Params{
		DB:       dbConn,
		Log:      zap.NewNop(),
		GenID:    node,
		Issues:   repository.ProvideStore[domain.Issue](dbConn),
		Articles: repository.ProvideStore[domain.Article](dbConn),
		Store:    store,
		Clock:    clock.NewFakeClock(time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)),
	})
	return svc, store
}

func TestListIssuesNestsArticlesInPositionOrder(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	older, err := svc.CreateIssue(ctx, domain.IssueRequest{Volume: 47, Number: 1, Year: 2022, Published: true})
	require.NoError(t, err)
	newer, err := svc.CreateIssue(ctx, domain.IssueRequest{Volume: 48, Number: 2, Year: 2023, Published: true})
	require.NoError(t, err)
	_, err = svc.CreateIssue(ctx, domain.IssueRequest{Volume: 49, Number: 1, Year: 2024})
	require.NoError(t, err)

	_, err = svc.CreateArticle(ctx, newer.ID, domain.ArticleRequest{Title: "Second", Position: 2})
	require.NoError(t, err)
	_, err = svc.CreateArticle(ctx, newer.ID, domain.ArticleRequest{Title: "First", Position: 1})
	require.NoError(t, err)
	auto, err := svc.CreateArticle(ctx, older.ID, domain.ArticleRequest{Title: "Only"})
	require.NoError(t, err)
	assert.Equal(t, 1, auto.Position)

	issues, err := svc.ListIssues(ctx, true)
	require.NoError(t, err)
	require.Len(t, issues, 2)
	assert.Equal(t, 48, issues[0].Volume)
	require.Len(t, issues[0].Articles, 2)
	assert.Equal(t, "First", issues[0].Articles[0].Title)
	assert.Equal(t, "Second", issues[0].Articles[1].Title)
	assert.Len(t, issues[1].Articles, 1)

	all, err := svc.ListIssues(ctx, false)
	require.NoError(t, err)
	assert.Len(t, all, 3)
	assert.Empty(t, all[0].Articles)
}

func TestCreateIssueRejectsDuplicatesAndInvalid(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.CreateIssue(ctx, domain.IssueRequest{Volume: 47, Number: 1, Year: 2022})
	require.NoError(t, err)
	_, err = svc.CreateIssue(ctx, domain.IssueRequest{Volume: 47, Number: 1, Year: 2022})
	assert.ErrorIs(t, err, domain.ErrDuplicateIssue)
	_, err = svc.CreateIssue(ctx, domain.IssueRequest{Volume: 0, Number: 1, Year: 2022})
	assert.ErrorIs(t, err, domain.ErrInvalidIssue)
}

func TestUploadArticleUsesDerivedPath(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	issue, err := svc.CreateIssue(ctx, domain.IssueRequest{Volume: 47, Number: 2, Year: 2022})
	require.NoError(t, err)
	article, err := svc.CreateArticle(ctx, issue.ID, domain.ArticleRequest{
		Title:     "Hume's Skeptical Doubts Concerning Induction",
		Position:  3,
		StartPage: 101,
		EndPage:   130,
	})
	require.NoError(t, err)
	assert.Equal(t, "humes-skeptical-doubts-concerning-induction", article.Slug)

	uploaded, err := svc.UploadArticle(ctx, article.ID, strings.NewReader("%PDF-1"))
	require.NoError(t, err)
	assert.Equal(t, "issues/v47n2-2022/3-humes-skeptical-doubts-concerning-induction.pdf", uploaded.Filename)

	// Re-uploading overwrites the same path.
	_, err = svc.UploadArticle(ctx, article.ID, strings.NewReader("%PDF-2"))
	require.NoError(t, err)
	r, err := store.Open(ctx, uploaded.Filename)
	require.NoError(t, err)
	defer r.Close()
	buf := new(strings.Builder)
	_, err = io.Copy(buf, r)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-2", buf.String())

	_, err = svc.UploadArticle(ctx, article.ID, nil)
	assert.ErrorIs(t, err, domain.ErrFileRequired)
}

func TestArticleValidationAndDelete(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	issue, err := svc.CreateIssue(ctx, domain.IssueRequest{Volume: 1, Number: 1, Year: 1975})
	require.NoError(t, err)

	_, err = svc.CreateArticle(ctx, issue.ID, domain.ArticleRequest{Title: " "})
	assert.ErrorIs(t, err, domain.ErrInvalidArticle)
	_, err = svc.CreateArticle(ctx, issue.ID, domain.ArticleRequest{Title: "x", StartPage: 10, EndPage: 5})
	assert.ErrorIs(t, err, domain.ErrInvalidPages)
	_, err = svc.CreateArticle(ctx, snowflake.ID(1), domain.ArticleRequest{Title: "x"})
	assert.ErrorIs(t, err, domain.ErrIssueNotFound)

	article, err := svc.CreateArticle(ctx, issue.ID, domain.ArticleRequest{Title: "Editor's Introduction", Slug: "Intro"})
	require.NoError(t, err)
	assert.Equal(t, "intro", article.Slug)
	uploaded, err := svc.UploadArticle(ctx, article.ID, strings.NewReader("%PDF"))
	require.NoError(t, err)

	updated, err := svc.UpdateArticle(ctx, article.ID, domain.ArticleRequest{Title: "Introduction", StartPage: 1, EndPage: 4})
	require.NoError(t, err)
	assert.Equal(t, "introduction", updated.Slug)
	assert.Equal(t, 1, updated.Position)

	require.NoError(t, svc.DeleteIssue(ctx, issue.ID))
	_, err = svc.GetIssue(ctx, issue.ID)
	assert.ErrorIs(t, err, domain.ErrIssueNotFound)
	assert.ErrorIs(t, svc.DeleteArticle(ctx, article.ID), domain.ErrArticleNotFound)

	exists, err := store.Exists(ctx, uploaded.Filename)
	require.NoError(t, err)
	assert.True(t, exists, "deleting an issue keeps uploaded files")
}
