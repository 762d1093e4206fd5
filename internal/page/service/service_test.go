package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/humesociety/humesociety-sub000/internal/clock"
	conferencedomain "github.com/humesociety/humesociety-sub000/internal/conference/domain"
	"github.com/humesociety/humesociety-sub000/internal/config"
	"github.com/humesociety/humesociety-sub000/internal/page/domain"
	"github.com/humesociety/humesociety-sub000/pkg/db"
	"github.com/humesociety/humesociety-sub000/pkg/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeConferences struct {
	conferencedomain.Service
	current *conferencedomain.Conference
}

func (f *fakeConferences) CurrentConference(context.Context) (*conferencedomain.Conference, error) {
	if f.current == nil {
		return nil, conferencedomain.ErrNoCurrentConference
	}
	return f.current, nil
}

func newTestService(t *testing.T, society config.SocietyConfig, conferences *fakeConferences) domain.Service {
	t.Helper()

	dbConn, err := db.NewTest()
	if err != nil {
		t.Fatalf("failed to open db: %v", err)
	}
	if err := dbConn.AutoMigrate(&domain.Page{}); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("failed to create snowflake node: %v", err)
	}

	return New(Params{
		Log:         zap.NewNop(),
		GenID:       node,
		Repo:        repository.ProvideStore[domain.Page](dbConn),
		Clock:       clock.NewFakeClock(time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)),
		Config:      config.Config{SiteURL: "https://humesociety.org"},
		Society:     config.NewStaticSocietyConfigHolder(society),
		Conferences: conferences,
	})
}

func TestCreateDerivesSlugAndOrdersSection(t *testing.T) {
	svc := newTestService(t, config.DefaultSocietyConfig(), &fakeConferences{})
	ctx := context.Background()

	second, err := svc.Create(ctx, domain.PageRequest{Section: "society", Title: "Hume's Life", Position: 2})
	require.NoError(t, err)
	assert.Equal(t, "humes-life", second.Slug)

	_, err = svc.Create(ctx, domain.PageRequest{Section: "society", Title: "Officers", Slug: "Our Officers", Position: 1})
	require.NoError(t, err)
	_, err = svc.Create(ctx, domain.PageRequest{Section: "membership", Title: "Dues"})
	require.NoError(t, err)

	pages, err := svc.ListSection(ctx, "society")
	require.NoError(t, err)
	require.Len(t, pages, 2)
	assert.Equal(t, "our-officers", pages[0].Slug)
	assert.Equal(t, "humes-life", pages[1].Slug)

	got, err := svc.Get(ctx, "society", "humes-life")
	require.NoError(t, err)
	assert.Equal(t, second.ID, got.ID)

	_, err = svc.Get(ctx, "membership", "humes-life")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestCreateRejectsDuplicateSlugInSection(t *testing.T) {
	svc := newTestService(t, config.DefaultSocietyConfig(), &fakeConferences{})
	ctx := context.Background()

	_, err := svc.Create(ctx, domain.PageRequest{Section: "society", Title: "History"})
	require.NoError(t, err)
	_, err = svc.Create(ctx, domain.PageRequest{Section: "society", Title: "history"})
	assert.ErrorIs(t, err, domain.ErrDuplicateSlug)

	_, err = svc.Create(ctx, domain.PageRequest{Section: "conferences", Title: "History"})
	assert.NoError(t, err)
}

func TestCreateValidatesInput(t *testing.T) {
	svc := newTestService(t, config.DefaultSocietyConfig(), &fakeConferences{})
	ctx := context.Background()

	_, err := svc.Create(ctx, domain.PageRequest{Section: "Bad Section", Title: "x"})
	assert.ErrorIs(t, err, domain.ErrInvalidSection)
	_, err = svc.Create(ctx, domain.PageRequest{Section: "society", Title: "  "})
	assert.ErrorIs(t, err, domain.ErrInvalidTitle)
	_, err = svc.ListSection(ctx, "../etc")
	assert.ErrorIs(t, err, domain.ErrInvalidSection)
}

func TestUpdateAndDelete(t *testing.T) {
	svc := newTestService(t, config.DefaultSocietyConfig(), &fakeConferences{})
	ctx := context.Background()

	page, err := svc.Create(ctx, domain.PageRequest{Section: "society", Title: "Officers"})
	require.NoError(t, err)

	updated, err := svc.Update(ctx, page.ID, domain.PageRequest{Section: "society", Title: "Executive Committee", Content: "<p>new</p>"})
	require.NoError(t, err)
	assert.Equal(t, "executive-committee", updated.Slug)

	got, err := svc.Get(ctx, "society", "executive-committee")
	require.NoError(t, err)
	assert.Equal(t, "<p>new</p>", got.Content)

	require.NoError(t, svc.Delete(ctx, page.ID))
	assert.ErrorIs(t, svc.Delete(ctx, page.ID), domain.ErrNotFound)
	_, err = svc.Update(ctx, page.ID, domain.PageRequest{Section: "society", Title: "x"})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestRenderSubstitutesSiteVariables(t *testing.T) {
	deadline := time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)
	conferences := &fakeConferences{current: &conferencedomain.Conference{
		Number:   52,
		Year:     2026,
		Town:     "Edinburgh",
		Deadline: &deadline,
	}}
	svc := newTestService(t, config.DefaultSocietyConfig(), conferences)
	ctx := context.Background()

	page, err := svc.Create(ctx, domain.PageRequest{
		Section: "conferences",
		Title:   "Call for Papers",
		Content: "{{ conference }} in {{ conference_town }}, due {{ deadline }}. Dues {{ dues_regular_3 }}. {{ unknown }}",
	})
	require.NoError(t, err)

	rendered, err := svc.Render(ctx, page)
	require.NoError(t, err)
	assert.Equal(t, "Hume Society 52nd Conference in Edinburgh, due 15 January 2026. Dues USD 135.00. {{ unknown }}", rendered.HTML)
	assert.Equal(t, page.Content, rendered.Content)
}

func TestRenderWithoutCurrentConference(t *testing.T) {
	svc := newTestService(t, config.DefaultSocietyConfig(), &fakeConferences{})

	rendered, err := svc.Render(context.Background(), &domain.Page{Content: "{{ society }} {{ conference }}"})
	require.NoError(t, err)
	assert.Equal(t, "Hume Society {{ conference }}", rendered.HTML)
}

func TestRenderDoesNotReexpandValues(t *testing.T) {
	society := config.DefaultSocietyConfig()
	society.Name = "{{ site_url }}"
	svc := newTestService(t, society, &fakeConferences{})

	rendered, err := svc.Render(context.Background(), &domain.Page{Content: "<h1>{{ society }}</h1>"})
	require.NoError(t, err)
	assert.NotContains(t, rendered.HTML, "https://humesociety.org")
	assert.Equal(t, "<h1>{ site_url }</h1>", rendered.HTML)
}
