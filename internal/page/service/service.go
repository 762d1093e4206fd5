package service

import (
	"context"
	"errors"
	"regexp"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gosimple/slug"
	"github.com/humesociety/humesociety-sub000/internal/clock"
	conferencedomain "github.com/humesociety/humesociety-sub000/internal/conference/domain"
	"github.com/humesociety/humesociety-sub000/internal/config"
	emaildomain "github.com/humesociety/humesociety-sub000/internal/email/domain"
	membershipdomain "github.com/humesociety/humesociety-sub000/internal/membership/domain"
	"github.com/humesociety/humesociety-sub000/internal/page/domain"
	"github.com/humesociety/humesociety-sub000/pkg/db"
	"github.com/humesociety/humesociety-sub000/pkg/db/option"
	"github.com/humesociety/humesociety-sub000/pkg/repository"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var sectionPattern = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)

type Params struct {
	fx.In

	Log         *zap.Logger
	GenID       *snowflake.Node
	Repo        repository.Repository[domain.Page]
	Clock       clock.Clock
	Config      config.Config
	Society     *config.SocietyConfigHolder
	Conferences conferencedomain.Service
}

type Service struct {
	log         *zap.Logger
	genID       *snowflake.Node
	repo        repository.Repository[domain.Page]
	clock       clock.Clock
	siteURL     string
	society     *config.SocietyConfigHolder
	conferences conferencedomain.Service
}

func New(p Params) domain.Service {
	clk := p.Clock
	if clk == nil {
		clk = clock.SystemClock{}
	}
	return &Service{
		log:         p.Log.Named("page.service"),
		genID:       p.GenID,
		repo:        p.Repo,
		clock:       clk,
		siteURL:     p.Config.SiteURL,
		society:     p.Society,
		conferences: p.Conferences,
	}
}

func (s *Service) ListSection(ctx context.Context, section string) ([]domain.Page, error) {
	section = strings.TrimSpace(section)
	if !sectionPattern.MatchString(section) {
		return nil, domain.ErrInvalidSection
	}
	items, err := s.repo.Find(ctx, &domain.Page{Section: section}, option.WithOrder("position ASC, title ASC"))
	if err != nil {
		return nil, err
	}
	out := make([]domain.Page, 0, len(items))
	for _, item := range items {
		out = append(out, *item)
	}
	return out, nil
}

func (s *Service) Get(ctx context.Context, section, pageSlug string) (*domain.Page, error) {
	section = strings.TrimSpace(section)
	pageSlug = strings.TrimSpace(pageSlug)
	if section == "" || pageSlug == "" {
		return nil, domain.ErrNotFound
	}
	page, err := s.repo.FindOne(ctx, &domain.Page{Section: section, Slug: pageSlug})
	if err != nil {
		return nil, err
	}
	if page == nil {
		return nil, domain.ErrNotFound
	}
	return page, nil
}

func (s *Service) Create(ctx context.Context, req domain.PageRequest) (*domain.Page, error) {
	section, title, pageSlug, err := normalize(req)
	if err != nil {
		return nil, err
	}
	now := s.clock.Now()
	page := &domain.Page{
		ID:        s.genID.Generate(),
		Section:   section,
		Slug:      pageSlug,
		Title:     title,
		Content:   req.Content,
		Position:  req.Position,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.Create(ctx, page); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return nil, domain.ErrDuplicateSlug
		}
		return nil, err
	}
	return page, nil
}

func (s *Service) Update(ctx context.Context, id snowflake.ID, req domain.PageRequest) (*domain.Page, error) {
	section, title, pageSlug, err := normalize(req)
	if err != nil {
		return nil, err
	}
	existing, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	if err := s.repo.Update(ctx, int64(id), map[string]any{
		"section":    section,
		"slug":       pageSlug,
		"title":      title,
		"content":    req.Content,
		"position":   req.Position,
		"updated_at": now,
	}); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return nil, domain.ErrDuplicateSlug
		}
		return nil, err
	}

	existing.Section = section
	existing.Slug = pageSlug
	existing.Title = title
	existing.Content = req.Content
	existing.Position = req.Position
	existing.UpdatedAt = now
	return existing, nil
}

func (s *Service) Delete(ctx context.Context, id snowflake.ID) error {
	if _, err := s.find(ctx, id); err != nil {
		return err
	}
	return s.repo.Delete(ctx, int64(id))
}

func (s *Service) Render(ctx context.Context, page *domain.Page) (*domain.Rendered, error) {
	vars, err := s.Vars(ctx)
	if err != nil {
		return nil, err
	}
	return &domain.Rendered{
		Page: *page,
		HTML: emaildomain.Render(page.Content, vars),
	}, nil
}

func (s *Service) Vars(ctx context.Context) (map[string]string, error) {
	society := s.society.Get()
	vars := map[string]string{
		"society":  society.Name,
		"site_url": s.siteURL,
	}
	for _, plan := range society.Dues.Plans {
		key := "dues_" + strings.ReplaceAll(strings.ToLower(plan.Name), "-", "_")
		vars[key] = membershipdomain.FormatAmount(plan.Amount, plan.Currency)
	}

	conference, err := s.conferences.CurrentConference(ctx)
	switch {
	case err == nil:
		vars = emaildomain.MergeVars(vars, conference.Vars())
	case errors.Is(err, conferencedomain.ErrNoCurrentConference):
	default:
		return nil, err
	}
	return vars, nil
}

func (s *Service) find(ctx context.Context, id snowflake.ID) (*domain.Page, error) {
	page, err := s.repo.FindOne(ctx, &domain.Page{ID: id})
	if err != nil {
		return nil, err
	}
	if page == nil {
		return nil, domain.ErrNotFound
	}
	return page, nil
}

func normalize(req domain.PageRequest) (section, title, pageSlug string, err error) {
	section = strings.TrimSpace(req.Section)
	if !sectionPattern.MatchString(section) {
		return "", "", "", domain.ErrInvalidSection
	}
	title = strings.TrimSpace(req.Title)
	if title == "" {
		return "", "", "", domain.ErrInvalidTitle
	}
	pageSlug = slug.Make(title)
	if given := strings.TrimSpace(req.Slug); given != "" {
		pageSlug = slug.Make(given)
	}
	if pageSlug == "" {
		return "", "", "", domain.ErrInvalidTitle
	}
	return section, title, pageSlug, nil
}
