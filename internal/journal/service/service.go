package service

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gosimple/slug"
	"github.com/humesociety/humesociety-sub000/internal/clock"
	"github.com/humesociety/humesociety-sub000/internal/journal/domain"
	"github.com/humesociety/humesociety-sub000/internal/observability/logger"
	"github.com/humesociety/humesociety-sub000/internal/storage"
	"github.com/humesociety/humesociety-sub000/pkg/db"
	"github.com/humesociety/humesociety-sub000/pkg/db/option"
	"github.com/humesociety/humesociety-sub000/pkg/repository"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Issues   repository.Repository[domain.Issue]
	Articles repository.Repository[domain.Article]
	Store    storage.Store
	Clock    clock.Clock
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	issues   repository.Repository[domain.Issue]
	articles repository.Repository[domain.Article]
	store    storage.Store
	clock    clock.Clock
}

func New(p Params) domain.Service {
	clk := p.Clock
	if clk == nil {
		clk = clock.SystemClock{}
	}
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("journal.service"),
		genID:    p.GenID,
		issues:   p.Issues,
		articles: p.Articles,
		store:    p.Store,
		clock:    clk,
	}
}

func (s *Service) ListIssues(ctx context.Context, publishedOnly bool) ([]domain.Issue, error) {
	opts := []option.QueryOption{option.WithOrder("volume DESC, number DESC")}
	if publishedOnly {
		opts = append(opts, option.WithWhere("published = ?", true))
	}
	issues, err := s.issues.Find(ctx, &domain.Issue{}, opts...)
	if err != nil {
		return nil, err
	}
	if len(issues) == 0 {
		return []domain.Issue{}, nil
	}

	ids := make([]snowflake.ID, 0, len(issues))
	for _, issue := range issues {
		ids = append(ids, issue.ID)
	}
	articles, err := s.articles.Find(ctx, &domain.Article{},
		option.WithWhere("issue_id IN ?", ids),
		option.WithOrder("position ASC, id ASC"),
	)
	if err != nil {
		return nil, err
	}

	byIssue := make(map[snowflake.ID][]domain.Article, len(issues))
	for _, article := range articles {
		byIssue[article.IssueID] = append(byIssue[article.IssueID], *article)
	}

	out := make([]domain.Issue, 0, len(issues))
	for _, issue := range issues {
		issue.Articles = byIssue[issue.ID]
		if issue.Articles == nil {
			issue.Articles = []domain.Article{}
		}
		out = append(out, *issue)
	}
	return out, nil
}

func (s *Service) GetIssue(ctx context.Context, id snowflake.ID) (*domain.Issue, error) {
	issue, err := s.findIssue(ctx, id)
	if err != nil {
		return nil, err
	}
	articles, err := s.articles.Find(ctx, &domain.Article{IssueID: id}, option.WithOrder("position ASC, id ASC"))
	if err != nil {
		return nil, err
	}
	issue.Articles = make([]domain.Article, 0, len(articles))
	for _, article := range articles {
		issue.Articles = append(issue.Articles, *article)
	}
	return issue, nil
}

func (s *Service) CreateIssue(ctx context.Context, req domain.IssueRequest) (*domain.Issue, error) {
	if err := validateIssue(req); err != nil {
		return nil, err
	}
	now := s.clock.Now()
	issue := &domain.Issue{
		ID:        s.genID.Generate(),
		Volume:    req.Volume,
		Number:    req.Number,
		Year:      req.Year,
		Month:     strings.TrimSpace(req.Month),
		Editors:   strings.TrimSpace(req.Editors),
		Published: req.Published,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.issues.Create(ctx, issue); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return nil, domain.ErrDuplicateIssue
		}
		return nil, err
	}
	issue.Articles = []domain.Article{}
	return issue, nil
}

func (s *Service) UpdateIssue(ctx context.Context, id snowflake.ID, req domain.IssueRequest) (*domain.Issue, error) {
	if err := validateIssue(req); err != nil {
		return nil, err
	}
	if _, err := s.findIssue(ctx, id); err != nil {
		return nil, err
	}
	err := s.issues.Update(ctx, int64(id), map[string]any{
		"volume":     req.Volume,
		"number":     req.Number,
		"year":       req.Year,
		"month":      strings.TrimSpace(req.Month),
		"editors":    strings.TrimSpace(req.Editors),
		"published":  req.Published,
		"updated_at": s.clock.Now(),
	})
	if err != nil {
		if db.IsDuplicateKeyErr(err) {
			return nil, domain.ErrDuplicateIssue
		}
		return nil, err
	}
	return s.GetIssue(ctx, id)
}

func (s *Service) DeleteIssue(ctx context.Context, id snowflake.ID) error {
	if _, err := s.findIssue(ctx, id); err != nil {
		return err
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("issue_id = ?", id).Delete(&domain.Article{}).Error; err != nil {
			return err
		}
		return s.issues.WithTrx(tx).Delete(ctx, int64(id))
	})
}

func (s *Service) CreateArticle(ctx context.Context, issueID snowflake.ID, req domain.ArticleRequest) (*domain.Article, error) {
	if err := validateArticle(req); err != nil {
		return nil, err
	}
	if _, err := s.findIssue(ctx, issueID); err != nil {
		return nil, err
	}

	position := req.Position
	if position <= 0 {
		count, err := s.articles.Count(ctx, &domain.Article{IssueID: issueID})
		if err != nil {
			return nil, err
		}
		position = int(count) + 1
	}

	now := s.clock.Now()
	article := &domain.Article{
		ID:        s.genID.Generate(),
		IssueID:   issueID,
		Title:     strings.TrimSpace(req.Title),
		Authors:   strings.TrimSpace(req.Authors),
		Position:  position,
		StartPage: req.StartPage,
		EndPage:   req.EndPage,
		Slug:      articleSlug(req),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.articles.Create(ctx, article); err != nil {
		return nil, err
	}
	return article, nil
}

func (s *Service) UpdateArticle(ctx context.Context, id snowflake.ID, req domain.ArticleRequest) (*domain.Article, error) {
	if err := validateArticle(req); err != nil {
		return nil, err
	}
	article, err := s.findArticle(ctx, id)
	if err != nil {
		return nil, err
	}
	position := req.Position
	if position <= 0 {
		position = article.Position
	}
	if err := s.articles.Update(ctx, int64(id), map[string]any{
		"title":      strings.TrimSpace(req.Title),
		"authors":    strings.TrimSpace(req.Authors),
		"position":   position,
		"start_page": req.StartPage,
		"end_page":   req.EndPage,
		"slug":       articleSlug(req),
		"updated_at": s.clock.Now(),
	}); err != nil {
		return nil, err
	}
	return s.findArticle(ctx, id)
}

func (s *Service) DeleteArticle(ctx context.Context, id snowflake.ID) error {
	article, err := s.findArticle(ctx, id)
	if err != nil {
		return err
	}
	if err := s.articles.Delete(ctx, int64(id)); err != nil {
		return err
	}
	if article.Filename != "" {
		if err := s.store.Remove(ctx, article.Filename); err != nil {
			logger.WithContext(ctx, s.log).Warn("article file not removed", zap.String("article_id", id.String()), zap.Error(err))
		}
	}
	return nil
}

func (s *Service) UploadArticle(ctx context.Context, id snowflake.ID, file io.Reader) (*domain.Article, error) {
	if file == nil {
		return nil, domain.ErrFileRequired
	}
	article, err := s.findArticle(ctx, id)
	if err != nil {
		return nil, err
	}
	issue, err := s.findIssue(ctx, article.IssueID)
	if err != nil {
		return nil, err
	}

	path, err := ArticlePath(*issue, *article)
	if err != nil {
		return nil, err
	}
	if err := s.store.Save(ctx, path, file); err != nil {
		return nil, fmt.Errorf("store article: %w", err)
	}
	if article.Filename != "" && article.Filename != path {
		_ = s.store.Remove(ctx, article.Filename)
	}
	if err := s.articles.Update(ctx, int64(id), map[string]any{
		"filename":   path,
		"updated_at": s.clock.Now(),
	}); err != nil {
		return nil, err
	}

	logger.WithContext(ctx, s.log).Info("article uploaded", zap.String("article_id", id.String()), zap.String("path", path))
	article.Filename = path
	return article, nil
}

// ArticlePath is issues/v{volume}n{number}-{year}/{position}-{slug}.pdf.
func ArticlePath(issue domain.Issue, article domain.Article) (string, error) {
	name := article.Slug
	if name == "" {
		name = slug.Make(article.Title)
	}
	return storage.Join("issues", issue.Directory(), strconv.Itoa(article.Position)+"-"+name+".pdf")
}

func (s *Service) findIssue(ctx context.Context, id snowflake.ID) (*domain.Issue, error) {
	issue, err := s.issues.FindOne(ctx, &domain.Issue{ID: id})
	if err != nil {
		return nil, err
	}
	if issue == nil {
		return nil, domain.ErrIssueNotFound
	}
	return issue, nil
}

func (s *Service) findArticle(ctx context.Context, id snowflake.ID) (*domain.Article, error) {
	article, err := s.articles.FindOne(ctx, &domain.Article{ID: id})
	if err != nil {
		return nil, err
	}
	if article == nil {
		return nil, domain.ErrArticleNotFound
	}
	return article, nil
}

func articleSlug(req domain.ArticleRequest) string {
	if given := strings.TrimSpace(req.Slug); given != "" {
		return slug.Make(given)
	}
	return slug.Make(req.Title)
}

func validateIssue(req domain.IssueRequest) error {
	if req.Volume <= 0 || req.Number <= 0 || req.Year <= 0 {
		return domain.ErrInvalidIssue
	}
	return nil
}

func validateArticle(req domain.ArticleRequest) error {
	if strings.TrimSpace(req.Title) == "" {
		return domain.ErrInvalidArticle
	}
	if req.StartPage < 0 || req.EndPage < 0 || (req.EndPage > 0 && req.EndPage < req.StartPage) {
		return domain.ErrInvalidPages
	}
	return nil
}
