package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	auditdomain "github.com/humesociety/humesociety-sub000/internal/audit/domain"
	authdomain "github.com/humesociety/humesociety-sub000/internal/auth/domain"
	"github.com/humesociety/humesociety-sub000/internal/auth/session"
	"github.com/humesociety/humesociety-sub000/internal/authorization"
	"github.com/humesociety/humesociety-sub000/internal/clock"
	conferencedomain "github.com/humesociety/humesociety-sub000/internal/conference/domain"
	"github.com/humesociety/humesociety-sub000/internal/config"
	electiondomain "github.com/humesociety/humesociety-sub000/internal/election/domain"
	emaildomain "github.com/humesociety/humesociety-sub000/internal/email/domain"
	invitationdomain "github.com/humesociety/humesociety-sub000/internal/invitation/domain"
	journaldomain "github.com/humesociety/humesociety-sub000/internal/journal/domain"
	membershipdomain "github.com/humesociety/humesociety-sub000/internal/membership/domain"
	"github.com/humesociety/humesociety-sub000/internal/observability"
	obsmiddleware "github.com/humesociety/humesociety-sub000/internal/observability/logger"
	obsmetrics "github.com/humesociety/humesociety-sub000/internal/observability/metrics"
	obstracing "github.com/humesociety/humesociety-sub000/internal/observability/tracing"
	pagedomain "github.com/humesociety/humesociety-sub000/internal/page/domain"
	"github.com/humesociety/humesociety-sub000/internal/ratelimit"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	fx.Provide(NewEngine),
	fx.Provide(NewServer),
	fx.Invoke(registerRoutes),
	fx.Invoke(RunHTTP),
)

type EngineParams struct {
	fx.In

	ObsCfg      observability.Config
	HTTPMetrics *obsmetrics.HTTPMetrics `optional:"true"`
	Activity    *obsmetrics.Activity    `optional:"true"`
}

func NewEngine(p EngineParams) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug:           p.ObsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(obsmetrics.GinMiddleware(p.HTTPMetrics))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(metricsHandler(p.Activity)))

	return r
}

func metricsHandler(activity *obsmetrics.Activity) http.Handler {
	gatherers := prometheus.Gatherers{prometheus.DefaultGatherer}
	if registry := activity.Registry(); registry != nil {
		gatherers = append(gatherers, registry)
	}
	return promhttp.HandlerFor(gatherers, promhttp.HandlerOpts{})
}

func RunHTTP(lc fx.Lifecycle, r *gin.Engine, cfg config.Config, log *zap.Logger) {
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Fatal("http server stopped", zap.Error(err))
				}
			}()
			log.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type secretLinkLimiter interface {
	Enabled() bool
	Allow(ctx context.Context, clientIP string) (*ratelimit.RateLimitResult, error)
}

type Server struct {
	engine            *gin.Engine
	cfg               config.Config
	clock             clock.Clock
	authsvc           authdomain.Service
	sessions          *session.Manager
	authzSvc          authorization.Service
	auditSvc          auditdomain.Service
	conferenceSvc     conferencedomain.Service
	invitationSvc     invitationdomain.Service
	emailSvc          emaildomain.Service
	membershipSvc     membershipdomain.Service
	journalSvc        journaldomain.Service
	pageSvc           pagedomain.Service
	electionSvc       electiondomain.Service
	secretLinkLimiter secretLinkLimiter
	obsMetrics        *obsmetrics.Metrics
}

type ServerParams struct {
	fx.In

	Gin           *gin.Engine
	Cfg           config.Config
	Clock         clock.Clock
	Authsvc       authdomain.Service
	Sessions      *session.Manager
	AuthzSvc      authorization.Service
	AuditSvc      auditdomain.Service
	ConferenceSvc conferencedomain.Service
	InvitationSvc invitationdomain.Service
	EmailSvc      emaildomain.Service
	MembershipSvc membershipdomain.Service
	JournalSvc    journaldomain.Service
	PageSvc       pagedomain.Service
	ElectionSvc   electiondomain.Service

	SecretLinkLimiter *ratelimit.SecretLinkLimiter `optional:"true"`
	ObsMetrics        *obsmetrics.Metrics           `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:        p.Gin,
		cfg:           p.Cfg,
		clock:         p.Clock,
		authsvc:       p.Authsvc,
		sessions:      p.Sessions,
		authzSvc:      p.AuthzSvc,
		auditSvc:      p.AuditSvc,
		conferenceSvc: p.ConferenceSvc,
		invitationSvc: p.InvitationSvc,
		emailSvc:      p.EmailSvc,
		membershipSvc: p.MembershipSvc,
		journalSvc:    p.JournalSvc,
		pageSvc:       p.PageSvc,
		electionSvc:   p.ElectionSvc,
		obsMetrics:    p.ObsMetrics,
	}
	if svc.clock == nil {
		svc.clock = clock.SystemClock{}
	}
	if p.SecretLinkLimiter != nil {
		svc.secretLinkLimiter = p.SecretLinkLimiter
	}
	return svc
}

func registerRoutes(s *Server) {
	s.RegisterRoutes()
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) RegisterRoutes() {
	s.RegisterAuthRoutes()
	s.RegisterInvitationLinkRoutes()
	s.RegisterAPIRoutes()
	s.RegisterMemberRoutes()
	s.RegisterAdminRoutes()
}

func (s *Server) RegisterAuthRoutes() {
	auth := s.engine.Group("/auth")

	auth.POST("/register", s.Register)
	auth.POST("/login", s.Login)
	auth.POST("/logout", s.Logout)
	auth.GET("/me", s.AuthRequired(), s.Me)
	auth.POST("/change-password", s.AuthRequired(), s.ChangePassword)
}

// RegisterInvitationLinkRoutes serves the capability links mailed to invitees. The secret is the credential.
func (s *Server) RegisterInvitationLinkRoutes() {
	links := s.engine.Group("/invitation/:kind/:secret", s.SecretLinkRateLimit())

	links.GET("", s.ShowInvitation)
	links.POST("/submit", s.SubmitInvitation)
	links.GET("/:reply", s.ReplyInvitation)
	links.POST("/:reply", s.ReplyInvitation)
}

func (s *Server) RegisterAPIRoutes() {
	api := s.engine.Group("/api")

	api.GET("/issues", s.ListPublishedIssues)
	api.GET("/pages/:section", s.ListSectionPages)
	api.GET("/pages/:section/:slug", s.GetPage)
	api.GET("/conference/current", s.GetCurrentConference)
	api.GET("/dues/plans", s.ListDuesPlans)

	api.GET("/users", s.AuthRequired(), s.authorizeAction(authorization.ObjectUser, authorization.ActionUserManage), s.ListUsers)
	api.GET("/members", s.AuthRequired(), s.authorizeAction(authorization.ObjectMemberDirectory, authorization.ActionMemberDirectoryView), s.ListMembers)
}

func (s *Server) RegisterMemberRoutes() {
	member := s.engine.Group("/member", s.AuthRequired())

	member.GET("/submissions", s.ListMySubmissions)
	member.POST("/submissions", s.authorizeAction(authorization.ObjectSubmission, authorization.ActionSubmissionCreate), s.Submit)
	member.POST("/submissions/:id/confirm", s.authorizeAction(authorization.ObjectSubmission, authorization.ActionSubmissionConfirm), s.ConfirmSubmission)
	member.POST("/submissions/:id/final", s.authorizeAction(authorization.ObjectSubmission, authorization.ActionSubmissionConfirm), s.UploadFinal)

	member.GET("/dues", s.ListMyPayments)
	member.POST("/dues", s.authorizeAction(authorization.ObjectDues, authorization.ActionDuesPay), s.RecordDuesPayment)
	member.GET("/dues/:id/receipt", s.authorizeAction(authorization.ObjectDues, authorization.ActionDuesReceipt), s.DownloadReceipt)

	member.GET("/elections", s.ListElections)
	member.GET("/elections/:id", s.GetElectionBallot)
	member.POST("/elections/:id/vote", s.authorizeAction(authorization.ObjectBallot, authorization.ActionBallotCast), s.CastVote)
}

func (s *Server) RegisterAdminRoutes() {
	admin := s.engine.Group("/admin", s.AuthRequired())

	// -------- Conferences --------
	conferences := admin.Group("/conferences", s.authorizeAction(authorization.ObjectConference, authorization.ActionConferenceManage))
	conferences.GET("", s.ListConferences)
	conferences.POST("", s.CreateConference)
	conferences.GET("/:id", s.GetConference)
	conferences.PATCH("/:id", s.UpdateConference)

	// -------- Submissions --------
	submissions := admin.Group("/submissions", s.authorizeAction(authorization.ObjectSubmission, authorization.ActionSubmissionDecide))
	submissions.GET("", s.ListSubmissions)
	submissions.GET("/:id", s.GetSubmission)
	submissions.POST("/:id/decision", s.RecordDecision)
	submissions.POST("/:id/decision-email", s.SendDecisionEmail)

	// -------- Invitations --------
	invitations := admin.Group("/invitations", s.authorizeAction(authorization.ObjectInvitation, authorization.ActionInvitationManage))
	invitations.GET("", s.ListInvitations)
	invitations.POST("", s.CreateInvitation)
	invitations.GET("/:id", s.GetInvitation)
	invitations.DELETE("/:id", s.RevokeInvitation)
	invitations.POST("/:id/remind", s.RemindInvitation)

	// -------- Email --------
	templates := admin.Group("/email-templates", s.authorizeAction(authorization.ObjectEmailTemplate, authorization.ActionEmailTemplateManage))
	templates.GET("", s.ListEmailTemplates)
	templates.GET("/:label", s.GetEmailTemplate)
	templates.PUT("/:label", s.SaveEmailTemplate)
	admin.POST("/society-email", s.authorizeAction(authorization.ObjectSocietyEmail, authorization.ActionSocietyEmailSend), s.SendSocietyEmail)

	// -------- Users --------
	admin.PUT("/users/:id/role", s.authorizeAction(authorization.ObjectUser, authorization.ActionUserManage), s.SetUserRole)

	// -------- Journal --------
	issues := admin.Group("", s.authorizeAction(authorization.ObjectIssue, authorization.ActionIssueManage))
	issues.GET("/issues", s.ListAllIssues)
	issues.POST("/issues", s.CreateIssue)
	issues.PATCH("/issues/:id", s.UpdateIssue)
	issues.DELETE("/issues/:id", s.DeleteIssue)
	issues.POST("/issues/:id/articles", s.CreateArticle)
	issues.PATCH("/articles/:id", s.UpdateArticle)
	issues.DELETE("/articles/:id", s.DeleteArticle)
	issues.POST("/articles/:id/upload", s.UploadArticle)

	// -------- Pages --------
	pages := admin.Group("/pages", s.authorizeAction(authorization.ObjectPage, authorization.ActionPageManage))
	pages.POST("", s.CreatePage)
	pages.PATCH("/:id", s.UpdatePage)
	pages.DELETE("/:id", s.DeletePage)

	// -------- Elections --------
	elections := admin.Group("/elections", s.authorizeAction(authorization.ObjectElection, authorization.ActionElectionManage))
	elections.POST("", s.CreateElection)
	elections.POST("/:id/open", s.OpenElection)
	elections.POST("/:id/close", s.CloseElection)
	elections.POST("/:id/candidates", s.AddCandidate)
	elections.DELETE("/:id/candidates/:candidateId", s.RemoveCandidate)
	elections.GET("/:id/results", s.ElectionResults)

	admin.GET("/audit-logs", s.authorizeAction(authorization.ObjectAuditLog, authorization.ActionAuditLogView), s.ListAuditLogs)
}
