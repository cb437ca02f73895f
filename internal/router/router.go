package router

import (
	"database/sql"
	"net/http"

	"client-docs-portal/internal/adapters/mail/logmailer"
	memstore "client-docs-portal/internal/adapters/objectstore/memory"
	membus "client-docs-portal/internal/adapters/realtime/memory"
	mem "client-docs-portal/internal/adapters/storage/memory"
	pg "client-docs-portal/internal/adapters/storage/postgres"
	"client-docs-portal/internal/domain/accesstokens"
	"client-docs-portal/internal/domain/clients"
	"client-docs-portal/internal/domain/documents"
	"client-docs-portal/internal/domain/messages"
	"client-docs-portal/internal/domain/notifications"
	"client-docs-portal/internal/domain/portal"
	"client-docs-portal/internal/domain/sharing"
	"client-docs-portal/internal/domain/templates"
	"client-docs-portal/internal/domain/users"
	"client-docs-portal/internal/middleware"
	"client-docs-portal/internal/platform/logger"
	"client-docs-portal/internal/platform/metrics"
	"client-docs-portal/internal/ports/auth"
	"client-docs-portal/internal/ports/identity"
	"client-docs-portal/internal/ports/mailer"
	"client-docs-portal/internal/ports/objectstore"
	"client-docs-portal/internal/ports/realtime"

	_ "client-docs-portal/docs"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	httpSwagger "github.com/swaggo/http-swagger"
)

type Options struct {
	Logger  logger.Logger
	Metrics *metrics.Metrics

	AuthVerifier auth.AuthVerifier // puede ser nil (modo dev: headers X-Debug-*)

	// Opcional: si viene, usa Postgres. Si no, in-memory.
	DB *sql.DB

	// Adapters de plataforma; nil = implementación en memoria / log.
	Store    objectstore.Store
	Bus      realtime.Bus
	Mailer   mailer.Mailer
	// Identity nil deja la administración de usuarios sin proveedor (500).
	Identity identity.Admin

	// PublicBaseURL arma los links de portal y de documentos compartidos.
	// Vacío = se deriva del request.
	PublicBaseURL string

	RateLimit RateLimit

	// TrustProxy toma la IP de X-Forwarded-For / X-Real-IP. Solo detrás de un
	// proxy que pise esos headers: si no, cualquiera elige su IP y esquiva el
	// rate limit.
	TrustProxy bool
}

type RateLimit struct {
	PerSecond float64
	Burst     int
}

type repos struct {
	clients   clients.Repository
	documents documents.Repository
	templates templates.Repository
	tokens    accesstokens.Repository
	messages  messages.Repository
	unread    notifications.Repository
	users     users.Repository
}

func newRepos(db *sql.DB) repos {
	if db != nil {
		msgs := pg.NewMessagesRepo(db)
		return repos{
			clients:   pg.NewClientsRepo(db),
			documents: pg.NewDocumentsRepo(db),
			templates: pg.NewTemplatesRepo(db),
			tokens:    pg.NewTokensRepo(db),
			messages:  msgs,
			unread:    msgs,
			users:     pg.NewUsersRepo(db),
		}
	}
	msgs := mem.NewMessageRepo()
	return repos{
		clients:   mem.NewClientRepo(),
		documents: mem.NewDocumentRepo(),
		templates: mem.NewTemplateRepo(),
		tokens:    mem.NewTokenRepo(),
		messages:  msgs,
		unread:    msgs,
		users:     mem.NewUserRepo(),
	}
}

func NewRouter(opts Options) http.Handler {
	log := opts.Logger
	if log == nil {
		log = logger.Nop()
	}
	m := opts.Metrics
	if m == nil {
		m = metrics.New()
	}
	store := opts.Store
	if store == nil {
		store = memstore.New("")
	}
	bus := opts.Bus
	if bus == nil {
		bus = membus.New()
	}
	mail := opts.Mailer
	if mail == nil {
		mail = logmailer.New(log)
	}

	rp := newRepos(opts.DB)

	// Services por módulo
	clientsSvc := clients.NewService(rp.clients)
	templatesSvc := templates.NewService(rp.templates)
	docsSvc := documents.NewService(rp.documents, documents.Deps{
		Store:     store,
		Templates: templatesSvc,
		Logger:    log,
		Metrics:   m,
	})
	tokensSvc := accesstokens.NewService(rp.tokens, m)
	usersSvc := users.NewService(rp.users, users.Deps{
		Identity: opts.Identity,
		Mailer:   mail,
		Clients:  clientsSvc,
		Logger:   log,
	})
	msgSvc := messages.NewService(rp.messages, messages.Deps{
		Bus:     bus,
		Authors: usersSvc,
		Logger:  log,
		Metrics: m,
	})
	usersSvc.SetMessageCleanup(msgSvc)
	notesSvc := notifications.NewService(rp.unread, clientsSvc, bus)
	sharingSvc := sharing.NewService(tokensSvc, docsSvc, clientsSvc)
	portalSvc := portal.NewService(portal.Deps{
		Tokens:        tokensSvc,
		Clients:       clientsSvc,
		Documents:     docsSvc,
		Messages:      msgSvc,
		Notifications: notesSvc,
	})

	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	if opts.TrustProxy {
		r.Use(chimw.RealIP)
	}
	r.Use(middleware.RequestLogger(log))
	r.Use(middleware.Recover(log))
	r.Use(m.Instrument)

	r.Use(middleware.AuthContext(opts.AuthVerifier, usersSvc))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", m.Handler())
	r.Get("/swagger/*", httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json")))

	// Rutas por módulo
	clients.RegisterRoutes(r, clientsSvc, docsSvc, notesSvc)
	documents.RegisterRoutes(r, docsSvc, clientsSvc)
	templates.RegisterRoutes(r, templatesSvc)
	accesstokens.RegisterRoutes(r, tokensSvc, clientsSvc, opts.PublicBaseURL)
	messages.RegisterRoutes(r, msgSvc, clientsSvc)
	notifications.RegisterRoutes(r, notesSvc, clientsSvc)
	sharing.RegisterRoutes(r, sharingSvc, clientsSvc, opts.PublicBaseURL)
	users.RegisterRoutes(r, usersSvc)

	// Rutas públicas con token: sin sesión, limitadas por IP.
	limiter := middleware.NewIPRateLimiter(opts.RateLimit.PerSecond, opts.RateLimit.Burst)
	r.Group(func(pub chi.Router) {
		pub.Use(limiter.Middleware)
		portal.RegisterRoutes(pub, portalSvc)
		sharing.RegisterPublicRoutes(pub, sharingSvc)
	})

	return r
}
