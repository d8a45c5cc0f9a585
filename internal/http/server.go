package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"konto/internal/cache"
	applog "konto/internal/log"
	"konto/internal/middleware/ratelimit"
	"konto/internal/middleware/security"
	"konto/internal/middleware/trace"
	"konto/internal/persist"
	"konto/internal/services"
	"konto/internal/store"
)

// Deps collects everything the server needs. Saver and Publisher may be
// nil; the handlers treat both as optional.
type Deps struct {
	Store     *store.Store
	Importer  *services.ImportService
	Gateway   persist.Gateway
	Saver     *persist.Saver
	Logger    *applog.Logger
	ReportCap int // months included in budget/export views, 0 = all
}

// Server wraps http.Server with the domain handlers, the budget cache and
// the shared middleware stack.
type Server struct {
	http.Server

	store     *store.Store
	importer  *services.ImportService
	gateway   persist.Gateway
	saver     *persist.Saver
	reportCap int

	budgetCache  *cache.LRUCache[budgetResponse]
	cacheManager *cache.Manager

	limiter      *ratelimit.Limiter
	detector     *security.Detector
	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(addr string, deps Deps) *Server {
	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:              addr,
			ReadHeaderTimeout: 10 * time.Second,
		},
		store:       deps.Store,
		importer:    deps.Importer,
		gateway:     deps.Gateway,
		saver:       deps.Saver,
		reportCap:   deps.ReportCap,
		budgetCache: cache.NewLRUCache[budgetResponse](100, 5*time.Minute),
		limiter:     ratelimit.NewLimiter(ratelimit.DefaultConfig()),
		detector:    security.NewDetector(),
	}

	s.cacheManager = cache.NewManager()
	s.cacheManager.Register(s.budgetCache)
	s.cacheManager.StartCleanup(10 * time.Minute)

	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", handleReady)

	mux.HandleFunc("POST /api/import", s.handleImport)

	mux.HandleFunc("GET /api/transactions", s.handleListTransactions)
	mux.HandleFunc("GET /api/transactions/{id}", s.handleGetTransaction)
	mux.HandleFunc("DELETE /api/transactions/{id}", s.handleDeleteTransaction)
	mux.HandleFunc("POST /api/transactions/{id}/categorize", s.handleCategorize)
	mux.HandleFunc("POST /api/transactions/{id}/lock", s.handleLock)
	mux.HandleFunc("POST /api/transactions/{id}/unlock", s.handleUnlock)
	mux.HandleFunc("POST /api/transactions/bulk-categorize", s.handleBulkCategorize)
	mux.HandleFunc("GET /api/stats", s.handleStats)

	mux.HandleFunc("GET /api/categories", s.handleListCategories)
	mux.HandleFunc("GET /api/categories/{id}", s.handleGetCategory)
	mux.HandleFunc("POST /api/categories", s.handleCreateMainCategory)
	mux.HandleFunc("DELETE /api/categories/{id}", s.handleDeleteMainCategory)
	mux.HandleFunc("POST /api/categories/reorder", s.handleReorderCategories)
	mux.HandleFunc("POST /api/categories/{id}/subcategories", s.handleCreateSubCategory)
	mux.HandleFunc("DELETE /api/subcategories/{id}", s.handleDeleteSubCategory)

	mux.HandleFunc("GET /api/rules", s.handleListRules)
	mux.HandleFunc("POST /api/rules", s.handleUpsertRule)
	mux.HandleFunc("DELETE /api/rules/{text}", s.handleDeleteRule)
	mux.HandleFunc("POST /api/rules/apply", s.handleApplyRules)

	mux.HandleFunc("GET /api/budget", s.handleBudget)
	mux.HandleFunc("GET /api/net-change", s.handleNetChange)
	mux.HandleFunc("GET /api/risk", s.handleRisk)
	mux.HandleFunc("GET /api/export/report", s.handleExportReport)

	mux.HandleFunc("POST /api/save", s.handleForceSave)
	mux.HandleFunc("POST /api/backup", s.handleBackup)

	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())
	traceMW := trace.NewMiddleware(s.detector.ExtractClientIP, s.detector.DetectSuspiciousRequest)
	limitMW := s.limiter.Middleware(s.detector.ExtractClientIP, nil)

	logger := deps.Logger
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	s.Server.Handler = traceMW.Middleware(limitMW(headers.Middleware(applog.Middleware(logger)(mux))))

	return s
}

// Shutdown stops the server and its background routines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.cacheManager.Stop()
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

// invalidateViews drops cached aggregates and schedules a save. Every
// mutating handler calls it after a successful store change.
func (s *Server) invalidateViews() {
	s.budgetCache.Purge()
	if s.saver != nil {
		s.saver.Notify()
	}
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func handleReady(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// budgetResponse is what GET /api/budget returns, and what the cache holds.
type budgetResponse struct {
	Months   []string             `json:"months"`
	Rows     []services.BudgetRow `json:"rows"`
	Spending map[string]int64     `json:"spending"`
}
