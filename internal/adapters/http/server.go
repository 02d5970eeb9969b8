package httpadapter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"mirelle/internal/domain"
	"mirelle/internal/export"
	"mirelle/internal/ports"
	crawlrunner "mirelle/internal/workers/crawlrunner"
)

// Server exposes the store, scorer, matcher and crawl tracking to the
// dashboard pages. All payloads are JSON except the markdown export.
type Server struct {
	catalog   ports.Catalog
	reviver   ports.Reviver
	proposer  ports.Proposer
	crawler   ports.Crawler
	reviews   ports.ReviewAnalyzer
	jobs      ports.JobRepository
	processor crawlrunner.Processor
	log       *zap.SugaredLogger
}

func New(catalog ports.Catalog, reviver ports.Reviver, proposer ports.Proposer, crawler ports.Crawler, reviews ports.ReviewAnalyzer, jobs ports.JobRepository, processor crawlrunner.Processor, log *zap.SugaredLogger) *Server {
	return &Server{
		catalog:   catalog,
		reviver:   reviver,
		proposer:  proposer,
		crawler:   crawler,
		reviews:   reviews,
		jobs:      jobs,
		processor: processor,
		log:       log,
	}
}

func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/healthz", s.handleHealthz)

	r.Route("/competitors", func(r chi.Router) {
		r.Post("/", s.handlePutCompetitor)
		r.Get("/", s.handleListCompetitors)
		r.Get("/{id}", s.handleGetCompetitor)
		r.Put("/{id}", s.handlePutCompetitor)
		r.Delete("/{id}", s.handleDeleteCompetitor)
	})
	r.Route("/legacy", func(r chi.Router) {
		r.Post("/", s.handlePutLegacy)
		r.Get("/", s.handleListLegacy)
		r.Get("/{id}", s.handleGetLegacy)
		r.Put("/{id}", s.handlePutLegacy)
		r.Delete("/{id}", s.handleDeleteLegacy)
		r.Post("/{id}/score", s.handleScoreLegacy)
	})
	r.Route("/proposals", func(r chi.Router) {
		r.Post("/generate", s.handleGenerateProposals)
		r.Get("/", s.handleListProposals)
		r.Get("/{id}", s.handleGetProposal)
		r.Delete("/{id}", s.handleDeleteProposal)
	})
	r.Get("/export/research", s.handleExportResearch)
	r.Route("/crawls", func(r chi.Router) {
		r.Post("/", s.handleEnqueueCrawl)
		r.Get("/history", s.handleCrawlHistory)
		r.Get("/{id}", s.handleCrawlStatus)
	})
	r.Route("/products", func(r chi.Router) {
		r.Get("/", s.handleListCrawledProducts)
		r.Get("/{productCode}", s.handleGetCrawledProduct)
		r.Post("/{productCode}/adopt", s.handleAdoptCrawledProduct)
	})
	r.Route("/reviews", func(r chi.Router) {
		r.Post("/{productCode}/analyze", s.handleAnalyzeReviews)
		r.Get("/{productCode}", s.handleGetReviewAnalysis)
	})
	return r
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	s.respond(w, http.StatusOK, map[string]string{"status": "ok"})
}

// competitor handlers

type competitorRequest struct {
	Brand          string                       `json:"brand"`
	Name           string                       `json:"name"`
	Category       string                       `json:"category"`
	Classification domain.ClassificationPayload `json:"classification"`
	Price          *int                         `json:"price"`
	ProductPageURL *string                      `json:"product_page_url"`
	Strengths      string                       `json:"strengths"`
	Weaknesses     string                       `json:"weaknesses"`
}

func (s *Server) handlePutCompetitor(w http.ResponseWriter, r *http.Request) {
	var req competitorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.fail(w, badBody(err))
		return
	}
	p := domain.CompetitorProduct{
		ID:             chi.URLParam(r, "id"), // empty on POST /
		Brand:          req.Brand,
		Name:           req.Name,
		Category:       req.Category,
		Classification: req.Classification,
		Price:          req.Price,
		ProductPageURL: req.ProductPageURL,
		Strengths:      req.Strengths,
		Weaknesses:     req.Weaknesses,
	}
	stored, err := s.catalog.PutCompetitor(r.Context(), p)
	if err != nil {
		s.fail(w, err)
		return
	}
	s.respond(w, http.StatusOK, stored)
}

func (s *Server) handleGetCompetitor(w http.ResponseWriter, r *http.Request) {
	p, err := s.catalog.GetCompetitor(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, err)
		return
	}
	s.respond(w, http.StatusOK, p)
}

func (s *Server) handleListCompetitors(w http.ResponseWriter, r *http.Request) {
	out, err := s.catalog.ListCompetitors(r.Context(), listFilter(r))
	if err != nil {
		s.fail(w, err)
		return
	}
	s.respond(w, http.StatusOK, out)
}

func (s *Server) handleDeleteCompetitor(w http.ResponseWriter, r *http.Request) {
	if err := s.catalog.DeleteCompetitor(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// legacy handlers

type legacyRequest struct {
	Brand            string                       `json:"brand"`
	Name             string                       `json:"name"`
	Category         string                       `json:"category"`
	Status           string                       `json:"status"`
	LaunchYear       *int                         `json:"launch_year"`
	DiscontinueYear  *int                         `json:"discontinue_year"`
	Classification   domain.ClassificationPayload `json:"classification"`
	RevivalPotential *int                         `json:"revival_potential"`
}

func (s *Server) handlePutLegacy(w http.ResponseWriter, r *http.Request) {
	var req legacyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.fail(w, badBody(err))
		return
	}
	p := domain.LegacyProduct{
		ID:               chi.URLParam(r, "id"),
		Brand:            req.Brand,
		Name:             req.Name,
		Category:         req.Category,
		Status:           domain.DiscontinuationStatus(req.Status),
		LaunchYear:       req.LaunchYear,
		DiscontinueYear:  req.DiscontinueYear,
		Classification:   req.Classification,
		RevivalPotential: req.RevivalPotential,
	}
	// A PUT that omits the score keeps the one the scorer wrote.
	if p.ID != "" && p.RevivalPotential == nil {
		if existing, err := s.catalog.GetLegacy(r.Context(), p.ID); err == nil {
			p.RevivalPotential = existing.RevivalPotential
		}
	}
	stored, err := s.catalog.PutLegacy(r.Context(), p)
	if err != nil {
		s.fail(w, err)
		return
	}
	s.respond(w, http.StatusOK, stored)
}

func (s *Server) handleGetLegacy(w http.ResponseWriter, r *http.Request) {
	p, err := s.catalog.GetLegacy(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, err)
		return
	}
	s.respond(w, http.StatusOK, p)
}

func (s *Server) handleListLegacy(w http.ResponseWriter, r *http.Request) {
	f := listFilter(r)
	if v := r.URL.Query().Get("min_revival_potential"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			f.MinRevivalPotential = n
			f.ByRevivalPotential = true
		}
	}
	out, err := s.catalog.ListLegacy(r.Context(), f)
	if err != nil {
		s.fail(w, err)
		return
	}
	s.respond(w, http.StatusOK, out)
}

func (s *Server) handleDeleteLegacy(w http.ResponseWriter, r *http.Request) {
	if err := s.catalog.DeleteLegacy(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleScoreLegacy(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	score, err := s.reviver.Score(r.Context(), id)
	if err != nil {
		s.fail(w, err)
		return
	}
	s.respond(w, http.StatusOK, map[string]any{"id": id, "revival_potential": score})
}

// proposal handlers

func (s *Server) handleGenerateProposals(w http.ResponseWriter, r *http.Request) {
	out, err := s.proposer.Generate(r.Context())
	if err != nil {
		s.fail(w, err)
		return
	}
	s.respond(w, http.StatusOK, out)
}

func (s *Server) handleListProposals(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		limit, _ = strconv.Atoi(v)
	}
	out, err := s.catalog.ListProposals(r.Context(), limit)
	if err != nil {
		s.fail(w, err)
		return
	}
	s.respond(w, http.StatusOK, out)
}

func (s *Server) handleGetProposal(w http.ResponseWriter, r *http.Request) {
	p, err := s.catalog.GetProposal(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, err)
		return
	}
	s.respond(w, http.StatusOK, p)
}

func (s *Server) handleDeleteProposal(w http.ResponseWriter, r *http.Request) {
	if err := s.catalog.DeleteProposal(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// export handler

func (s *Server) handleExportResearch(w http.ResponseWriter, r *http.Request) {
	high, err := s.catalog.HighPotentialLegacy(r.Context(), 4)
	if err != nil {
		s.fail(w, err)
		return
	}
	proposals, err := s.catalog.ListProposals(r.Context(), 0)
	if err != nil {
		s.fail(w, err)
		return
	}
	doc := export.Research(time.Now(), high, proposals)
	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	_, _ = w.Write([]byte(doc))
}

// crawl handlers

type crawlRequest struct {
	SourceURL string `json:"source_url"`
	Category  string `json:"category"`
}

func (s *Server) handleEnqueueCrawl(w http.ResponseWriter, r *http.Request) {
	var req crawlRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.fail(w, badBody(err))
		return
	}
	id, err := s.crawler.Enqueue(r.Context(), req.SourceURL, req.Category)
	if err != nil {
		s.fail(w, err)
		return
	}
	// Blocking path for the dashboard's run-now button.
	if r.URL.Query().Get("wait") == "true" {
		timeout := 30 * time.Second
		if v := r.URL.Query().Get("timeout"); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n > 0 {
				timeout = time.Duration(n) * time.Second
			}
		}
		ctx, cancel := context.WithTimeout(r.Context(), timeout)
		defer cancel()
		err := crawlrunner.ProcessInline(ctx, s.jobs, s.processor, id)
		// A background worker may have claimed the job first; report its
		// state instead of failing the run-now request.
		if err != nil && !errors.Is(err, domain.ErrConflict) {
			s.fail(w, err)
			return
		}
		status, progress, err := s.crawler.Status(ctx, id)
		if err != nil {
			s.fail(w, err)
			return
		}
		s.respond(w, http.StatusOK, map[string]any{"id": id, "status": status, "progress": progress})
		return
	}
	s.respond(w, http.StatusAccepted, map[string]string{"crawl_id": id})
}

func (s *Server) handleCrawlHistory(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		limit, _ = strconv.Atoi(v)
	}
	out, err := s.crawler.History(r.Context(), limit)
	if err != nil {
		s.fail(w, err)
		return
	}
	s.respond(w, http.StatusOK, out)
}

func (s *Server) handleCrawlStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	status, progress, err := s.crawler.Status(r.Context(), id)
	if err != nil {
		s.fail(w, err)
		return
	}
	s.respond(w, http.StatusOK, map[string]any{"id": id, "status": status, "progress": progress})
}

// crawled-product handlers

func (s *Server) handleListCrawledProducts(w http.ResponseWriter, r *http.Request) {
	f := ports.CrawledProductFilter{
		Category: r.URL.Query().Get("category"),
		OnlyNew:  r.URL.Query().Get("new") == "true",
	}
	out, err := s.crawler.Products(r.Context(), f)
	if err != nil {
		s.fail(w, err)
		return
	}
	s.respond(w, http.StatusOK, out)
}

func (s *Server) handleGetCrawledProduct(w http.ResponseWriter, r *http.Request) {
	p, err := s.crawler.Product(r.Context(), chi.URLParam(r, "productCode"))
	if err != nil {
		s.fail(w, err)
		return
	}
	s.respond(w, http.StatusOK, p)
}

// handleAdoptCrawledProduct promotes a collected listing entry into the
// competitor catalog and drops it from the new-entry feed.
func (s *Server) handleAdoptCrawledProduct(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "productCode")
	p, err := s.crawler.Product(r.Context(), code)
	if err != nil {
		s.fail(w, err)
		return
	}
	rec := domain.CompetitorProduct{
		Brand:    p.Brand,
		Name:     p.Name,
		Category: p.Category,
	}
	if p.Price > 0 {
		price := p.Price
		rec.Price = &price
	}
	if p.ProductURL != "" {
		url := p.ProductURL
		rec.ProductPageURL = &url
	}
	stored, err := s.catalog.PutCompetitor(r.Context(), rec)
	if err != nil {
		s.fail(w, err)
		return
	}
	if err := s.crawler.MarkAdopted(r.Context(), code); err != nil {
		s.fail(w, err)
		return
	}
	s.respond(w, http.StatusOK, stored)
}

// review handlers

type analyzeRequest struct {
	Brand   string   `json:"brand"`
	Name    string   `json:"name"`
	Reviews []string `json:"reviews"`
}

func (s *Server) handleAnalyzeReviews(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.fail(w, badBody(err))
		return
	}
	a, err := s.reviews.Analyze(r.Context(), chi.URLParam(r, "productCode"), req.Brand, req.Name, req.Reviews)
	if err != nil {
		s.fail(w, err)
		return
	}
	s.respond(w, http.StatusOK, a)
}

func (s *Server) handleGetReviewAnalysis(w http.ResponseWriter, r *http.Request) {
	a, err := s.reviews.Get(r.Context(), chi.URLParam(r, "productCode"))
	if err != nil {
		s.fail(w, err)
		return
	}
	s.respond(w, http.StatusOK, a)
}

// helpers

func listFilter(r *http.Request) ports.ListFilter {
	f := ports.ListFilter{Category: r.URL.Query().Get("category")}
	if v := r.URL.Query().Get("limit"); v != "" {
		f.Limit, _ = strconv.Atoi(v)
	}
	return f
}

func (s *Server) respond(w http.ResponseWriter, code int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(body); err != nil && s.log != nil {
		s.log.Errorw("response encoding failed", "error", err)
	}
}

func (s *Server) fail(w http.ResponseWriter, err error) {
	code := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrNotFound):
		code = http.StatusNotFound
	case errors.Is(err, domain.ErrValidation), errors.Is(err, domain.ErrSchemaViolation):
		code = http.StatusBadRequest
	case errors.Is(err, domain.ErrInsufficientData):
		code = http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrConflict):
		code = http.StatusConflict
	}
	if code == http.StatusInternalServerError && s.log != nil {
		s.log.Errorw("request failed", "error", err)
	}
	s.respond(w, code, map[string]string{"error": err.Error()})
}

func badBody(err error) error {
	return fmt.Errorf("%w: decode request: %w", domain.ErrValidation, err)
}
