// Package server exposes categorization and reports over HTTP.
package server

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/Handydigital-dev/cmlist/categorizer"
	"github.com/Handydigital-dev/cmlist/internal/talentdb"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/common/version"
	"github.com/prometheus/exporter-toolkit/web"
	"github.com/sirupsen/logrus"
)

// AppName identifies the service on the landing page and in build info.
const AppName = "cmlist"

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// ReportFileName is the download name of generated workbooks.
const ReportFileName = "search_output.xlsx"

// Searcher finds talents in the talent database.
type Searcher interface {
	Search(ctx context.Context, f talentdb.Filter) ([]categorizer.Talent, error)
}

// Server wires the HTTP routes to a categorizer service.
type Server struct {
	svc      *categorizer.Service
	searcher Searcher
	logger   logrus.FieldLogger
	engine   *gin.Engine
}

// New builds the router. searcher may be nil, in which case /api/search
// answers 503. gatherer may be nil to disable the metrics endpoint.
func New(svc *categorizer.Service, searcher Searcher, gatherer prometheus.Gatherer, logger logrus.FieldLogger) *Server {
	if logger == nil {
		discard := logrus.New()
		discard.SetOutput(io.Discard)
		logger = discard
	}
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(logger))

	s := &Server{svc: svc, searcher: searcher, logger: logger, engine: r}

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	api := r.Group("/api")
	{
		api.GET("/categories", s.getCategories)
		api.POST("/categorize", s.postCategorize)
		api.POST("/report", s.postReport)
		api.POST("/report.xlsx", s.postReportXLSX)
		api.GET("/search", s.getSearch)
	}
	if gatherer != nil {
		metricsPath := svc.Config().Server.MetricsPath
		r.GET(metricsPath, gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
		if metricsPath != "/" {
			landing, err := web.NewLandingPage(web.LandingConfig{
				Name:        AppName,
				Description: "Talent ad-appearance categorizer",
				Version:     version.Print(AppName),
				Links: []web.LandingLinks{
					{Address: metricsPath, Text: "Metrics"},
					{Address: "/health", Text: "Health"},
					{Address: "/api/categories", Text: "Categories"},
				},
			})
			if err != nil {
				logger.Warnf("landing page disabled: %v", err)
			} else {
				r.GET("/", gin.WrapH(landing))
			}
		}
	}
	return s
}

// Handler returns the router.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves on addr until ctx is done.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	s.logger.Infof("HTTP API listening on %s", addr)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func requestLogger(logger logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.WithFields(logrus.Fields{
			"method":  c.Request.Method,
			"path":    c.FullPath(),
			"status":  c.Writer.Status(),
			"elapsed": time.Since(start).String(),
		}).Debug("request")
	}
}

type categorizeRequest struct {
	Note string `json:"note"`
}

type categorizeResponse struct {
	Categories map[string][]string `json:"categories"`
	Unmapped   []string            `json:"unmapped"`
}

type reportRequest struct {
	Talents    []categorizer.Talent `json:"talents"`
	Categories []string             `json:"categories"`
}

func (s *Server) getCategories(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"categories": categorizer.CanonicalCategories()})
}

func (s *Server) postCategorize(c *gin.Context) {
	var req categorizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	res := s.svc.Categorize(req.Note)
	unmapped := res.Unmapped
	if unmapped == nil {
		unmapped = []string{}
	}
	c.JSON(http.StatusOK, categorizeResponse{Categories: res.Result.Map(), Unmapped: unmapped})
}

func (s *Server) postReport(c *gin.Context) {
	report, ok := s.bindReport(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, report)
}

func (s *Server) postReportXLSX(c *gin.Context) {
	report, ok := s.bindReport(c)
	if !ok {
		return
	}
	s.sendXLSX(c, report)
}

func (s *Server) bindReport(c *gin.Context) (categorizer.Report, bool) {
	var req reportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return categorizer.Report{}, false
	}
	report, err := s.svc.BuildReport(c.Request.Context(), req.Talents, req.Categories)
	if err != nil {
		s.abort(c, err)
		return categorizer.Report{}, false
	}
	return report, true
}

func (s *Server) getSearch(c *gin.Context) {
	if s.searcher == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "talent database is not configured"})
		return
	}
	filter, err := parseFilter(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	talents, err := s.searcher.Search(c.Request.Context(), filter)
	if err != nil {
		s.abort(c, err)
		return
	}
	report, err := s.svc.BuildReport(c.Request.Context(), talents, c.QueryArray("category"))
	if err != nil {
		s.abort(c, err)
		return
	}
	if c.Query("format") == "xlsx" {
		s.sendXLSX(c, report)
		return
	}
	c.JSON(http.StatusOK, report)
}

func (s *Server) sendXLSX(c *gin.Context, report categorizer.Report) {
	var buf bytes.Buffer
	if err := categorizer.WriteXLSX(&buf, report); err != nil {
		s.abort(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+ReportFileName+`"`)
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}

func (s *Server) abort(c *gin.Context, err error) {
	s.logger.Errorf("%s %s: %v", c.Request.Method, c.FullPath(), err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}

// parseFilter reads type, gender, since, limit and name query parameters.
// Repeated type, gender and name parameters are combined.
func parseFilter(c *gin.Context) (talentdb.Filter, error) {
	var f talentdb.Filter
	if raw := c.QueryArray("name"); len(raw) > 0 {
		names := talentdb.CleanNames(raw)
		if len(names) == 0 {
			return f, errors.New("name must not be blank")
		}
		return talentdb.NameFilter(names), nil
	}
	for _, v := range c.QueryArray("type") {
		n, err := strconv.Atoi(v)
		if err != nil || (n != int(talentdb.Individual) && n != int(talentdb.Group)) {
			return f, errors.New("type must be 0 (individual) or 1 (group)")
		}
		f.Types = append(f.Types, talentdb.GroupType(n))
	}
	for _, v := range c.QueryArray("gender") {
		n, err := strconv.Atoi(v)
		if err != nil || n < int(talentdb.Male) || n > int(talentdb.Mixed) {
			return f, errors.New("gender must be 1, 2 or 3")
		}
		f.Genders = append(f.Genders, talentdb.GenderCode(n))
	}
	if v := c.Query("since"); v != "" {
		since, err := time.Parse(time.DateOnly, v)
		if err != nil {
			return f, errors.New("since must be YYYY-MM-DD")
		}
		f.ModifiedSince = since
	}
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > talentdb.MaxLimit {
			return f, errors.New("limit must be between 1 and 10000")
		}
		f.Limit = n
	}
	return f, nil
}
