package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/omarkamali/cohort/internal/cluster"
	"github.com/omarkamali/cohort/internal/config"
	"github.com/omarkamali/cohort/internal/report"
	"github.com/omarkamali/cohort/internal/storage"
	"github.com/omarkamali/cohort/internal/survey"
	"github.com/omarkamali/cohort/internal/util"
)

// Server represents the HTTP API server.
type Server struct {
	config  *config.Config
	store   storage.ResultStore
	router  *gin.Engine
	logger  *slog.Logger
	limiter *rate.Limiter
}

// ClusterRequest is the cluster API request: an inline survey definition,
// its respondents and the sweep parameters.
type ClusterRequest struct {
	Survey      survey.Survey       `json:"survey" binding:"required"`
	Respondents []survey.Respondent `json:"respondents" binding:"required"`
	Algorithm   string              `json:"algorithm,omitempty"`
	KMax        int                 `json:"k_max,omitempty"`
	MaxIter     int                 `json:"max_iter,omitempty"`
}

// ClusterResponse is the cluster API response.
type ClusterResponse struct {
	SurveyID string           `json:"survey_id"`
	Results  []cluster.Result `json:"results"`
	Best     *cluster.Result  `json:"best,omitempty"`
	TopTerms map[int][]string `json:"top_terms,omitempty"`
	Took     string           `json:"took"`
}

// NewServer creates a new API server instance.
func NewServer(cfg *config.Config, store storage.ResultStore) *Server {
	qps := cfg.Server.ClusterQPS
	if qps <= 0 {
		qps = 1
	}
	return &Server{
		config:  cfg,
		store:   store,
		logger:  util.Logger,
		limiter: rate.NewLimiter(rate.Limit(qps), 1),
	}
}

// setupRoutes configures all API routes.
func (s *Server) setupRoutes() {
	api := s.router.Group("/api/v1")
	{
		api.POST("/cluster", s.handleCluster)
		api.GET("/results/:surveyID", s.handleResults)
		api.GET("/health", s.handleHealth)
		api.GET("/stats", s.handleStats)
	}
}

// handleCluster runs a sweep over the posted survey and respondents.
// Sweeps are CPU-bound, so the endpoint is rate limited.
func (s *Server) handleCluster(c *gin.Context) {
	if !s.limiter.Allow() {
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "cluster request rate exceeded"})
		return
	}

	var req ClusterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid request: %v", err)})
		return
	}
	req.Survey.Normalize()

	// Scope the logger to this request; the handler's own error logs carry
	// the survey id.
	ctx := util.WithField(c.Request.Context(), "survey", req.Survey.ID)
	logger := util.FromContext(ctx)

	algorithm := req.Algorithm
	if algorithm == "" {
		algorithm = s.config.Engine.Algorithm
	}
	kMax := req.KMax
	if kMax == 0 {
		kMax = s.config.Engine.KMax
	}
	maxIter := req.MaxIter
	if maxIter == 0 {
		maxIter = s.config.Engine.MaxIter
	}

	started := time.Now()
	opts := &cluster.Options{
		Restarts:   s.config.Engine.Restarts,
		SeedStride: s.config.Engine.SeedStride,
	}
	results, err := cluster.Sweep(ctx, &req.Survey, req.Respondents,
		req.Survey.IndexResolver(), algorithm, kMax, maxIter, opts)
	if err != nil {
		util.LogError(logger, util.WrapError(err, "Cluster request failed"))
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}

	for _, res := range results {
		if _, err := s.store.Save(ctx, res); err != nil {
			util.LogError(logger, util.WrapError(err, "Failed to persist result"))
		}
	}

	resp := ClusterResponse{
		SurveyID: req.Survey.ID,
		Results:  results,
		Took:     time.Since(started).String(),
	}
	if best, ok := cluster.Best(results); ok {
		resp.Best = &best
		resp.TopTerms = s.bestTerms(&req.Survey, req.Respondents, &best)
	}
	c.JSON(http.StatusOK, resp)
}

// bestTerms recomputes vectors for the winning result and summarizes its
// free-text columns. Summary failures degrade to an absent field.
func (s *Server) bestTerms(sv *survey.Survey, respondents []survey.Respondent, best *cluster.Result) map[int][]string {
	schema, err := cluster.BuildSchema(sv)
	if err != nil {
		return nil
	}
	vectors, err := cluster.BuildVectors(schema, respondents, sv.IndexResolver())
	if err != nil {
		return nil
	}
	labels := labelsFromGroups(best, respondents)
	if labels == nil {
		return nil
	}
	terms, err := report.TopTerms(schema, vectors, labels, best.K, s.config.Engine.TopTerms)
	if err != nil {
		util.LogError(s.logger, util.WrapError(err, "Term summary failed", slog.String("survey", sv.ID)))
		return nil
	}
	if len(terms) == 0 {
		return nil
	}
	return terms
}

func labelsFromGroups(res *cluster.Result, respondents []survey.Respondent) []int {
	byUser := make(map[string]int)
	for clusterID, users := range res.Groups {
		for _, u := range users {
			byUser[u] = clusterID
		}
	}
	labels := make([]int, len(respondents))
	for i, r := range respondents {
		id, ok := byUser[r.UserID]
		if !ok {
			return nil
		}
		labels[i] = id
	}
	return labels
}

func (s *Server) handleResults(c *gin.Context) {
	surveyID := c.Param("surveyID")
	records, err := s.store.BySurvey(c.Request.Context(), surveyID)
	if err != nil {
		util.LogError(s.logger, util.WrapError(err, "Failed to read results",
			slog.String("survey", surveyID)))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"survey_id": surveyID, "records": records})
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "time": time.Now().UTC().Format(time.RFC3339)})
}

func (s *Server) handleStats(c *gin.Context) {
	count, err := s.store.Count(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"stored_results":    count,
		"default_algorithm": s.config.Engine.Algorithm,
		"restarts":          s.config.Engine.Restarts,
	})
}

// statusFor maps engine failures onto HTTP statuses. Structural input
// problems are the caller's fault; everything else is ours.
func statusFor(err error) int {
	switch {
	case errors.Is(err, cluster.ErrInvalidParameters),
		errors.Is(err, cluster.ErrNoRespondents),
		errors.Is(err, cluster.ErrUnknownAlgorithm),
		errors.Is(err, cluster.ErrInvalidSchema),
		errors.Is(err, cluster.ErrEmptyPopulation):
		return http.StatusBadRequest
	case errors.Is(err, cluster.ErrCancelled):
		return http.StatusRequestTimeout
	default:
		return http.StatusInternalServerError
	}
}

// Start runs the HTTP server until the context is cancelled.
func (s *Server) Start(ctx context.Context) error {
	gin.SetMode(gin.ReleaseMode)
	s.router = gin.New()
	s.router.Use(gin.Recovery())
	s.setupRoutes()

	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: s.router,
	}

	errChan := make(chan error, 1)
	go func() {
		s.logger.Info("API server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	select {
	case err := <-errChan:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
