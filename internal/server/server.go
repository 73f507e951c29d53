package server

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/duyhung112/crypto-insights/internal/common"
	"github.com/duyhung112/crypto-insights/internal/config"
	"github.com/duyhung112/crypto-insights/internal/monitor"
	"github.com/duyhung112/crypto-insights/internal/service"
	"github.com/duyhung112/crypto-insights/internal/util"
	"github.com/duyhung112/crypto-insights/pkg/models"
)

// TickerSource exposes the latest live price per symbol.
type TickerSource interface {
	Latest(symbol string) (models.TickerUpdate, bool)
}

// Server is the interactive HTTP surface: on-demand analysis, raw klines,
// monitor management, and live ticker reads.
type Server struct {
	svc       *service.Service
	scheduler *monitor.Scheduler
	ticker    TickerSource
	cfg       *config.Config
	log       *util.Logger
}

func New(cfg *config.Config, svc *service.Service, scheduler *monitor.Scheduler, ticker TickerSource) *Server {
	return &Server{
		svc:       svc,
		scheduler: scheduler,
		ticker:    ticker,
		cfg:       cfg,
		log:       util.NewLogger("server"),
	}
}

// Router builds the gin engine with all routes mounted.
func (s *Server) Router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	api := r.Group("/api")
	{
		api.POST("/analyze", s.handleAnalyze)
		api.GET("/klines", s.handleKlines)
		api.POST("/monitors", s.handleStartMonitor)
		api.GET("/monitors", s.handleListMonitors)
		api.DELETE("/monitors/:id", s.handleStopMonitor)
		api.POST("/monitors/:id/check", s.handleCheckMonitor)
		api.GET("/ticker/:symbol", s.handleTicker)
	}
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	return r
}

// Addr is the listen address from config.
func (s *Server) Addr() string {
	host := s.cfg.Server.Host
	port := s.cfg.Server.Port
	if port == 0 {
		port = 8080
	}
	return fmt.Sprintf("%s:%d", host, port)
}

type analyzeBody struct {
	Exchange  string `json:"exchange" binding:"required"`
	Pair      string `json:"pair" binding:"required"`
	Timeframe string `json:"timeframe" binding:"required"`
	Mode      string `json:"mode"`
	OracleKey string `json:"oracle_key"`
}

func (b analyzeBody) request() (models.AnalysisRequest, error) {
	mode := models.Mode(b.Mode)
	if mode == "" {
		mode = models.ModeSwing
	}
	if mode != models.ModeSwing && mode != models.ModeScalping {
		return models.AnalysisRequest{}, fmt.Errorf("invalid mode %q", b.Mode)
	}
	return models.AnalysisRequest{
		Exchange:  b.Exchange,
		Pair:      b.Pair,
		Timeframe: b.Timeframe,
		Mode:      mode,
		OracleKey: b.OracleKey,
	}, nil
}

func (s *Server) handleAnalyze(c *gin.Context) {
	var body analyzeBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	req, err := body.request()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	verdict, err := s.svc.Evaluate(c.Request.Context(), req)
	if err != nil {
		s.failWithTaxonomy(c, err)
		return
	}
	c.JSON(http.StatusOK, verdict)
}

func (s *Server) handleKlines(c *gin.Context) {
	exchange := c.Query("exchange")
	pair := c.Query("pair")
	timeframe := c.Query("timeframe")
	if exchange == "" || pair == "" || timeframe == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "exchange, pair and timeframe are required"})
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "0"))

	series, err := s.svc.Klines(c.Request.Context(), exchange, pair, timeframe, limit)
	if err != nil {
		s.failWithTaxonomy(c, err)
		return
	}
	c.JSON(http.StatusOK, series)
}

type startMonitorBody struct {
	analyzeBody
	IntervalSec int `json:"interval_sec"`
}

func (s *Server) handleStartMonitor(c *gin.Context) {
	var body startMonitorBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	req, err := body.request()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sub := s.scheduler.Start(req, time.Duration(body.IntervalSec)*time.Second)
	c.JSON(http.StatusCreated, gin.H{"id": sub.ID})
}

func (s *Server) handleListMonitors(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"monitors": s.scheduler.List()})
}

func (s *Server) handleStopMonitor(c *gin.Context) {
	id := c.Param("id")
	if !s.scheduler.Stop(id) {
		c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("no subscription %s", id)})
		return
	}
	c.JSON(http.StatusOK, gin.H{"stopped": id})
}

func (s *Server) handleCheckMonitor(c *gin.Context) {
	verdict, err := s.scheduler.TriggerNow(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.failWithTaxonomy(c, err)
		return
	}
	c.JSON(http.StatusOK, verdict)
}

func (s *Server) handleTicker(c *gin.Context) {
	symbol := c.Param("symbol")
	update, ok := s.ticker.Latest(symbol)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("no ticker data for %s", symbol)})
		return
	}
	c.JSON(http.StatusOK, update)
}

// failWithTaxonomy maps a pipeline error to its taxonomy label so callers
// can tell a transport failure from a rejection or thin history.
func (s *Server) failWithTaxonomy(c *gin.Context, err error) {
	code := common.Taxonomy(err)
	status := http.StatusBadGateway
	switch code {
	case common.ErrCodeInsufficientHistory, common.ErrCodeEvaluationFailed:
		status = http.StatusUnprocessableEntity
	case common.ErrCodeExchangeRejected:
		status = http.StatusBadRequest
	}
	s.log.Error(err, code, common.ErrMsgEvaluationFailed, "Request failed", "path", c.FullPath())
	c.JSON(status, gin.H{"error_code": code.String(), "error": err.Error()})
}
