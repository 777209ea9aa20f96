// Package server is the companion HTTP backend: it registers sessions
// and resolves completed days into stat deltas, cached per day so a
// retried sync never double-applies effects.
package server

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/vreyes/stakecraft/engine/session"
	"github.com/vreyes/stakecraft/types"
)

// Server wires the HTTP routes over a Store.
type Server struct {
	store *Store
}

// New returns a Server backed by store.
func New(store *Store) *Server {
	return &Server{store: store}
}

// Router builds the gin engine with all routes registered.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/health", s.health)
	r.POST("/sessions", s.createSession)
	r.GET("/sessions/:id", s.getSession)
	r.POST("/sessions/:id/resolve_day_effects", s.resolveDayEffects)
	return r
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type createSessionRequest struct {
	PlayerName string `json:"player_name" binding:"required"`
}

func (s *Server) createSession(c *gin.Context) {
	var req createSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	id := uuid.NewString()
	if err := s.store.CreateSession(id, req.PlayerName); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"session_id": id})
}

func (s *Server) getSession(c *gin.Context) {
	rec, err := s.store.GetSession(c.Param("id"))
	if errors.Is(err, ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, rec)
}

type resolveDayRequest struct {
	Comparisons []types.ComparisonResult `json:"comparisons"`
}

func (s *Server) resolveDayEffects(c *gin.Context) {
	id := c.Param("id")
	day, err := strconv.Atoi(c.Query("day"))
	if err != nil || day < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "day must be a positive integer"})
		return
	}
	if _, err := s.store.GetSession(id); errors.Is(err, ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return
	} else if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	// Cached days return the original resolution unchanged.
	if deltas, err := s.store.GetDayEffects(id, day); err == nil {
		c.JSON(http.StatusOK, deltas)
		return
	} else if !errors.Is(err, ErrNotFound) {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	var req resolveDayRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	deltas := computeDeltas(req.Comparisons)
	if err := s.store.SaveDayEffects(id, day, deltas); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, deltas)
}

// outcomeEffects maps a reconciliation outcome to its daily stat
// consequence. Followed-through promises build reputation; deviations
// cost more than plain omissions.
var outcomeEffects = map[types.Outcome]session.DayDeltas{
	types.OutcomeDoneOK:    {Reputation: 1},
	types.OutcomeNotDone:   {Reputation: -1},
	types.OutcomeDeviation: {Reputation: -2, Budget: -5000},
}

func computeDeltas(comparisons []types.ComparisonResult) session.DayDeltas {
	total := session.DayDeltas{}
	for _, cmp := range comparisons {
		eff := outcomeEffects[cmp.Outcome]
		total.Budget += eff.Budget
		total.Reputation += eff.Reputation
	}
	return total
}
