package httpapi

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/abhisek/adaptd/internal/answer"
	"github.com/abhisek/adaptd/internal/engine"
)

// LearnerHandler serves the per-learner engine operations.
type LearnerHandler struct {
	engine *engine.Engine
}

func NewLearnerHandler(e *engine.Engine) *LearnerHandler {
	return &LearnerHandler{engine: e}
}

// AttemptRequest is the body of POST /api/learners/:learnerID/attempts.
type AttemptRequest struct {
	NodeID           string      `json:"node_id"`
	Expected         string      `json:"expected"`
	Given            string      `json:"given"`
	AnswerType       answer.Type `json:"answer_type"`
	Choices          []string    `json:"choices,omitempty"`
	Correct          *bool       `json:"correct,omitempty"`
	Difficulty       int         `json:"difficulty"`
	TimeSpentSeconds float64     `json:"time_spent_seconds"`
	At               *time.Time  `json:"at,omitempty"`
}

func (r AttemptRequest) input() engine.AttemptInput {
	in := engine.AttemptInput{
		NodeID:           r.NodeID,
		Expected:         r.Expected,
		Given:            r.Given,
		AnswerType:       r.AnswerType,
		Choices:          r.Choices,
		Correct:          r.Correct,
		Difficulty:       r.Difficulty,
		TimeSpentSeconds: r.TimeSpentSeconds,
	}
	if r.At != nil {
		in.At = *r.At
	}
	return in
}

// POST /api/learners/:learnerID/attempts
func (h *LearnerHandler) RecordAttempt(c *gin.Context) {
	var req AttemptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	res, err := h.engine.RecordAttempt(c.Request.Context(), c.Param("learnerID"), req.input())
	if err != nil {
		respondEngineError(c, err)
		return
	}
	respondOK(c, res)
}

// GET /api/learners/:learnerID/graph?scope=
func (h *LearnerHandler) Graph(c *gin.Context) {
	tree, err := h.engine.GraphSnapshot(c.Request.Context(), c.Param("learnerID"), c.Query("scope"))
	if err != nil {
		respondEngineError(c, err)
		return
	}
	respondOK(c, tree)
}

// GET /api/learners/:learnerID/weak-areas?n=
func (h *LearnerHandler) WeakAreas(c *gin.Context) {
	n, err := intQuery(c, "n", engine.DefaultWeakAreas)
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	weak, err := h.engine.WeakAreas(c.Request.Context(), c.Param("learnerID"), n)
	if err != nil {
		respondEngineError(c, err)
		return
	}
	respondOK(c, gin.H{"weak_areas": weak})
}

// GET /api/learners/:learnerID/weak-nodes?scope=&threshold=
func (h *LearnerHandler) WeakNodes(c *gin.Context) {
	threshold, err := intQuery(c, "threshold", 0)
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	weak, err := h.engine.WeakNodes(c.Request.Context(), c.Param("learnerID"), c.Query("scope"), threshold)
	if err != nil {
		respondEngineError(c, err)
		return
	}
	respondOK(c, gin.H{"weak_nodes": weak})
}

// GET /api/learners/:learnerID/profile
func (h *LearnerHandler) Profile(c *gin.Context) {
	p, err := h.engine.LearnerProfile(c.Request.Context(), c.Param("learnerID"))
	if err != nil {
		respondEngineError(c, err)
		return
	}
	respondOK(c, p)
}

// GET /api/reports/struggling
func (h *LearnerHandler) Struggling(c *gin.Context) {
	r, err := h.engine.StrugglingLearners(c.Request.Context())
	if err != nil {
		respondEngineError(c, err)
		return
	}
	respondOK(c, r)
}

// GET /api/learners/:learnerID/next-task?topic=
func (h *LearnerHandler) NextTask(c *gin.Context) {
	task, err := h.engine.NextTask(c.Request.Context(), c.Param("learnerID"), c.Query("topic"))
	if err != nil {
		respondEngineError(c, err)
		return
	}
	respondOK(c, task)
}

// GET /api/learners/:learnerID/sessions/:nodeID
func (h *LearnerHandler) Session(c *gin.Context) {
	sess, err := h.engine.Session(c.Request.Context(), c.Param("learnerID"), c.Param("nodeID"))
	if err != nil {
		respondEngineError(c, err)
		return
	}
	respondOK(c, sess)
}

// POST /api/learners/:learnerID/snapshots
func (h *LearnerHandler) SaveSnapshot(c *gin.Context) {
	snap, err := h.engine.SaveSnapshot(c.Request.Context(), c.Param("learnerID"))
	if err != nil {
		respondEngineError(c, err)
		return
	}
	respondOK(c, gin.H{"learner_id": snap.LearnerID, "sequence": snap.Sequence, "timestamp": snap.Timestamp})
}

// POST /api/learners/:learnerID/replay
func (h *LearnerHandler) Replay(c *gin.Context) {
	report, err := h.engine.Replay(c.Request.Context(), c.Param("learnerID"))
	if err != nil {
		respondEngineError(c, err)
		return
	}
	respondOK(c, report)
}

func HealthCheck(c *gin.Context) {
	c.String(http.StatusOK, "ok")
}

func intQuery(c *gin.Context, key string, def int) (int, error) {
	raw := c.Query(key)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("query parameter %s must be a positive integer, got %q", key, raw)
	}
	return n, nil
}
