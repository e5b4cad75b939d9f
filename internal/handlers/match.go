package handlers

import (
	"net/http"

	"datingluck-server/internal/config"
	"datingluck-server/internal/services"

	"github.com/gin-gonic/gin"
)

type MatchHandler struct {
	interest *services.InterestService
	teardown *services.TeardownService
	cfg      *config.Config
}

type LikeRequest struct {
	MyID     string `json:"myId" binding:"required"`
	TargetID string `json:"targetId" binding:"required"`
}

type UnmatchRequest struct {
	UserID  string `json:"userId" binding:"required"`
	MatchID string `json:"matchId" binding:"required"`
}

type ReportRequest struct {
	AccuserID string `json:"accuserId" binding:"required"`
	AccusedID string `json:"accusedId" binding:"required"`
	Reason    string `json:"reason" binding:"required"`
}

func NewMatchHandler(interest *services.InterestService, teardown *services.TeardownService, cfg *config.Config) *MatchHandler {
	return &MatchHandler{interest: interest, teardown: teardown, cfg: cfg}
}

// Like records the edge and reports whether it completed a mutual match.
func (h *MatchHandler) Like(c *gin.Context) {
	var req LikeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	myID, ok := objectIDFromHex(c, req.MyID, "user ID")
	if !ok {
		return
	}
	targetID, ok := objectIDFromHex(c, req.TargetID, "target ID")
	if !ok {
		return
	}

	ctx, cancel := requestContext(c, h.cfg.RequestTimeout)
	defer cancel()

	result, err := h.interest.Like(ctx, myID, targetID)
	if err != nil {
		respondError(c, err)
		return
	}

	if result.Match {
		c.JSON(http.StatusOK, gin.H{
			"match":   true,
			"message": "It's a match!",
			"matchId": result.MatchID.Hex(),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"match": false, "message": "Like recorded"})
}

// MyMatches lists active matches with the counterpart's profile fields.
func (h *MatchHandler) MyMatches(c *gin.Context) {
	userID, ok := objectIDFromHex(c, c.Param("userId"), "user ID")
	if !ok {
		return
	}

	ctx, cancel := requestContext(c, h.cfg.RequestTimeout)
	defer cancel()

	matches, err := h.interest.MatchesFor(ctx, userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"matches": matches})
}

// Unmatch severs the match, its messages and all edges between the pair.
func (h *MatchHandler) Unmatch(c *gin.Context) {
	var req UnmatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID, ok := objectIDFromHex(c, req.UserID, "user ID")
	if !ok {
		return
	}
	matchID, ok := objectIDFromHex(c, req.MatchID, "match ID")
	if !ok {
		return
	}

	ctx, cancel := requestContext(c, h.cfg.RequestTimeout)
	defer cancel()

	if err := h.teardown.Unmatch(ctx, userID, matchID); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Unmatched successfully"})
}

// Report files the report and severs the pair like an unmatch; a missing
// match is not an error here.
func (h *MatchHandler) Report(c *gin.Context) {
	var req ReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	accuserID, ok := objectIDFromHex(c, req.AccuserID, "accuser ID")
	if !ok {
		return
	}
	accusedID, ok := objectIDFromHex(c, req.AccusedID, "accused ID")
	if !ok {
		return
	}

	ctx, cancel := requestContext(c, h.cfg.RequestTimeout)
	defer cancel()

	if err := h.teardown.Report(ctx, accuserID, accusedID, req.Reason); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "User reported and blocked"})
}
