package indexer

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/holiman/uint256"
	"github.com/jinzhu/gorm"
)

type Service struct {
	engine     *gin.Engine
	indexer    *ChainIndexer
	listenAddr string
}

func NewService(listenAddr string, indexer *ChainIndexer) *Service {
	r := gin.New()
	r.Use(gin.Recovery())
	s := &Service{
		engine:     r,
		indexer:    indexer,
		listenAddr: listenAddr,
	}
	s.engine.POST("/getProposals", s.handleGetProposals)
	s.engine.POST("/getVotes", s.handleGetVotes)
	s.engine.POST("/getRoleChanges", s.handleGetRoleChanges)
	s.engine.POST("/getTransfers", s.handleGetTransfers)
	s.engine.POST("/getPositions", s.handleGetPositions)
	return s
}

func (s *Service) Handler() http.Handler {
	return s.engine
}

// Start serves until ctx is done.
func (s *Service) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.listenAddr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
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
}

type PageReq struct {
	Page     int `json:"page"`
	PageSize int `json:"pageSize"`
}

type GetProposalsReq struct {
	PageReq
	ProposalId uint64 `json:"proposalId"`
	Proposer   string `json:"proposer"`
	Status     string `json:"status"`
}

type ProposalInfo struct {
	Proposal Proposal `json:"proposal"`
	Votes    []Vote   `json:"votes"`
}

type GetProposalResponse struct {
	Proposals []ProposalInfo `json:"proposals"`
	Total     uint64         `json:"total"`
}

func (s *Service) handleGetProposals(c *gin.Context) {
	var requestData GetProposalsReq
	if err := c.ShouldBindJSON(&requestData); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	response := GetProposalResponse{Proposals: make([]ProposalInfo, 0)}

	var proposals []Proposal
	if requestData.ProposalId != 0 {
		proposal, err := s.indexer.getProposalById(requestData.ProposalId)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "proposal not found"})
			return
		}
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		proposals = []Proposal{proposal}
		response.Total = 1
	} else {
		var err error
		proposals, response.Total, err = s.indexer.getProposals(requestData.Status, requestData.Proposer, requestData.Page, requestData.PageSize)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
	}
	for _, p := range proposals {
		votes, err := s.indexer.getVotes(p.Id, "", 0, maxPageSize)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		response.Proposals = append(response.Proposals, ProposalInfo{Proposal: p, Votes: votes})
	}
	c.JSON(http.StatusOK, response)
}

type GetVotesReq struct {
	PageReq
	ProposalId uint64 `json:"proposalId"`
	Voter      string `json:"voter"`
}

func (s *Service) handleGetVotes(c *gin.Context) {
	var requestData GetVotesReq
	if err := c.ShouldBindJSON(&requestData); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if requestData.ProposalId == 0 && requestData.Voter == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "proposalId or voter is required"})
		return
	}
	votes, err := s.indexer.getVotes(requestData.ProposalId, requestData.Voter, requestData.Page, requestData.PageSize)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"votes": votes})
}

type GetRoleChangesReq struct {
	PageReq
	Role    string `json:"role"`
	Account string `json:"account"`
}

func (s *Service) handleGetRoleChanges(c *gin.Context) {
	var requestData GetRoleChangesReq
	if err := c.ShouldBindJSON(&requestData); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	changes, err := s.indexer.getRoleChanges(requestData.Role, requestData.Account, requestData.Page, requestData.PageSize)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"roleChanges": changes})
}

type GetTransfersReq struct {
	PageReq
	Address string `json:"address"`
}

func (s *Service) handleGetTransfers(c *gin.Context) {
	var requestData GetTransfersReq
	if err := c.ShouldBindJSON(&requestData); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	transfers, err := s.indexer.getTransfers(requestData.Address, requestData.Page, requestData.PageSize)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"transfers": transfers})
}

type GetPositionsReq struct {
	User  string `json:"user" binding:"required"`
	Asset string `json:"asset"`
}

// PositionSummary is the net of a user's indexed deposits and withdrawals
// for one asset.
type PositionSummary struct {
	Asset      string `json:"asset"`
	Collateral string `json:"collateral"`
	Minted     string `json:"minted"`
}

type GetPositionsResponse struct {
	Positions []PositionSummary `json:"positions"`
	Moves     []CollateralMove  `json:"moves"`
}

func summarize(moves []CollateralMove) []PositionSummary {
	type net struct{ collateral, minted *uint256.Int }
	var order []string
	byAsset := make(map[string]*net)
	for _, m := range moves {
		n, ok := byAsset[m.Asset]
		if !ok {
			n = &net{new(uint256.Int), new(uint256.Int)}
			byAsset[m.Asset] = n
			order = append(order, m.Asset)
		}
		coll, err1 := uint256.FromDecimal(m.Collateral)
		khrt, err2 := uint256.FromDecimal(m.KHRT)
		if err1 != nil || err2 != nil {
			continue
		}
		if m.Deposit {
			n.collateral.Add(n.collateral, coll)
			n.minted.Add(n.minted, khrt)
		} else {
			n.collateral.Sub(n.collateral, coll)
			n.minted.Sub(n.minted, khrt)
		}
	}
	res := make([]PositionSummary, 0, len(order))
	for _, asset := range order {
		n := byAsset[asset]
		res = append(res, PositionSummary{Asset: asset, Collateral: n.collateral.Dec(), Minted: n.minted.Dec()})
	}
	return res
}

func (s *Service) handleGetPositions(c *gin.Context) {
	var requestData GetPositionsReq
	if err := c.ShouldBindJSON(&requestData); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	moves, err := s.indexer.getCollateralMoves(requestData.User, requestData.Asset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, GetPositionsResponse{Positions: summarize(moves), Moves: moves})
}
