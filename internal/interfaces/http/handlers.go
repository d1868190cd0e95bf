package http

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/garyjia/nodue-clearance/internal/application/service"
	"github.com/garyjia/nodue-clearance/internal/domain/entity"
	"github.com/garyjia/nodue-clearance/internal/domain/workflow"
	"github.com/garyjia/nodue-clearance/pkg/utils"
)

// Handlers contains all HTTP request handlers
type Handlers struct {
	clearance service.ClearanceService
	logger    Logger
	now       func() time.Time
}

// NewHandlers creates a new Handlers instance
func NewHandlers(clearance service.ClearanceService, logger Logger) *Handlers {
	return &Handlers{
		clearance: clearance,
		logger:    logger,
		now:       time.Now,
	}
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}

// StageView is a stage as shown to clients
type StageView struct {
	*entity.Stage
	Inert bool `json:"inert"`
}

// RequestView is a request with its derived progress fields
type RequestView struct {
	ID                   string               `json:"id"`
	ReferenceCode        string               `json:"reference_code"`
	OwnerID              string               `json:"owner_id"`
	Payload              entity.Payload       `json:"payload"`
	Status               entity.RequestStatus `json:"status"`
	CurrentStagePosition int                  `json:"current_stage_position"`
	CurrentStage         *entity.Stage        `json:"current_stage,omitempty"`
	CompletionPercentage int                  `json:"completion_percentage"`
	Stages               []StageView          `json:"stages"`
	CreatedAt            time.Time            `json:"created_at"`
	UpdatedAt            time.Time            `json:"updated_at"`
}

func newRequestView(req *entity.Request) RequestView {
	view := RequestView{
		ID:                   req.ID,
		ReferenceCode:        req.ReferenceCode,
		OwnerID:              req.OwnerID,
		Payload:              req.Payload,
		Status:               req.Status,
		CurrentStagePosition: req.CurrentStagePosition,
		CompletionPercentage: req.CompletionPercentage(),
		Stages:               make([]StageView, len(req.Stages)),
		CreatedAt:            req.CreatedAt,
		UpdatedAt:            req.UpdatedAt,
	}
	if stage, ok := req.CurrentStage(); ok && req.Status.IsOpen() {
		view.CurrentStage = stage
	}
	for i, s := range req.Stages {
		view.Stages[i] = StageView{Stage: s, Inert: req.IsInert(i)}
	}
	return view
}

func newRequestViews(reqs []*entity.Request) []RequestView {
	views := make([]RequestView, len(reqs))
	for i, r := range reqs {
		views[i] = newRequestView(r)
	}
	return views
}

// DecisionRequest is the body of a stage decision
type DecisionRequest struct {
	Decision string `json:"decision"`
	Remarks  string `json:"remarks"`
}

// PageQuery holds paging query parameters
type PageQuery struct {
	Limit  int `form:"limit"`
	Offset int `form:"offset"`
}

// HealthCheck handles GET /health
func (h *Handlers) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, Response{
		Success: true,
		Data: HealthResponse{
			Status:    "healthy",
			Timestamp: h.now().UTC().Format(time.RFC3339),
		},
	})
}

// CreateRequest handles POST /api/requests
func (h *Handlers) CreateRequest(c *gin.Context) {
	var payload entity.Payload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, Response{Error: "invalid request body", Code: codeBadRequest})
		return
	}
	sanitizePayload(&payload)

	if err := utils.ValidateStruct(payload); err != nil {
		h.respondError(c, err)
		return
	}

	req, err := h.clearance.CreateRequest(c.Request.Context(), actorFrom(c), payload)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, Response{Success: true, Data: newRequestView(req)})
}

// ListOwnRequests handles GET /api/requests/mine
func (h *Handlers) ListOwnRequests(c *gin.Context) {
	reqs, err := h.clearance.ListOwnRequests(c.Request.Context(), actorFrom(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: newRequestViews(reqs)})
}

// GetRequest handles GET /api/requests/:id
func (h *Handlers) GetRequest(c *gin.Context) {
	req, err := h.clearance.GetRequest(c.Request.Context(), actorFrom(c), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: newRequestView(req)})
}

// GetRequestHistory handles GET /api/requests/:id/history
func (h *Handlers) GetRequestHistory(c *gin.Context) {
	records, err := h.clearance.RequestHistory(c.Request.Context(), actorFrom(c), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	if records == nil {
		records = []*entity.RequestHistory{}
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: records})
}

// DownloadCertificate handles GET /api/requests/:id/certificate
func (h *Handlers) DownloadCertificate(c *gin.Context) {
	cert, err := h.clearance.Certificate(c.Request.Context(), actorFrom(c), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", cert.FileName))
	c.Data(http.StatusOK, cert.ContentType, cert.Content)
}

// Decide handles POST /api/requests/:id/stages/:stageId/decision
func (h *Handlers) Decide(c *gin.Context) {
	var body DecisionRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, Response{Error: "invalid request body", Code: codeBadRequest})
		return
	}

	decision := workflow.Decision(strings.ToUpper(strings.TrimSpace(body.Decision)))
	req, err := h.clearance.Decide(
		c.Request.Context(),
		actorFrom(c),
		c.Param("id"),
		c.Param("stageId"),
		decision,
		utils.SanitizeString(body.Remarks),
	)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: newRequestView(req)})
}

// PendingQueue handles GET /api/queue
func (h *Handlers) PendingQueue(c *gin.Context) {
	page, ok := bindPage(c)
	if !ok {
		return
	}

	reqs, err := h.clearance.PendingQueue(c.Request.Context(), actorFrom(c), page.Limit, page.Offset)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: newRequestViews(reqs)})
}

// ReviewHistory handles GET /api/reviews
func (h *Handlers) ReviewHistory(c *gin.Context) {
	page, ok := bindPage(c)
	if !ok {
		return
	}

	records, err := h.clearance.ReviewHistory(c.Request.Context(), actorFrom(c), page.Limit, page.Offset)
	if err != nil {
		h.respondError(c, err)
		return
	}
	if records == nil {
		records = []*entity.ReviewRecord{}
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: records})
}

func bindPage(c *gin.Context) (PageQuery, bool) {
	var page PageQuery
	if err := c.ShouldBindQuery(&page); err != nil {
		c.JSON(http.StatusBadRequest, Response{Error: "invalid query parameters", Code: codeBadRequest})
		return page, false
	}
	if page.Limit < 0 || page.Offset < 0 {
		c.JSON(http.StatusBadRequest, Response{
			Error: fmt.Sprintf("limit and offset must not be negative, got %d/%d", page.Limit, page.Offset),
			Code:  codeBadRequest,
		})
		return page, false
	}
	return page, true
}

func sanitizePayload(p *entity.Payload) {
	for _, s := range []*string{
		&p.FullName, &p.FatherName, &p.PhoneNumber, &p.Address, &p.Course,
		&p.HostelName, &p.RoomNumber, &p.ReceiptNumber,
		&p.Marksheet, &p.BankDetails, &p.CollegeID,
	} {
		*s = utils.SanitizeString(*s)
	}
	for i := range p.FeeReceipts {
		p.FeeReceipts[i] = utils.SanitizeString(p.FeeReceipts[i])
	}
}
