package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	licensingapp "github.com/umkm/backend/internal/application/licensing"
	"github.com/umkm/backend/internal/domain/licensing"
)

// LicenseHandler serves the license application endpoints
type LicenseHandler struct {
	BaseHandler
	workflow  *licensingapp.WorkflowService
	stats     *licensingapp.StatisticsService
	documents *licensingapp.DocumentService
}

// NewLicenseHandler creates a new LicenseHandler
func NewLicenseHandler(
	workflow *licensingapp.WorkflowService,
	stats *licensingapp.StatisticsService,
	documents *licensingapp.DocumentService,
) *LicenseHandler {
	return &LicenseHandler{
		workflow:  workflow,
		stats:     stats,
		documents: documents,
	}
}

// target resolves the actor and the :id path parameter
func (h *LicenseHandler) target(c *gin.Context) (licensingapp.Actor, uuid.UUID, bool) {
	actor, ok := h.actor(c)
	if !ok {
		return actor, uuid.Nil, false
	}
	id, ok := h.pathUUID(c, "id")
	return actor, id, ok
}

// bindOptional binds a JSON body when one was sent
func (h *LicenseHandler) bindOptional(c *gin.Context, obj any) bool {
	if c.Request.ContentLength == 0 {
		return true
	}
	if err := c.ShouldBindJSON(obj); err != nil {
		h.BindError(c, err)
		return false
	}
	return true
}

func (h *LicenseHandler) respond(c *gin.Context, app *licensing.Application, err error) {
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, licensingapp.ToApplicationResponse(app))
}

// ==================== Applicant endpoints ====================

// CreateDraft opens a DRAFT application
// POST /licenses
func (h *LicenseHandler) CreateDraft(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	var req licensingapp.CreateApplicationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}
	app, err := h.workflow.CreateDraft(c.Request.Context(), actor, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, licensingapp.ToApplicationResponse(app))
}

// SubmitNew creates and submits an application in one step
// POST /licenses/submit
func (h *LicenseHandler) SubmitNew(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	var req licensingapp.CreateApplicationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}
	app, err := h.workflow.SubmitApplication(c.Request.Context(), actor, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, licensingapp.ToApplicationResponse(app))
}

// Submit moves a DRAFT to SUBMITTED
// POST /licenses/:id/submit
func (h *LicenseHandler) Submit(c *gin.Context) {
	actor, id, ok := h.target(c)
	if !ok {
		return
	}
	app, err := h.workflow.Submit(c.Request.Context(), actor, id)
	h.respond(c, app, err)
}

// Resubmit returns an application from PENDING_DOCUMENTS to review
// POST /licenses/:id/resubmit
func (h *LicenseHandler) Resubmit(c *gin.Context) {
	actor, id, ok := h.target(c)
	if !ok {
		return
	}
	var req licensingapp.NotesRequest
	if !h.bindOptional(c, &req) {
		return
	}
	app, err := h.workflow.ResubmitDocuments(c.Request.Context(), actor, id, req.Notes)
	h.respond(c, app, err)
}

// Delete removes a DRAFT owned by the caller
// DELETE /licenses/:id
func (h *LicenseHandler) Delete(c *gin.Context) {
	actor, id, ok := h.target(c)
	if !ok {
		return
	}
	if err := h.workflow.Delete(c.Request.Context(), actor, id); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// Get returns one application
// GET /licenses/:id
func (h *LicenseHandler) Get(c *gin.Context) {
	actor, id, ok := h.target(c)
	if !ok {
		return
	}
	app, err := h.workflow.GetStatus(c.Request.Context(), actor, id)
	h.respond(c, app, err)
}

// History returns the status history of an application
// GET /licenses/:id/history
func (h *LicenseHandler) History(c *gin.Context) {
	actor, id, ok := h.target(c)
	if !ok {
		return
	}
	entries, err := h.workflow.History(c.Request.Context(), actor, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, licensingapp.ToHistoryResponses(entries))
}

// ListMine lists the caller's applications
// GET /licenses/mine
func (h *LicenseHandler) ListMine(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	apps, err := h.workflow.ListMine(c.Request.Context(), actor)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, licensingapp.ToApplicationResponses(apps))
}

// ListCompany lists the applications of the caller's company
// GET /licenses/company
func (h *LicenseHandler) ListCompany(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	apps, err := h.workflow.ListCompany(c.Request.Context(), actor)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, licensingapp.ToApplicationResponses(apps))
}

// Statistics reports counts and processing times
// GET /licenses/statistics?scope=mine|global
func (h *LicenseHandler) Statistics(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	stats, err := h.stats.ForActor(c.Request.Context(), actor, licensingapp.StatisticsScope(c.Query("scope")))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, stats)
}

// ==================== Documents ====================

// RequestUpload registers a document and returns its presigned upload URL
// POST /licenses/:id/documents
func (h *LicenseHandler) RequestUpload(c *gin.Context) {
	actor, id, ok := h.target(c)
	if !ok {
		return
	}
	var req licensingapp.RequestUploadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}
	ticket, err := h.documents.RequestUpload(c.Request.Context(), actor, id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, ticket)
}

// ListDocuments lists the documents of an application
// GET /licenses/:id/documents
func (h *LicenseHandler) ListDocuments(c *gin.Context) {
	actor, id, ok := h.target(c)
	if !ok {
		return
	}
	docs, err := h.documents.ListDocuments(c.Request.Context(), actor, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, docs)
}

// DownloadDocument returns a presigned download URL
// GET /licenses/:id/documents/:documentId/download
func (h *LicenseHandler) DownloadDocument(c *gin.Context) {
	actor, id, ok := h.target(c)
	if !ok {
		return
	}
	documentID, ok := h.pathUUID(c, "documentId")
	if !ok {
		return
	}
	url, err := h.documents.DownloadURL(c.Request.Context(), actor, id, documentID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, url)
}

// ==================== Reviewer endpoints ====================

// Search lists applications for reviewers.
// A lone status or license_type filter without paging returns the plain list;
// anything else is a paginated search.
// GET /licenses
func (h *LicenseHandler) Search(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	var req licensingapp.SearchApplicationsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.BindError(c, err)
		return
	}

	ctx := c.Request.Context()
	if simple, status, licenseType := simpleFilter(req); simple {
		var apps []licensing.Application
		var err error
		if status != "" {
			apps, err = h.workflow.ListByStatus(ctx, actor, licensing.ApplicationStatus(status))
		} else {
			apps, err = h.workflow.ListByType(ctx, actor, licensing.LicenseType(licenseType))
		}
		if err != nil {
			h.HandleError(c, err)
			return
		}
		h.Success(c, licensingapp.ToApplicationResponses(apps))
		return
	}

	page, err := h.workflow.Search(ctx, actor, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, page.Items, page.Total, page.Page, page.PageSize)
}

// simpleFilter reports whether req asks for exactly one status or license type and nothing else
func simpleFilter(req licensingapp.SearchApplicationsRequest) (bool, string, string) {
	if req.CompanyID != nil || req.ReviewerID != nil || req.Search != "" ||
		req.Page != 0 || req.PageSize != 0 || req.OrderBy != "" || req.OrderDir != "" {
		return false, "", ""
	}
	if (req.Status == "") == (req.LicenseType == "") {
		return false, "", ""
	}
	return true, req.Status, req.LicenseType
}

// AssignReviewer assigns a reviewer to a SUBMITTED application
// POST /licenses/:id/assign
func (h *LicenseHandler) AssignReviewer(c *gin.Context) {
	actor, id, ok := h.target(c)
	if !ok {
		return
	}
	var req licensingapp.AssignReviewerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}
	app, err := h.workflow.AssignReviewer(c.Request.Context(), actor, id, req.ReviewerID)
	h.respond(c, app, err)
}

// StartReview moves an application to PROCESSING
// POST /licenses/:id/start-review
func (h *LicenseHandler) StartReview(c *gin.Context) {
	actor, id, ok := h.target(c)
	if !ok {
		return
	}
	app, err := h.workflow.StartReview(c.Request.Context(), actor, id)
	h.respond(c, app, err)
}

// RecordReview applies a reviewer decision
// POST /licenses/:id/review
func (h *LicenseHandler) RecordReview(c *gin.Context) {
	actor, id, ok := h.target(c)
	if !ok {
		return
	}
	var req licensingapp.RecordReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}
	app, err := h.workflow.RecordReview(c.Request.Context(), actor, id, licensing.ReviewDecision(req.Decision), req.Comments)
	h.respond(c, app, err)
}

// Approve issues the license
// POST /licenses/:id/approve
func (h *LicenseHandler) Approve(c *gin.Context) {
	actor, id, ok := h.target(c)
	if !ok {
		return
	}
	var req licensingapp.ApproveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}
	app, err := h.workflow.Approve(c.Request.Context(), actor, id, req)
	h.respond(c, app, err)
}

// Reject rejects the application
// POST /licenses/:id/reject
func (h *LicenseHandler) Reject(c *gin.Context) {
	actor, id, ok := h.target(c)
	if !ok {
		return
	}
	var req licensingapp.RejectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}
	app, err := h.workflow.Reject(c.Request.Context(), actor, id, req)
	h.respond(c, app, err)
}

// ==================== Admin endpoints ====================

// Suspend suspends an issued license
// POST /licenses/:id/suspend
func (h *LicenseHandler) Suspend(c *gin.Context) {
	actor, id, ok := h.target(c)
	if !ok {
		return
	}
	var req licensingapp.SuspendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}
	app, err := h.workflow.Suspend(c.Request.Context(), actor, id, req.Reason)
	h.respond(c, app, err)
}

// Reinstate restores a suspended license
// POST /licenses/:id/reinstate
func (h *LicenseHandler) Reinstate(c *gin.Context) {
	actor, id, ok := h.target(c)
	if !ok {
		return
	}
	var req licensingapp.NotesRequest
	if !h.bindOptional(c, &req) {
		return
	}
	app, err := h.workflow.Reinstate(c.Request.Context(), actor, id, req.Notes)
	h.respond(c, app, err)
}

// Expire marks an issued license as expired
// POST /licenses/:id/expire
func (h *LicenseHandler) Expire(c *gin.Context) {
	actor, id, ok := h.target(c)
	if !ok {
		return
	}
	app, err := h.workflow.Expire(c.Request.Context(), actor, id)
	h.respond(c, app, err)
}
