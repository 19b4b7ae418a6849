package router

import (
	"github.com/gin-gonic/gin"
	"github.com/umkm/backend/internal/interfaces/http/handler"
)

// LicenseRoutes maps the license endpoints. Reviewer and admin routes sit in
// subgroups guarded by the given permission middleware.
func LicenseRoutes(h *handler.LicenseHandler, reviewer, admin gin.HandlerFunc) *DomainGroup {
	licenses := NewDomainGroup("licenses", "/licenses")

	licenses.
		POST("", h.CreateDraft).
		POST("/submit", h.SubmitNew).
		GET("/mine", h.ListMine).
		GET("/company", h.ListCompany).
		GET("/statistics", h.Statistics).
		GET("", reviewer, h.Search).
		GET("/:id", h.Get).
		DELETE("/:id", h.Delete).
		POST("/:id/submit", h.Submit).
		GET("/:id/history", h.History).
		POST("/:id/resubmit", h.Resubmit).
		POST("/:id/documents", h.RequestUpload).
		GET("/:id/documents", h.ListDocuments).
		GET("/:id/documents/:documentId/download", h.DownloadDocument)

	licenses.Group("review", "/:id").
		Use(reviewer).
		POST("/assign", h.AssignReviewer).
		POST("/start-review", h.StartReview).
		POST("/review", h.RecordReview).
		POST("/approve", h.Approve).
		POST("/reject", h.Reject)

	licenses.Group("admin", "/:id").
		Use(admin).
		POST("/suspend", h.Suspend).
		POST("/reinstate", h.Reinstate).
		POST("/expire", h.Expire)

	return licenses
}
