package main

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/desa-layanan-api/internal/handler"
	"github.com/noah-isme/desa-layanan-api/internal/middleware"
	"github.com/noah-isme/desa-layanan-api/internal/service"
)

type routeDeps struct {
	auth          middleware.TokenValidator
	cronSecret    string
	requests      *handler.ServiceRequestHandler
	letters       *handler.LetterHandler
	notifications *handler.NotificationHandler
	cron          *handler.CronHandler
}

func rolesFor(op service.Operation) gin.HandlerFunc {
	return middleware.RequireRoles(service.RolesFor(op)...)
}

func registerRoutes(api *gin.RouterGroup, deps routeDeps) {
	api.GET("/letters/download", deps.letters.Download)

	cron := api.Group("/cron", middleware.CronSecret(deps.cronSecret))
	cron.GET("/auto-approve", deps.cron.AutoApprove)
	cron.POST("/auto-approve", deps.cron.AutoApprove)

	secured := api.Group("", middleware.JWT(deps.auth))

	requests := secured.Group("/service-requests")
	requests.POST("", rolesFor(service.OpSubmit), deps.requests.Submit)
	requests.GET("", rolesFor(service.OpListAll), deps.requests.List)
	requests.GET("/mine", deps.requests.Mine)
	requests.GET("/saved", deps.requests.Saved)
	requests.GET("/stats", rolesFor(service.OpStats), deps.requests.Stats)
	requests.GET("/export", rolesFor(service.OpExport), deps.requests.Export)
	requests.GET("/:id", deps.requests.Get)
	requests.DELETE("/:id", rolesFor(service.OpDelete), deps.requests.Delete)
	requests.POST("/:id/approve-local-chief", rolesFor(service.OpApproveByLocalChief), deps.requests.ApproveByLocalChief)
	requests.POST("/:id/approve-admin", rolesFor(service.OpApproveByAdmin), deps.requests.ApproveByAdmin)
	requests.POST("/:id/reject", rolesFor(service.OpReject), deps.requests.Reject)
	requests.POST("/:id/complete", rolesFor(service.OpComplete), deps.requests.Complete)
	requests.POST("/:id/village-head-note", rolesFor(service.OpAnnotate), deps.requests.VillageHeadNote)
	requests.POST("/:id/save", deps.requests.Save)
	requests.DELETE("/:id/save", deps.requests.Unsave)
	requests.GET("/:id/letter", deps.letters.Letter)
	requests.POST("/:id/letter-link", deps.letters.Link)

	notifications := secured.Group("/notifications")
	notifications.GET("", deps.notifications.List)
	notifications.GET("/unread-count", deps.notifications.UnreadCount)
	notifications.GET("/ws", deps.notifications.Stream)
	notifications.POST("/:id/read", deps.notifications.MarkRead)
}
