package router

import (
	"github.com/fasthttp/router"

	apiHandler "github.com/fastygo/tasktracker/api/handler"
)

type Handlers struct {
	Task         *apiHandler.TaskHandler
	Notification *apiHandler.NotificationHandler
	Health       *apiHandler.HealthHandler
}

func New(handlers Handlers) *router.Router {
	r := router.New()

	r.GET("/health", handlers.Health.Check)

	api := r.Group("/api/v1")

	api.GET("/tasks", handlers.Task.List)
	api.POST("/tasks", handlers.Task.Create)
	api.POST("/tasks/refresh", handlers.Task.Refresh)
	api.GET("/tasks/search", handlers.Task.Search)
	api.PUT("/tasks/query", handlers.Task.SetQuery)
	api.DELETE("/tasks/query", handlers.Task.ClearQuery)
	api.GET("/tasks/{id}", handlers.Task.Get)
	api.PATCH("/tasks/{id}", handlers.Task.Update)
	api.DELETE("/tasks/{id}", handlers.Task.Delete)
	api.POST("/tasks/{id}/toggle", handlers.Task.Toggle)
	api.POST("/tasks/{id}/remind", handlers.Task.Remind)

	if handlers.Notification != nil {
		api.POST("/notifications/register", handlers.Notification.Register)
		api.POST("/notifications/test", handlers.Notification.Test)
		api.GET("/notifications/inbox", handlers.Notification.Inbox)
		api.POST("/notifications/{id}/respond", handlers.Notification.Respond)
	}

	return r
}
