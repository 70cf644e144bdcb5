package internal

import (
	"net/http"
	"viewguard/internal/controllers"
	"viewguard/internal/providers"
)

func InitRoutes(viewController *controllers.ViewController, promptController *controllers.PromptController) providers.RouterProviderInterface {
	routers := providers.NewRouterProvider()

	routers.Post("/api/view-token", http.HandlerFunc(viewController.IssueToken))
	routers.Post("/api/track-view", http.HandlerFunc(viewController.TrackView))

	routers.Post("/api/prompts", http.HandlerFunc(promptController.Create))
	routers.Patch("/api/prompts/{id}", http.HandlerFunc(promptController.Update))
	routers.Delete("/api/prompts/{id}", http.HandlerFunc(promptController.Delete))
	routers.Get("/api/prompts/{id}/views", http.HandlerFunc(promptController.Views))
	return routers
}
