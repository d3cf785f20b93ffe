package router

import (
	"log"
	"net/http"
	"yatube/internal/cache"
	"yatube/internal/db"
	"yatube/internal/handlers"
	"yatube/internal/middleware"
	"yatube/internal/services"

	"github.com/gin-gonic/gin"
)

func RegisterRoutes(r *gin.Engine) {
	// Shared page cache for the global feed
	store, err := cache.NewMemory(500)
	if err != nil {
		log.Fatalf("Failed to create cache: %v", err)
	}

	// Services
	followService := services.NewFollowService(db.DB)
	feedService := services.NewFeedService(db.DB, followService, store)
	commentService := services.NewCommentService(db.DB)

	// Handlers
	postHandler := handlers.NewPostHandler(feedService, followService, commentService)
	authHandler := handlers.NewAuthHandler()
	aboutHandler := handlers.NewAboutHandler()

	// Public Routes
	r.GET("/", postHandler.Index)                      // Global feed (cached)
	r.GET("/group/:slug", postHandler.GroupPosts)      // Group feed
	r.GET("/profile/:username", postHandler.Profile)   // Author feed
	r.GET("/posts/:id", postHandler.Detail)            // Post with comments

	r.GET("/about/author", aboutHandler.Author)
	r.GET("/about/tech", aboutHandler.Tech)

	r.GET("/auth/signup", authHandler.ShowSignUp)
	r.POST("/auth/signup", authHandler.SignUp)
	// Trailing-slash requests land here via gin's RedirectTrailingSlash.
	r.GET("/auth/login", authHandler.ShowLogin)
	r.POST("/auth/login", authHandler.Login)
	r.GET("/auth/logout", authHandler.Logout)

	// Protected Routes
	authorized := r.Group("/")
	authorized.Use(middleware.AuthRequired())
	{
		authorized.GET("/create", postHandler.ShowCreate)
		authorized.POST("/create", postHandler.Create)
		authorized.GET("/posts/:id/edit", postHandler.ShowEdit)
		authorized.POST("/posts/:id/edit", postHandler.Update)
		authorized.POST("/posts/:id/delete", postHandler.Delete)
		authorized.POST("/posts/:id/comment", postHandler.AddComment)

		authorized.GET("/follow", postHandler.FollowIndex)
		authorized.GET("/profile/:username/follow", postHandler.ProfileFollow)
		authorized.GET("/profile/:username/unfollow", postHandler.ProfileUnfollow)
	}

	// Custom 404 page
	r.NoRoute(func(c *gin.Context) {
		handlers.RenderError(c, http.StatusNotFound, "Страница не найдена")
	})
}
