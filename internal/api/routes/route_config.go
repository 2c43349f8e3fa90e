package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/goldenlion52rus/foodgram/internal/api/handlers"
	"github.com/goldenlion52rus/foodgram/internal/middleware"
	"github.com/goldenlion52rus/foodgram/pkg/jwt"
)

type Config struct {
	App                 *fiber.App
	UserHandler         handlers.UserHandler
	SubscriptionHandler handlers.SubscriptionHandler
	TagHandler          handlers.TagHandler
	IngredientHandler   handlers.IngredientHandler
	RecipeHandler       handlers.RecipeHandler
	Middleware          middleware.Middleware
	JWTService          jwt.JWTService
}

func (c *Config) Setup() {
	c.App.Use(c.Middleware.CORSMiddleware())
	c.Users()
	c.Tags()
	c.Ingredients()
	c.Recipes()
	c.GuestRoute()
}

func (c *Config) Users() {
	auth := c.Middleware.AuthMiddleware(c.JWTService)
	optional := c.Middleware.OptionalAuthMiddleware(c.JWTService)

	users := c.App.Group("/api/v1/users")
	{
		users.Post("", c.UserHandler.Register)
		users.Post("/login", c.UserHandler.Login)
		users.Post("/forgot", c.UserHandler.ForgotPassword)
		users.Post("/reset", c.UserHandler.ResetPassword)

		users.Get("", optional, c.UserHandler.GetUsers)
		users.Get("/me", auth, c.UserHandler.Me)
		users.Patch("/me", auth, c.UserHandler.UpdateUser)
		users.Put("/me/avatar", auth, c.UserHandler.SetAvatar)
		users.Delete("/me/avatar", auth, c.UserHandler.DeleteAvatar)

		// subscriptions must register before /:id so the literal wins
		users.Get("/subscriptions", auth, c.SubscriptionHandler.GetSubscriptions)
		users.Post("/:id/subscribe", auth, c.SubscriptionHandler.Subscribe)
		users.Delete("/:id/subscribe", auth, c.SubscriptionHandler.Unsubscribe)

		users.Get("/:id", optional, c.UserHandler.GetProfile)
	}
}

func (c *Config) Tags() {
	tags := c.App.Group("/api/v1/tags")
	tags.Get("", c.TagHandler.GetTags)
	tags.Get("/:id", c.TagHandler.GetTagDetail)
}

func (c *Config) Ingredients() {
	ingredients := c.App.Group("/api/v1/ingredients")
	ingredients.Get("", c.IngredientHandler.GetIngredients)
	ingredients.Get("/:id", c.IngredientHandler.GetIngredientDetail)
}

func (c *Config) Recipes() {
	auth := c.Middleware.AuthMiddleware(c.JWTService)
	optional := c.Middleware.OptionalAuthMiddleware(c.JWTService)

	recipes := c.App.Group("/api/v1/recipes")
	{
		recipes.Get("", optional, c.RecipeHandler.GetRecipes)
		recipes.Post("", auth, c.RecipeHandler.CreateRecipe)

		recipes.Get("/download_shopping_cart", auth, c.RecipeHandler.DownloadShoppingList)

		recipes.Get("/:id", optional, c.RecipeHandler.GetRecipeDetail)
		recipes.Patch("/:id", auth, c.RecipeHandler.UpdateRecipe)
		recipes.Delete("/:id", auth, c.RecipeHandler.DeleteRecipe)

		recipes.Get("/:id/get-link", c.RecipeHandler.GetShortLink)
		recipes.Post("/:id/favorite", auth, c.RecipeHandler.AddFavorite)
		recipes.Delete("/:id/favorite", auth, c.RecipeHandler.RemoveFavorite)
		recipes.Post("/:id/shopping_cart", auth, c.RecipeHandler.AddToShoppingCart)
		recipes.Delete("/:id/shopping_cart", auth, c.RecipeHandler.RemoveFromShoppingCart)
	}
}

func (c *Config) GuestRoute() {
	c.App.Get("/api/ping", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"message": "pong"})
	})
}
