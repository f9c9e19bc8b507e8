package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/lcu1903/ProjectThoiTrang/internal/handlers"
	"github.com/lcu1903/ProjectThoiTrang/internal/service/token"
)

type Deps struct {
	AuthHandler     *handlers.AuthHandler
	CategoryHandler *handlers.CategoryHandler
	ProductHandler  *handlers.ProductHandler
	CartHandler     *handlers.CartHandler
	PaymentHandler  *handlers.PaymentHandler
	SearchHandler   *handlers.SearchHandler
	Tokens          *token.Service
}

func Register(e *echo.Echo, d *Deps) {
	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/health/ready", func(c echo.Context) error { return c.NoContent(http.StatusOK) })

	v1 := e.Group("/api/v1")

	v1.POST("/register", d.AuthHandler.Register)
	v1.POST("/login", d.AuthHandler.Login)
	v1.POST("/logout", d.AuthHandler.LogOut)

	v1.GET("/search", d.SearchHandler.Search)

	v1.GET("/categories", d.CategoryHandler.GetCategories)
	v1.GET("/categories/:id", d.CategoryHandler.GetCategory)
	v1.GET("/products", d.ProductHandler.GetProducts)
	v1.GET("/products/:id", d.ProductHandler.GetProduct)

	admin := v1.Group("/admin", d.Tokens.RequireAdmin)
	admin.POST("/categories", d.CategoryHandler.CreateCategory)
	admin.PATCH("/categories/:id", d.CategoryHandler.PatchCategory)
	admin.DELETE("/categories/:id", d.CategoryHandler.DeleteCategory)
	admin.POST("/products", d.ProductHandler.CreateProduct)
	admin.PATCH("/products/:id", d.ProductHandler.PatchProduct)
	admin.DELETE("/products/:id", d.ProductHandler.DeleteProduct)

	cart := v1.Group("/cart", d.Tokens.RequireAuth)
	cart.GET("", d.CartHandler.GetCart)
	cart.POST("", d.CartHandler.AddToCart)
	cart.DELETE("/:product_id", d.CartHandler.DeleteFromCart)
	cart.POST("/checkout", d.PaymentHandler.Checkout)

	// The gateway redirects the customer's browser here; no auth cookie is
	// guaranteed, the signature is the authentication.
	v1.GET("/payment/return", d.PaymentHandler.PaymentReturn)
}
