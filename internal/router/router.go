package router

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/madness-store/madness-backend/config"
	"github.com/madness-store/madness-backend/internal/app/controller"
	"github.com/madness-store/madness-backend/internal/middleware"
)

// Controllers groups every handler the route table needs.
type Controllers struct {
	Auth    *controller.AuthController
	User    *controller.UserController
	Address *controller.AddressController
	Product *controller.ProductController
	Review  *controller.ReviewController
	Cart    *controller.CartController
	Order   *controller.OrderController
	Coupon  *controller.CouponController
	Admin   *controller.AdminController
	Upload  *controller.UploadController
	Feed    *controller.FeedController
}

type Router struct {
	controllers    Controllers
	authMiddleware *middleware.AuthMiddleware
	authLimiter    *middleware.RateLimiter
	config         *config.Config
}

func NewRouter(controllers Controllers, authMiddleware *middleware.AuthMiddleware, cfg *config.Config) *Router {
	return &Router{
		controllers:    controllers,
		authMiddleware: authMiddleware,
		authLimiter:    middleware.NewRateLimiter(cfg.RateLimit.AuthPerMinute, cfg.RateLimit.AuthBurst),
		config:         cfg,
	}
}

func (r *Router) Setup() *gin.Engine {
	gin.SetMode(r.config.Server.GinMode)

	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(middleware.LoggingMiddleware())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     r.config.CORS.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"message": "MADNESS API is running",
		})
	})

	c := r.controllers
	auth := r.authMiddleware
	session := middleware.CartSessionMiddleware(r.config.Session)

	v1 := router.Group("/api/v1")
	{
		authGroup := v1.Group("/auth")
		{
			limited := authGroup.Group("", r.authLimiter.Middleware())
			limited.POST("/register", c.Auth.Register)
			limited.POST("/login", session, c.Auth.Login)
			limited.POST("/google", session, c.Auth.GoogleLogin)
			limited.POST("/recover-password", c.Auth.RecoverPassword)
			limited.POST("/reset-password", c.Auth.ResetPassword)

			authGroup.POST("/refresh", c.Auth.Refresh)
			authGroup.POST("/logout", auth.Authenticate(), c.Auth.Logout)
			authGroup.GET("/:id/verify/:token", c.Auth.VerifyEmail)
			authGroup.GET("/me", auth.Authenticate(), c.Auth.Me)
		}

		users := v1.Group("/users/me", auth.Authenticate())
		{
			users.GET("", c.User.GetProfile)
			users.PUT("", c.User.UpdateProfile)
			users.PUT("/password", c.User.ChangePassword)

			users.GET("/addresses", c.Address.ListAddresses)
			users.POST("/addresses", c.Address.CreateAddress)
			users.PUT("/addresses/:id", c.Address.UpdateAddress)
			users.DELETE("/addresses/:id", c.Address.DeleteAddress)
			users.PUT("/addresses/:id/default", c.Address.SetDefaultAddress)
		}

		products := v1.Group("/products")
		{
			products.GET("", c.Product.ListProducts)
			products.GET("/search", c.Product.SearchProducts)
			products.GET("/sort-by-price", c.Product.SortByPrice)
			products.GET("/best-sellers", c.Product.BestSellers)
			products.GET("/categories", c.Product.Categories)
			products.GET("/category/:category", c.Product.GetProductsByCategory)
			products.GET("/:id", auth.OptionalAuthenticate(), c.Product.GetProduct)
			products.GET("/:id/reviews", c.Review.ListReviews)
			products.POST("/:id/reviews", auth.Authenticate(), c.Review.CreateReview)
		}

		v1.PUT("/reviews/:id", auth.Authenticate(), c.Review.UpdateReview)

		// Cart and checkout work for anonymous visitors too.
		shopping := v1.Group("", auth.OptionalAuthenticate(), session)
		{
			shopping.GET("/cart", c.Cart.GetCart)
			shopping.DELETE("/cart", c.Cart.ClearCart)
			shopping.GET("/cart/mini", c.Cart.GetMiniCart)
			shopping.POST("/cart/items", c.Cart.AddItem)
			shopping.PUT("/cart/items", c.Cart.UpdateItem)
			shopping.DELETE("/cart/items", c.Cart.RemoveItem)
			shopping.POST("/cart/coupon", c.Cart.ApplyCoupon)
			shopping.DELETE("/cart/coupon", c.Cart.RemoveCoupon)
			shopping.POST("/checkout", c.Cart.Checkout)
		}

		orders := v1.Group("/orders", auth.Authenticate())
		{
			orders.GET("", c.Order.ListMyOrders)
			orders.GET("/history", c.Order.OrderHistory)
			orders.GET("/:id", c.Order.GetOrder)
		}

		admin := v1.Group("/admin", auth.Authenticate(), auth.RequireAdmin())
		{
			admin.GET("/orders", c.Order.ListOrders)
			admin.GET("/orders/export", c.Order.ExportOrders)
			admin.GET("/orders/feed", c.Feed.OrderFeed)
			admin.PUT("/orders/:id/status", c.Order.UpdateOrderStatus)
			admin.DELETE("/orders/:id", c.Order.DeleteOrder)

			admin.GET("/coupons", c.Coupon.ListCoupons)
			admin.POST("/coupons", c.Coupon.CreateCoupon)
			admin.GET("/coupons/:id", c.Coupon.GetCoupon)
			admin.PUT("/coupons/:id", c.Coupon.UpdateCoupon)
			admin.DELETE("/coupons/:id", c.Coupon.DeleteCoupon)

			admin.GET("/users", c.Admin.ListUsers)
			admin.GET("/users/new", c.Admin.NewUsers)
			admin.PUT("/users/:id/ban", c.Admin.BanUser)
			admin.GET("/revenue", c.Admin.Revenue)
			admin.GET("/best-sellers", c.Admin.BestSellers)

			admin.POST("/products", c.Product.CreateProduct)
			admin.PUT("/products/:id", c.Product.UpdateProduct)
			admin.DELETE("/products/:id", c.Product.DeleteProduct)
			admin.POST("/uploads/presigned-url", c.Upload.GeneratePresignedURL)
		}
	}

	return router
}
