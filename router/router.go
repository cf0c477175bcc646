package router

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/qrestaurant/backoffice/controllers"
	"github.com/qrestaurant/backoffice/middlewares"
)

// SetupRouter wires the three surfaces: public catalog + sign-up, the
// API-key customer ordering surface, and the JWT admin surface.
func SetupRouter(db *gorm.DB) *gin.Engine {
	r := gin.Default()

	r.Use(middlewares.SecurityHeaders())
	r.Use(middlewares.CORSMiddlewares())
	r.Use(middlewares.LoggerMiddleware())

	categoryController := controllers.NewCategoryController(db)
	menuController := controllers.NewMenuController(db)
	deskController := controllers.NewDeskController(db)
	promotionController := controllers.NewPromotionController(db)
	customerController := controllers.NewCustomerController(db)
	orderController := controllers.NewOrderController(db)
	userController := controllers.NewUserController(db)
	roleController := controllers.NewRoleController(db)

	// Public surface: the catalog guests browse from a desk QR, plus sign-up
	// and login. Auth endpoints get the strict limiter.
	public := r.Group("/")
	{
		public.GET("/categories", categoryController.GetAllCategories)
		public.GET("/categories/:cat_id", categoryController.GetCategoryByID)
		public.GET("/menus", menuController.GetAllMenus)
		public.GET("/menus/:menu_id", menuController.GetMenuByID)
		public.GET("/promotions", promotionController.GetAllPromotions)
		public.GET("/promotions/:promo_id", promotionController.GetPromotionByID)
		public.GET("/desks", deskController.GetAllDesks)
		public.GET("/desks/:desk_id", deskController.GetDeskByID)
		public.GET("/desks/:desk_id/qr", deskController.GetDeskQR)

		strict := middlewares.NewStrictRateLimiter()
		public.POST("/register", strict, customerController.RegisterCustomer)
		public.POST("/auth/login", strict, userController.Login)
	}

	// Customer surface: authenticated with the per-customer API key.
	customer := r.Group("/")
	customer.Use(middlewares.NewRateLimiter(120, 60).RateLimit())
	customer.Use(middlewares.APIKeyAuthMiddleware())
	{
		customer.POST("/orders", orderController.CreateOrder)
		customer.GET("/orders", orderController.GetAllOrders)
		customer.GET("/orders/:order_id", orderController.GetOrderByID)
		customer.POST("/orders/:order_id/transition", orderController.TransitionOrder)
		customer.DELETE("/orders/:order_id", orderController.DeleteOrder)

		customer.POST("/orders/:order_id/place-orders", orderController.CreatePlaceOrder)
		customer.GET("/orders/:order_id/place-orders", orderController.GetPlaceOrders)
		customer.PATCH("/place-orders/:line_id", orderController.UpdatePlaceOrder)
		customer.POST("/place-orders/:line_id/transition", orderController.TransitionPlaceOrder)
		customer.DELETE("/place-orders/:line_id", orderController.DeletePlaceOrder)

		customer.POST("/orders/:order_id/delivery-orders", orderController.CreateDeliveryOrder)
		customer.GET("/orders/:order_id/delivery-orders", orderController.GetDeliveryOrders)
		customer.PATCH("/delivery-orders/:line_id", orderController.UpdateDeliveryOrder)
		customer.POST("/delivery-orders/:line_id/transition", orderController.TransitionDeliveryOrder)
		customer.DELETE("/delivery-orders/:line_id", orderController.DeleteDeliveryOrder)
	}

	// Admin surface: JWT-authenticated backoffice.
	admin := r.Group("/admin")
	admin.Use(middlewares.AuthMiddleware())
	{
		admin.POST("/auth/logout", userController.Logout)
		admin.GET("/profile", userController.GetProfile)

		admin.POST("/categories", categoryController.CreateCategory)
		admin.PATCH("/categories/:cat_id", categoryController.UpdateCategory)
		admin.DELETE("/categories/:cat_id", categoryController.DeleteCategory)

		admin.POST("/menus", menuController.CreateMenu)
		admin.PATCH("/menus/:menu_id", menuController.UpdateMenu)
		admin.DELETE("/menus/:menu_id", menuController.DeleteMenu)

		admin.POST("/promotions", promotionController.CreatePromotion)
		admin.PATCH("/promotions/:promo_id", promotionController.UpdatePromotion)
		admin.DELETE("/promotions/:promo_id", promotionController.DeletePromotion)

		admin.POST("/desks", deskController.CreateDesk)
		admin.PATCH("/desks/:desk_id", deskController.UpdateDesk)
		admin.DELETE("/desks/:desk_id", deskController.DeleteDesk)

		admin.GET("/customers", customerController.GetAllCustomers)
		admin.GET("/customers/:customer_id", customerController.GetCustomerByID)
		admin.PATCH("/customers/:customer_id", customerController.UpdateCustomer)
		admin.DELETE("/customers/:customer_id", customerController.DeleteCustomer)

		admin.POST("/orders", orderController.CreateOrder)
		admin.GET("/orders", orderController.GetAllOrders)
		admin.GET("/orders/:order_id", orderController.GetOrderByID)
		admin.POST("/orders/:order_id/transition", orderController.TransitionOrder)
		admin.DELETE("/orders/:order_id", orderController.DeleteOrder)
		admin.POST("/orders/:order_id/place-orders", orderController.CreatePlaceOrder)
		admin.GET("/orders/:order_id/place-orders", orderController.GetPlaceOrders)
		admin.PATCH("/place-orders/:line_id", orderController.UpdatePlaceOrder)
		admin.POST("/place-orders/:line_id/transition", orderController.TransitionPlaceOrder)
		admin.DELETE("/place-orders/:line_id", orderController.DeletePlaceOrder)
		admin.POST("/orders/:order_id/delivery-orders", orderController.CreateDeliveryOrder)
		admin.GET("/orders/:order_id/delivery-orders", orderController.GetDeliveryOrders)
		admin.PATCH("/delivery-orders/:line_id", orderController.UpdateDeliveryOrder)
		admin.POST("/delivery-orders/:line_id/transition", orderController.TransitionDeliveryOrder)
		admin.DELETE("/delivery-orders/:line_id", orderController.DeleteDeliveryOrder)

		users := admin.Group("/users", middlewares.AdminOnly())
		{
			users.POST("", userController.CreateUser)
			users.GET("", userController.GetAllUsers)
			users.GET("/:user_id", userController.GetUserByID)
			users.PATCH("/:user_id", userController.UpdateUser)
			users.DELETE("/:user_id", userController.DeleteUser)
			users.POST("/:user_id/roles", userController.AssignRole)
			users.DELETE("/:user_id/roles/:role_id", userController.RevokeRole)
		}

		roles := admin.Group("/roles", middlewares.AdminOnly())
		{
			roles.POST("", roleController.CreateRole)
			roles.GET("", roleController.GetAllRoles)
			roles.GET("/:role_id", roleController.GetRoleByID)
			roles.PATCH("/:role_id", roleController.UpdateRole)
			roles.DELETE("/:role_id", roleController.DeleteRole)
		}
	}

	return r
}
