package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/imanderrrrr/sistema-pos-venta-postgres/internal/handler"
	"github.com/imanderrrrr/sistema-pos-venta-postgres/internal/middleware"
	"github.com/imanderrrrr/sistema-pos-venta-postgres/internal/model"
	"github.com/imanderrrrr/sistema-pos-venta-postgres/internal/repository"
	"github.com/imanderrrrr/sistema-pos-venta-postgres/internal/service"
	"github.com/imanderrrrr/sistema-pos-venta-postgres/internal/ws"
	"github.com/imanderrrrr/sistema-pos-venta-postgres/pkg/database"
	"github.com/imanderrrrr/sistema-pos-venta-postgres/pkg/jwt"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"
	"gorm.io/gorm"
)

func main() {
	// 1. Load Env
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found")
	}

	// 2. Setup Database
	db := database.ConnectDB()
	if err := db.AutoMigrate(
		&model.User{},
		&model.Product{},
		&model.SizeVariant{},
		&model.CashRegister{},
		&model.CashMovement{},
	); err != nil {
		log.Fatal("Migration failed: ", err)
	}

	// 3. Seed default admin user
	seedAdmin(db)

	// 4. Setup WebSocket Hub
	wsHub := ws.NewHub()
	go wsHub.Run()

	// 5. Dependency Injection (Wiring Layers)
	// The signing key is injected explicitly; nothing reads it ambiently later.
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		if os.Getenv("APP_ENV") != "development" {
			log.Fatal("JWT_SECRET must be set")
		}
		secret = "dev-only-secret"
		log.Println("Warning: JWT_SECRET not set, using development default")
	}
	tokens := jwt.NewManager(secret, "sistema-pos-venta", 24*time.Hour)
	stockPolicy := model.ParseStockPolicy(os.Getenv("STOCK_POLICY"))

	productRepo := repository.NewProductRepo(db)
	registerRepo := repository.NewRegisterRepo(db)
	userRepo := repository.NewUserRepo(db)

	productService := service.NewProductService(productRepo, wsHub, stockPolicy)
	registerService := service.NewRegisterService(registerRepo, wsHub)
	authService := service.NewAuthService(userRepo, tokens)

	productHandler := handler.NewProductHandler(productService)
	registerHandler := handler.NewRegisterHandler(registerService)
	authHandler := handler.NewAuthHandler(authService)

	// 6. Setup Fiber
	app := fiber.New(fiber.Config{
		AppName: "Sistema POS Venta v1.0",
	})

	app.Use(logger.New())  // Logging request
	app.Use(recover.New()) // Panic recovery
	app.Use(cors.New())    // CORS

	// 7. Routes
	api := app.Group("/api/v1")

	// ============ PUBLIC ROUTES ============
	auth := api.Group("/auth")
	auth.Post("/login", authHandler.Login)

	// ============ PROTECTED ROUTES ============
	protected := api.Group("", middleware.RequireAuth(tokens, userRepo))

	// Product Routes (writes are admin-only, stock deltas are cashier work)
	protected.Get("/products", productHandler.GetProducts)
	protected.Get("/products/:id", productHandler.GetProduct)
	protected.Post("/products", middleware.RequireRole(model.RoleAdmin), productHandler.CreateProduct)
	protected.Put("/products/:id", middleware.RequireRole(model.RoleAdmin), productHandler.UpdateProduct)
	protected.Patch("/products/:id/stock", productHandler.AdjustStock)
	protected.Patch("/products/:id/stock/size", productHandler.AdjustStockBySize)

	// Cash Register Routes
	registers := protected.Group("/registers")
	registers.Post("/open", registerHandler.OpenRegister)
	registers.Post("/close", registerHandler.CloseRegister)
	registers.Post("/movements", registerHandler.AddMovement)
	registers.Get("/movements", registerHandler.GetMovements)
	registers.Get("/expected", registerHandler.GetExpectedBalance)
	registers.Get("/history", middleware.RequireRole(model.RoleAdmin), registerHandler.GetHistory)

	// WebSocket Route
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return c.SendStatus(fiber.StatusUpgradeRequired)
	})
	app.Get("/ws", websocket.New(func(c *websocket.Conn) {
		wsHub.Register <- c
		defer func() { wsHub.Unregister <- c }()

		for {
			// Keep alive loop
			if _, _, err := c.ReadMessage(); err != nil {
				break
			}
		}
	}))

	// 8. Graceful Shutdown
	go func() {
		port := os.Getenv("PORT")
		if port == "" {
			port = "3000"
		}
		if err := app.Listen(":" + port); err != nil {
			log.Panic(err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")
	if err := app.Shutdown(); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Println("Server exited")
}

// seedAdmin creates the default admin user if it doesn't exist
func seedAdmin(db *gorm.DB) {
	userRepo := repository.NewUserRepo(db)

	email := os.Getenv("ADMIN_EMAIL")
	if email == "" {
		email = "admin@example.com"
	}

	if _, err := userRepo.FindByEmail(email); err == nil {
		return
	}

	password := os.Getenv("ADMIN_PASSWORD")
	if password == "" {
		password = "admin123"
	}

	admin := &model.User{
		Email:    email,
		FullName: "Administrator",
		Role:     model.RoleAdmin,
		IsActive: true,
	}
	if err := admin.SetPassword(password); err != nil {
		log.Printf("Warning: Failed to hash admin password: %v", err)
		return
	}
	if err := userRepo.Create(admin); err != nil {
		log.Printf("Warning: Failed to create admin user: %v", err)
		return
	}
	log.Printf("Admin user created: %s (ADMIN)", email)
}
