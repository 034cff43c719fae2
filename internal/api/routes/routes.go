// server/internal/api/routes/routes.go
package routes

import (
	"time"

	"pizzeria-backoffice-api-server/config"
	"pizzeria-backoffice-api-server/internal/api/handlers"
	"pizzeria-backoffice-api-server/internal/api/middleware"
	"pizzeria-backoffice-api-server/internal/auth"
	"pizzeria-backoffice-api-server/internal/inventory"
	"pizzeria-backoffice-api-server/internal/invoice"
	"pizzeria-backoffice-api-server/internal/models"
	"pizzeria-backoffice-api-server/internal/negotiation"
	"pizzeria-backoffice-api-server/internal/quotation"
	"pizzeria-backoffice-api-server/internal/socket"
	"pizzeria-backoffice-api-server/internal/store"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Dependencies gom các thành phần đã khởi tạo trong main.
type Dependencies struct {
	Config     config.Config
	Logger     *zap.Logger
	Issuer     *auth.TokenIssuer
	Users      store.UserStore
	Suppliers  store.SupplierStore
	Quotations *quotation.Service
	Negotiator *negotiation.Analyzer
	Inventory  *inventory.Service
	Scanner    *invoice.Scanner
	Hub        *socket.Hub
}

// SetupRouter nhận vào các thành phần phụ thuộc và thiết lập các route
func SetupRouter(deps Dependencies) *gin.Engine {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Config.Server.Env != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger(deps.Logger))
	corsConfig := cors.Config{
		AllowOrigins:     deps.Config.Server.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(corsConfig.AllowOrigins) == 0 {
		corsConfig.AllowOrigins = nil
		corsConfig.AllowCredentials = false
		corsConfig.AllowAllOrigins = true
	}
	router.Use(cors.New(corsConfig))

	// Khởi tạo các handlers
	authHandler := &handlers.AuthHandler{Users: deps.Users, Issuer: deps.Issuer}
	supplierHandler := &handlers.SupplierHandler{Suppliers: deps.Suppliers}
	quotationHandler := &handlers.QuotationHandler{Service: deps.Quotations, Suppliers: deps.Suppliers, Negotiator: deps.Negotiator}
	inventoryHandler := &handlers.InventoryHandler{Service: deps.Inventory}
	invoiceHandler := &handlers.InvoiceHandler{Scanner: deps.Scanner}
	webSocketHandler := &handlers.WebSocketHandler{Hub: deps.Hub, Issuer: deps.Issuer, AllowedOrigins: deps.Config.Server.AllowedOrigins}

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/healthz", func(c *gin.Context) { c.JSON(200, gin.H{"status": "ok"}) })

	apiV1 := router.Group("/api/v1")
	{
		// WebSocket tự xác thực qua ?token=
		apiV1.GET("/ws", webSocketHandler.ServeWs)

		// === CÁC ROUTE KHÔNG YÊU CẦU XÁC THỰC ===
		apiV1.POST("/auth/login", authHandler.Login)

		// === CÁC ROUTE YÊU CẦU XÁC THỰC (PROTECTED) ===
		protected := apiV1.Group("/")
		protected.Use(middleware.Authenticate(deps.Issuer))

		suppliers := protected.Group("/suppliers")
		{
			suppliers.GET("", supplierHandler.GetAllSuppliers)
			suppliers.GET("/:id", supplierHandler.GetSupplierByID)
			suppliers.POST("", middleware.Authorize(models.RoleManager), supplierHandler.CreateSupplier)
			suppliers.PUT("/:id", middleware.Authorize(models.RoleManager), supplierHandler.UpdateSupplier)
		}

		quotations := protected.Group("/quotations")
		{
			quotations.POST("", quotationHandler.CreateQuotation)
			quotations.GET("", quotationHandler.GetQuotations)
			quotations.POST("/expire", middleware.Authorize(models.RoleManager), quotationHandler.ExpireStale)
			quotations.GET("/:id", quotationHandler.GetQuotationByID)
			quotations.GET("/:id/audit", quotationHandler.GetAuditTrail)
			quotations.POST("/:id/send", quotationHandler.SendRequest)
			quotations.POST("/:id/awaiting", quotationHandler.MarkAwaiting)
			quotations.POST("/:id/response", quotationHandler.ProcessResponse)
			quotations.POST("/:id/confirm", middleware.Authorize(models.RoleManager), quotationHandler.ConfirmOrder)
			quotations.POST("/:id/ship", quotationHandler.MarkShipped)
			quotations.POST("/:id/receive", quotationHandler.MarkReceived)
			quotations.POST("/:id/cancel", quotationHandler.Cancel)
			quotations.POST("/:id/follow-up", quotationHandler.FollowUp)
			quotations.POST("/:id/status", middleware.Authorize(models.RoleManager), quotationHandler.UpdateStatus)
			quotations.GET("/:id/negotiation", quotationHandler.GetNegotiation)
			quotations.POST("/:id/negotiation/draft", quotationHandler.DraftNegotiation)
		}

		inv := protected.Group("/inventory")
		{
			inv.GET("", inventoryHandler.GetInventory)
			inv.PUT("/categories", inventoryHandler.UpdateCategories)
			inv.PUT("/products/:id", inventoryHandler.UpsertProduct)
			inv.POST("/products/:id/consume", inventoryHandler.Consume)
			inv.POST("/products/:id/receive", inventoryHandler.Receive)
			inv.GET("/low-stock", inventoryHandler.LowStock)
			inv.GET("/export", inventoryHandler.ExportJSON)
			inv.GET("/export.xlsx", inventoryHandler.ExportXLSX)
			inv.POST("/import", middleware.Authorize(models.RoleManager), inventoryHandler.ImportJSON)
		}

		protected.POST("/invoices/scan", invoiceHandler.ScanInvoice)
	}

	return router
}
