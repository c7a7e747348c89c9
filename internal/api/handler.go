package api

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"pos-service/internal/apperr"
	"pos-service/internal/models"
	"pos-service/internal/redisclient"
	"pos-service/internal/service"
	"pos-service/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// AdminPasscodeHeader gates catalog mutations.
const AdminPasscodeHeader = "x-admin-passcode"

// Handler contains HTTP handlers
type Handler struct {
	catalog   *service.CatalogService
	ledger    *service.Ledger
	committer *service.SaleCommitter
	reports   *service.ReportService
	admin     *service.AdminService
	redis     *redisclient.Client
	logger    *zap.Logger
}

// NewHandler creates a new HTTP handler. redis may be nil; sale
// idempotency is then disabled.
func NewHandler(
	catalog *service.CatalogService,
	ledger *service.Ledger,
	committer *service.SaleCommitter,
	reports *service.ReportService,
	admin *service.AdminService,
	redis *redisclient.Client,
) *Handler {
	return &Handler{
		catalog:   catalog,
		ledger:    ledger,
		committer: committer,
		reports:   reports,
		admin:     admin,
		redis:     redis,
		logger:    util.GetLogger(),
	}
}

// SetupRoutes sets up HTTP routes
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.Use(gin.Recovery())
	router.Use(prometheusMiddleware())
	router.Use(gin.Logger())

	router.GET("/health", h.healthCheck)
	router.GET("/ready", h.readinessCheck)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api")
	{
		products := api.Group("/products")
		{
			products.GET("", h.listProducts)
			products.GET("/:code", h.getProduct)
			products.PUT("/increase/:code", h.increaseStock)
			products.PUT("/reduce/:code", h.reduceStock)
			products.POST("/add", h.adminRequired(), h.addProduct)
			products.DELETE("/delete/:code", h.adminRequired(), h.deleteProduct)
		}

		api.POST("/sales", h.createSale)
		api.GET("/sales/:id", h.getSale)

		reports := api.Group("/reports")
		{
			reports.GET("/daily", h.dailySummary)
			reports.GET("/daily/pdf", h.reportPDF(service.WindowDaily))
			reports.GET("/weekly/pdf", h.reportPDF(service.WindowWeekly))
			reports.GET("/monthly/pdf", h.reportPDF(service.WindowMonthly))
		}

		admin := api.Group("/admin")
		{
			admin.POST("/login", h.adminLogin)
			admin.PUT("/change", h.adminChange)
		}
	}
}

func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

func (h *Handler) readinessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"time":   time.Now().Unix(),
	})
}

// adminRequired verifies the passcode header against the admin store
func (h *Handler) adminRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		passcode := c.GetHeader(AdminPasscodeHeader)
		if passcode == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": fmt.Sprintf("Admin passcode required (header: %s)", AdminPasscodeHeader),
			})
			return
		}

		if err := h.admin.Verify(c.Request.Context(), passcode); err != nil {
			if apperr.IsNotFound(err) || apperr.IsValidation(err) {
				c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
					"error": "Invalid admin passcode",
				})
				return
			}
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"error": "Server error",
			})
			return
		}

		c.Next()
	}
}

// addProduct handles multipart product creation with optional image
func (h *Handler) addProduct(c *gin.Context) {
	price, err := strconv.ParseFloat(c.PostForm("price"), 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid price"})
		return
	}
	stock, err := strconv.Atoi(c.PostForm("stock"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid stock"})
		return
	}

	product := &models.Product{
		Code:  c.PostForm("code"),
		Name:  c.PostForm("name"),
		Price: price,
		Stock: stock,
	}

	fileHeader, err := c.FormFile("image")
	if err == nil && fileHeader != nil {
		file, openErr := fileHeader.Open()
		if openErr != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid image upload"})
			return
		}
		defer file.Close()

		if err := h.catalog.AddProduct(c.Request.Context(), product, file, fileHeader.Filename); err != nil {
			errorResponse(c, err)
			return
		}
	} else {
		if err := h.catalog.AddProduct(c.Request.Context(), product, nil, ""); err != nil {
			errorResponse(c, err)
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Product added successfully",
		"product": product,
	})
}

func (h *Handler) listProducts(c *gin.Context) {
	products, err := h.catalog.ListProducts(c.Request.Context())
	if err != nil {
		errorResponse(c, err)
		return
	}
	c.JSON(http.StatusOK, products)
}

func (h *Handler) getProduct(c *gin.Context) {
	product, err := h.catalog.GetProduct(c.Request.Context(), c.Param("code"))
	if err != nil {
		errorResponse(c, err)
		return
	}

	status := models.ProductStatusAvailable
	if product.Stock == 0 {
		status = models.ProductStatusOutOfStock
	}

	c.JSON(http.StatusOK, gin.H{
		"code":       product.Code,
		"name":       product.Name,
		"price":      product.Price,
		"stock":      product.Stock,
		"image":      product.Image,
		"created_at": product.CreatedAt,
		"updated_at": product.UpdatedAt,
		"status":     status,
	})
}

func (h *Handler) deleteProduct(c *gin.Context) {
	if err := h.catalog.DeleteProduct(c.Request.Context(), c.Param("code")); err != nil {
		errorResponse(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Product and image deleted",
	})
}

type stockRequest struct {
	Qty int `json:"qty"`
}

func (h *Handler) increaseStock(c *gin.Context) {
	h.adjustStock(c, 1)
}

func (h *Handler) reduceStock(c *gin.Context) {
	h.adjustStock(c, -1)
}

func (h *Handler) adjustStock(c *gin.Context, sign int) {
	var req stockRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Qty <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid quantity"})
		return
	}

	product, err := h.ledger.AdjustStock(c.Request.Context(), c.Param("code"), sign*req.Qty)
	if err != nil {
		errorResponse(c, err)
		return
	}

	message := "Stock increased"
	if sign < 0 {
		message = "Stock reduced"
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": message,
		"product": product,
	})
}

// createSale commits a multi-item sale through the saga. An optional
// Idempotency-Key header makes retries return the originally committed
// sale instead of double-selling.
func (h *Handler) createSale(c *gin.Context) {
	var req service.CommitSaleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	idemKey := c.GetHeader("Idempotency-Key")
	if idemKey != "" && h.redis != nil {
		if saleID, ok, err := h.redis.GetSaleIdempotency(c.Request.Context(), idemKey); err == nil && ok {
			sale, err := h.committer.GetSale(c.Request.Context(), saleID)
			if err == nil {
				h.logger.Info("Duplicate sale request", zap.String("sale_id", saleID))
				c.JSON(http.StatusOK, gin.H{"success": true, "sale": sale})
				return
			}
		}
	}

	sale, err := h.committer.CommitSale(c.Request.Context(), &req)
	if err != nil {
		errorResponse(c, err)
		return
	}

	if idemKey != "" && h.redis != nil {
		if err := h.redis.SetSaleIdempotency(c.Request.Context(), idemKey, sale.ID, 24*time.Hour); err != nil {
			h.logger.Warn("Failed to store idempotency key", zap.Error(err))
		}
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "sale": sale})
}

func (h *Handler) getSale(c *gin.Context) {
	sale, err := h.committer.GetSale(c.Request.Context(), c.Param("id"))
	if err != nil {
		errorResponse(c, err)
		return
	}
	c.JSON(http.StatusOK, sale)
}

func (h *Handler) dailySummary(c *gin.Context) {
	summary, err := h.reports.DailySummary(c.Request.Context())
	if err != nil {
		errorResponse(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

// reportPDF renders to a buffer first so store failures still produce a
// JSON error instead of a truncated download.
func (h *Handler) reportPDF(window string) gin.HandlerFunc {
	return func(c *gin.Context) {
		var buf bytes.Buffer
		if err := h.reports.RenderReport(c.Request.Context(), window, &buf); err != nil {
			errorResponse(c, err)
			return
		}

		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s-report.pdf", window))
		c.Data(http.StatusOK, "application/pdf", buf.Bytes())
	}
}

type loginRequest struct {
	Passcode string `json:"passcode"`
}

func (h *Handler) adminLogin(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	if err := h.admin.Verify(c.Request.Context(), req.Passcode); err != nil {
		if apperr.IsNotFound(err) || apperr.IsValidation(err) {
			c.JSON(http.StatusUnauthorized, gin.H{"msg": "Wrong passcode"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"msg": "Server error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

type changePasscodeRequest struct {
	OldPass string `json:"oldPass"`
	NewPass string `json:"newPass"`
}

func (h *Handler) adminChange(c *gin.Context) {
	var req changePasscodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	if err := h.admin.ChangePasscode(c.Request.Context(), req.OldPass, req.NewPass); err != nil {
		switch {
		case apperr.IsValidation(err):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case apperr.IsNotFound(err):
			c.JSON(http.StatusUnauthorized, gin.H{"msg": "Wrong passcode"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"msg": "Server error"})
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// errorResponse maps the error taxonomy to HTTP statuses: validation
// and stock conflicts are client errors, unknown keys are 404, the rest
// are store failures.
func errorResponse(c *gin.Context, err error) {
	switch {
	case apperr.IsValidation(err), apperr.IsConflict(err):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case apperr.IsNotFound(err):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

// prometheusMiddleware collects HTTP metrics
func prometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())

		util.HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Observe(duration)

		util.HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Inc()
	}
}
