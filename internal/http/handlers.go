package httpapi

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"arabica/internal/domain"
	"arabica/internal/repository"
	"arabica/internal/service"
	"arabica/internal/ws"
)

// Server HTTP-поверхность: read-эндпоинты для переподключившихся сессий,
// менеджерские CRUD и websocket-канал событий
type Server struct {
	engine    *gin.Engine
	coord     *service.Coordinator
	catalog   *service.CatalogService
	discounts *service.DiscountService
	staff     *service.StaffService
	reports   *service.ReportService
	events    *ws.Handler
}

func NewServer(
	coord *service.Coordinator,
	catalog *service.CatalogService,
	discounts *service.DiscountService,
	staff *service.StaffService,
	reports *service.ReportService,
	events *ws.Handler,
) *Server {
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())
	s := &Server{
		engine:    r,
		coord:     coord,
		catalog:   catalog,
		discounts: discounts,
		staff:     staff,
		reports:   reports,
		events:    events,
	}
	s.registerRoutes()
	return s
}

func (s *Server) Engine() *gin.Engine { return s.engine }

func (s *Server) registerRoutes() {
	// Swagger UI
	s.engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// канал событий
	s.engine.GET("/ws", s.events.Serve)

	v1 := s.engine.Group("/api/v1")
	{
		v1.GET("/menu", s.menu)

		orders := v1.Group("/orders")
		orders.GET("/open", s.openOrders)
		orders.GET(":id", s.getOrder)

		products := v1.Group("/products")
		products.POST("", s.createProduct)
		products.GET(":id", s.getProduct)
		products.PUT(":id", s.updateProduct)
		products.DELETE(":id", s.deleteProduct)
		products.GET("", s.listProducts)

		discounts := v1.Group("/discounts")
		discounts.POST("", s.createDiscount)
		discounts.GET("", s.listDiscounts)

		staff := v1.Group("/staff")
		staff.POST("", s.createStaff)
		staff.GET("", s.listStaff)
		staff.PUT(":id", s.updateStaff)
		staff.DELETE(":id", s.deleteStaff)

		reports := v1.Group("/reports")
		reports.GET("/revenue", s.revenue)
		reports.GET("/summary", s.revenueSummary)
	}
}

// @Summary Active in-stock menu
// @Tags menu
// @Produce json
// @Success 200 {array} domain.Product
// @Router /menu [get]
func (s *Server) menu(c *gin.Context) {
	list, err := s.catalog.Menu(c)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, list)
}

// @Summary Open (not completed) orders
// @Tags orders
// @Produce json
// @Success 200 {array} domain.Order
// @Router /orders/open [get]
func (s *Server) openOrders(c *gin.Context) {
	list, err := s.coord.OpenOrders(c)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, list)
}

// @Summary Get order by id
// @Tags orders
// @Produce json
// @Param id path int true "Order ID"
// @Success 200 {object} domain.Order
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /orders/{id} [get]
func (s *Server) getOrder(c *gin.Context) {
	id, err := parseID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	o, err := s.coord.GetOrder(c, id)
	if err != nil {
		c.JSON(mapErrorToStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, o)
}

// Product handlers
type productReq struct {
	Name     string  `json:"name"`
	Price    float64 `json:"price"`
	Category string  `json:"category"`
	Image    string  `json:"image"`
	IsActive bool    `json:"is_active"`
	Stock    int64   `json:"stock"`
}

// @Summary Create product
// @Tags products
// @Accept json
// @Produce json
// @Param input body productReq true "Product"
// @Success 201 {object} domain.Product
// @Failure 400 {object} map[string]string
// @Router /products [post]
func (s *Server) createProduct(c *gin.Context) {
	var req productReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	p, err := s.catalog.Create(c, domain.Product{
		Name:     req.Name,
		Price:    req.Price,
		Category: req.Category,
		Image:    req.Image,
		IsActive: req.IsActive,
	}, req.Stock)
	if err != nil {
		c.JSON(mapErrorToStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, p)
}

// @Summary Get product by id
// @Tags products
// @Produce json
// @Param id path int true "Product ID"
// @Success 200 {object} domain.Product
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /products/{id} [get]
func (s *Server) getProduct(c *gin.Context) {
	id, err := parseID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	p, err := s.catalog.GetByID(c, id)
	if err != nil {
		c.JSON(mapErrorToStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, p)
}

// @Summary Update product and stock
// @Tags products
// @Accept json
// @Produce json
// @Param id path int true "Product ID"
// @Param input body productReq true "Update"
// @Success 200 {object} domain.Product
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /products/{id} [put]
func (s *Server) updateProduct(c *gin.Context) {
	id, err := parseID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	var req productReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	p, err := s.catalog.Update(c, domain.Product{
		ID:       id,
		Name:     req.Name,
		Price:    req.Price,
		Category: req.Category,
		Image:    req.Image,
		IsActive: req.IsActive,
	}, req.Stock)
	if err != nil {
		c.JSON(mapErrorToStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, p)
}

// @Summary Delete product with its inventory
// @Tags products
// @Param id path int true "Product ID"
// @Success 204
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /products/{id} [delete]
func (s *Server) deleteProduct(c *gin.Context) {
	id, err := parseID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	if err := s.catalog.Delete(c, id); err != nil {
		c.JSON(mapErrorToStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}

// @Summary List products
// @Tags products
// @Produce json
// @Param category query string false "Category"
// @Param active query bool false "Active only"
// @Success 200 {array} domain.Product
// @Router /products [get]
func (s *Server) listProducts(c *gin.Context) {
	f := repository.ProductFilter{Category: c.Query("category")}
	if v := c.Query("active"); v != "" {
		f.ActiveOnly = v == "true" || v == "1"
	}
	list, err := s.catalog.List(c, f)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, list)
}

// Discount handlers
type discountReq struct {
	Code       string  `json:"code"`
	Percentage float64 `json:"percentage"`
}

// @Summary Create discount code
// @Tags discounts
// @Accept json
// @Produce json
// @Param input body discountReq true "Discount"
// @Success 201 {object} domain.DiscountCode
// @Failure 400 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Router /discounts [post]
func (s *Server) createDiscount(c *gin.Context) {
	var req discountReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	d, err := s.discounts.Create(c, req.Code, req.Percentage)
	if err != nil {
		c.JSON(mapErrorToStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, d)
}

// @Summary List discount codes
// @Tags discounts
// @Produce json
// @Success 200 {array} domain.DiscountCode
// @Router /discounts [get]
func (s *Server) listDiscounts(c *gin.Context) {
	list, err := s.discounts.List(c)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, list)
}

// Staff handlers
type staffReq struct {
	Username string `json:"username"`
	FullName string `json:"full_name"`
	Password string `json:"password"`
}

// @Summary Create staff account
// @Tags staff
// @Accept json
// @Produce json
// @Param input body staffReq true "Staff"
// @Success 201 {object} domain.User
// @Failure 400 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Router /staff [post]
func (s *Server) createStaff(c *gin.Context) {
	var req staffReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	u, err := s.staff.Create(c, req.Username, req.FullName, req.Password)
	if err != nil {
		c.JSON(mapErrorToStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, u)
}

// @Summary List staff accounts
// @Tags staff
// @Produce json
// @Success 200 {array} domain.User
// @Router /staff [get]
func (s *Server) listStaff(c *gin.Context) {
	list, err := s.staff.List(c)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, list)
}

// @Summary Update staff account
// @Tags staff
// @Accept json
// @Produce json
// @Param id path int true "User ID"
// @Param input body staffReq true "Update; empty password keeps the old one"
// @Success 200 {object} domain.User
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /staff/{id} [put]
func (s *Server) updateStaff(c *gin.Context) {
	id, err := parseID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	var req staffReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	u, err := s.staff.Update(c, id, req.Username, req.FullName, req.Password)
	if err != nil {
		c.JSON(mapErrorToStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, u)
}

// @Summary Delete staff account
// @Tags staff
// @Param id path int true "User ID"
// @Success 204
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /staff/{id} [delete]
func (s *Server) deleteStaff(c *gin.Context) {
	id, err := parseID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	if err := s.staff.Delete(c, id); err != nil {
		c.JSON(mapErrorToStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}

// @Summary Revenue over an explicit time range
// @Tags reports
// @Produce json
// @Param from query string true "RFC3339 start, inclusive"
// @Param to query string true "RFC3339 end, exclusive"
// @Success 200 {object} map[string]float64
// @Failure 400 {object} map[string]string
// @Router /reports/revenue [get]
func (s *Server) revenue(c *gin.Context) {
	from, err1 := time.Parse(time.RFC3339, c.Query("from"))
	to, err2 := time.Parse(time.RFC3339, c.Query("to"))
	if err1 != nil || err2 != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid time range"})
		return
	}
	total, err := s.reports.Revenue(c, from, to)
	if err != nil {
		c.JSON(mapErrorToStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"revenue": total})
}

// @Summary Revenue for today, this week and this month
// @Tags reports
// @Produce json
// @Success 200 {object} service.RevenueSummary
// @Router /reports/summary [get]
func (s *Server) revenueSummary(c *gin.Context) {
	sum, err := s.reports.Summary(c)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, sum)
}

func parseID(raw string) (int64, error) {
	return strconv.ParseInt(raw, 10, 64)
}

func mapErrorToStatus(err error) int {
	switch {
	case errors.Is(err, service.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, repository.ErrAlreadyExists):
		return http.StatusConflict
	case errors.Is(err, service.ErrInvalidState):
		return http.StatusConflict
	case errors.Is(err, repository.ErrInsufficientStock):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
