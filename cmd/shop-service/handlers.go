package main

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/martynasv/shopcore/internal/catalog"
	"github.com/martynasv/shopcore/internal/metrics"
	"github.com/martynasv/shopcore/internal/order"
	"github.com/martynasv/shopcore/internal/payment"
)

// createOrderHandler godoc
// @Summary      Create an order
// @Tags         orders
// @Accept       json
// @Produce      json
// @Param        payload body order.CreateOrderRequest true "order"
// @Success      201 {object} order.Order
// @Failure      400 {object} map[string]string
// @Router       /orders [post]
func createOrderHandler(svc *order.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req order.CreateOrderRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
			return
		}
		o, err := svc.Create(c.Request.Context(), req)
		if err != nil {
			if errors.Is(err, order.ErrInvalid) {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not create order"})
			return
		}
		c.JSON(http.StatusCreated, o)
	}
}

// getOrderHandler godoc
// @Summary      Get an order
// @Tags         orders
// @Produce      json
// @Param        id path string true "order id"
// @Success      200 {object} order.Order
// @Failure      404 {object} map[string]string
// @Router       /orders/{id} [get]
func getOrderHandler(repo order.Repository) gin.HandlerFunc {
	return func(c *gin.Context) {
		o, err := repo.GetByID(c.Request.Context(), c.Param("id"))
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}
		c.JSON(http.StatusOK, o)
	}
}

// listOrdersHandler godoc
// @Summary      List orders (admin)
// @Tags         orders
// @Produce      json
// @Success      200 {array} order.Order
// @Router       /orders [get]
func listOrdersHandler(repo order.Repository) gin.HandlerFunc {
	return func(c *gin.Context) {
		out, err := repo.List(c.Request.Context(), intQuery(c, "limit"), intQuery(c, "offset"))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not list orders"})
			return
		}
		c.JSON(http.StatusOK, out)
	}
}

// updateOrderStatusHandler godoc
// @Summary      Override order status (admin)
// @Tags         orders
// @Accept       json
// @Produce      json
// @Param        id path string true "order id"
// @Param        payload body order.UpdateStatusRequest true "status"
// @Success      200 {object} order.Order
// @Failure      400 {object} map[string]string
// @Failure      404 {object} map[string]string
// @Router       /orders/{id} [patch]
func updateOrderStatusHandler(svc *order.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req order.UpdateStatusRequest
		if err := c.ShouldBindJSON(&req); err != nil || req.Status == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "status is required"})
			return
		}
		o, err := svc.UpdateStatus(c.Request.Context(), c.Param("id"), req.Status)
		if err != nil {
			switch {
			case errors.Is(err, order.ErrNotFound):
				c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			case errors.Is(err, order.ErrInvalid), errors.Is(err, order.ErrBadTransition):
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			default:
				c.JSON(http.StatusInternalServerError, gin.H{"error": "could not update order"})
			}
			return
		}
		c.JSON(http.StatusOK, o)
	}
}

type startPaymentRequest struct {
	OrderID     string `json:"orderId" binding:"required"`
	AmountCents int64  `json:"amountCents" binding:"required,gt=0"`
	Currency    string `json:"currency" binding:"required"`
	SuccessURL  string `json:"successUrl"`
	CancelURL   string `json:"cancelUrl"`
}

// startPaymentHandler godoc
// @Summary      Open a mock payment session
// @Tags         payments
// @Accept       json
// @Produce      json
// @Param        payload body startPaymentRequest true "session"
// @Success      200 {object} map[string]string
// @Failure      400 {object} map[string]string
// @Failure      404 {object} map[string]string
// @Router       /payments/mock/start [post]
func startPaymentHandler(mgr *payment.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req startPaymentRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "orderId, positive amountCents and currency are required"})
			return
		}
		s, url, err := mgr.Open(c.Request.Context(), payment.OpenParams{
			OrderID:     req.OrderID,
			AmountCents: req.AmountCents,
			Currency:    req.Currency,
			SuccessURL:  req.SuccessURL,
			CancelURL:   req.CancelURL,
		})
		if err != nil {
			switch {
			case errors.Is(err, order.ErrNotFound):
				c.JSON(http.StatusNotFound, gin.H{"error": "order not found"})
			case errors.Is(err, payment.ErrAmountMismatch):
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			default:
				c.JSON(http.StatusInternalServerError, gin.H{"error": "could not open session"})
			}
			return
		}
		c.JSON(http.StatusOK, gin.H{"url": url, "sessionId": s.ID})
	}
}

// getSessionHandler godoc
// @Summary      Public payment session projection
// @Tags         payments
// @Produce      json
// @Param        id path string true "session id"
// @Success      200 {object} map[string]any
// @Failure      404 {object} map[string]string
// @Router       /payments/mock/session/{id} [get]
func getSessionHandler(mgr *payment.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		s, err := mgr.Fetch(c.Request.Context(), c.Param("id"))
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"sessionId":   s.ID,
			"amountCents": s.AmountCents,
			"currency":    s.Currency,
			"orderId":     s.OrderID,
			"status":      s.Status,
			"expiresAt":   s.ExpiresAt,
			"merchant":    mgr.Merchant(),
		})
	}
}

type decideRequest struct {
	SessionID string `json:"sessionId" binding:"required"`
	Result    string `json:"result" binding:"required"`
}

// decidePaymentHandler godoc
// @Summary      Resolve a mock payment session
// @Tags         payments
// @Accept       json
// @Produce      json
// @Param        payload body decideRequest true "decision"
// @Success      200 {object} map[string]string
// @Failure      400 {object} map[string]string
// @Failure      404 {object} map[string]string
// @Failure      409 {object} map[string]string
// @Router       /payments/mock/decide [post]
func decidePaymentHandler(res *payment.Resolver, m *metrics.ServerMetrics) gin.HandlerFunc {
	outcome := func(v string) {
		if m != nil {
			m.Decisions.WithLabelValues(v).Inc()
		}
	}
	return func(c *gin.Context) {
		var req decideRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "sessionId and result are required"})
			return
		}
		d, err := res.Decide(c.Request.Context(), req.SessionID, req.Result)
		if err != nil {
			var stockErr *payment.InsufficientStockError
			switch {
			case errors.As(err, &stockErr):
				outcome("insufficient_stock")
				c.JSON(http.StatusConflict, gin.H{
					"error":           stockErr.Error(),
					"manufacturingId": stockErr.ManufacturingID,
				})
			case errors.Is(err, payment.ErrSessionExpired):
				outcome("expired")
				c.JSON(http.StatusBadRequest, gin.H{"error": "session expired"})
			case errors.Is(err, payment.ErrSessionNotFound), errors.Is(err, order.ErrNotFound):
				outcome("not_found")
				c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			default:
				outcome("error")
				c.JSON(http.StatusInternalServerError, gin.H{"error": "could not resolve session"})
			}
			return
		}
		switch req.Result {
		case payment.ResultSuccess, payment.ResultCancel:
			outcome(req.Result)
		default:
			outcome("failed")
		}
		c.JSON(http.StatusOK, gin.H{"redirectUrl": d.RedirectURL})
	}
}

// createItemHandler godoc
// @Summary      Create a catalog item (admin)
// @Tags         catalog
// @Accept       json
// @Produce      json
// @Param        payload body catalog.CreateItemRequest true "item"
// @Success      201 {object} catalog.Item
// @Failure      400 {object} map[string]string
// @Router       /items [post]
func createItemHandler(repo catalog.Repository) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req catalog.CreateItemRequest
		if err := c.ShouldBindJSON(&req); err != nil || req.Name == "" || req.ManufacturingID == "" || req.Price == "" || req.Stock < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "name, manufacturing_id, price and non-negative stock are required"})
			return
		}
		it := &catalog.Item{
			ID:              uuid.NewString(),
			Name:            req.Name,
			ManufacturingID: req.ManufacturingID,
			Description:     req.Description,
			Price:           req.Price,
			Stock:           req.Stock,
		}
		if err := repo.Create(c.Request.Context(), it); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusCreated, it)
	}
}

// listItemsHandler godoc
// @Summary      List catalog items
// @Tags         catalog
// @Produce      json
// @Success      200 {array} catalog.Item
// @Router       /items [get]
func listItemsHandler(repo catalog.Repository) gin.HandlerFunc {
	return func(c *gin.Context) {
		out, err := repo.List(c.Request.Context(), catalog.Query{
			Q:      c.Query("q"),
			Limit:  intQuery(c, "limit"),
			Offset: intQuery(c, "offset"),
		})
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not list items"})
			return
		}
		c.JSON(http.StatusOK, out)
	}
}

func intQuery(c *gin.Context, key string) int {
	n := 0
	for _, r := range c.Query(key) {
		if r < '0' || r > '9' {
			return 0
		}
		n = n*10 + int(r-'0')
		if n > 1000 {
			return 1000
		}
	}
	return n
}
