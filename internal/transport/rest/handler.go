// Package rest реализует HTTP API заказов поверх gin.
package rest

import (
	"context"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/orderapi/internal/domain"
	"github.com/vladislavdragonenkov/orderapi/internal/service/orders"
)

const (
	// APIPrefix задаёт общий префикс всех маршрутов API.
	APIPrefix = "/api/v1"

	// HeaderOrderID позволяет клиенту задать ID создаваемого заказа.
	HeaderOrderID = "X-Order-ID"
)

// OrderService описывает сценарии, которые обслуживает HTTP-слой.
type OrderService interface {
	ListActive(ctx context.Context) ([]domain.Order, error)
	Create(ctx context.Context, in orders.CreateInput) (domain.Order, error)
	Update(ctx context.Context, id string, payload []byte) error
	Delete(ctx context.Context, id string) error
	ListProducts(ctx context.Context) ([]domain.Product, error)
}

type orderView struct {
	OrderID string `json:"order_id"`
	Status  string `json:"status"`
	Payload string `json:"payload"`
}

type listOrdersResponse struct {
	Orders []orderView `json:"orders"`
}

type createOrderResponse struct {
	OrderID string `json:"order_id"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// Тело ответа не раскрывает причину ошибки: детали уходят только в лог.
var internalError = errorResponse{Error: "internal server error"}

// Handler переводит HTTP-запросы в вызовы OrderService.
type Handler struct {
	svc    OrderService
	logger *log.Entry
}

// NewHandler создаёт обработчик.
func NewHandler(svc OrderService, logger *log.Entry) *Handler {
	if logger == nil {
		logger = log.New().WithField("component", "rest")
	}
	return &Handler{svc: svc, logger: logger}
}

// Register вешает маршруты на группу.
func (h *Handler) Register(rg *gin.RouterGroup) {
	rg.GET("/orders", h.listOrders)
	rg.POST("/orders", h.createOrder)
	rg.PUT("/orders/:id", h.updateOrder)
	rg.DELETE("/orders/:id", h.deleteOrder)
	rg.GET("/products", h.listProducts)
}

func (h *Handler) listOrders(c *gin.Context) {
	list, err := h.svc.ListActive(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, internalError)
		return
	}

	resp := listOrdersResponse{Orders: make([]orderView, 0, len(list))}
	for _, order := range list {
		resp.Orders = append(resp.Orders, orderView{
			OrderID: order.ID,
			Status:  string(order.Status),
			Payload: string(order.Payload),
		})
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) createOrder(c *gin.Context) {
	payload, err := c.GetRawData()
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, internalError)
		return
	}

	order, err := h.svc.Create(c.Request.Context(), orders.CreateInput{
		OrderID: c.GetHeader(HeaderOrderID),
		Payload: payload,
	})
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, internalError)
		return
	}

	c.Header("Location", APIPrefix+"/orders/"+url.PathEscape(order.ID))
	c.JSON(http.StatusCreated, createOrderResponse{OrderID: order.ID})
}

// updateOrder и deleteOrder не различают существующий и отсутствующий заказ.
func (h *Handler) updateOrder(c *gin.Context) {
	payload, err := c.GetRawData()
	if err != nil {
		_ = c.AbortWithError(http.StatusInternalServerError, err)
		return
	}

	if err := h.svc.Update(c.Request.Context(), c.Param("id"), payload); err != nil {
		_ = c.AbortWithError(http.StatusInternalServerError, err)
		return
	}
	c.Status(http.StatusOK)
}

func (h *Handler) deleteOrder(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), c.Param("id")); err != nil {
		_ = c.AbortWithError(http.StatusInternalServerError, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) listProducts(c *gin.Context) {
	if _, err := h.svc.ListProducts(c.Request.Context()); err != nil {
		_ = c.AbortWithError(http.StatusInternalServerError, err)
		return
	}
	c.Status(http.StatusOK)
}
