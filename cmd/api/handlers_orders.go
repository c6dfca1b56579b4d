package main

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/talkingpet/backend/internal/auth"
	"github.com/talkingpet/backend/internal/booking"
	"github.com/talkingpet/backend/internal/checkout"
	"github.com/talkingpet/backend/internal/order"
)

// createOrderHandler godoc
// @Summary Create an order from an explicit item list
// @Description Products and courses are re-priced server-side; the whole
// @Description order is one transaction including stock, appointments,
// @Description enrollments and wallet settlement.
// @Tags orders
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body checkout.OrderRequest true "items and payment method"
// @Success 201 {object} checkout.Result
// @Failure 400 {object} map[string]string
// @Router /orders [post]
func createOrderHandler(svc *checkout.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req checkout.OrderRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			fail(c, http.StatusBadRequest, "invalid payload: "+err.Error())
			return
		}
		res, err := svc.CreateOrder(c.Request.Context(), auth.UserID(c), req)
		if err != nil {
			checkoutError(c, err)
			return
		}
		c.JSON(http.StatusCreated, res)
	}
}

type cartCheckoutRequest struct {
	PaymentMethod   string `json:"paymentMethod"`
	ShippingAddress string `json:"shippingAddress"`
}

// checkoutCartHandler godoc
// @Summary Create an order from the persisted cart
// @Tags orders
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body cartCheckoutRequest true "payment method"
// @Success 201 {object} checkout.Result
// @Router /cart/checkout [post]
// @Router /orders/checkout [post]
func checkoutCartHandler(svc *checkout.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req cartCheckoutRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			fail(c, http.StatusBadRequest, "invalid payload")
			return
		}
		res, err := svc.CheckoutFromCart(c.Request.Context(), auth.UserID(c), req.ShippingAddress, req.PaymentMethod)
		if err != nil {
			checkoutError(c, err)
			return
		}
		c.JSON(http.StatusCreated, res)
	}
}

// getOrderHandler godoc
// @Summary Get an order with its line snapshots
// @Tags orders
// @Produce json
// @Security BearerAuth
// @Param id path string true "order id"
// @Success 200 {object} map[string]any
// @Failure 404 {object} map[string]string
// @Router /orders/{id} [get]
func getOrderHandler(repo order.Repository) gin.HandlerFunc {
	return func(c *gin.Context) {
		o, items, err := repo.GetByID(c.Request.Context(), c.Param("id"))
		if err != nil {
			if errors.Is(err, order.ErrNotFound) {
				fail(c, http.StatusNotFound, "order not found")
				return
			}
			fail(c, http.StatusInternalServerError, "internal error")
			return
		}
		// Owners and admins only.
		if o.UserID != auth.UserID(c) && auth.Role(c) != auth.RoleAdmin {
			fail(c, http.StatusForbidden, "not your order")
			return
		}
		c.JSON(http.StatusOK, gin.H{"order": o, "items": items})
	}
}

// listMyOrdersHandler godoc
// @Summary List the caller's orders
// @Tags orders
// @Produce json
// @Security BearerAuth
// @Param limit query int false "page size" default(20)
// @Param offset query int false "offset" default(0)
// @Success 200 {array} order.Order
// @Router /orders [get]
// @Router /orders/mine [get]
func listMyOrdersHandler(repo order.Repository) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
		offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
		items, err := repo.ListByUser(c.Request.Context(), auth.UserID(c), limit, offset)
		if err != nil {
			fail(c, http.StatusInternalServerError, "internal error")
			return
		}
		c.JSON(http.StatusOK, items)
	}
}

// The first-generation client API addressed orders with flat paths:
// /orders/mine, /orders/checkout and /orders/admin/summary. Gin rejects a
// static segment mounted next to a path parameter, so those paths share the
// /orders/:id slot and dispatch here.

func getOrderOrMineHandler(repo order.Repository) gin.HandlerFunc {
	mine := listMyOrdersHandler(repo)
	one := getOrderHandler(repo)
	return func(c *gin.Context) {
		if c.Param("id") == "mine" {
			mine(c)
			return
		}
		one(c)
	}
}

func checkoutPathHandler(svc *checkout.Service) gin.HandlerFunc {
	fromCart := checkoutCartHandler(svc)
	return func(c *gin.Context) {
		if c.Param("id") != "checkout" {
			fail(c, http.StatusNotFound, "not found")
			return
		}
		fromCart(c)
	}
}

// adminSummaryPathHandler sits inside the customer group, so it re-checks
// the admin role itself.
func adminSummaryPathHandler(orders order.Repository, bookings booking.Repository) gin.HandlerFunc {
	summary := adminSummaryHandler(orders, bookings)
	return func(c *gin.Context) {
		if c.Param("id") != "admin" {
			fail(c, http.StatusNotFound, "not found")
			return
		}
		if auth.Role(c) != auth.RoleAdmin {
			fail(c, http.StatusForbidden, "forbidden")
			return
		}
		summary(c)
	}
}

// adminSummaryHandler godoc
// @Summary Dashboard KPIs for orders and appointments (admin)
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]any
// @Router /admin/summary [get]
// @Router /orders/admin/summary [get]
func adminSummaryHandler(orders order.Repository, bookings booking.Repository) gin.HandlerFunc {
	return func(c *gin.Context) {
		os, err := orders.AdminSummary(c.Request.Context())
		if err != nil {
			fail(c, http.StatusInternalServerError, "internal error")
			return
		}
		bs, err := bookings.AdminSummary(c.Request.Context())
		if err != nil {
			fail(c, http.StatusInternalServerError, "internal error")
			return
		}
		c.JSON(http.StatusOK, gin.H{"orders": os, "appointments": bs})
	}
}
