package handlers

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/lcu1903/ProjectThoiTrang/internal/logging"
	"github.com/lcu1903/ProjectThoiTrang/internal/mykafka"
	"github.com/lcu1903/ProjectThoiTrang/internal/service/cart"
)

type CartHandler struct {
	Svc      *cart.Service
	Producer *mykafka.Producer
}

func (h *CartHandler) GetCart(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart.get")

	cusID, err := GetCustomerID(c)
	if err != nil {
		l.Warn("get_cart_error", "status", 401, "error", err)
		return c.JSON(http.StatusUnauthorized, "unauthorized")
	}

	res, err := h.Svc.GetCartDetails(ctx, cusID)
	if err != nil {
		l.Error("get_cart_error", "status", 500, "error", err)
		return c.JSON(http.StatusInternalServerError, "internal error")
	}
	if !res.Success {
		return c.JSON(http.StatusNotFound, res)
	}

	return c.JSON(http.StatusOK, res)
}

func (h *CartHandler) AddToCart(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart.add")

	cusID, err := GetCustomerID(c)
	if err != nil {
		l.Warn("add_to_cart_error", "status", 401, "error", err)
		return c.JSON(http.StatusUnauthorized, "unauthorized")
	}

	var req struct {
		ProductID uint `json:"product_id"`
		Quantity  uint `json:"quantity"`
	}
	if err := c.Bind(&req); err != nil {
		l.Warn("add_to_cart_error", "status", 400, "error", err)
		return c.JSON(http.StatusBadRequest, "invalid body")
	}
	if req.ProductID == 0 {
		return c.JSON(http.StatusBadRequest, "product_id required")
	}

	res, err := h.Svc.AddToCart(ctx, cusID, req.ProductID, req.Quantity)
	if err != nil {
		l.Error("add_to_cart_error", "status", 500, "error", err)
		return c.JSON(http.StatusInternalServerError, "internal error")
	}
	if !res.Success {
		l.Warn("add_to_cart_rejected", "cusID", cusID, "productID", req.ProductID, "message", res.Message)
		return c.JSON(http.StatusBadRequest, res)
	}

	publish(c, h.Producer, "cart_events", map[string]any{
		"type":      "cart_item_added",
		"cusID":     cusID,
		"productID": req.ProductID,
		"quantity":  req.Quantity,
	})

	l.Info("item added to cart", "cusID", cusID, "productID", req.ProductID)
	return c.JSON(http.StatusOK, res)
}

func (h *CartHandler) DeleteFromCart(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart.delete")

	cusID, err := GetCustomerID(c)
	if err != nil {
		l.Warn("delete_from_cart_error", "status", 401, "error", err)
		return c.JSON(http.StatusUnauthorized, "unauthorized")
	}

	productID, err := strconv.Atoi(c.Param("product_id"))
	if err != nil || productID <= 0 {
		return c.JSON(http.StatusBadRequest, "invalid product id")
	}

	res, err := h.Svc.DeleteProduct(ctx, cusID, uint(productID))
	if err != nil {
		l.Error("delete_from_cart_error", "status", 500, "error", err)
		return c.JSON(http.StatusInternalServerError, "internal error")
	}
	if !res.Success {
		return c.JSON(http.StatusNotFound, res)
	}

	publish(c, h.Producer, "cart_events", map[string]any{
		"type":      "cart_item_deleted",
		"cusID":     cusID,
		"productID": productID,
	})

	return c.JSON(http.StatusOK, res)
}
