package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/lcu1903/ProjectThoiTrang/internal/logging"
	"github.com/lcu1903/ProjectThoiTrang/internal/models"
	"github.com/lcu1903/ProjectThoiTrang/internal/mykafka"
	"github.com/lcu1903/ProjectThoiTrang/internal/service/cart"
	"github.com/lcu1903/ProjectThoiTrang/internal/service/vnpay"
)

type PaymentHandler struct {
	DB       *gorm.DB
	Cart     *cart.Service
	VnPay    *vnpay.Service
	Producer *mykafka.Producer
}

// Checkout totals the open cart and answers with the signed gateway
// redirect URL. The cart id doubles as the gateway order reference.
func (h *PaymentHandler) Checkout(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "payment.checkout")

	cusID, err := GetCustomerID(c)
	if err != nil {
		l.Warn("checkout_error", "status", 401, "error", err)
		return c.JSON(http.StatusUnauthorized, "unauthorized")
	}

	details, err := h.Cart.GetCartDetails(ctx, cusID)
	if err != nil {
		l.Error("checkout_error", "status", 500, "error", err)
		return c.JSON(http.StatusInternalServerError, "internal error")
	}
	if !details.Success {
		return c.JSON(http.StatusNotFound, details)
	}

	var total float64
	for _, item := range details.Items {
		total += float64(item.Quantity) * item.Price
	}

	paymentURL := h.VnPay.CreatePaymentURL(c.RealIP(), vnpay.PaymentRequest{
		Amount:      total,
		OrderID:     strconv.FormatUint(uint64(details.CartID), 10),
		CreatedDate: time.Now(),
	})

	publish(c, h.Producer, "payment_events", map[string]any{
		"type":   "payment_requested",
		"cusID":  cusID,
		"cartID": details.CartID,
		"amount": total,
	})

	l.Info("payment url created", "cusID", cusID, "cartID", details.CartID, "amount", total)
	return c.JSON(http.StatusOK, map[string]any{
		"payment_url": paymentURL,
		"amount":      total,
	})
}

// PaymentReturn verifies the gateway's signed callback. A verified "00"
// response marks the referenced cart paid; any other verified code is
// surfaced as-is and the cart stays open.
func (h *PaymentHandler) PaymentReturn(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "payment.return")

	res := h.VnPay.PaymentExecute(c.QueryParams())
	if !res.Success {
		l.Warn("payment_verification_failed", "status", 400)
		return c.JSON(http.StatusBadRequest, res)
	}

	if res.ResponseCode != "00" {
		l.Warn("payment_declined", "cartID", res.OrderID, "responseCode", res.ResponseCode)
		return c.JSON(http.StatusOK, res)
	}

	cartID, err := strconv.ParseUint(res.OrderID, 10, 64)
	if err != nil {
		l.Warn("payment_return_bad_order_id", "orderID", res.OrderID)
		return c.JSON(http.StatusBadRequest, res)
	}

	tx := h.DB.WithContext(ctx).Model(&models.Cart{}).
		Where("id = ? AND paid = ?", cartID, false).
		Update("paid", true)
	if tx.Error != nil {
		l.Error("payment_return_error", "status", 500, "error", tx.Error)
		return c.JSON(http.StatusInternalServerError, "internal error")
	}
	if tx.RowsAffected == 0 {
		l.Warn("payment_return_no_open_cart", "cartID", cartID)
		return c.JSON(http.StatusNotFound, "no open cart for order")
	}

	publish(c, h.Producer, "payment_events", map[string]any{
		"type":          "payment_succeeded",
		"cartID":        cartID,
		"transactionID": res.TransactionID,
		"amount":        res.Amount,
	})

	l.Info("cart paid", "cartID", cartID, "transactionID", res.TransactionID)
	return c.JSON(http.StatusOK, res)
}
