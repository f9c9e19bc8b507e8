package handlers

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sort"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/lcu1903/ProjectThoiTrang/internal/models"
	"github.com/lcu1903/ProjectThoiTrang/internal/service/cart"
	"github.com/lcu1903/ProjectThoiTrang/internal/service/vnpay"
)

const testHashSecret = "SECRET"

func newPaymentHandler(t *testing.T) (*PaymentHandler, *gorm.DB) {
	db := initTestDB(t)
	db.Create(&models.Product{Name: "test_name", Price: 100, Discount: 10, Stock: 5})

	vnPayService, err := vnpay.New(vnpay.Config{
		Version:    "2.0",
		Command:    "pay",
		TmnCode:    "TMNCODE",
		CurrCode:   "VND",
		Locale:     "vn",
		ReturnURL:  "https://return.url",
		BaseURL:    "https://pay.vnpay.vn",
		HashSecret: testHashSecret,
	})
	require.NoError(t, err)

	return &PaymentHandler{
		DB:    db,
		Cart:  &cart.Service{DB: db},
		VnPay: vnPayService,
	}, db
}

// signedReturnQuery mirrors the gateway side: lexicographic key order,
// key=value joined by &, HMAC-SHA512 lower-hex appended as vnp_SecureHash.
func signedReturnQuery(params map[string]string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, k+"="+params[k])
	}
	canonical := strings.Join(pairs, "&")

	mac := hmac.New(sha512.New, []byte(testHashSecret))
	mac.Write([]byte(canonical))
	sig := hex.EncodeToString(mac.Sum(nil))

	query := url.Values{}
	for k, v := range params {
		query.Set(k, v)
	}
	query.Set("vnp_SecureHash", sig)
	return query.Encode()
}

func TestCheckoutBuildsSignedURL(t *testing.T) {
	h, db := newPaymentHandler(t)
	e := echo.New()

	_, err := h.Cart.AddToCart(t.Context(), 1, 1, 2)
	require.NoError(t, err)

	rec, c := newJSONContext(t, e, http.MethodPost, "/api/v1/cart/checkout", nil)
	c.Set("cusID", uint(1))

	require.NoError(t, h.Checkout(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		PaymentURL string  `json:"payment_url"`
		Amount     float64 `json:"amount"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, float64(180), resp.Amount) // 2 * discounted 90

	require.True(t, strings.HasPrefix(resp.PaymentURL, "https://pay.vnpay.vn?"))
	require.Contains(t, resp.PaymentURL, "vnp_Amount=18000")
	require.Contains(t, resp.PaymentURL, "&vnp_SecureHash=")

	var openCart models.Cart
	require.NoError(t, db.Where("cus_id = ? AND paid = ?", 1, false).First(&openCart).Error)
	require.Contains(t, resp.PaymentURL, "vnp_TxnRef=1")
	require.Equal(t, uint(1), openCart.ID)
}

func TestCheckoutEmptyCart(t *testing.T) {
	h, _ := newPaymentHandler(t)
	e := echo.New()

	rec, c := newJSONContext(t, e, http.MethodPost, "/api/v1/cart/checkout", nil)
	c.Set("cusID", uint(1))

	require.NoError(t, h.Checkout(c))
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func paymentReturnContext(e *echo.Echo, rawQuery string) (*httptest.ResponseRecorder, echo.Context) {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/payment/return?"+rawQuery, nil)
	rec := httptest.NewRecorder()
	return rec, e.NewContext(req, rec)
}

func TestPaymentReturnMarksCartPaid(t *testing.T) {
	h, db := newPaymentHandler(t)
	e := echo.New()

	_, err := h.Cart.AddToCart(t.Context(), 1, 1, 2)
	require.NoError(t, err)

	rec, c := paymentReturnContext(e, signedReturnQuery(map[string]string{
		"vnp_TxnRef":        "1",
		"vnp_TransactionNo": "67890",
		"vnp_ResponseCode":  "00",
		"vnp_OrderInfo":     "Thanh toan don hang:1",
		"vnp_Amount":        "18000",
	}))

	require.NoError(t, h.PaymentReturn(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var res vnpay.PaymentResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	require.True(t, res.Success)
	require.Equal(t, float64(180), res.Amount)

	var paidCart models.Cart
	require.NoError(t, db.First(&paidCart, 1).Error)
	require.True(t, paidCart.Paid)
}

func TestPaymentReturnRejectsBadSignature(t *testing.T) {
	h, db := newPaymentHandler(t)
	e := echo.New()

	_, err := h.Cart.AddToCart(t.Context(), 1, 1, 2)
	require.NoError(t, err)

	rawQuery := signedReturnQuery(map[string]string{
		"vnp_TxnRef":        "1",
		"vnp_TransactionNo": "67890",
		"vnp_ResponseCode":  "00",
		"vnp_OrderInfo":     "Thanh toan don hang:1",
		"vnp_Amount":        "18000",
	})
	// Tamper after signing.
	rawQuery = strings.Replace(rawQuery, "vnp_Amount=18000", "vnp_Amount=1", 1)

	rec, c := paymentReturnContext(e, rawQuery)
	require.NoError(t, h.PaymentReturn(c))
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var openCart models.Cart
	require.NoError(t, db.First(&openCart, 1).Error)
	require.False(t, openCart.Paid)
}

func TestPaymentReturnDeclinedLeavesCartOpen(t *testing.T) {
	h, db := newPaymentHandler(t)
	e := echo.New()

	_, err := h.Cart.AddToCart(t.Context(), 1, 1, 2)
	require.NoError(t, err)

	rec, c := paymentReturnContext(e, signedReturnQuery(map[string]string{
		"vnp_TxnRef":        "1",
		"vnp_TransactionNo": "67890",
		"vnp_ResponseCode":  "24",
		"vnp_OrderInfo":     "Thanh toan don hang:1",
		"vnp_Amount":        "18000",
	}))

	require.NoError(t, h.PaymentReturn(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var res vnpay.PaymentResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	require.True(t, res.Success)
	require.Equal(t, "24", res.ResponseCode)

	var openCart models.Cart
	require.NoError(t, db.First(&openCart, 1).Error)
	require.False(t, openCart.Paid)
}

func TestPaymentReturnUnknownCart(t *testing.T) {
	h, _ := newPaymentHandler(t)
	e := echo.New()

	rec, c := paymentReturnContext(e, signedReturnQuery(map[string]string{
		"vnp_TxnRef":        "42",
		"vnp_TransactionNo": "67890",
		"vnp_ResponseCode":  "00",
		"vnp_OrderInfo":     "Thanh toan don hang:42",
		"vnp_Amount":        "18000",
	}))

	require.NoError(t, h.PaymentReturn(c))
	require.Equal(t, http.StatusNotFound, rec.Code)
}
