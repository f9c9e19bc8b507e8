package vnpay

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"
)

// createDateLayout is the gateway's yyyyMMddHHmmss timestamp format.
const createDateLayout = "20060102150405"

// Config carries every gateway parameter the service needs. All fields are
// required; New rejects an incomplete config so a misconfigured deployment
// fails at startup rather than at the first checkout.
type Config struct {
	Version    string
	Command    string
	TmnCode    string
	CurrCode   string
	Locale     string
	ReturnURL  string
	BaseURL    string
	HashSecret string
}

func (c Config) validate() error {
	required := []struct{ name, value string }{
		{"version", c.Version},
		{"command", c.Command},
		{"tmn code", c.TmnCode},
		{"currency code", c.CurrCode},
		{"locale", c.Locale},
		{"return url", c.ReturnURL},
		{"base url", c.BaseURL},
		{"hash secret", c.HashSecret},
	}
	for _, r := range required {
		if r.value == "" {
			return fmt.Errorf("vnpay: missing %s", r.name)
		}
	}
	return nil
}

type PaymentRequest struct {
	Amount      float64
	OrderID     string
	CreatedDate time.Time
}

// PaymentResult is the interpreted return callback. ResponseCode is the
// gateway's raw code ("00" means approved); approval policy stays with the
// caller.
type PaymentResult struct {
	Success          bool    `json:"success"`
	PaymentMethod    string  `json:"payment_method,omitempty"`
	OrderDescription string  `json:"order_description,omitempty"`
	OrderID          string  `json:"order_id,omitempty"`
	TransactionID    string  `json:"transaction_id,omitempty"`
	Token            string  `json:"token,omitempty"`
	Amount           float64 `json:"amount,omitempty"`
	ResponseCode     string  `json:"response_code,omitempty"`
}

type Service struct {
	cfg Config
}

func New(cfg Config) (*Service, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &Service{cfg: cfg}, nil
}

// CreatePaymentURL builds the signed redirect URL for an outbound payment
// request. The amount is scaled by 100 into fixed-point integer units, the
// parameters are serialized in lexicographic key order and the HMAC-SHA512
// signature over that exact byte string is appended as vnp_SecureHash.
func (s *Service) CreatePaymentURL(ipAddr string, req PaymentRequest) string {
	params := map[string]string{
		"vnp_Version":    s.cfg.Version,
		"vnp_Command":    s.cfg.Command,
		"vnp_TmnCode":    s.cfg.TmnCode,
		"vnp_Amount":     strconv.FormatInt(int64(req.Amount*100), 10),
		"vnp_CreateDate": req.CreatedDate.Format(createDateLayout),
		"vnp_CurrCode":   s.cfg.CurrCode,
		"vnp_IpAddr":     ipAddr,
		"vnp_Locale":     s.cfg.Locale,
		"vnp_OrderInfo":  "Thanh toan don hang:" + req.OrderID,
		"vnp_ReturnUrl":  s.cfg.ReturnURL,
		"vnp_TxnRef":     req.OrderID,
	}

	canonical := canonicalQuery(params)
	return s.cfg.BaseURL + "?" + canonical + "&vnp_SecureHash=" + sign(s.cfg.HashSecret, canonical)
}

// PaymentExecute verifies the gateway's return callback and interprets it.
// The secure hash, amount and response code must all be present or the
// verification fails closed; the signature is recomputed over every vnp_
// parameter except the hash fields themselves and compared
// case-insensitively.
func (s *Service) PaymentExecute(query url.Values) PaymentResult {
	token := query.Get("vnp_SecureHash")
	rawAmount := query.Get("vnp_Amount")
	responseCode := query.Get("vnp_ResponseCode")
	if token == "" || rawAmount == "" || responseCode == "" {
		return PaymentResult{}
	}

	amount, err := strconv.ParseInt(rawAmount, 10, 64)
	if err != nil {
		return PaymentResult{}
	}

	params := make(map[string]string, len(query))
	for key := range query {
		if !strings.HasPrefix(key, "vnp_") {
			continue
		}
		if key == "vnp_SecureHash" || key == "vnp_SecureHashType" {
			continue
		}
		params[key] = query.Get(key)
	}

	if !strings.EqualFold(sign(s.cfg.HashSecret, canonicalQuery(params)), token) {
		return PaymentResult{}
	}

	return PaymentResult{
		Success:          true,
		PaymentMethod:    "VnPay",
		OrderDescription: query.Get("vnp_OrderInfo"),
		OrderID:          query.Get("vnp_TxnRef"),
		TransactionID:    query.Get("vnp_TransactionNo"),
		Token:            token,
		Amount:           float64(amount) / 100,
		ResponseCode:     responseCode,
	}
}

// canonicalQuery joins key=value pairs with & in lexicographic key order.
// This exact byte string is the signature input on both sides.
func canonicalQuery(params map[string]string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, k+"="+params[k])
	}
	return strings.Join(pairs, "&")
}

func sign(secret, payload string) string {
	mac := hmac.New(sha512.New, []byte(secret))
	mac.Write([]byte(payload))
	return hex.EncodeToString(mac.Sum(nil))
}
