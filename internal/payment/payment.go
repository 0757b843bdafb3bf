package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"

	razorpay "github.com/razorpay/razorpay-go"
)

var (
	// ErrSignatureMismatch is returned when a gateway callback signature does not verify.
	ErrSignatureMismatch = errors.New("payment verification failed")
	// ErrGateway wraps failures of the payment gateway API.
	ErrGateway = errors.New("payment gateway error")
)

// VerifySignature checks a Razorpay checkout signature, which is
// hex(HMAC-SHA256(order_id + "|" + payment_id, key_secret)).
func VerifySignature(orderID, paymentID, signature, secret string) error {
	if secret == "" || orderID == "" || paymentID == "" {
		return ErrSignatureMismatch
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(orderID + "|" + paymentID))
	want := mac.Sum(nil)

	got, err := hex.DecodeString(signature)
	if err != nil || !hmac.Equal(got, want) {
		return ErrSignatureMismatch
	}
	return nil
}

// OrderRequest is a new gateway order. Amount is in the smallest currency unit.
type OrderRequest struct {
	Amount   int64
	Currency string
	Receipt  string
	Notes    map[string]string
}

// Order is a gateway order as returned to the checkout page.
type Order struct {
	ID       string `json:"id"`
	Entity   string `json:"entity"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
	Status   string `json:"status"`
}

// OrderEndpoint is the order resource of the Razorpay SDK.
type OrderEndpoint interface {
	Create(data map[string]interface{}, extraHeaders map[string]string) (map[string]interface{}, error)
	Fetch(orderID string, queryParams map[string]interface{}, extraHeaders map[string]string) (map[string]interface{}, error)
}

// Gateway creates and looks up Razorpay orders.
type Gateway struct {
	orders OrderEndpoint
}

// NewGateway creates a gateway with the given API credentials.
func NewGateway(keyID, keySecret string) *Gateway {
	return &Gateway{orders: razorpay.NewClient(keyID, keySecret).Order}
}

// NewGatewayWith creates a gateway over an existing order endpoint.
func NewGatewayWith(orders OrderEndpoint) *Gateway {
	return &Gateway{orders: orders}
}

// CreateOrder creates an order for the checkout page.
func (g *Gateway) CreateOrder(req OrderRequest) (Order, error) {
	data := map[string]interface{}{
		"amount":   req.Amount,
		"currency": req.Currency,
		"receipt":  req.Receipt,
	}
	if len(req.Notes) > 0 {
		data["notes"] = req.Notes
	}
	res, err := g.orders.Create(data, nil)
	if err != nil {
		return Order{}, fmt.Errorf("%w: %v", ErrGateway, err)
	}
	return decodeOrder(res)
}

// FetchOrder returns the order as recorded by the gateway. Callers use its
// amount rather than anything the client reports.
func (g *Gateway) FetchOrder(orderID string) (Order, error) {
	res, err := g.orders.Fetch(orderID, nil, nil)
	if err != nil {
		return Order{}, fmt.Errorf("%w: %v", ErrGateway, err)
	}
	o, err := decodeOrder(res)
	if err != nil {
		return Order{}, err
	}
	if o.ID != orderID {
		return Order{}, fmt.Errorf("%w: fetched order %q, want %q", ErrGateway, o.ID, orderID)
	}
	return o, nil
}

func decodeOrder(res map[string]interface{}) (Order, error) {
	o := Order{
		ID:       stringField(res, "id"),
		Entity:   stringField(res, "entity"),
		Currency: stringField(res, "currency"),
		Receipt:  stringField(res, "receipt"),
		Status:   stringField(res, "status"),
	}
	if v, ok := res["amount"].(float64); ok {
		o.Amount = int64(v)
	}
	if o.ID == "" {
		return Order{}, fmt.Errorf("%w: response without order id", ErrGateway)
	}
	return o, nil
}

func stringField(m map[string]interface{}, key string) string {
	s, _ := m[key].(string)
	return s
}
