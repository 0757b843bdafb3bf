package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sign(orderID, paymentID, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(orderID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

func TestVerifySignature(t *testing.T) {
	good := sign("order_1", "pay_1", "rzp_secret")
	require.NoError(t, VerifySignature("order_1", "pay_1", good, "rzp_secret"))

	tampered := []struct{ order, pay, sig, secret string }{
		{"order_1", "pay_2", good, "rzp_secret"},
		{"order_2", "pay_1", good, "rzp_secret"},
		{"order_1", "pay_1", good, "other_secret"},
		{"order_1", "pay_1", good[:len(good)-2] + "00", "rzp_secret"},
		{"order_1", "pay_1", "not-hex", "rzp_secret"},
		{"order_1", "pay_1", good, ""},
	}
	for _, tc := range tampered {
		assert.ErrorIs(t, VerifySignature(tc.order, tc.pay, tc.sig, tc.secret), ErrSignatureMismatch)
	}
}

type fakeOrders struct {
	got     map[string]interface{}
	fetched string
	res     map[string]interface{}
	err     error
}

func (f *fakeOrders) Create(data map[string]interface{}, _ map[string]string) (map[string]interface{}, error) {
	f.got = data
	return f.res, f.err
}

func (f *fakeOrders) Fetch(orderID string, _ map[string]interface{}, _ map[string]string) (map[string]interface{}, error) {
	f.fetched = orderID
	return f.res, f.err
}

func TestCreateOrder(t *testing.T) {
	f := &fakeOrders{res: map[string]interface{}{
		"id": "order_9", "entity": "order", "amount": float64(100000), "currency": "INR", "receipt": "r1", "status": "created",
	}}
	o, err := NewGatewayWith(f).CreateOrder(OrderRequest{Amount: 100000, Currency: "INR", Receipt: "r1", Notes: map[string]string{"email": "a@b.c"}})
	require.NoError(t, err)
	assert.Equal(t, "order_9", o.ID)
	assert.Equal(t, int64(100000), o.Amount)
	assert.Equal(t, int64(100000), f.got["amount"])
	assert.Equal(t, map[string]string{"email": "a@b.c"}, f.got["notes"])
}

func TestCreateOrderGatewayError(t *testing.T) {
	_, err := NewGatewayWith(&fakeOrders{err: errors.New("BAD_REQUEST_ERROR")}).CreateOrder(OrderRequest{Amount: 1})
	assert.ErrorIs(t, err, ErrGateway)

	_, err = NewGatewayWith(&fakeOrders{res: map[string]interface{}{}}).CreateOrder(OrderRequest{Amount: 1})
	assert.ErrorIs(t, err, ErrGateway)
}

func TestFetchOrder(t *testing.T) {
	f := &fakeOrders{res: map[string]interface{}{
		"id": "order_9", "entity": "order", "amount": float64(20000), "currency": "INR", "status": "paid",
	}}
	o, err := NewGatewayWith(f).FetchOrder("order_9")
	require.NoError(t, err)
	assert.Equal(t, "order_9", f.fetched)
	assert.Equal(t, int64(20000), o.Amount)
	assert.Equal(t, "paid", o.Status)

	_, err = NewGatewayWith(f).FetchOrder("order_other")
	assert.ErrorIs(t, err, ErrGateway)

	_, err = NewGatewayWith(&fakeOrders{err: errors.New("BAD_REQUEST_ERROR")}).FetchOrder("order_9")
	assert.ErrorIs(t, err, ErrGateway)
}
