package gateway

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCallback_Succeeded(t *testing.T) {
	assert.True(t, Callback{ResponseCode: "00", TransactionStatus: "00"}.Succeeded())
	assert.False(t, Callback{ResponseCode: "00", TransactionStatus: "02"}.Succeeded())
	assert.False(t, Callback{ResponseCode: "24", TransactionStatus: "00"}.Succeeded())
}

func TestCallback_OrderID(t *testing.T) {
	id, err := Callback{TxnRef: "99"}.OrderID()
	require.NoError(t, err)
	assert.Equal(t, int64(99), id)

	for _, ref := range []string{"", "abc", "0", "-1"} {
		_, err := Callback{TxnRef: ref}.OrderID()
		assert.ErrorIs(t, err, ErrMalformedCallback, ref)
	}
}

func TestCallback_Ref(t *testing.T) {
	assert.Equal(t, "vnpay:123", Callback{Provider: "vnpay", TransactionNo: "123", TxnRef: "9"}.Ref())
	assert.Equal(t, "vnpay:9:20260101000000", Callback{Provider: "vnpay", TxnRef: "9", PayDate: "20260101000000"}.Ref())
}
