package persistence

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTransactionRecord_IsFinal(t *testing.T) {
	tests := []struct {
		status   TransactionStatus
		expected bool
	}{
		{status: TransactionStatus_Submitted, expected: false},
		{status: TransactionStatus_TimedOut, expected: false},
		{status: TransactionStatus_Settled, expected: true},
		{status: TransactionStatus_Failed, expected: true},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			r := &TransactionRecord{Status: tt.status}
			assert.Equal(t, tt.expected, r.IsFinal())
		})
	}
}
