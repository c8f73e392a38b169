package core

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProgressEventWireForm(t *testing.T) {
	event := ProgressEvent{
		SwapID:  "swap-1",
		Address: "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed",
		Step:    3,
		Status:  TxFailed{Reason: "reverted"},
		Amount:  decimal.RequireFromString("0.015"),
		At:      time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}

	raw, err := json.Marshal(event)
	require.NoError(t, err)

	var wire map[string]any
	require.NoError(t, json.Unmarshal(raw, &wire))
	assert.Equal(t, "failed", wire["status"])
	assert.Equal(t, "reverted", wire["reason"])
	assert.Equal(t, "0.015", wire["amount"])
	assert.NotContains(t, wire, "txHash")
}

func TestProgressEventStatuses(t *testing.T) {
	statuses := []TxStatus{
		TxQueued{},
		TxSent{Hash: common.HexToHash("0xabc"), ChainID: 137},
		TxFailed{Reason: "out of gas"},
	}

	for _, status := range statuses {
		raw, err := json.Marshal(ProgressEvent{SwapID: "s", Status: status})
		require.NoError(t, err)

		var got ProgressEvent
		require.NoError(t, json.Unmarshal(raw, &got))
		assert.Equal(t, status, got.Status)
	}
}

func TestProgressEventRejectsUnknownStatus(t *testing.T) {
	_, err := json.Marshal(ProgressEvent{SwapID: "s"})
	assert.Error(t, err)

	var got ProgressEvent
	assert.Error(t, json.Unmarshal([]byte(`{"swapId":"s","status":"mined"}`), &got))
}

func TestTerminal(t *testing.T) {
	assert.False(t, Terminal(TxQueued{}))
	assert.False(t, Terminal(TxSent{}))
	assert.True(t, Terminal(TxFailed{}))
}
