package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// TxStatus is the state of one on-chain transaction of a swap.
// The set of implementations is closed: TxQueued, TxSent and TxFailed.
type TxStatus interface {
	txStatus()
}

// TxQueued means the worker accepted the transaction but has not broadcast it yet.
type TxQueued struct{}

// TxSent means the transaction was broadcast.
type TxSent struct {
	Hash    common.Hash
	ChainID int64
}

// TxFailed means the transaction could not be submitted or reverted.
type TxFailed struct {
	Reason string
}

func (TxQueued) txStatus() {}
func (TxSent) txStatus() {}
func (TxFailed) txStatus() {}

// TxStatus names used on the wire.
const (
	TxStatusQueued = "queued"
	TxStatusSent   = "sent"
	TxStatusFailed = "failed"
)

// ProgressEvent is pushed to every connection in the wallet's progress room.
type ProgressEvent struct {
	SwapID  string
	Address string
	Step    int
	Status  TxStatus
	Amount  decimal.Decimal
	At      time.Time
}

type progressWire struct {
	SwapID  string          `json:"swapId"`
	Address string          `json:"address"`
	Step    int             `json:"step"`
	Status  string          `json:"status"`
	TxHash  string          `json:"txHash,omitempty"`
	ChainID int64           `json:"chainId,omitempty"`
	Reason  string          `json:"reason,omitempty"`
	Amount  decimal.Decimal `json:"amount"`
	At      time.Time       `json:"at"`
}

// MarshalJSON flattens Status into a tagged object.
func (e ProgressEvent) MarshalJSON() ([]byte, error) {
	w := progressWire{
		SwapID:  e.SwapID,
		Address: e.Address,
		Step:    e.Step,
		Amount:  e.Amount,
		At:      e.At,
	}

	switch s := e.Status.(type) {
	case TxQueued:
		w.Status = TxStatusQueued
	case TxSent:
		w.Status = TxStatusSent
		w.TxHash = s.Hash.Hex()
		w.ChainID = s.ChainID
	case TxFailed:
		w.Status = TxStatusFailed
		w.Reason = s.Reason
	case nil:
		return nil, errors.New("progress event without status")
	default:
		return nil, fmt.Errorf("unknown tx status %T", s)
	}

	return json.Marshal(w)
}

// UnmarshalJSON restores Status from its tag.
func (e *ProgressEvent) UnmarshalJSON(data []byte) error {
	var w progressWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}

	switch w.Status {
	case TxStatusQueued:
		e.Status = TxQueued{}
	case TxStatusSent:
		e.Status = TxSent{Hash: common.HexToHash(w.TxHash), ChainID: w.ChainID}
	case TxStatusFailed:
		e.Status = TxFailed{Reason: w.Reason}
	default:
		return fmt.Errorf("unknown tx status %q", w.Status)
	}

	e.SwapID = w.SwapID
	e.Address = w.Address
	e.Step = w.Step
	e.Amount = w.Amount
	e.At = w.At
	return nil
}

// Terminal reports whether no further progress follows this status.
func Terminal(s TxStatus) bool {
	_, failed := s.(TxFailed)
	return failed
}
