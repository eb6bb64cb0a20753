package models

import (
	"fmt"
	"strings"
	"time"
)

type Side int

const (
	Buy Side = iota
	Sell
)

func (s Side) String() string {
	if s == Sell {
		return "sell"
	}
	return "buy"
}

// ParseSide accepts "buy"/"sell" in any case.
func ParseSide(v string) (Side, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "buy", "b":
		return Buy, nil
	case "sell", "s":
		return Sell, nil
	default:
		return Buy, fmt.Errorf("unknown side %q", v)
	}
}

func (s Side) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Side) UnmarshalText(b []byte) error {
	v, err := ParseSide(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// TradeRecord is the canonical, exchange-agnostic form of an executed trade.
// Volume, QuoteCost and Fee are magnitudes; direction lives in Side only.
//
// Revenue and BasisFee stay zero until a ledger replay annotates a copy of
// the record.
type TradeRecord struct {
	ID        string    `json:"id,omitempty"`
	Source    string    `json:"source,omitempty"`
	Side      Side      `json:"side"`
	Volume    float64   `json:"volume"`
	Price     float64   `json:"price"`
	QuoteCost float64   `json:"quoteCost"`
	Fee       float64   `json:"fee"`
	Timestamp time.Time `json:"timestamp"`

	Revenue  float64 `json:"revenue"`
	BasisFee float64 `json:"basisFee"`
}

func (r TradeRecord) IsBuy() bool  { return r.Side == Buy }
func (r TradeRecord) IsSell() bool { return r.Side == Sell }

// Scale returns a copy with volume, fee and quote cost multiplied by f.
func (r TradeRecord) Scale(f float64) TradeRecord {
	r.Volume *= f
	r.Fee *= f
	r.QuoteCost *= f
	return r
}
