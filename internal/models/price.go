package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
)

// DefaultTier is the tier used when a price does not name one.
const DefaultTier = "standard"

// Price is one amount in minor units for a tier and currency.
type Price struct {
	Tier     string `json:"tier"`
	Currency string `json:"currency"`
	Amount   int64  `json:"amount"`
}

// Prices is stored as a JSONB column.
type Prices []Price

// Value implements driver.Valuer.
func (p Prices) Value() (driver.Value, error) {
	if p == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(p)
}

// Scan implements sql.Scanner.
func (p *Prices) Scan(src interface{}) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*p = Prices{}
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return errors.New("prices: unsupported scan type")
	}
	return json.Unmarshal(raw, p)
}

// Lookup returns the amount for tier and currency.
func (p Prices) Lookup(tier, currency string) (int64, bool) {
	for _, pr := range p {
		if pr.Tier == tier && pr.Currency == currency {
			return pr.Amount, true
		}
	}
	return 0, false
}
