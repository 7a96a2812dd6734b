package models

import "fmt"

// ARIMAParams is the cached order-search result for one instrument.
type ARIMAParams struct {
	Order         [3]int `json:"order"`          // p, d, q
	SeasonalOrder [4]int `json:"seasonal_order"` // P, D, Q, m
}

func (p ARIMAParams) String() string {
	return fmt.Sprintf("(%d,%d,%d)x(%d,%d,%d,%d)",
		p.Order[0], p.Order[1], p.Order[2],
		p.SeasonalOrder[0], p.SeasonalOrder[1], p.SeasonalOrder[2], p.SeasonalOrder[3])
}
