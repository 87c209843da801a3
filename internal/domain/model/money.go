package model

type Money struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

func (m Money) IsZero() bool {
	return m.Amount == 0
}
