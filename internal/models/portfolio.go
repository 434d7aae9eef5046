package models

import "time"

// Position is a holding in a user's portfolio, keyed by (user, ticker).
// Adding to an existing position accumulates shares only; name, prices, and
// asset type keep the values supplied on first insert.
type Position struct {
	UserID       string    `json:"-"`
	Ticker       string    `json:"ticker"`
	Name         string    `json:"name"`
	Shares       float64   `json:"shares"`
	AvgPrice     float64   `json:"avgPrice"`
	CurrentPrice float64   `json:"currentPrice"`
	AssetType    string    `json:"type"`
	CreatedAt    time.Time `json:"-"`
	UpdatedAt    time.Time `json:"-"`
}

// Value returns the market value of the position.
func (p Position) Value() float64 {
	return p.Shares * p.CurrentPrice
}

// ChangePercent returns the percent change from average cost to current
// price. A zero average cost reports 0 rather than dividing by zero.
func (p Position) ChangePercent() float64 {
	if p.AvgPrice == 0 {
		return 0
	}
	return (p.CurrentPrice - p.AvgPrice) / p.AvgPrice * 100
}

// PositionView is the per-position detail embedded in a portfolio snapshot.
type PositionView struct {
	Ticker        string  `json:"ticker"`
	Name          string  `json:"name"`
	Shares        float64 `json:"shares"`
	AvgPrice      float64 `json:"avgPrice"`
	CurrentPrice  float64 `json:"currentPrice"`
	Value         float64 `json:"value"`
	ChangePercent float64 `json:"changePercent"`
	DividendYield float64 `json:"dividendYield"`
	AssetType     string  `json:"type"`
}

// DividendRecord is a single dividend payment received by a user.
type DividendRecord struct {
	ID           string    `json:"-"`
	UserID       string    `json:"-"`
	Ticker       string    `json:"ticker"`
	Amount       float64   `json:"amount"`
	PaymentDate  time.Time `json:"-"`
	DividendType string    `json:"type"`
}

// DividendView is the wire shape of a dividend record, with the payment date
// rendered as YYYY-MM-DD.
type DividendView struct {
	Date   string  `json:"date"`
	Ticker string  `json:"ticker"`
	Amount float64 `json:"amount"`
	Type   string  `json:"type"`
}

// PortfolioSnapshot is the aggregate view returned by the portfolio read.
// DailyChange and DailyChangePercent are always zero: no historical snapshot
// mechanism exists to compute them. YearlyDividends is a projection, exactly
// twelve times the trailing-30-day total.
type PortfolioSnapshot struct {
	TotalValue         float64        `json:"totalValue"`
	DailyChange        float64        `json:"dailyChange"`
	DailyChangePercent float64        `json:"dailyChangePercent"`
	MonthlyDividends   float64        `json:"monthlyDividends"`
	YearlyDividends    float64        `json:"yearlyDividends"`
	Positions          []PositionView `json:"positions"`
	Dividends          []DividendView `json:"dividends"`
}
