package entities

// Ticker is a single instrument with its allocation metrics.
// Percentages are expressed in the 0-100 unit.
type Ticker struct {
	Symbol         string  `json:"symbol"`
	Fee            float64 `json:"fee"`
	CurrentGoal    float64 `json:"currentGoal"`
	CurrentPercent float64 `json:"currentPercent"`
}

// Portfolio splits tickers into two disjoint collections.
// DeviationPercent is CurrentStockPercent - GoalStockPercent.
type Portfolio struct {
	Stocks              []Ticker `json:"stocks"`
	Bonds               []Ticker `json:"bonds"`
	GoalStockPercent    float64  `json:"goal_stock_percent"`
	CurrentStockPercent float64  `json:"current_stock_percent"`
	DeviationPercent    float64  `json:"deviation_percent"`
}

// FinTableState is what the dashboard table renders. ColumnsNames are the
// display labels of Columns, so both have the same length.
type FinTableState struct {
	Portfolio    Portfolio `json:"portfolio"`
	ColumnsNames []string  `json:"columnsNames"`
	Columns      []string  `json:"columns"`
}

type FinPortfolioResp struct {
	Name               string   `json:"name"`
	Tickers            []Ticker `json:"tickers"`
	GoalStockPercent   float64  `json:"goal_stock_percent"`
	ActualStockPercent float64  `json:"actual_stock_percent"`
	TotalValue         float64  `json:"total_value"`
	DeviationPercent   float64  `json:"deviation_percent"`
}

// Action is a proposed trade. Positive shares buy, negative shares sell.
type Action struct {
	ID     int     `json:"id"`
	Shares int64   `json:"shares"`
	Price  float64 `json:"price"`
}

// BuyNextResp holds the proposed trades. BuyValue is the capital needed for
// the buy actions.
type BuyNextResp struct {
	Actions  []Action `json:"actions"`
	BuyValue float64  `json:"buy_value"`
}
