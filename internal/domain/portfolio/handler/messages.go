package handler

import "time"

type GetOverviewRequest struct{}

type HoldingView struct {
	Name         string  `json:"name"`
	Currency     string  `json:"currency"`
	Value        float64 `json:"value"`
	Profit       float64 `json:"profit"`
	ReturnRatio  float64 `json:"returnRatio"`
	DisplayValue string  `json:"displayValue"`
}

type CurrencyView struct {
	Currency     string  `json:"currency"`
	TotalValue   float64 `json:"totalValue"`
	TotalProfit  float64 `json:"totalProfit"`
	ReturnRatio  float64 `json:"returnRatio"`
	MemberCount  int     `json:"memberCount"`
	DisplayValue string  `json:"displayValue"`
}

type GetOverviewResponse struct {
	Tab              string         `json:"tab"`
	Headers          []string       `json:"headers"`
	Fingerprint      string         `json:"fingerprint"`
	Holdings         []HoldingView  `json:"holdings"`
	Currencies       []CurrencyView `json:"currencies"`
	Ranking          []HoldingView  `json:"ranking"`
	TotalValue       float64        `json:"totalValue"`
	TotalProfit      float64        `json:"totalProfit"`
	TotalReturnRatio float64        `json:"totalReturnRatio"`
	Degraded         int            `json:"degraded"`
	DegradedSamples  []string       `json:"degradedSamples,omitempty"`
}

type ListFundTabsRequest struct {
	// Writable lists the tabs that accept transactions instead of the viewable ones.
	Writable bool `json:"writable"`
}

type ListFundTabsResponse struct {
	Tabs []string `json:"tabs"`
}

type GetFundTabRequest struct {
	Tab string `json:"tab"`
}

type GetFundTabResponse struct {
	Tab     string     `json:"tab"`
	Headers []string   `json:"headers"`
	Rows    [][]string `json:"rows"`
}

type AppendTransactionRequest struct {
	Tab      string  `json:"tab"`
	Date     string  `json:"date"`
	Category string  `json:"category"`
	Price    float64 `json:"price"`
	Amount   float64 `json:"amount"`
	Fee      float64 `json:"fee"`
}

type AppendTransactionResponse struct {
	Tab   string  `json:"tab"`
	Row   []any   `json:"row"`
	Units float64 `json:"units"`
}

type RefreshRequest struct{}

type RefreshResponse struct{}

type ListJournalRequest struct {
	Tab   string `json:"tab"`
	Limit int    `json:"limit"`
}

type JournalEntryView struct {
	ID        string    `json:"id"`
	Tab       string    `json:"tab"`
	TradeDate string    `json:"tradeDate"`
	Category  string    `json:"category"`
	Amount    float64   `json:"amount"`
	Price     float64   `json:"price"`
	Fee       float64   `json:"fee"`
	Units     float64   `json:"units"`
	CreatedAt time.Time `json:"createdAt"`
}

type ListJournalResponse struct {
	Entries []JournalEntryView `json:"entries"`
}
