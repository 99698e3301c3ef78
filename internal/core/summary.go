package core

// PlayerSummary is a player's ledger position for the current weekend.
type PlayerSummary struct {
	Player          Player        `json:"player"`
	PreviousBalance float64       `json:"previousBalance"`
	TotalDue        float64       `json:"totalDue"`
	TotalPaid       float64       `json:"totalPaid"`
	CurrentBalance  float64       `json:"currentBalance"`
	Status          PaymentStatus `json:"status"`
	Payments        []Payment     `json:"payments"`
}

// WeekendTotals is a compact summary of the current weekend.
type WeekendTotals struct {
	WeekendID   string  `json:"weekendId"`
	AnchorDate  Date    `json:"anchorDate"`
	Matches     int     `json:"matches"`
	TotalCost   float64 `json:"totalCost"`
	TotalDue    float64 `json:"totalDue"`
	TotalPaid   float64 `json:"totalPaid"`
	Outstanding float64 `json:"outstanding"`
}
