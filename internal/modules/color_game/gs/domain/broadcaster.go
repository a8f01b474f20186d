package domain

// Broadcaster delivers GS messages to connected players
type Broadcaster interface {
	Broadcast(event interface{})
	SendToUser(userID int64, event interface{})
}

// SettlementNotice is the personal message a bettor receives when a round settles.
type SettlementNotice struct {
	Type         string `json:"type"`
	ModeID       string `json:"mode_id"`
	PeriodNumber int64  `json:"period_number"`
	ResultNumber int    `json:"result_number"`
	ResultColor  string `json:"result_color"`
	Bets         []*Bet `json:"bets"`
	TotalWin     string `json:"total_win"`
	Balance      string `json:"balance"`
}
