package store

import "signal_bot/internal/models"

// Summary is the read-only view of the trade log: the dashboard numbers.
type Summary struct {
	Total      int     `json:"total"`
	Active     int     `json:"active"`
	Wins       int     `json:"wins"`
	Losses     int     `json:"losses"`
	WinRate    float64 `json:"win_rate"` // wins / closed, 0 when nothing closed
	LastMargin float64 `json:"last_margin"`
	NetR       float64 `json:"net_r"`
}

// Summarize expects records newest first, as List returns them.
func Summarize(recs []models.TradeRecord) Summary {
	s := Summary{Total: len(recs)}
	for i, rec := range recs {
		if i == 0 {
			s.LastMargin = rec.MarginUSD
		}
		switch rec.Status {
		case models.StatusOpen:
			s.Active++
		case models.StatusTP:
			s.Wins++
			s.NetR += rec.RMultiple()
		case models.StatusSL:
			s.Losses++
			s.NetR += rec.RMultiple()
		}
	}
	if closed := s.Wins + s.Losses; closed > 0 {
		s.WinRate = float64(s.Wins) / float64(closed)
	}
	return s
}
