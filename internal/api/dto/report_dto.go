package dto

import "time"

// ReportResponse is a dashboard report.
type ReportResponse struct {
	Scope      string         `json:"scope"`
	Period     string         `json:"period"`
	From       *time.Time     `json:"from"`
	To         time.Time      `json:"to"`
	Total      int            `json:"total"`
	Open       int            `json:"open"`
	ByStatus   map[string]int `json:"by_status"`
	ByCategory map[string]int `json:"by_category"`
	ByPriority map[string]int `json:"by_priority"`
	Windows    map[string]int `json:"windows"`
}
