package models

import "time"

// UserRecord is a generic document record for all user domain data.
// Value holds the JSON encoding of the domain object; Version is bumped on
// every successful write and drives compare-and-swap in the record stores.
type UserRecord struct {
	UserID   string    `json:"user_id"`
	Subject  string    `json:"subject"`
	Key      string    `json:"key"`
	Value    string    `json:"value"`
	Version  int       `json:"version"`
	DateTime time.Time `json:"datetime"`
}

// Record coordinates for the virtual portfolio.
const (
	SubjectPlayground = "playground"
	KeyPortfolio      = "portfolio"
)
