package models

import "time"

type RoundResult struct {
	ID      string             `json:"id"`
	Room    string             `json:"room"`
	Round   uint32             `json:"round"`
	Mode    string             `json:"mode"`
	Reason  string             `json:"reason"`
	EndedAt time.Time          `json:"ended_at"`
	Scores  []ParticipantScore `json:"scores"`
}

type ParticipantScore struct {
	ParticipantID string `json:"participant"`
	Score         int    `json:"score"`
}
