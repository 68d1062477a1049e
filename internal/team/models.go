package team

import (
	"time"

	"backend-optikick/internal/user"
)

const perPage = 10

type Team struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Logo        string         `json:"logo,omitempty"`
	Description string         `json:"description,omitempty"`
	Location    string         `json:"location,omitempty"`
	Status      string         `json:"status"`
	Coach       *user.Summary  `json:"coach"`
	Players     []user.Summary `json:"players"`
	CreatedAt   time.Time      `json:"created_at"`
}

type Page struct {
	Teams   []Team `json:"teams"`
	Page    int    `json:"page"`
	PerPage int    `json:"per_page"`
	Total   int    `json:"total"`
}
