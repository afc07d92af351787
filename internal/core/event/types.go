package event

import (
	"github.com/gitbgo/server/internal/core/entity"
	"github.com/google/uuid"
)

type RoundStarted struct {
	Arena   string
	RoundID uuid.UUID
}

type RoundEnded struct {
	Arena   string
	RoundID uuid.UUID
	Winners []uuid.UUID // best first
}

type EntitySpawned struct {
	Arena    string
	EntityID entity.ID
	Location entity.Location
}

type PointChanged struct {
	Arena  string
	Player uuid.UUID
	Delta  int
	Total  int
}
