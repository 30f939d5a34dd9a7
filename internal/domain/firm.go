package domain

import (
	"time"

	"github.com/google/uuid"
)

type Firm struct {
	ID        uuid.UUID
	Name      string
	Province  string
	CreatedAt time.Time
}

type Client struct {
	ID          uuid.UUID
	FirmID      uuid.UUID
	DisplayName string
	CreatedAt   time.Time
}

type Matter struct {
	ID        uuid.UUID
	FirmID    uuid.UUID
	ClientID  uuid.UUID
	Title     string
	CreatedAt time.Time
}
