package models

import "github.com/google/uuid"

// assignID fills a zero primary key. Postgres has gen_random_uuid() defaults
// but SQLite does not, so ids are always minted client side.
func assignID(id *uuid.UUID) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
}
