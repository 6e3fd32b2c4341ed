package database

import (
	"database/sql"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

func nullableUUID(id *uuid.UUID) uuid.NullUUID {
	if id == nil {
		return uuid.NullUUID{}
	}
	return uuid.NullUUID{UUID: *id, Valid: true}
}

func nullableString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func pqStringArray(values []string) interface{} {
	return pq.Array(values)
}
