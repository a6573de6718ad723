package db

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

// ToUUID parses a client supplied id. Only the canonical 36 character form
// is accepted; callers map the error to their own not-found or validation error.
func ToUUID(value string) (pgtype.UUID, error) {
	value = strings.TrimSpace(value)
	if len(value) != 36 {
		return pgtype.UUID{}, fmt.Errorf("invalid uuid %q", value)
	}
	parsed, err := uuid.Parse(value)
	if err != nil {
		return pgtype.UUID{}, fmt.Errorf("invalid uuid %q: %w", value, err)
	}
	return pgtype.UUID{Bytes: parsed, Valid: true}, nil
}

// UUIDString renders id in canonical form, or "" for SQL NULL.
func UUIDString(id pgtype.UUID) string {
	if !id.Valid {
		return ""
	}
	return uuid.UUID(id.Bytes).String()
}
