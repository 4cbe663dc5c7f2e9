package bunstore

import (
	"time"

	"github.com/uptrace/bun"

	"github.com/cignalottu/authcore/identity"
)

type identityRow struct {
	bun.BaseModel `bun:"table:identities,alias:i"`

	ID           int64     `bun:"id,pk,autoincrement"`
	Email        string    `bun:"email,notnull,unique"`
	PasswordHash *string   `bun:"password_hash"`
	FirstName    string    `bun:"first_name,notnull"`
	LastName     string    `bun:"last_name,notnull"`
	Role         string    `bun:"role,notnull"`
	Provider     string    `bun:"provider,notnull"`
	ProviderID   *string   `bun:"provider_id"`
	CreatedAt    time.Time `bun:"created_at,notnull"`
	UpdatedAt    time.Time `bun:"updated_at,notnull"`
}

func rowFrom(i *identity.Identity) *identityRow {
	return &identityRow{
		ID:           i.ID,
		Email:        identity.NormalizeEmail(i.Email),
		PasswordHash: i.PasswordHash,
		FirstName:    i.FirstName,
		LastName:     i.LastName,
		Role:         string(i.Role),
		Provider:     string(i.Provider),
		ProviderID:   i.ProviderID,
		CreatedAt:    i.CreatedAt,
		UpdatedAt:    i.UpdatedAt,
	}
}

func (r *identityRow) identity() *identity.Identity {
	return &identity.Identity{
		ID:           r.ID,
		Email:        r.Email,
		PasswordHash: r.PasswordHash,
		FirstName:    r.FirstName,
		LastName:     r.LastName,
		Role:         identity.Role(r.Role),
		Provider:     identity.Provider(r.Provider),
		ProviderID:   r.ProviderID,
		CreatedAt:    r.CreatedAt.UTC(),
		UpdatedAt:    r.UpdatedAt.UTC(),
	}
}
