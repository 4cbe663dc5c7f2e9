// Package seed inserts the development users.
package seed

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/cignalottu/authcore"
	"github.com/cignalottu/authcore/identity"
)

type User struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
	Role      identity.Role
}

// DevUsers has one LOCAL account per role. Their passwords do not satisfy
// the registration policy and must never reach a production store.
var DevUsers = []User{
	{Email: "admin@cignalottu.it", Password: "admin123", FirstName: "Admin", LastName: "Super", Role: identity.RoleAdmin},
	{Email: "barber@test.it", Password: "barber123", FirstName: "Luca", LastName: "Bianchi", Role: identity.RoleBarber},
	{Email: "cliente@test.it", Password: "cliente123", FirstName: "Mario", LastName: "Rossi", Role: identity.RoleCustomer},
	{Email: "rappresentante@test.it", Password: "rapp123", FirstName: "Giulia", LastName: "Verdi", Role: identity.RoleRepresentative},
}

type Result struct {
	Created []string
	Skipped []string
}

// Run creates every user whose email is not yet stored. Existing users are
// left untouched.
func Run(ctx context.Context, store identity.Store, hasher authcore.CredentialVerifier, log zerolog.Logger, users []User) (Result, error) {
	var res Result
	for _, u := range users {
		email := identity.NormalizeEmail(u.Email)

		exists, err := store.ExistsByEmail(ctx, email)
		if err != nil {
			return res, fmt.Errorf("seed %s: %w", email, err)
		}
		if exists {
			log.Info().Str("email", email).Msg("seed user already present, skipping")
			res.Skipped = append(res.Skipped, email)
			continue
		}

		hash, err := hasher.Hash(u.Password)
		if err != nil {
			return res, fmt.Errorf("seed %s: hash: %w", email, err)
		}
		if _, err := store.Save(ctx, &identity.Identity{
			Email:        email,
			PasswordHash: &hash,
			FirstName:    u.FirstName,
			LastName:     u.LastName,
			Role:         u.Role,
			Provider:     identity.ProviderLocal,
		}); err != nil {
			return res, fmt.Errorf("seed %s: %w", email, err)
		}

		log.Info().Str("email", email).Str("role", string(u.Role)).Msg("seed user created")
		res.Created = append(res.Created, email)
	}
	return res, nil
}
