package server

import (
	"context"
	"errors"
	"fmt"

	"github.com/jrsteele09/ilumina-session/centers"
	ierrors "github.com/jrsteele09/ilumina-session/internal/errors"
	"github.com/jrsteele09/ilumina-session/users"
)

// DemoUsers are seeded on startup, one per role. They all share the
// configured demo password.
var DemoUsers = []users.Profile{
	{
		DisplayName: "Lucía Navarro",
		Email:       "patient@ilumina.test",
		Role:        users.RolePatient,
		Phone:       "+34 600 000 001",
	},
	{
		DisplayName:    "Dr. Marco Vega",
		Email:          "doctor@ilumina.test",
		Role:           users.RoleDoctor,
		Specialization: "Aesthetic Dermatology",
		Department:     "Dermatology",
	},
	{
		DisplayName: "Elena Ruiz",
		Email:       "admin@ilumina.test",
		Role:        users.RoleAdmin,
		Department:  "Operations",
	},
}

var demoCenters = []centers.Center{
	{Name: "ILUMINA Madrid", City: "Madrid", Address: "Calle de Serrano 45", Phone: "+34 910 000 100"},
	{Name: "ILUMINA Barcelona", City: "Barcelona", Address: "Passeig de Gràcia 12", Phone: "+34 930 000 200"},
	{Name: "ILUMINA Valencia", City: "Valencia", Address: "Carrer de Colón 8"},
}

// InitialiseSystem seeds the demo users and centers. Existing users are left
// untouched so restarting against a shared repo keeps their passwords.
func (s *Server) InitialiseSystem(ctx context.Context) error {
	password := s.config.GetDemoPassword()

	created := 0
	for _, p := range DemoUsers {
		ok, err := s.seedUser(p, password)
		if err != nil {
			return fmt.Errorf("[Server InitialiseSystem] failed to seed %s: %w", p.Email, err)
		}
		if ok {
			created++
		}
	}

	existing, err := s.repos.Centers.List(0, 1)
	if err != nil {
		return fmt.Errorf("[Server InitialiseSystem] failed to list centers: %w", err)
	}
	if len(existing) == 0 {
		for _, c := range demoCenters {
			center := c
			if err := s.repos.Centers.Upsert(&center); err != nil {
				return fmt.Errorf("[Server InitialiseSystem] failed to seed center %s: %w", c.Name, err)
			}
		}
	}

	if created > 0 && s.env == "DEV" {
		s.logger.Info().Msg("👤 Demo accounts:")
		for _, p := range DemoUsers {
			s.logger.Info().Msgf("   %-8s %s", p.Role, p.Email)
		}
		s.logger.Info().Msgf("   Password: %s", password)
	}
	return nil
}

func (s *Server) seedUser(p users.Profile, password string) (bool, error) {
	_, err := s.repos.Users.GetByEmail(p.Email)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, ierrors.ErrUserNotFound) {
		return false, err
	}

	hash, err := users.HashPassword(password)
	if err != nil {
		return false, err
	}
	return true, s.repos.Users.Upsert(&users.User{Profile: p, PasswordHash: hash})
}
