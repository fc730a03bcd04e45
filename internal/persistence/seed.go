package persistence

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/complaint-service/internal/auth"
	"github.com/spec-kit/complaint-service/internal/domain"
	"github.com/spec-kit/complaint-service/internal/repository"
)

// rosterEntry is one seeded staff member. The default PIN is the first four
// digits of the staff number, stored only as a bcrypt hash.
type rosterEntry struct {
	Name        string
	StaffNumber string
	Role        domain.StaffRole
}

var defaultRoster = []rosterEntry{
	{Name: "Mercy Nambiro", StaffNumber: "86001", Role: domain.StaffRoleSupervisor},
	{Name: "Noel Nanzushi", StaffNumber: "85905", Role: domain.StaffRoleStaff},
	{Name: "Patrick Moenga", StaffNumber: "85915", Role: domain.StaffRoleStaff},
	{Name: "John Migeni", StaffNumber: "85925", Role: domain.StaffRoleStaff},
	{Name: "Martin Karanja", StaffNumber: "85891", Role: domain.StaffRoleAdmin},
}

// SeedRoster inserts the static staff roster, skipping members already present.
func SeedRoster(ctx context.Context, users repository.UserRepository, bcryptCost int, logger *zap.Logger) error {
	for _, entry := range defaultRoster {
		existing, err := users.GetByStaffNumber(ctx, entry.StaffNumber)
		if err != nil && !errors.Is(err, pgx.ErrNoRows) {
			return err
		}
		if existing != nil {
			continue
		}

		pin := entry.StaffNumber
		if len(pin) > 4 {
			pin = pin[:4]
		}
		hash, err := auth.HashPassword(pin, bcryptCost)
		if err != nil {
			return err
		}

		user := &domain.User{
			Name:        entry.Name,
			StaffNumber: entry.StaffNumber,
			Role:        entry.Role,
			PINHash:     hash,
		}
		if err := users.Create(ctx, user); err != nil {
			return err
		}
		logger.Info("seeded roster member", zap.String("staff_number", entry.StaffNumber))
	}
	return nil
}
