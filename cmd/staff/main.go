package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/angelmondragon/pos-inventory-backend/internal/staff"
	"github.com/angelmondragon/pos-inventory-backend/pkg/config"
	"github.com/angelmondragon/pos-inventory-backend/pkg/db"
	"github.com/angelmondragon/pos-inventory-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/pos-inventory-backend/pkg/errors"
	"github.com/angelmondragon/pos-inventory-backend/pkg/logger"
	"github.com/angelmondragon/pos-inventory-backend/pkg/security"
)

const tempPasswordLength = 16

// Provisions a staff account. Without -password a temporary one is
// generated and printed once.
func main() {
	ctx := context.Background()
	logg := logger.New(logger.Options{ServiceName: "staff"})

	_ = godotenv.Load()

	email := flag.String("email", "", "staff email (required)")
	name := flag.String("name", "", "display name (required)")
	role := flag.String("role", string(enums.StaffRoleCashier), "admin|cashier")
	password := flag.String("password", "", "initial password; generated when empty")
	flag.Parse()

	if *email == "" || *name == "" {
		flag.Usage()
		os.Exit(2)
	}
	staffRole, err := enums.ParseStaffRole(*role)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(ctx, "failed to load config", err)
		os.Exit(1)
	}
	logg = logger.New(logger.Options{
		ServiceName: "staff",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	generated := false
	if *password == "" {
		*password, err = security.GenerateTempPassword(tempPasswordLength)
		if err != nil {
			logg.Error(ctx, "failed to generate password", err)
			os.Exit(1)
		}
		generated = true
	}

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer dbClient.Close()

	// login is not served here, so no session manager is needed.
	svc, err := staff.NewService(staff.ServiceParams{
		Repo:     staff.NewRepository(dbClient.DB()),
		Sessions: noSessions{},
		JWT:      cfg.JWT,
		Password: cfg.Password,
		Logger:   logg,
	})
	if err != nil {
		logg.Error(ctx, "failed to create staff service", err)
		os.Exit(1)
	}

	created, err := svc.CreateStaff(ctx, staff.CreateStaffInput{
		Email:    *email,
		Name:     *name,
		Password: *password,
		Role:     staffRole,
	})
	if err != nil {
		if typed := pkgerrors.As(err); typed != nil && typed.Code() != pkgerrors.CodeInternal {
			fmt.Fprintf(os.Stderr, "cannot create staff user: %s %v\n", typed.Message(), typed.Details())
			os.Exit(1)
		}
		logg.Error(ctx, "failed to create staff user", err)
		os.Exit(1)
	}

	logg.Info(logg.WithFields(ctx, map[string]any{"user_id": created.ID.String(), "role": string(created.Role)}), "staff user created")
	fmt.Printf("created %s (%s) id=%s\n", created.Email, created.Role, created.ID)
	if generated {
		fmt.Printf("temporary password: %s\n", *password)
	}
}

type noSessions struct{}

var errNoSessions = errors.New("sessions are not available in the staff cli")

func (noSessions) Generate(context.Context, string) (string, error) { return "", errNoSessions }
func (noSessions) Rotate(context.Context, string, string) (string, string, error) {
	return "", "", errNoSessions
}
func (noSessions) Revoke(context.Context, string) error { return errNoSessions }
