package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/zatekoja/telemedbooking/internal/adapters/database"
	"github.com/zatekoja/telemedbooking/internal/application/services"
	"github.com/zatekoja/telemedbooking/internal/domain/entities"
	"github.com/zatekoja/telemedbooking/internal/infrastructure/auth"
	"github.com/zatekoja/telemedbooking/internal/infrastructure/clients/postgres"
	"github.com/zatekoja/telemedbooking/internal/infrastructure/observability"
	"github.com/zatekoja/telemedbooking/pkg/config"
	"github.com/zatekoja/telemedbooking/pkg/secrets"
)

// seedID derives a stable UUID so the script can be re-run
func seedID(name string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte("telemedbooking/seed/"+name)).String()
}

type seedDoctor struct {
	user      entities.User
	specialty string
	days      []time.Weekday
	start     string
	end       string
}

func main() {
	_ = godotenv.Load()

	if _, err := secrets.ApplyVaultSecrets(context.Background(), secrets.LoadVaultConfigFromEnv()); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load secrets from Vault: %v\n", err)
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	observability.InitLogger("telemedbooking-seed", "development", cfg.Log.Level)

	pgClient, err := postgres.NewClient(&cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to DB")
	}
	defer pgClient.Close()

	ctx := context.Background()
	if err := pgClient.Migrate(ctx); err != nil {
		log.Fatal().Err(err).Msg("Failed to migrate")
	}

	if os.Getenv("RESET_DB") == "true" {
		log.Info().Msg("RESET_DB=true detected, truncating tables before seeding")
		_, err := pgClient.DB().ExecContext(ctx, `
			TRUNCATE TABLE
				appointment_notifications,
				appointments,
				wallet_transactions,
				wallets,
				doctor_schedule_overrides,
				doctor_schedules,
				doctors,
				users
			CASCADE
		`)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to reset tables")
		}
	}

	now := time.Now().UTC()
	weekdays := []time.Weekday{time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday}

	doctors := []seedDoctor{
		{
			user:      entities.User{ID: seedID("user/ada"), Email: "ada.okafor@example.com", FullName: "Dr Ada Okafor", Phone: "+2348010000001", Role: entities.RoleDoctor},
			specialty: "General Practice",
			days:      weekdays,
			start:     "09:00",
			end:       "17:00",
		},
		{
			user:      entities.User{ID: seedID("user/tunde"), Email: "tunde.bello@example.com", FullName: "Dr Tunde Bello", Phone: "+2348010000002", Role: entities.RoleDoctor},
			specialty: "Paediatrics",
			days:      []time.Weekday{time.Monday, time.Wednesday, time.Saturday},
			start:     "10:00",
			end:       "14:00",
		},
	}
	patients := []entities.User{
		{ID: seedID("user/chioma"), Email: "chioma@example.com", FullName: "Chioma Eze", Phone: "+2348020000001", Role: entities.RolePatient},
		{ID: seedID("user/musa"), Email: "musa@example.com", FullName: "Musa Ibrahim", Phone: "+2348020000002", Role: entities.RolePatient},
	}
	staff := []entities.User{
		{ID: seedID("user/manager"), Email: "manager@example.com", FullName: "Clinic Manager", Role: entities.RoleManager},
	}

	db := goqu.New("postgres", pgClient.DB())

	users := append(append([]entities.User{}, patients...), staff...)
	for _, d := range doctors {
		users = append(users, d.user)
	}
	for _, u := range users {
		_, err := db.Insert("users").Rows(goqu.Record{
			"id":         u.ID,
			"email":      u.Email,
			"full_name":  u.FullName,
			"phone":      u.Phone,
			"role":       string(u.Role),
			"created_at": now,
			"updated_at": now,
		}).OnConflict(goqu.DoNothing()).Executor().ExecContext(ctx)
		if err != nil {
			log.Fatal().Err(err).Str("email", u.Email).Msg("Failed to create user")
		}
	}

	schedules := database.NewDoctorScheduleAdapter(pgClient)
	for _, d := range doctors {
		doctorID := seedID("doctor/" + d.user.Email)
		_, err := db.Insert("doctors").Rows(goqu.Record{
			"id":         doctorID,
			"user_id":    d.user.ID,
			"full_name":  d.user.FullName,
			"specialty":  d.specialty,
			"is_active":  true,
			"created_at": now,
			"updated_at": now,
		}).OnConflict(goqu.DoNothing()).Executor().ExecContext(ctx)
		if err != nil {
			log.Fatal().Err(err).Str("doctor", d.user.FullName).Msg("Failed to create doctor")
		}

		for _, day := range d.days {
			err := schedules.Create(ctx, &entities.DoctorSchedule{
				ID:          seedID(fmt.Sprintf("schedule/%s/%d", doctorID, day)),
				DoctorID:    doctorID,
				DayOfWeek:   day,
				StartTime:   entities.MustParseClockTime(d.start),
				EndTime:     entities.MustParseClockTime(d.end),
				IsAvailable: true,
			})
			if err != nil {
				log.Warn().Err(err).Str("doctor", d.user.FullName).Str("day", day.String()).Msg("Skipping schedule")
			}
		}
		log.Info().Str("doctor_id", doctorID).Str("name", d.user.FullName).Msg("Seeded doctor")
	}

	wallets := services.NewWalletService(database.NewTransactor(pgClient, nil), database.NewWalletAdapter(pgClient), nil)
	for _, p := range patients {
		if _, err := wallets.OpenWallet(ctx, p.ID, 1_000_000); err != nil {
			log.Warn().Err(err).Str("patient", p.FullName).Msg("Skipping wallet")
		}
	}
	for _, d := range doctors {
		if _, err := wallets.OpenWallet(ctx, d.user.ID, 0); err != nil {
			log.Warn().Err(err).Str("doctor", d.user.FullName).Msg("Skipping wallet")
		}
	}

	// Print development tokens so the API can be exercised right away
	if cfg.Auth.JWTSecret != "" {
		verifier, err := auth.NewTokenVerifier(cfg.Auth)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize token issuer")
		}
		for _, u := range users {
			token, err := verifier.Issue(auth.Identity{UserID: u.ID, Role: u.Role}, 24*time.Hour)
			if err != nil {
				log.Fatal().Err(err).Msg("Failed to issue token")
			}
			fmt.Printf("%-10s %-28s %s\n", u.Role, u.Email, token)
		}
	}

	log.Info().Msg("Seeding completed successfully")
}
