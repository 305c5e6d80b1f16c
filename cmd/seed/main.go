package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/restart-clinic/scheduling/internal/db"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("seed starting")

	dsn := os.Getenv("POSTGRES_DSN")
	if dsn == "" {
		log.Fatal("POSTGRES_DSN is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := db.ConnectPostgres(ctx, dsn)
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pool.Close()

	gofakeit.Seed(time.Now().UnixNano())

	providerIDs, err := seedProviders(context.Background(), pool, 5)
	if err != nil {
		log.Fatalf("seed providers: %v", err)
	}
	if err := seedServices(context.Background(), pool); err != nil {
		log.Fatalf("seed services: %v", err)
	}
	if err := seedAvailability(context.Background(), pool, providerIDs); err != nil {
		log.Fatalf("seed availability: %v", err)
	}

	log.Println("seed complete")
}

func seedProviders(ctx context.Context, pool *pgxpool.Pool, count int) ([]uuid.UUID, error) {
	log.Printf("seeding %d providers", count)

	specialties := []string{
		"Discovery Call",
		"Initial Evaluation & Consultation",
		"Chiropractic Visit",
		"Recovery Visit",
		"Relief and Movement Visit",
		"Medical Plan Initial Evaluation",
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	ids := make([]uuid.UUID, 0, count)
	for i := 0; i < count; i++ {
		id := uuid.New()
		name := "Dr. " + gofakeit.Name()

		// Each provider covers a contiguous chunk of the catalog.
		lo := gofakeit.Number(0, len(specialties)-2)
		hi := gofakeit.Number(lo+1, len(specialties)-1)

		_, err := tx.Exec(ctx, `
			INSERT INTO providers (id, name, specialties, active, created_at, updated_at)
			VALUES ($1, $2, $3, TRUE, now(), now())
		`, id, name, specialties[lo:hi+1])
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	log.Println("providers seeded")
	return ids, nil
}

func seedServices(ctx context.Context, pool *pgxpool.Pool) error {
	log.Println("seeding services")

	services := []struct {
		name        string
		description string
		durationMin int
		priceCents  int
		category    string
	}{
		{"Discovery Call", "Free consultation to discuss your needs and explore treatment options.", 15, 0, "CONSULTATION"},
		{"Initial Evaluation & Consultation", "Comprehensive assessment with detailed examination and treatment planning.", 75, 15000, "EVALUATION"},
		{"Chiropractic Visit", "Adjustment-focused follow-up visit.", 30, 7500, "TREATMENT"},
		{"Recovery Visit", "Guided recovery session with therapeutic exercises.", 45, 9000, "TREATMENT"},
		{"Relief and Movement Visit", "Combined relief treatment and movement coaching.", 60, 12000, "TREATMENT"},
		{"Medical Plan Initial Evaluation", "Entry evaluation for a structured medical plan.", 90, 20000, "EVALUATION"},
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for _, s := range services {
		_, err := tx.Exec(ctx, `
			INSERT INTO services (id, name, description, duration_min, price_cents, category, active, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, TRUE, now(), now())
		`, uuid.New(), s.name, s.description, s.durationMin, s.priceCents, s.category)
		if err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}

	log.Println("services seeded")
	return nil
}

func seedAvailability(ctx context.Context, pool *pgxpool.Pool, providerIDs []uuid.UUID) error {
	log.Println("seeding weekly availability")

	// Monday through Friday, morning and afternoon blocks.
	windows := []struct {
		start string
		end   string
	}{
		{"08:00", "12:00"},
		{"13:00", "17:00"},
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for _, providerID := range providerIDs {
		for day := 1; day <= 5; day++ {
			for _, w := range windows {
				_, err := tx.Exec(ctx, `
					INSERT INTO availability_slots (id, provider_id, day_of_week, start_time, end_time, active, created_at, updated_at)
					VALUES ($1, $2, $3, $4, $5, TRUE, now(), now())
				`, uuid.New(), providerID, day, w.start, w.end)
				if err != nil {
					return err
				}
			}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}

	log.Println("availability seeded")
	return nil
}
