// simulate hammers the booking endpoint with deliberately contended
// requests and then checks the provider non-overlap invariant directly in
// Postgres. Run it against a seeded api-server.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"math/rand"
	"net/http"
	"os"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/restart-clinic/scheduling/internal/db"
)

type SimConfig struct {
	APIBaseURL  string
	Workers     int
	Rounds      int
	PostgresDSN string
}

type target struct {
	ProviderID uuid.UUID
	ServiceID  uuid.UUID
	Date       string
	Time       string
}

type counters struct {
	created  int64
	conflict int64
	busy     int64
	invalid  int64
	errors   int64
}

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("simulator starting")

	cfg := SimConfig{
		APIBaseURL:  getEnv("SIM_API_BASE_URL", "http://localhost:8080"),
		Workers:     getInt("SIM_WORKERS", 20),
		Rounds:      getInt("SIM_ROUNDS", 50),
		PostgresDSN: os.Getenv("POSTGRES_DSN"),
	}
	if cfg.PostgresDSN == "" {
		log.Fatal("POSTGRES_DSN is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pgPool, err := db.ConnectPostgres(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pgPool.Close()

	providers, services, err := loadTargets(ctx, pgPool)
	if err != nil {
		log.Fatalf("load targets: %v", err)
	}
	if len(providers) == 0 || len(services) == 0 {
		log.Fatal("no providers or services found, run cmd/seed first")
	}

	log.Printf("loaded %d providers, %d services; workers=%d rounds=%d",
		len(providers), len(services), cfg.Workers, cfg.Rounds)

	client := &http.Client{Timeout: 10 * time.Second}
	var c counters

	// Every round aims all workers at one (provider, date, time) so at most
	// one booking per round may succeed.
	base := time.Now().AddDate(0, 1, 0)
	for round := 0; round < cfg.Rounds; round++ {
		day := base.AddDate(0, 0, round)
		tgt := target{
			ProviderID: providers[rand.Intn(len(providers))],
			ServiceID:  services[rand.Intn(len(services))],
			Date:       day.Format("2006-01-02"),
			Time:       fmt.Sprintf("%02d:00", 8+rand.Intn(8)),
		}

		var wg sync.WaitGroup
		for w := 0; w < cfg.Workers; w++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				book(client, cfg.APIBaseURL, tgt, &c)
			}()
		}
		wg.Wait()
	}

	log.Printf("results: created=%d conflict=%d busy=%d invalid=%d errors=%d",
		atomic.LoadInt64(&c.created), atomic.LoadInt64(&c.conflict),
		atomic.LoadInt64(&c.busy), atomic.LoadInt64(&c.invalid),
		atomic.LoadInt64(&c.errors))

	violations, err := countOverlapViolations(ctx, pgPool)
	if err != nil {
		log.Fatalf("invariant check: %v", err)
	}
	if violations > 0 {
		log.Fatalf("INVARIANT VIOLATED: %d overlapping active appointment pairs", violations)
	}
	log.Println("invariant holds: no overlapping active appointments")
}

func book(client *http.Client, baseURL string, tgt target, c *counters) {
	payload, _ := json.Marshal(map[string]any{
		"service_id":       tgt.ServiceID.String(),
		"provider_id":      tgt.ProviderID.String(),
		"appointment_date": tgt.Date,
		"appointment_time": tgt.Time,
	})

	req, err := http.NewRequest(http.MethodPost, baseURL+"/appointments", bytes.NewReader(payload))
	if err != nil {
		atomic.AddInt64(&c.errors, 1)
		return
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Caller-Id", uuid.NewString())
	req.Header.Set("X-Caller-Role", "PATIENT")

	resp, err := client.Do(req)
	if err != nil {
		atomic.AddInt64(&c.errors, 1)
		return
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	switch resp.StatusCode {
	case http.StatusCreated:
		atomic.AddInt64(&c.created, 1)
	case http.StatusConflict:
		// Both taken-time and lock-contention come back as 409; the error
		// code tells them apart.
		var er struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(body, &er) == nil && er.Error == "schedule_busy" {
			atomic.AddInt64(&c.busy, 1)
		} else {
			atomic.AddInt64(&c.conflict, 1)
		}
	case http.StatusBadRequest:
		atomic.AddInt64(&c.invalid, 1)
	default:
		atomic.AddInt64(&c.errors, 1)
	}
}

func loadTargets(ctx context.Context, pool *pgxpool.Pool) ([]uuid.UUID, []uuid.UUID, error) {
	providers, err := collectIDs(ctx, pool, `SELECT id FROM providers WHERE active`)
	if err != nil {
		return nil, nil, err
	}
	services, err := collectIDs(ctx, pool, `SELECT id FROM services WHERE active`)
	if err != nil {
		return nil, nil, err
	}
	return providers, services, nil
}

func collectIDs(ctx context.Context, pool *pgxpool.Pool, query string) ([]uuid.UUID, error) {
	rows, err := pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func countOverlapViolations(ctx context.Context, pool *pgxpool.Pool) (int64, error) {
	var count int64
	err := pool.QueryRow(ctx, `
		SELECT COUNT(*)
		FROM appointments a
		JOIN appointments b
		  ON a.provider_id = b.provider_id
		 AND a.id < b.id
		 AND a.start_time < b.end_time
		 AND b.start_time < a.end_time
		WHERE a.status IN ('PENDING', 'CONFIRMED')
		  AND b.status IN ('PENDING', 'CONFIRMED')
	`).Scan(&count)
	return count, err
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}
