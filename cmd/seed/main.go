// Seed utility for local development: inserts a demo agency, a handful of
// jobs and candidates, then prints the ids so the matching routes can be
// exercised by hand. Safe to re-run — rows are inserted with
// ON CONFLICT DO NOTHING.
package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/google/uuid"

	"jobmate/matching-service/internal/db"
	"jobmate/matching-service/internal/store"
)

func main() {
	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		log.Fatal("[seed] DATABASE_URL is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := db.NewPostgresPool(ctx, databaseURL)
	if err != nil {
		log.Fatalf("[seed] PostgreSQL: %v", err)
	}
	defer pool.Close()

	// Store construction ensures the schema exists.
	if _, err := store.New(ctx, pool); err != nil {
		log.Fatalf("[seed] Schema: %v", err)
	}

	agencyID := uuid.NewString()
	if _, err := pool.Exec(ctx,
		`INSERT INTO agencies (id, name, subscription_tier)
		 VALUES ($1, 'Demo Staffing', 'standard')
		 ON CONFLICT (id) DO NOTHING`,
		agencyID,
	); err != nil {
		log.Fatalf("[seed] agency: %v", err)
	}

	jobs := []struct {
		title, skills, arrangement, shift, city string
		salaryMin, salaryMax                    int
	}{
		{"Customer Service Representative", `["excel","zendesk"]`, "onsite", "day", "Manila", 18000, 25000},
		{"Senior Support Engineer", `["zendesk","sql","jira"]`, "hybrid", "day", "Cebu", 45000, 65000},
		{"Night Shift Support Agent", `[{"name":"Excel"},{"name":"Salesforce"}]`, "remote", "night", "", 25000, 32000},
	}
	for _, j := range jobs {
		id := uuid.NewString()
		if _, err := pool.Exec(ctx,
			`INSERT INTO jobs (id, agency_id, title, skills, salary_min, salary_max,
			                   work_arrangement, shift, location_city, status)
			 VALUES ($1, $2, $3, $4::jsonb, $5, $6, $7, $8, NULLIF($9, ''), 'active')
			 ON CONFLICT (id) DO NOTHING`,
			id, agencyID, j.title, j.skills, j.salaryMin, j.salaryMax,
			j.arrangement, j.shift, j.city,
		); err != nil {
			log.Fatalf("[seed] job %q: %v", j.title, err)
		}
		log.Printf("[seed] job %s — %s", id, j.title)
	}

	candidates := []struct {
		skills, setup, shift, city string
		years, salaryMin           int
	}{
		{`["excel","customer service","zendesk"]`, "onsite", "day", "Manila", 3, 20000},
		{`["sql","jira","zendesk"]`, "hybrid", "flexible", "Cebu", 6, 50000},
		{`[{"name":"Salesforce"},{"name":"Excel"}]`, "remote", "night", "Davao", 2, 28000},
	}
	for _, c := range candidates {
		id := uuid.NewString()
		if _, err := pool.Exec(ctx,
			`INSERT INTO candidates (id, skills, experience_years, expected_salary_min,
			                         preferred_work_setup, preferred_shift, location_city,
			                         work_status, is_active)
			 VALUES ($1, $2::jsonb, $3, $4, $5, $6, $7, 'actively_looking', true)
			 ON CONFLICT (id) DO NOTHING`,
			id, c.skills, c.years, c.salaryMin, c.setup, c.shift, c.city,
		); err != nil {
			log.Fatalf("[seed] candidate: %v", err)
		}
		log.Printf("[seed] candidate %s", id)
	}

	log.Printf("[seed] done — agency %s (standard tier)", agencyID)
}
