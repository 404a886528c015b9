package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sanfelipe/dental-clinic-backend/internal/db"
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

	dentists, err := seedDentists(context.Background(), pool, 8)
	if err != nil {
		log.Fatalf("seed dentists: %v", err)
	}
	patients, err := seedPatients(context.Background(), pool, 500)
	if err != nil {
		log.Fatalf("seed patients: %v", err)
	}
	if err := seedAppointments(context.Background(), pool, dentists, patients, 200); err != nil {
		log.Fatalf("seed appointments: %v", err)
	}

	log.Println("seed complete")
}

func seedDentists(ctx context.Context, pool *pgxpool.Pool, count int) ([]uuid.UUID, error) {
	log.Printf("seeding %d dentists", count)

	specialties := []string{
		"General Dentistry",
		"Orthodontics",
		"Endodontics",
		"Periodontics",
		"Oral Surgery",
		"Pediatric Dentistry",
		"Prosthodontics",
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	ids := make([]uuid.UUID, 0, count)
	for i := 0; i < count; i++ {
		id := uuid.New()
		name := gofakeit.Name()
		spec := specialties[gofakeit.Number(0, len(specialties)-1)]

		_, err := tx.Exec(ctx, `
			INSERT INTO dentists (id, name, specialty, created_at, updated_at)
			VALUES ($1, $2, $3, now(), now())
		`, id, name, spec)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}

	return ids, tx.Commit(ctx)
}

func seedPatients(ctx context.Context, pool *pgxpool.Pool, count int) ([]uuid.UUID, error) {
	log.Printf("seeding %d patients", count)

	tx, err := pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	ids := make([]uuid.UUID, 0, count)
	for i := 0; i < count; i++ {
		id := uuid.New()
		phone := fmt.Sprintf("+52155%08d", gofakeit.Number(0, 99999999))

		_, err := tx.Exec(ctx, `
			INSERT INTO patients (id, first_name, last_name, phone, email, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, now(), now())
		`, id, gofakeit.FirstName(), gofakeit.LastName(), phone, gofakeit.Email())
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}

	return ids, tx.Commit(ctx)
}

// seedAppointments lays out back-to-back 30 minute visits per dentist over
// the coming days, so seeded data never violates the overlap invariant.
func seedAppointments(ctx context.Context, pool *pgxpool.Pool, dentists, patients []uuid.UUID, count int) error {
	log.Printf("seeding %d appointments", count)

	reasons := []string{
		"Routine cleaning",
		"Cavity filling",
		"Root canal",
		"Crown fitting",
		"Tooth extraction",
		"Orthodontic check",
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	dayStart := time.Now().AddDate(0, 0, 1).Truncate(24 * time.Hour).Add(9 * time.Hour)
	slotsPerDay := 14 // 09:00 through 16:00, 30 minute slots

	for i := 0; i < count; i++ {
		dentist := dentists[i%len(dentists)]
		patient := patients[gofakeit.Number(0, len(patients)-1)]
		reason := reasons[gofakeit.Number(0, len(reasons)-1)]

		slot := i / len(dentists)
		day := slot / slotsPerDay
		start := dayStart.AddDate(0, 0, day).Add(time.Duration(slot%slotsPerDay) * 30 * time.Minute)

		_, err := tx.Exec(ctx, `
			INSERT INTO appointments (id, patient_id, dentist_id, start_time, duration_min, reason, status, created_at, updated_at)
			VALUES ($1, $2, $3, $4, 30, $5, 'scheduled', now(), now())
		`, uuid.New(), patient, dentist, start, reason)
		if err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}
