package main

import (
	"context"
	"database/sql"
	"errors"
	"sync"

	_ "github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"

	"stayhub/internal/adapters/catalog"
	"stayhub/internal/adapters/observability"
	"stayhub/internal/app"
	"stayhub/internal/domain"
	"stayhub/internal/shared"
	mysqlrepo "stayhub/internal/storage/mysql"
)

// The sweeper closes out stays: any confirmed reservation whose checkout has
// passed and whose balance is settled is moved to completed. Reservations
// with money still owed are left alone and reported.
func main() {
	ctx := context.Background()
	cfg := shared.Load()

	log.Logger = observability.NewLogger(cfg.AppEnv)
	log.Info().Int("workers", cfg.SweepWorkers).Msg("sweeper starting")

	db, err := sql.Open("mysql", cfg.MySQLDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("sql.Open failed")
	}
	if err := db.Ping(); err != nil {
		log.Fatal().Err(err).Msg("db.Ping failed")
	}
	log.Info().Msg("db ping ok")

	repo := mysqlrepo.New(db)
	cat, err := catalog.New(cfg.CatalogBase, cfg.CatalogKey, 10)
	if err != nil {
		log.Fatal().Err(err).Msg("catalog client init failed")
	}
	clock := app.SystemClock()
	bookings := app.NewBookingService(repo, cat, clock, cfg.MinDeposit)

	confirmed := domain.BookingConfirmed
	candidates, err := repo.ListReservations(ctx, domain.ReservationsQuery{Status: &confirmed})
	if err != nil {
		log.Fatal().Err(err).Msg("list confirmed reservations failed")
	}

	today := domain.DateOnly(clock.Now())
	sem := semaphore.NewWeighted(int64(cfg.SweepWorkers))
	var wg sync.WaitGroup
	var completed, skipped int64
	var mu sync.Mutex

	for _, r := range candidates {
		if today.Before(r.CheckOut) {
			continue // stay still in progress
		}

		if err := sem.Acquire(ctx, 1); err != nil {
			log.Fatal().Err(err).Msg("semaphore acquire failed")
		}
		wg.Add(1)
		go func(id int64) {
			defer wg.Done()
			defer sem.Release(1)

			_, err := bookings.Complete(ctx, id)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				completed++
				log.Info().Int64("id", id).Msg("reservation completed")
			case errors.Is(err, domain.ErrBalanceOutstanding):
				skipped++
				log.Warn().Int64("id", id).Msg("balance outstanding, left confirmed")
			case errors.Is(err, domain.ErrConflict):
				skipped++
				log.Warn().Int64("id", id).Msg("lost transition race, skipped")
			default:
				skipped++
				log.Warn().Int64("id", id).Err(err).Msg("complete failed")
			}
		}(r.ID)
	}

	wg.Wait()
	log.Info().Int64("completed", completed).Int64("skipped", skipped).Msg("sweep finished")
}
