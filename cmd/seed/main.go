package main

import (
	"context"
	"flag"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/Tempest1One/Tradeshow-raffle-magnet/internal/common/config"
	"github.com/Tempest1One/Tradeshow-raffle-magnet/internal/common/logger"
	"github.com/Tempest1One/Tradeshow-raffle-magnet/internal/features/raffle/models"
	raffleRedis "github.com/Tempest1One/Tradeshow-raffle-magnet/internal/features/raffle/repository/redis"
	redisplatform "github.com/Tempest1One/Tradeshow-raffle-magnet/internal/platform/redis"
)

var tiers = []models.Tier{
	{Tier: 1, Name: "Grand", Weight: 0.01, Total: 1, Remaining: 1},
	{Tier: 2, Name: "Premium", Weight: 0.05, Total: 10, Remaining: 10},
	{Tier: 3, Name: "High-Value", Weight: 0.15, Total: 50, Remaining: 50},
	{Tier: 4, Name: "Standard", Weight: 0.30, Total: 100, Remaining: 100},
	{Tier: 5, Name: "Consolation", Weight: 0.49, Total: 189, Remaining: 189},
}

var prizes = []models.Prize{
	{ID: "prize_grand_console", Tier: 1, Name: "Game Console Bundle", Description: "Flagship console with two controllers", Total: 1, Remaining: 1, Active: true},
	{ID: "prize_premium_headphones", Tier: 2, Name: "Noise-Cancelling Headphones", Total: 6, Remaining: 6, Active: true},
	{ID: "prize_premium_speaker", Tier: 2, Name: "Portable Speaker", Total: 4, Remaining: 4, Active: true},
	{ID: "prize_high_powerbank", Tier: 3, Name: "Power Bank 20k", Total: 30, Remaining: 30, Active: true},
	{ID: "prize_high_backpack", Tier: 3, Name: "Tech Backpack", Total: 20, Remaining: 20, Active: true},
	{ID: "prize_std_tumbler", Tier: 4, Name: "Insulated Tumbler", Total: 60, Remaining: 60, Active: true},
	{ID: "prize_std_notebook", Tier: 4, Name: "Hardcover Notebook", Total: 40, Remaining: 40, Active: true},
	{ID: "prize_consolation_stickers", Tier: 5, Name: "Sticker Pack", Total: 120, Remaining: 120, Active: true},
	{ID: "prize_consolation_pen", Tier: 5, Name: "Branded Pen", Total: 69, Remaining: 69, Active: true},
}

func main() {
	cleanup := flag.Bool("cleanup", false, "delete all raffle keys instead of seeding")
	flag.Parse()

	cfg := config.Load()
	logger.Init("raffle-seed", cfg.Debug)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	client, err := redisplatform.Open(ctx,
		fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port),
		cfg.Redis.Password,
		cfg.Redis.DB,
	)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer client.Close()

	if *cleanup {
		removed, err := dropRaffleKeys(ctx, client)
		if err != nil {
			log.Fatal().Err(err).Msg("Cleanup failed")
		}
		log.Info().Int("keys", removed).Msg("Raffle keys removed")
		return
	}

	store := raffleRedis.NewRepository(client, cfg.Store.OpTimeout)

	for i := range tiers {
		if err := store.CreateTier(ctx, &tiers[i]); err != nil {
			log.Fatal().Err(err).Int("tier", tiers[i].Tier).Msg("Failed to seed tier")
		}
	}
	for i := range prizes {
		if err := store.CreatePrize(ctx, &prizes[i]); err != nil {
			log.Fatal().Err(err).Str("prize_id", prizes[i].ID).Msg("Failed to seed prize")
		}
	}

	log.Info().Int("tiers", len(tiers)).Int("prizes", len(prizes)).Msg("Prize pool seeded")
}

func dropRaffleKeys(ctx context.Context, client *redisplatform.Client) (int, error) {
	var (
		cursor  uint64
		removed int
	)
	for {
		keys, next, err := client.Scan(ctx, cursor, "raffle:*", 100).Result()
		if err != nil {
			return removed, err
		}
		if len(keys) > 0 {
			if err := client.Del(ctx, keys...).Err(); err != nil {
				return removed, err
			}
			removed += len(keys)
		}
		cursor = next
		if cursor == 0 {
			return removed, nil
		}
	}
}
