package main

import (
	"math/rand"
	"time"

	"github.com/spf13/cobra"

	"github.com/capitalize-ai/localchat/internal/llm"
	"github.com/capitalize-ai/localchat/internal/middleware"
	"github.com/capitalize-ai/localchat/internal/seed"
	"github.com/capitalize-ai/localchat/internal/service"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Fill the store with demo data",
	RunE:  runSeed,
}

func init() {
	rootCmd.AddCommand(seedCmd)

	flags := seedCmd.Flags()
	flags.Int("users", 20, "number of demo users")
	flags.String("model", "gpt-3.5-turbo", "model tag for demo conversations")
	flags.String("password", "password123", "password for every demo user")
	flags.Int64("seed", 0, "random seed (0 uses the current time)")
}

func runSeed(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	flags := cmd.Flags()
	users, _ := flags.GetInt("users")
	modelTag, _ := flags.GetString("model")
	password, _ := flags.GetString("password")
	randSeed, _ := flags.GetInt64("seed")
	if randSeed == 0 {
		randSeed = time.Now().UnixNano()
	}

	st, err := openStore(ctx, cfg, log, true)
	if err != nil {
		return err
	}
	defer st.Close()

	// Replies come from a canned backend so seeding never needs a model.
	backend := llm.NewStaticClient(seed.SampleMessages...)
	tokens := middleware.NewTokens(cfg.JWTSecret, cfg.JWTExpiration)

	seeder := seed.New(
		service.NewUserService(st, tokens, log),
		service.NewConversationService(st, nil, log),
		service.NewExchangeService(st, backend, nil, cfg.LLMTimeout, log),
		log,
	)
	_, err = seeder.Run(ctx, seed.Options{
		Users:    users,
		Model:    modelTag,
		Password: password,
		Rand:     rand.New(rand.NewSource(randSeed)),
	})
	return err
}
