// Package seed fills a store with demo users, conversations and messages.
package seed

import (
	"context"
	"errors"
	"fmt"
	"math/rand"

	"go.uber.org/zap"

	"github.com/capitalize-ai/localchat/internal/model"
	"github.com/capitalize-ai/localchat/internal/service"
	"github.com/capitalize-ai/localchat/pkg/logger"
)

// SampleMessages are the canned contents used for demo messages and replies.
var SampleMessages = []string{
	"Hello, how can I help you?",
	"What is the weather today?",
	"Can you explain Prisma?",
	"Sure! Here's an example.",
	"Let's build something awesome!",
	"Testing message content.",
	"I like this chat model.",
}

var roles = []model.Role{model.RoleUser, model.RoleAssistant, model.RoleSystem}

// Options controls how much demo data is written.
type Options struct {
	Users    int
	Model    string
	Password string
	Rand     *rand.Rand
}

// Result counts what was written.
type Result struct {
	Users         int
	Conversations int
	Messages      int
	Skipped       int
}

// Seeder writes demo data through the services so that the same rules
// apply as for API traffic.
type Seeder struct {
	users         *service.UserService
	conversations *service.ConversationService
	exchange      *service.ExchangeService
	logger        *logger.Logger
}

// New creates a seeder.
func New(users *service.UserService, convs *service.ConversationService, exchange *service.ExchangeService, log *logger.Logger) *Seeder {
	if log == nil {
		log = logger.Nop()
	}
	return &Seeder{users: users, conversations: convs, exchange: exchange, logger: log}
}

// Run creates opts.Users users demo_user1..N, each with one to three
// conversations of two to five submitted messages. Users whose email is
// already taken are skipped, so Run can be repeated.
func (s *Seeder) Run(ctx context.Context, opts Options) (*Result, error) {
	rng := opts.Rand
	if rng == nil {
		rng = rand.New(rand.NewSource(1))
	}
	res := &Result{}

	for i := 1; i <= opts.Users; i++ {
		email := fmt.Sprintf("demo_user%d@example.com", i)
		user, err := s.users.Signup(ctx, &model.SignupRequest{
			Name:     fmt.Sprintf("Demo User %d", i),
			Email:    email,
			Password: opts.Password,
		})
		if err != nil {
			var conflict *service.ConflictError
			if errors.As(err, &conflict) {
				s.logger.Info("skipping existing user", zap.String("email", email))
				res.Skipped++
				continue
			}
			return res, fmt.Errorf("failed to create %s: %w", email, err)
		}
		res.Users++

		convCount := rng.Intn(3) + 1
		for j := 0; j < convCount; j++ {
			title := fmt.Sprintf("Demo Conversation %d", j+1)
			conv, err := s.conversations.Create(ctx, &model.CreateConversationRequest{
				UserID: user.ID,
				Model:  opts.Model,
				Title:  &title,
			})
			if err != nil {
				return res, fmt.Errorf("failed to create conversation for %s: %w", email, err)
			}
			res.Conversations++

			msgCount := rng.Intn(4) + 2
			for k := 0; k < msgCount; k++ {
				tokens := rng.Intn(50) + 1
				resp, err := s.exchange.Submit(ctx, service.SubmitInput{
					ConversationID: conv.ID,
					Role:           roles[rng.Intn(len(roles))],
					Content:        SampleMessages[rng.Intn(len(SampleMessages))],
					Tokens:         &tokens,
				})
				if err != nil {
					return res, fmt.Errorf("failed to submit message: %w", err)
				}
				res.Messages++
				if resp.Assistant != nil {
					res.Messages++
				}
			}
		}
	}

	s.logger.Info("seeding completed",
		zap.Int("users", res.Users),
		zap.Int("conversations", res.Conversations),
		zap.Int("messages", res.Messages),
		zap.Int("skipped", res.Skipped),
	)
	return res, nil
}
