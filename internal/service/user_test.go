package service

import (
	"context"
	"errors"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/capitalize-ai/localchat/internal/model"
	"github.com/capitalize-ai/localchat/internal/store/memory"
)

type fakeTokens struct{}

func (fakeTokens) IssueToken(userID, email string) (string, error) {
	return "token-" + userID, nil
}

func newUserService() *UserService {
	return NewUserService(memory.New(), fakeTokens{}, nil).WithBcryptCost(bcrypt.MinCost)
}

func TestSignup(t *testing.T) {
	ctx := context.Background()
	svc := newUserService()

	user, err := svc.Signup(ctx, &model.SignupRequest{Name: "Ada", Email: "ada@example.com", Password: "correct horse"})
	if err != nil {
		t.Fatalf("Signup: %v", err)
	}
	if user.PasswordHash == "correct horse" || user.PasswordHash == "" {
		t.Error("expected password to be hashed")
	}
	if user.Name == nil || *user.Name != "Ada" {
		t.Errorf("unexpected name: %v", user.Name)
	}

	var conflict *ConflictError
	_, err = svc.Signup(ctx, &model.SignupRequest{Email: "ADA@example.com", Password: "another pass"})
	if !errors.As(err, &conflict) {
		t.Errorf("expected ConflictError, got %v", err)
	}

	tests := []struct {
		name  string
		req   model.SignupRequest
		field string
	}{
		{"missing email", model.SignupRequest{Password: "long enough"}, "email"},
		{"bad email", model.SignupRequest{Email: "not-an-email", Password: "long enough"}, "email"},
		{"missing password", model.SignupRequest{Email: "bob@example.com"}, "password"},
		{"short password", model.SignupRequest{Email: "bob@example.com", Password: "short"}, "password"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Signup(ctx, &tt.req)
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if _, ok := verr.Fields[tt.field]; !ok {
				t.Errorf("expected field %q, got %v", tt.field, verr.Fields)
			}
		})
	}
}

func TestLoginAndMe(t *testing.T) {
	ctx := context.Background()
	svc := newUserService()

	user, err := svc.Signup(ctx, &model.SignupRequest{Email: "ada@example.com", Password: "correct horse"})
	if err != nil {
		t.Fatalf("Signup: %v", err)
	}

	resp, err := svc.Login(ctx, &model.LoginRequest{Email: "ada@example.com", Password: "correct horse"})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if resp.Token != "token-"+user.ID || resp.User.ID != user.ID {
		t.Errorf("unexpected login response: %+v", resp)
	}

	var unauthorized *UnauthorizedError
	if _, err := svc.Login(ctx, &model.LoginRequest{Email: "ada@example.com", Password: "wrong password"}); !errors.As(err, &unauthorized) {
		t.Errorf("expected UnauthorizedError for wrong password, got %v", err)
	}
	if _, err := svc.Login(ctx, &model.LoginRequest{Email: "nobody@example.com", Password: "whatever"}); !errors.As(err, &unauthorized) {
		t.Errorf("expected UnauthorizedError for unknown email, got %v", err)
	}

	var verr *ValidationError
	if _, err := svc.Login(ctx, &model.LoginRequest{Email: "ada@example.com"}); !errors.As(err, &verr) {
		t.Errorf("expected ValidationError, got %v", err)
	}

	me, err := svc.Me(ctx, user.ID)
	if err != nil || me.Email != "ada@example.com" {
		t.Errorf("Me: %v, %+v", err, me)
	}

	var nf *NotFoundError
	if _, err := svc.Me(ctx, "missing"); !errors.As(err, &nf) {
		t.Errorf("expected NotFoundError, got %v", err)
	}
}
