package users_test

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/huddlehq/huddle/internal/users"
)

func setupUsersIntegrationTest(t *testing.T) *users.Service {
	t.Helper()

	dsn := os.Getenv("TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("skip integration test: TEST_POSTGRES_DSN is not set")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Skipf("skip integration test: cannot connect to database: %v", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		t.Skipf("skip integration test: database ping failed: %v", err)
	}
	t.Cleanup(pool.Close)

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	return users.NewService(logger, pool)
}

func uniqueAccount(prefix string) (username, email string) {
	n := time.Now().UnixNano()
	return fmt.Sprintf("%s-%d", prefix, n), fmt.Sprintf("%s-%d@example.com", prefix, n)
}

func TestSignupAndLogin(t *testing.T) {
	svc := setupUsersIntegrationTest(t)
	ctx := context.Background()

	username, email := uniqueAccount("signup")
	created, err := svc.Signup(ctx, username, email, "s3cret-pass")
	if err != nil {
		t.Fatalf("Signup: %v", err)
	}
	if created.ID == "" {
		t.Fatal("Signup returned empty ID")
	}
	if created.Username != username || created.Email != email {
		t.Fatalf("Signup returned %q/%q, want %q/%q", created.Username, created.Email, username, email)
	}

	logged, err := svc.Login(ctx, email, "s3cret-pass")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if logged.ID != created.ID {
		t.Fatalf("Login returned ID %q, want %q", logged.ID, created.ID)
	}

	got, err := svc.Get(ctx, created.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Username != username {
		t.Fatalf("Get returned username %q, want %q", got.Username, username)
	}
}

func TestSignupDuplicateEmail(t *testing.T) {
	svc := setupUsersIntegrationTest(t)
	ctx := context.Background()

	username, email := uniqueAccount("dup")
	if _, err := svc.Signup(ctx, username, email, "pass-one"); err != nil {
		t.Fatalf("Signup: %v", err)
	}
	_, err := svc.Signup(ctx, username+"-other", email, "pass-two")
	if !errors.Is(err, users.ErrUserExists) {
		t.Fatalf("duplicate Signup error = %v, want ErrUserExists", err)
	}
}

func TestLoginRejectsWrongPasswordAndUnknownEmail(t *testing.T) {
	svc := setupUsersIntegrationTest(t)
	ctx := context.Background()

	username, email := uniqueAccount("login")
	if _, err := svc.Signup(ctx, username, email, "right-pass"); err != nil {
		t.Fatalf("Signup: %v", err)
	}

	if _, err := svc.Login(ctx, email, "wrong-pass"); !errors.Is(err, users.ErrInvalidCredentials) {
		t.Fatalf("wrong password error = %v, want ErrInvalidCredentials", err)
	}
	if _, err := svc.Login(ctx, "nobody-"+email, "right-pass"); !errors.Is(err, users.ErrInvalidCredentials) {
		t.Fatalf("unknown email error = %v, want ErrInvalidCredentials", err)
	}
}
