package messages_test

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/huddlehq/huddle/internal/channels"
	"github.com/huddlehq/huddle/internal/messages"
	"github.com/huddlehq/huddle/internal/users"
)

type messagesTestEnv struct {
	messages *messages.Service
	channels *channels.Service
	users    *users.Service
}

func setupMessagesIntegrationTest(t *testing.T) messagesTestEnv {
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
	return messagesTestEnv{
		messages: messages.NewService(logger, pool),
		channels: channels.NewService(logger, pool),
		users:    users.NewService(logger, pool),
	}
}

func (env messagesTestEnv) seedChannel(t *testing.T) (users.User, channels.Channel) {
	t.Helper()
	ctx := context.Background()
	n := time.Now().UnixNano()
	sender, err := env.users.Signup(ctx,
		fmt.Sprintf("sender-%d", n),
		fmt.Sprintf("sender-%d@example.com", n),
		"history-test-pass")
	if err != nil {
		t.Fatalf("Signup: %v", err)
	}
	ch, err := env.channels.Create(ctx, sender.ID, fmt.Sprintf("history-%d", n), "", false)
	if err != nil {
		t.Fatalf("Create channel: %v", err)
	}
	return sender, ch
}

func TestCreateRecordsSenderName(t *testing.T) {
	env := setupMessagesIntegrationTest(t)
	ctx := context.Background()
	sender, ch := env.seedChannel(t)

	msg, err := env.messages.Create(ctx, "hello there", sender.ID, ch.ID)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if msg.SenderDisplayName != sender.Username {
		t.Fatalf("SenderDisplayName = %q, want %q", msg.SenderDisplayName, sender.Username)
	}
	if msg.ChannelID != ch.ID || msg.SenderID != sender.ID {
		t.Fatalf("message routing fields = %q/%q, want %q/%q", msg.ChannelID, msg.SenderID, ch.ID, sender.ID)
	}
}

func TestCreateIntoMissingChannel(t *testing.T) {
	env := setupMessagesIntegrationTest(t)
	ctx := context.Background()
	sender, _ := env.seedChannel(t)

	_, err := env.messages.Create(ctx, "void", sender.ID, uuid.NewString())
	if !errors.Is(err, messages.ErrChannelNotFound) {
		t.Fatalf("Create into missing channel error = %v, want ErrChannelNotFound", err)
	}
}

func TestListPaginatesNewestFirstWindows(t *testing.T) {
	env := setupMessagesIntegrationTest(t)
	ctx := context.Background()
	sender, ch := env.seedChannel(t)

	const total = 7
	for i := 0; i < total; i++ {
		if _, err := env.messages.Create(ctx, fmt.Sprintf("msg-%d", i), sender.ID, ch.ID); err != nil {
			t.Fatalf("Create #%d: %v", i, err)
		}
		// keep created_at strictly increasing so ordering is deterministic
		time.Sleep(2 * time.Millisecond)
	}

	// page 1 holds the 3 newest messages, returned in ascending order
	page1, err := env.messages.List(ctx, ch.ID, 1, 3)
	if err != nil {
		t.Fatalf("List page 1: %v", err)
	}
	if page1.Total != total {
		t.Fatalf("Total = %d, want %d", page1.Total, total)
	}
	if page1.Pages != 3 {
		t.Fatalf("Pages = %d, want 3", page1.Pages)
	}
	if !page1.HasMore {
		t.Fatal("page 1 HasMore = false, want true")
	}
	got := make([]string, 0, len(page1.Messages))
	for _, m := range page1.Messages {
		got = append(got, m.Content)
	}
	want := []string{"msg-4", "msg-5", "msg-6"}
	if len(got) != len(want) {
		t.Fatalf("page 1 = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("page 1 = %v, want %v", got, want)
		}
	}

	// the last page is short and HasMore turns off
	page3, err := env.messages.List(ctx, ch.ID, 3, 3)
	if err != nil {
		t.Fatalf("List page 3: %v", err)
	}
	if len(page3.Messages) != 1 || page3.Messages[0].Content != "msg-0" {
		t.Fatalf("page 3 = %+v, want only msg-0", page3.Messages)
	}
	if page3.HasMore {
		t.Fatal("page 3 HasMore = true, want false")
	}

	// out-of-range pages return an empty window, not an error
	page9, err := env.messages.List(ctx, ch.ID, 9, 3)
	if err != nil {
		t.Fatalf("List page 9: %v", err)
	}
	if len(page9.Messages) != 0 || page9.HasMore {
		t.Fatalf("page 9 = %+v HasMore=%v, want empty window", page9.Messages, page9.HasMore)
	}
}

func TestListEmptyChannel(t *testing.T) {
	env := setupMessagesIntegrationTest(t)
	ctx := context.Background()
	_, ch := env.seedChannel(t)

	page, err := env.messages.List(ctx, ch.ID, 0, 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if page.Page != messages.DefaultPage || page.Limit != messages.DefaultLimit {
		t.Fatalf("defaults not applied: page=%d limit=%d", page.Page, page.Limit)
	}
	if page.Total != 0 || page.HasMore || len(page.Messages) != 0 {
		t.Fatalf("empty channel page = %+v, want zero values", page)
	}
}
