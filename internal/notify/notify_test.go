package notify

import (
	"context"
	"errors"
	"sync"
	"testing"

	"catbot/pkg/logx"
)

type fakeSender struct {
	mu     sync.Mutex
	sent   []int64
	failOn map[int64]bool
}

func (f *fakeSender) SendMessage(ctx context.Context, userID int64, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failOn[userID] {
		return errors.New("chat unreachable")
	}
	f.sent = append(f.sent, userID)
	return nil
}

func (f *fakeSender) SendPhoto(ctx context.Context, userID int64, path, caption string) error {
	return f.SendMessage(ctx, userID, caption)
}

func TestFanoutSurvivesUnreachableRecipient(t *testing.T) {
	t.Parallel()
	fs := &fakeSender{failOn: map[int64]bool{200: true}}
	s := New(fs, 100, logx.Nop())

	s.Fanout(context.Background(), []int64{100, 200, 300}, "walk time")

	if len(fs.sent) != 2 || fs.sent[0] != 100 || fs.sent[1] != 300 {
		t.Fatalf("delivered to %v, want [100 300]", fs.sent)
	}
}

func TestSendCancelledContext(t *testing.T) {
	t.Parallel()
	fs := &fakeSender{}
	s := New(fs, 1, logx.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s.Send(ctx, 100, "hello")
	if len(fs.sent) != 0 {
		t.Fatalf("sent despite cancelled context: %v", fs.sent)
	}
}
