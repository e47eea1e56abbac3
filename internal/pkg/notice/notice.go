package notice

import (
	"fmt"
	"io"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Notifier shows a message to the user for roughly d.
type Notifier interface {
	Notify(message string, d time.Duration)
}

// Notice is a message that stays visible until ExpiresAt.
type Notice struct {
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Multi fans a notice out to every notifier in order.
type Multi []Notifier

func (m Multi) Notify(message string, d time.Duration) {
	for _, n := range m {
		if n != nil {
			n.Notify(message, d)
		}
	}
}

// LogNotifier prints notices to out and records them in the log.
type LogNotifier struct {
	logger *zap.Logger
	out    io.Writer
	mu     sync.Mutex
}

func NewLogNotifier(logger *zap.Logger, out io.Writer) *LogNotifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogNotifier{logger: logger, out: out}
}

func (n *LogNotifier) Notify(message string, d time.Duration) {
	n.logger.Warn("notice", zap.String("message", message), zap.Duration("duration", d))
	if n.out == nil {
		return
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	fmt.Fprintln(n.out, message)
}

// Board keeps notices until they expire, for surfaces that poll for them.
type Board struct {
	mu      sync.Mutex
	notices []Notice
	now     func() time.Time
}

func NewBoard() *Board {
	return &Board{now: time.Now}
}

func (b *Board) Notify(message string, d time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()
	now := b.now()
	b.prune(now)
	b.notices = append(b.notices, Notice{Message: message, CreatedAt: now, ExpiresAt: now.Add(d)})
}

// Active returns the notices that have not yet expired, oldest first.
func (b *Board) Active() []Notice {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.prune(b.now())
	out := make([]Notice, len(b.notices))
	copy(out, b.notices)
	return out
}

func (b *Board) prune(now time.Time) {
	kept := b.notices[:0]
	for _, n := range b.notices {
		if now.Before(n.ExpiresAt) {
			kept = append(kept, n)
		}
	}
	b.notices = kept
}
