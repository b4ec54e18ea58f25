package cache

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Nop is the cache used when no redis address is configured.
type Nop struct{}

func NewNop() *Nop { return &Nop{} }

func (n *Nop) Get(_ context.Context, _ uuid.UUID, _, _ time.Time, _ any) bool { return false }

func (n *Nop) Set(_ context.Context, _ uuid.UUID, _, _ time.Time, _ any) {}

func (n *Nop) Invalidate(_ context.Context, _ uuid.UUID) {}

func (n *Nop) Close() error { return nil }
