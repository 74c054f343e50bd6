package service

import (
	"context"
	"time"
)

// ResultCache: быстрый слой перед таблицей идемпотентности (Redis).
type ResultCache interface {
	GetResult(ctx context.Context, key string) ([]byte, error)
	SetResult(ctx context.Context, key string, result []byte, ttl time.Duration) error
}

// CommitObserver получает исход каждой попытки коммита.
type CommitObserver interface {
	ObserveCommit(outcome string, elapsed time.Duration)
}

// HoldReleaser снимает мягкие резервы после успешного заказа.
type HoldReleaser interface {
	ReleaseItems(sessionID string, itemIDs []string) int
}

const (
	OutcomeCommitted    = "committed"
	OutcomeReplayed     = "replayed"
	OutcomeInsufficient = "insufficient"
	OutcomeInvalid      = "invalid"
	OutcomeFailed       = "failed"
)
