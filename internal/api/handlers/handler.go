package handlers

import (
	"context"

	"recipe-modifier/internal/core/diff"
	"recipe-modifier/internal/core/quota"
)

// UsageTracker 額度追蹤操作
type UsageTracker interface {
	CheckAndIncrement(ctx context.Context, userID string) (quota.Decision, error)
	GetUsage(ctx context.Context, userID string) (quota.Usage, error)
}

// Handler 食譜比對與額度 API 處理器
type Handler struct {
	assembler *diff.Assembler
	tracker   UsageTracker
}

// NewHandler 創建處理器
func NewHandler(assembler *diff.Assembler, tracker UsageTracker) *Handler {
	return &Handler{
		assembler: assembler,
		tracker:   tracker,
	}
}
