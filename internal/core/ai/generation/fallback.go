package generation

import (
	"context"
	"errors"
	"fmt"

	"recipe-keeper/internal/pkg/common"

	"go.uber.org/zap"
)

// ErrNoCandidates 沒有任何可嘗試的候選
var ErrNoCandidates = errors.New("no candidates to try")

// FirstSuccess 依序嘗試每個候選，回傳第一個成功的結果
//
// 全部失敗時回傳所有失敗原因的合併錯誤。context 取消時立即停止，不再嘗試後續候選。
func FirstSuccess[C any, R any](ctx context.Context, candidates []C, try func(context.Context, C) (R, error)) (R, error) {
	var zero R
	if len(candidates) == 0 {
		return zero, ErrNoCandidates
	}

	errs := make([]error, 0, len(candidates))
	for i, candidate := range candidates {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}

		result, err := try(ctx, candidate)
		if err == nil {
			return result, nil
		}

		common.LogWarn("Candidate failed, trying next",
			zap.Int("attempt", i+1),
			zap.Int("candidates", len(candidates)),
			zap.Error(err),
		)
		errs = append(errs, fmt.Errorf("candidate %d: %w", i+1, err))
	}

	return zero, errors.Join(errs...)
}
