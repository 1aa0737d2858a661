package repository

import (
	"context"

	"shop/internal/domain/model"
)

// 監査ログの保存の約束（管理者によるステータス変更・支払い取消）。
type AuditLogRepository interface {
	Create(ctx context.Context, log model.AuditLog) error
	// 対象リソースの履歴を古い順に返す
	ListByResource(ctx context.Context, resourceType model.AuditResourceType, resourceID int64) ([]model.AuditLog, error)
}
