package service

import (
	"context"
	"fmt"

	"campus-calendar/internal/repository"
)

// inTx 在单个事务中执行 fn，fn 返回错误或 panic 时回滚
//
// repo 未绑定数据库连接时 BeginTx 返回 nil，此时不开启事务，fn 直接在原 Repository 上执行。
func inTx(ctx context.Context, repo *repository.Repository, fn func(txRepo *repository.Repository) error) (err error) {
	tx, err := repo.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("开启事务失败: %w", err)
	}
	defer func() {
		if r := recover(); r != nil {
			if tx != nil {
				tx.Rollback()
			}
			panic(r)
		}
	}()

	if err := fn(repo.WithTx(tx)); err != nil {
		if tx != nil {
			tx.Rollback()
		}
		return err
	}

	if tx != nil {
		if err := tx.Commit().Error; err != nil {
			return fmt.Errorf("提交事务失败: %w", err)
		}
	}
	return nil
}
