package repository

import (
	"context"
	"time"

	"github.com/cydxin/community-sdk/cons"
	"github.com/cydxin/community-sdk/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ReportDAO 举报流水
type ReportDAO struct {
	db *gorm.DB
}

func NewReportDAO(db *gorm.DB) *ReportDAO {
	return &ReportDAO{db: db}
}

func (dao *ReportDAO) Append(ctx context.Context, r *models.Report) (bool, int64, error) {
	var (
		created  bool
		position int64
	)
	err := dao.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// 同一目标的举报串行化，position 才不会重复
		// 内置类型锁目标行；外部注册的类型没有本地表，改为锁定流水行
		if targetModel(r.TargetKind) != nil {
			if _, err := lockTarget(tx, r.TargetKind, r.TargetID); err != nil {
				return err
			}
		} else {
			var n int64
			if err := tx.Model(&models.Report{}).Clauses(forUpdate).
				Where("target_kind = ? AND target_id = ?", r.TargetKind, r.TargetID).
				Count(&n).Error; err != nil {
				return err
			}
		}

		// 唯一索引 (target_kind, target_id, reporter_id)：重复举报直接忽略
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(r)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		created = true
		return tx.Model(&models.Report{}).
			Where("target_kind = ? AND target_id = ?", r.TargetKind, r.TargetID).
			Count(&position).Error
	})
	if err != nil {
		return false, 0, err
	}
	return created, position, nil
}

func (dao *ReportDAO) ListByTarget(ctx context.Context, kind cons.TargetKind, id uint64) ([]models.Report, error) {
	var out []models.Report
	err := dao.db.WithContext(ctx).
		Where("target_kind = ? AND target_id = ?", kind, id).
		Order("id ASC").
		Find(&out).Error
	return out, err
}

func (dao *ReportDAO) CountByTargets(ctx context.Context, kind cons.TargetKind, ids []uint64) (map[uint64]int64, error) {
	out := make(map[uint64]int64, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var rows []struct {
		TargetID uint64
		Cnt      int64
	}
	if err := dao.db.WithContext(ctx).Model(&models.Report{}).
		Select("target_id, COUNT(*) AS cnt").
		Where("target_kind = ? AND target_id IN ?", kind, ids).
		Group("target_id").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	for _, r := range rows {
		out[r.TargetID] = r.Cnt
	}
	return out, nil
}

func (dao *ReportDAO) CountSince(ctx context.Context, kind cons.TargetKind, id uint64, since time.Time) (int64, error) {
	var n int64
	err := dao.db.WithContext(ctx).Model(&models.Report{}).
		Where("target_kind = ? AND target_id = ? AND created_at >= ?", kind, id, since).
		Count(&n).Error
	return n, err
}
