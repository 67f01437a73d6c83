package models

import (
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/cydxin/community-sdk/cons"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

// TestPostBeforeCreate 测试 Post/Comment 创建时默认审核状态为 active
func TestPostBeforeCreate(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New failed: %v", err)
	}
	defer sqlDB.Close()

	db, err := gorm.Open(mysql.New(mysql.Config{
		Conn:                      sqlDB,
		SkipInitializeWithVersion: true,
	}), &gorm.Config{
		SkipDefaultTransaction: true,
	})
	if err != nil {
		t.Fatalf("gorm.Open failed: %v", err)
	}

	t.Run("DefaultActive", func(t *testing.T) {
		p := &Post{AuthorID: 1, Title: "hello", Body: "world"}
		mock.ExpectExec("INSERT INTO `cm_post`").
			WillReturnResult(sqlmock.NewResult(1, 1))

		if err := db.Create(p).Error; err != nil {
			t.Fatalf("Create failed: %v", err)
		}
		if p.Moderation.Status != cons.StatusActive {
			t.Errorf("status should default to active, got %q", p.Moderation.Status)
		}
		if p.ID != 1 {
			t.Errorf("expected id 1, got %d", p.ID)
		}
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("Unfulfilled expectations: %v", err)
		}
	})

	// 已经给定状态（例如自动隐藏）时不覆盖
	t.Run("PreserveHidden", func(t *testing.T) {
		c := &Comment{PostID: 1, AuthorID: 2, Body: "x", Moderation: Moderation{Status: cons.StatusHidden, AutoFlagged: true}}
		mock.ExpectExec("INSERT INTO `cm_comment`").
			WillReturnResult(sqlmock.NewResult(5, 1))

		if err := db.Create(c).Error; err != nil {
			t.Fatalf("Create failed: %v", err)
		}
		if c.Moderation.Status != cons.StatusHidden {
			t.Errorf("status should be preserved, got %q", c.Moderation.Status)
		}
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("Unfulfilled expectations: %v", err)
		}
	})
}

func TestTableNames(t *testing.T) {
	cases := map[string]string{
		Post{}.TableName():         "cm_post",
		Comment{}.TableName():      "cm_comment",
		Upvote{}.TableName():       "cm_upvote",
		Report{}.TableName():       "cm_report",
		Notification{}.TableName(): "cm_notification",
	}
	for got, want := range cases {
		if got != want {
			t.Errorf("TableName() = %s, want %s", got, want)
		}
	}
}

func TestModerationVisibleTo(t *testing.T) {
	const author, other = uint64(1), uint64(2)
	cases := []struct {
		status cons.ModerationStatus
		viewer uint64
		admin  bool
		want   bool
	}{
		{cons.StatusActive, other, false, true},
		{cons.StatusActive, 0, false, true},
		{cons.StatusHidden, other, false, false},
		{cons.StatusHidden, author, false, true},
		{cons.StatusUnderReview, author, false, true},
		{cons.StatusUnderReview, other, true, true},
		{cons.StatusDeleted, author, false, false},
		{cons.StatusDeleted, other, true, true},
	}
	for _, c := range cases {
		m := Moderation{Status: c.status}
		if got := m.VisibleTo(c.viewer, author, c.admin); got != c.want {
			t.Errorf("VisibleTo(status=%s viewer=%d admin=%v) = %v, want %v", c.status, c.viewer, c.admin, got, c.want)
		}
	}
}
