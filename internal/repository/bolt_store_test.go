package repository_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"go.uber.org/zap"

	"github.com/BienNg/eduinsight-sub000/internal/model"
	"github.com/BienNg/eduinsight-sub000/internal/repository"
	"github.com/BienNg/eduinsight-sub000/pkg/database"
	pkgerrors "github.com/BienNg/eduinsight-sub000/pkg/errors"
)

func newBoltStore(t *testing.T) repository.RecordStore {
	t.Helper()
	db, err := database.OpenBolt(filepath.Join(t.TempDir(), "school.db"), model.Collections, zap.NewNop())
	if err != nil {
		t.Fatalf("打开 bolt 失败: %v", err)
	}
	store := repository.NewBoltStore(db)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestBoltStore_Contract(t *testing.T) {
	runStoreContract(t, newBoltStore(t))
}

func TestBoltStore_UnknownCollection(t *testing.T) {
	store := newBoltStore(t)

	_, err := store.Create(context.Background(), "payments", map[string]any{"x": 1})
	if !errors.Is(err, pkgerrors.ErrUnknownCollection) {
		t.Errorf("期望 ErrUnknownCollection，实际 %v", err)
	}
}

func TestBoltStore_CancelledContext(t *testing.T) {
	store := newBoltStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var out []model.Course
	if err := store.List(ctx, model.CollectionCourses, &out); !errors.Is(err, context.Canceled) {
		t.Errorf("期望 context.Canceled，实际 %v", err)
	}
}

func TestRepository_StudentRoundTrip(t *testing.T) {
	repo := repository.NewRepository(newBoltStore(t))
	ctx := context.Background()

	st := &model.Student{Name: "Peter Schmidt"}
	if err := repo.Student.Create(ctx, st); err != nil {
		t.Fatalf("创建学员失败: %v", err)
	}
	if st.ID == "" {
		t.Fatal("创建后应回填 ID")
	}

	got, err := repo.Student.GetByID(ctx, st.ID)
	if err != nil {
		t.Fatalf("读取学员失败: %v", err)
	}
	if got.JoinDates == nil {
		t.Error("JoinDates 应初始化为空 map")
	}

	if err := repo.Student.Delete(ctx, st.ID); err != nil {
		t.Fatalf("删除学员失败: %v", err)
	}
	list, err := repo.Student.List(ctx)
	if err != nil {
		t.Fatalf("列出学员失败: %v", err)
	}
	if len(list) != 0 {
		t.Errorf("删除后应为空，实际 %d", len(list))
	}
}
