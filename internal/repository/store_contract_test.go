package repository_test

import (
	"context"
	"errors"
	"testing"

	"github.com/BienNg/eduinsight-sub000/internal/model"
	"github.com/BienNg/eduinsight-sub000/internal/repository"
	pkgerrors "github.com/BienNg/eduinsight-sub000/pkg/errors"
)

// runStoreContract 两种存储后端共用的行为约定
func runStoreContract(t *testing.T, store repository.RecordStore) {
	ctx := context.Background()

	t.Run("CreateAssignsID", func(t *testing.T) {
		id, err := store.Create(ctx, model.CollectionTeachers, &model.Teacher{Name: "Maria Lopez"})
		if err != nil {
			t.Fatalf("Create 失败: %v", err)
		}
		var got model.Teacher
		if err := store.GetByID(ctx, model.CollectionTeachers, id, &got); err != nil {
			t.Fatalf("GetByID 失败: %v", err)
		}
		if got.ID != id || got.Name != "Maria Lopez" {
			t.Errorf("文档内容不符: %+v", got)
		}
	})

	t.Run("GetMissing", func(t *testing.T) {
		var got model.Teacher
		err := store.GetByID(ctx, model.CollectionTeachers, "missing", &got)
		if !errors.Is(err, pkgerrors.ErrRecordNotFound) {
			t.Errorf("期望 ErrRecordNotFound，实际 %v", err)
		}
	})

	t.Run("SetExplicitID", func(t *testing.T) {
		m := &model.Month{Name: "März 2024", Year: 2024, Month: 3}
		if err := store.Set(ctx, model.CollectionMonths, "2024-3", m); err != nil {
			t.Fatalf("Set 失败: %v", err)
		}
		m.SessionCount = 4
		if err := store.Set(ctx, model.CollectionMonths, "2024-3", m); err != nil {
			t.Fatalf("重复 Set 失败: %v", err)
		}
		var got model.Month
		if err := store.GetByID(ctx, model.CollectionMonths, "2024-3", &got); err != nil {
			t.Fatalf("GetByID 失败: %v", err)
		}
		if got.ID != "2024-3" || got.SessionCount != 4 {
			t.Errorf("Set 应覆盖原文档: %+v", got)
		}
	})

	t.Run("UpdateMergesFields", func(t *testing.T) {
		id, err := store.Create(ctx, model.CollectionStudents, &model.Student{Name: "Anna Nguyen", Notes: "vorher"})
		if err != nil {
			t.Fatalf("Create 失败: %v", err)
		}
		merged, err := store.Update(ctx, model.CollectionStudents, id, map[string]any{
			"courseIds": []string{"c1"},
			"id":        "hijack",
		})
		if err != nil {
			t.Fatalf("Update 失败: %v", err)
		}
		if merged["id"] != id {
			t.Errorf("id 字段不应被覆盖: %v", merged["id"])
		}

		var got model.Student
		if err := store.GetByID(ctx, model.CollectionStudents, id, &got); err != nil {
			t.Fatalf("GetByID 失败: %v", err)
		}
		if got.Notes != "vorher" || len(got.CourseIDs) != 1 || got.CourseIDs[0] != "c1" {
			t.Errorf("部分更新结果不符: %+v", got)
		}

		_, err = store.Update(ctx, model.CollectionStudents, "missing", map[string]any{"notes": "x"})
		if !errors.Is(err, pkgerrors.ErrRecordNotFound) {
			t.Errorf("更新不存在的记录应返回 ErrRecordNotFound，实际 %v", err)
		}
	})

	t.Run("FindByField", func(t *testing.T) {
		for _, name := range []string{"G7", "G8", "G7"} {
			if _, err := store.Create(ctx, model.CollectionGroups, &model.Group{Name: name}); err != nil {
				t.Fatalf("Create 失败: %v", err)
			}
		}
		var got []model.Group
		if err := store.FindBy(ctx, model.CollectionGroups, "name", "G7", &got); err != nil {
			t.Fatalf("FindBy 失败: %v", err)
		}
		if len(got) != 2 {
			t.Errorf("期望 2 条 G7，实际 %d", len(got))
		}

		var none []model.Group
		if err := store.FindBy(ctx, model.CollectionGroups, "name", "G99", &none); err != nil {
			t.Fatalf("FindBy 失败: %v", err)
		}
		if len(none) != 0 {
			t.Errorf("不应匹配任何记录，实际 %d", len(none))
		}
	})

	t.Run("DeleteRemoves", func(t *testing.T) {
		id, err := store.Create(ctx, model.CollectionTeachers, &model.Teacher{Name: "Temp"})
		if err != nil {
			t.Fatalf("Create 失败: %v", err)
		}
		if err := store.Delete(ctx, model.CollectionTeachers, id); err != nil {
			t.Fatalf("Delete 失败: %v", err)
		}
		var got model.Teacher
		if err := store.GetByID(ctx, model.CollectionTeachers, id, &got); !errors.Is(err, pkgerrors.ErrRecordNotFound) {
			t.Errorf("删除后应不存在，实际 %v", err)
		}
	})
}
