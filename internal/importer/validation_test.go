package importer

import (
	"encoding/json"
	"strings"
	"testing"
)

func testValidateOptions() ValidateOptions {
	return ValidateOptions{HeaderScanRows: 30, RosterOffset: 7, Now: testNow}
}

func TestValidate_CleanSheet(t *testing.T) {
	res := Validate(courseFixture().sheet(t), testValidateOptions())
	if !res.Valid() {
		t.Errorf("标准表格应通过校验: %v", res.Messages())
	}
}

func TestValidate_MissingTimeColumnsOnly(t *testing.T) {
	fx := sheetFixture{rows: [][]any{
		{"Folien", "Inhalt", "Notizen", "Datum", "Lehrer", "", "", "Anna Nguyen"},
		{"Lektion 1", "Begrüßung", "", "06.03.2024", "Maria Lopez"},
		{"Lektion 2", "Zahlen", "", "13.03.2024", "Maria Lopez"},
	}}
	res := Validate(fx.sheet(t), testValidateOptions())
	if !res.MissingTimeColumns {
		t.Error("期望 MissingTimeColumns=true")
	}
	if len(res.Errors) != 2 {
		t.Errorf("期望每个缺失的时间列各一条错误，实际=%v", res.Messages())
	}
	if !res.HasOnlyTimeErrors() {
		t.Errorf("期望 HasOnlyTimeErrors=true: %v", res.Messages())
	}
}

func TestValidate_MixedErrorsAreNotOverridable(t *testing.T) {
	fx := sheetFixture{rows: [][]any{
		{"Folien", "Inhalt", "Notizen", "Datum", "Lehrer", "", "", "Anna Nguyen"},
		{"Lektion 1", "Begrüßung", "", "06.03.2024", ""},
	}}
	res := Validate(fx.sheet(t), testValidateOptions())
	if !res.MissingTimeColumns {
		t.Error("期望 MissingTimeColumns=true")
	}
	if res.HasOnlyTimeErrors() {
		t.Errorf("缺少教师不属于时间错误: %v", res.Messages())
	}
}

func TestValidate_RowChecks(t *testing.T) {
	fx := sheetFixture{
		rows: [][]any{
			standardHeader,
			{"Lektion 1", "", "", "06.03.2024", "14:00", "", "Maria"},   // 缺结束时间
			{"", "", "", "13.03.2024", "14:00", "15:30", "Maria"},       // 标题为空
			{"Lektion 3", "", "", "32.03.2024", "14:00", "15:30", "Maria"}, // 非法日期
			{"Lektion 4", "", "", "06.03.2019", "14:00", "15:30", "Maria"}, // 早于 2020
			{"Lektion 5", "", "", "10.06.2024", "", "", ""},              // 当月允许不完整
			{"Lektion 6", "", "", "10.09.2024", "", "", ""},              // 未来
		},
	}
	res := Validate(fx.sheet(t), testValidateOptions())

	kinds := map[ValidationKind]int{}
	for _, e := range res.Errors {
		kinds[e.Kind]++
	}
	if kinds[KindTime] != 1 || kinds[KindTitle] != 1 || kinds[KindDate] != 2 || len(res.Errors) != 4 {
		t.Errorf("错误分类不符: %v", res.Messages())
	}
	if res.HasOnlyTimeErrors() {
		t.Error("未缺时间列时 HasOnlyTimeErrors 应为 false")
	}
	if !strings.Contains(res.Errors[0].Message, "Row 2") {
		t.Errorf("错误信息应包含行号: %s", res.Errors[0].Message)
	}
}

func TestValidate_MergedTitleCell(t *testing.T) {
	fx := sheetFixture{
		rows: [][]any{
			standardHeader,
			{"Lektion 1", "", "", "06.03.2024", "14:00", "15:30", "Maria"},
			{"", "", "", "07.03.2024", "14:00", "15:30", "Maria"},
		},
		merges: [][2]string{{"A2", "A3"}},
	}
	res := Validate(fx.sheet(t), testValidateOptions())
	if !res.Valid() {
		t.Errorf("合并单元格应取主单元格标题: %v", res.Messages())
	}
}

func TestValidate_StructuralErrors(t *testing.T) {
	res := Validate(sheetFixture{rows: [][]any{{"Titel"}}}.sheet(t), testValidateOptions())
	if len(res.Errors) != 1 || res.Errors[0].Kind != KindStructure {
		t.Errorf("期望表头缺失错误: %v", res.Messages())
	}

	fx := sheetFixture{rows: [][]any{{"Folien", "Inhalt", "Notizen", "Stunde", "von", "bis", "Lehrer"}}}
	res = Validate(fx.sheet(t), testValidateOptions())
	kinds := map[ValidationKind]int{}
	for _, e := range res.Errors {
		kinds[e.Kind]++
	}
	if kinds[KindColumn] != 1 || kinds[KindRoster] != 1 {
		t.Errorf("期望缺日期列与缺学员: %v", res.Messages())
	}
}

func TestValidationResult_JSON(t *testing.T) {
	res := &ValidationResult{MissingTimeColumns: true}
	res.add(KindTimeColumn, 1, "Start time column missing")

	raw, err := json.Marshal(res)
	if err != nil {
		t.Fatalf("Marshal 失败: %v", err)
	}
	var surface struct {
		Errors             []string `json:"errors"`
		MissingTimeColumns bool     `json:"missingTimeColumns"`
		HasOnlyTimeErrors  bool     `json:"hasOnlyTimeErrors"`
	}
	if err := json.Unmarshal(raw, &surface); err != nil {
		t.Fatalf("Unmarshal 失败: %v", err)
	}
	if len(surface.Errors) != 1 || !surface.MissingTimeColumns || !surface.HasOnlyTimeErrors {
		t.Errorf("对外结构错误: %s", raw)
	}
}
