package workbook

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/FACorreiaa/fund-tracker/internal/domain/portfolio/normalizer"
	"github.com/FACorreiaa/fund-tracker/internal/domain/portfolio/repository"
)

func writeWorkbook(t *testing.T) string {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	require.NoError(t, f.SetSheetName("Sheet1", "總和"))
	require.NoError(t, f.SetSheetRow("總和", "A1", &[]any{"基金名稱", "總現值\n含息", "損益\n(含息)", "幣別"}))
	require.NoError(t, f.SetSheetRow("總和", "A2", &[]any{"安聯收益成長", "$1,200.00", "200", "USD"}))

	_, err := f.NewSheet("00878")
	require.NoError(t, err)
	require.NoError(t, f.SetSheetRow("00878", "A1", &[]any{"日期", "入帳日", "類別", "金額", "價格", "匯率", "手續費", "", "", "單位數"}))

	path := filepath.Join(t.TempDir(), "funds.xlsx")
	require.NoError(t, f.SaveAs(path))
	return path
}

func TestNew_RequiresPath(t *testing.T) {
	_, err := New("")
	assert.ErrorIs(t, err, ErrMissingPath)
}

func TestStore_ListAndRead(t *testing.T) {
	store, err := New(writeWorkbook(t))
	require.NoError(t, err)
	ctx := context.Background()

	tabs, err := store.ListTabs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"總和", "00878"}, tabs)

	sheet, err := store.ReadTab(ctx, "總和")
	require.NoError(t, err)
	require.Len(t, sheet, 2)
	assert.Equal(t, "總現值\n含息", sheet[0][1])
	assert.Equal(t, "$1,200.00", sheet[1][1])
}

func TestStore_ReadTab_NotFound(t *testing.T) {
	store, err := New(writeWorkbook(t))
	require.NoError(t, err)

	_, err = store.ReadTab(context.Background(), "missing")
	assert.ErrorIs(t, err, repository.ErrTabNotFound)

	err = store.AppendRow(context.Background(), "missing", repository.OutputRow{})
	assert.ErrorIs(t, err, repository.ErrTabNotFound)
}

func TestStore_OpenError(t *testing.T) {
	store, err := New(filepath.Join(t.TempDir(), "absent.xlsx"))
	require.NoError(t, err)

	_, err = store.ListTabs(context.Background())
	assert.Error(t, err)
}

func TestStore_AppendRow_RoundTrip(t *testing.T) {
	store, err := New(writeWorkbook(t))
	require.NoError(t, err)
	ctx := context.Background()

	row := repository.OutputRow{"2024-03-01", "", "買入", 105.0, 10.0, "", 5.0, "", "", 10.0}
	require.NoError(t, store.AppendRow(ctx, "00878", row))
	second := repository.OutputRow{"2024-03-02", "", "賣出", 99.5, 12.25, "", 0.0, "", "", 99.5 / 12.25}
	require.NoError(t, store.AppendRow(ctx, "00878", second))
	third := repository.OutputRow{"2024-03-03", "", "買入", 100.0, 7.0, "", 0.0, "", "", 100.0 / 7}
	require.NoError(t, store.AppendRow(ctx, "00878", third))
	fourth := repository.OutputRow{"2024-03-04", "", "買入", 1000.55, 12.3456, "", 15.5, "", "", (1000.55 - 15.5) / 12.3456}
	require.NoError(t, store.AppendRow(ctx, "00878", fourth))

	sheet, err := store.ReadTab(ctx, "00878")
	require.NoError(t, err)
	require.Len(t, sheet, 5)

	headers := normalizer.NormalizeHeaders(sheet.Header())
	assert.Equal(t, "blank-column-7", headers[7])

	for i, want := range []repository.OutputRow{row, second, third, fourth} {
		got := sheet.Rows()[i]
		assert.Equal(t, want[repository.ColDate], got[repository.ColDate])
		assert.Equal(t, want[repository.ColCategory], got[repository.ColCategory])
		for _, col := range []int{repository.ColAmount, repository.ColPrice, repository.ColFee, repository.ColUnits} {
			v, ok := normalizer.CoerceValue(got[col])
			require.True(t, ok, "column %d: %q", col, got[col])
			assert.Equal(t, want[col].(float64), v, "column %d", col)
		}
	}
}
