package gsheets

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"github.com/FACorreiaa/fund-tracker/internal/domain/portfolio/repository"
)

type fakeSheetsAPI struct {
	mu       sync.Mutex
	tabs     map[string][][]interface{}
	order    []string
	appended []sheets.ValueRange
	options  []string
}

func (f *fakeSheetsAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	path := r.URL.Path
	switch {
	case r.Method == http.MethodPost && strings.HasSuffix(path, ":append"):
		var vr sheets.ValueRange
		if err := json.NewDecoder(r.Body).Decode(&vr); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		f.appended = append(f.appended, vr)
		f.options = append(f.options, r.URL.Query().Get("valueInputOption"))
		writeJSON(w, http.StatusOK, map[string]any{"spreadsheetId": "sheet-1"})

	case strings.Contains(path, "/values/"):
		rng := path[strings.Index(path, "/values/")+len("/values/"):]
		tab := strings.ReplaceAll(strings.Trim(rng, "'"), "''", "'")
		values, ok := f.tabs[tab]
		if !ok {
			writeJSON(w, http.StatusBadRequest, map[string]any{
				"error": map[string]any{"code": 400, "message": "Unable to parse range: " + rng},
			})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"range": rng, "majorDimension": "ROWS", "values": values})

	default:
		var list []map[string]any
		for _, title := range f.order {
			list = append(list, map[string]any{"properties": map[string]any{"title": title}})
		}
		writeJSON(w, http.StatusOK, map[string]any{"sheets": list})
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func newTestStore(t *testing.T) (*Store, *fakeSheetsAPI) {
	t.Helper()
	api := &fakeSheetsAPI{
		tabs: map[string][][]interface{}{
			"總和":        {{"基金名稱", "總現值\n含息"}, {"A", "1,000"}},
			"Fund's tab": {{"日期", "", "日期"}, {"2024-01-02", 12.5}},
		},
		order: []string{"總和", "Fund's tab"},
	}
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)

	store, err := New(context.Background(), "sheet-1",
		option.WithEndpoint(srv.URL+"/"),
		option.WithoutAuthentication(),
		option.WithHTTPClient(srv.Client()),
	)
	require.NoError(t, err)
	return store, api
}

func TestNew_RequiresSpreadsheetID(t *testing.T) {
	_, err := New(context.Background(), "")
	assert.ErrorIs(t, err, ErrMissingSpreadsheetID)
}

func TestStore_ListTabs(t *testing.T) {
	store, _ := newTestStore(t)

	tabs, err := store.ListTabs(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"總和", "Fund's tab"}, tabs)
}

func TestStore_ReadTab(t *testing.T) {
	store, _ := newTestStore(t)

	sheet, err := store.ReadTab(context.Background(), "Fund's tab")
	require.NoError(t, err)
	assert.Equal(t, repository.RawSheet{{"日期", "", "日期"}, {"2024-01-02", "12.5"}}, sheet)
}

func TestStore_ReadTab_NotFound(t *testing.T) {
	store, _ := newTestStore(t)

	_, err := store.ReadTab(context.Background(), "missing")
	require.Error(t, err)
	assert.ErrorIs(t, err, repository.ErrTabNotFound)

	var apiErr *googleapi.Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.Code)
}

func TestStore_AppendRow(t *testing.T) {
	store, api := newTestStore(t)

	row := repository.OutputRow{"2024-03-01", "", "買入", 105.0, 10.0, "", 5.0, "", "", 10.0}
	require.NoError(t, store.AppendRow(context.Background(), "總和", row))

	require.Len(t, api.appended, 1)
	assert.Equal(t, []string{"RAW"}, api.options)
	values := api.appended[0].Values
	require.Len(t, values, 1)
	require.Len(t, values[0], repository.OutputRowWidth)
	assert.Equal(t, "買入", values[0][repository.ColCategory])
	assert.Equal(t, 105.0, values[0][repository.ColAmount])
	assert.Equal(t, "", values[0][repository.ColFXRate])
}

func TestTabRange(t *testing.T) {
	assert.Equal(t, "'00878'", tabRange("00878"))
	assert.Equal(t, "'Fund''s tab'", tabRange("Fund's tab"))
}
