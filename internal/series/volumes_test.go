package series

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meterfi/dex-stats-api/internal/apierr"
	"github.com/meterfi/dex-stats-api/internal/chains"
	"github.com/meterfi/dex-stats-api/internal/subgraph"
)

func TestAlignBucket(t *testing.T) {
	tests := []struct {
		name   string
		ts     int64
		bucket int64
		want   int64
	}{
		{"hour mid-bucket", 3661, HourBucket, 3600},
		{"hour boundary is a fixed point", 7200, HourBucket, 7200},
		{"day mid-bucket", 86400 + 12345, DayBucket, 86400},
		{"day boundary is a fixed point", 172800, DayBucket, 172800},
		{"zero", 0, HourBucket, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := AlignBucket(tt.ts, tt.bucket)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, got, AlignBucket(got, tt.bucket), "alignment must be idempotent")
		})
	}
}

// statsServer serves a canned GraphQL payload and records the documents it
// receives.
func statsServer(t *testing.T, payload string) (*subgraph.Set, *[]string) {
	t.Helper()
	var documents []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Query string `json:"query"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		documents = append(documents, req.Query)
		w.Write([]byte(payload))
	}))
	t.Cleanup(srv.Close)

	set := subgraph.NewSet(chains.NewRegistry(chains.Endpoints{
		Stats: map[chains.ChainID]string{chains.Metertest: srv.URL},
	}), 5*time.Second, 0)
	return set, &documents
}

func TestVolumesReshape(t *testing.T) {
	payload := `{"data":{"volumes":[
		{"id":"v2","token":"0xabc","timestamp":7200,"group":"hourly","volume":"500","action":"swap"},
		{"id":"v1","token":"0xdef","timestamp":3600,"group":"hourly","volume":"250","action":"margin"}
	]}}`
	set, _ := statsServer(t, payload)

	entries, err := NewService(set).TotalVolumes(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, "v2", entries[0].ID)
	assert.Equal(t, "0xabc", entries[0].Data.Token)
	assert.Equal(t, int64(7200), entries[0].Data.Timestamp)
	assert.Equal(t, "hourly", entries[0].Data.Group)
	assert.Equal(t, "500", entries[0].Data.Volume)
	assert.Equal(t, "swap", entries[0].Data.Action)
	assert.Equal(t, "v1", entries[1].ID)
}

func TestHourlyVolumesFiltersOnCurrentBucket(t *testing.T) {
	set, documents := statsServer(t, `{"data":{"volumes":[]}}`)

	svc := NewService(set)
	svc.now = func() time.Time { return time.Unix(7261, 0) }

	entries, err := svc.HourlyVolumes(context.Background())
	require.NoError(t, err)
	assert.Empty(t, entries)

	require.Len(t, *documents, 1)
	assert.Contains(t, (*documents)[0], "timestamp: 7200")
	assert.Contains(t, (*documents)[0], "first: 600")
	assert.Contains(t, (*documents)[0], "orderDirection: desc")
}

func TestDailyVolumesFiltersOnCurrentBucket(t *testing.T) {
	set, documents := statsServer(t, `{"data":{"volumes":[]}}`)

	svc := NewService(set)
	svc.now = func() time.Time { return time.Unix(86400+5000, 0) }

	_, err := svc.DailyVolumes(context.Background())
	require.NoError(t, err)
	require.Len(t, *documents, 1)
	assert.Contains(t, (*documents)[0], "timestamp: 86400")
}

func TestActionsReshapeFromActionRows(t *testing.T) {
	payload := `{"data":{"actions":[
		{"id":"a1","action":"CreateIncreasePosition","params":"{\"size\":\"1\"}","timestamp":1700000000,
		 "account":"0xfac315d105e5a7fe2174b3eb1f95c257a9a5e271","txhash":"0xbeef","blockNumber":4242}
	]}}`
	set, documents := statsServer(t, payload)

	entries, err := NewService(set).Actions(context.Background(), "0xfac315d105e5a7fe2174b3eb1f95c257a9a5e271")
	require.NoError(t, err)
	require.Len(t, entries, 1)

	assert.Equal(t, "a1", entries[0].ID)
	assert.Equal(t, "CreateIncreasePosition", entries[0].Data.Action)
	assert.Equal(t, `{"size":"1"}`, entries[0].Data.Params)
	assert.Equal(t, int64(1700000000), entries[0].Data.Timestamp)
	assert.Equal(t, "0xfac315d105e5a7fe2174b3eb1f95c257a9a5e271", entries[0].Data.Account)
	assert.Equal(t, "0xbeef", entries[0].Data.TxHash)
	assert.Equal(t, int64(4242), entries[0].Data.BlockNumber)

	require.Len(t, *documents, 1)
	assert.Contains(t, (*documents)[0], `account: "0xfac315d105e5a7fe2174b3eb1f95c257a9a5e271"`)
}

func TestActionsNoFilter(t *testing.T) {
	set, documents := statsServer(t, `{"data":{"actions":[]}}`)

	_, err := NewService(set).Actions(context.Background(), "")
	require.NoError(t, err)
	require.Len(t, *documents, 1)
	assert.NotContains(t, (*documents)[0], "account:")
}

func TestVolumesUpstreamError(t *testing.T) {
	set, _ := statsServer(t, `{"errors":[{"message":"indexing disabled"}]}`)

	_, err := NewService(set).TotalVolumes(context.Background())
	require.Error(t, err)
	assert.True(t, apierr.IsKind(err, apierr.KindUpstreamQuery))
}
