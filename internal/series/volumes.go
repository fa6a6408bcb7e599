// Package series builds bucket-aligned history queries against the subgraphs
// and serves paginated price candles.
package series

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/meterfi/dex-stats-api/internal/chains"
	"github.com/meterfi/dex-stats-api/internal/model"
	"github.com/meterfi/dex-stats-api/internal/subgraph"
)

// maxRows bounds every history query. Callers needing more page externally.
const maxRows = 600

// Bucket widths in seconds.
const (
	HourBucket int64 = 3600
	DayBucket  int64 = 86400
)

// AlignBucket rounds ts down to the nearest bucket boundary. Aligning an
// already-aligned timestamp returns it unchanged.
func AlignBucket(ts, bucket int64) int64 {
	return ts - ts%bucket
}

// Service answers volume and action history queries against the stats
// subgraph. It holds no per-request state.
type Service struct {
	graphs *subgraph.Set
	chain  chains.ChainID
	now    func() time.Time
}

// NewService creates a Service reading the Meter stats subgraph.
func NewService(graphs *subgraph.Set) *Service {
	return &Service{
		graphs: graphs,
		chain:  chains.Metertest,
		now:    time.Now,
	}
}

type volumeRow struct {
	ID        string `json:"id"`
	Token     string `json:"token"`
	Timestamp int64  `json:"timestamp"`
	Group     string `json:"group"`
	Volume    string `json:"volume"`
	Action    string `json:"action"`
}

type actionRow struct {
	ID          string `json:"id"`
	Action      string `json:"action"`
	Params      string `json:"params"`
	Timestamp   int64  `json:"timestamp"`
	Account     string `json:"account"`
	TxHash      string `json:"txhash"`
	BlockNumber int64  `json:"blockNumber"`
}

// Volumes fetches at most maxRows volume rows, newest first, optionally
// restricted by an equality filter. An empty filter returns the most recent
// window, not full history.
func (s *Service) Volumes(ctx context.Context, where string) ([]model.VolumeEntry, error) {
	client, err := s.graphs.Stats(s.chain)
	if err != nil {
		return nil, err
	}

	document := fmt.Sprintf(`{
		volumes(
			first: %d
			orderBy: timestamp
			orderDirection: desc
			where: { %s }
		) { id token timestamp group volume action }
	}`, maxRows, where)

	logrus.Debugf("requesting volumes %s", where)
	var data struct {
		Volumes []volumeRow `json:"volumes"`
	}
	if err := client.Query(ctx, document, &data); err != nil {
		return nil, err
	}
	logrus.Debugf("loaded %d volumes", len(data.Volumes))

	entries := make([]model.VolumeEntry, len(data.Volumes))
	for i, row := range data.Volumes {
		entries[i] = model.VolumeEntry{
			ID: row.ID,
			Data: model.VolumeData{
				Token:     row.Token,
				Timestamp: row.Timestamp,
				Group:     row.Group,
				Volume:    row.Volume,
				Action:    row.Action,
			},
		}
	}
	return entries, nil
}

// HourlyVolumes returns the rows whose timestamp equals the current hour
// boundary. The bucket is a single point in time; an empty hour yields zero
// rows.
func (s *Service) HourlyVolumes(ctx context.Context) ([]model.VolumeEntry, error) {
	bucket := AlignBucket(s.now().Unix(), HourBucket)
	return s.Volumes(ctx, fmt.Sprintf("timestamp: %d", bucket))
}

// DailyVolumes returns the rows whose timestamp equals the current day
// boundary.
func (s *Service) DailyVolumes(ctx context.Context) ([]model.VolumeEntry, error) {
	bucket := AlignBucket(s.now().Unix(), DayBucket)
	return s.Volumes(ctx, fmt.Sprintf("timestamp: %d", bucket))
}

// TotalVolumes returns the most recent window with no bucket restriction.
func (s *Service) TotalVolumes(ctx context.Context) ([]model.VolumeEntry, error) {
	return s.Volumes(ctx, "")
}

// Actions fetches at most maxRows action rows, newest first, optionally
// filtered to a single account. Each entry reshapes its own action row;
// volume and action result sets are distinct shapes.
func (s *Service) Actions(ctx context.Context, account string) ([]model.ActionEntry, error) {
	client, err := s.graphs.Stats(s.chain)
	if err != nil {
		return nil, err
	}

	where := ""
	if account != "" {
		where = fmt.Sprintf(`account: "%s"`, account)
	}
	document := fmt.Sprintf(`{
		actions(
			first: %d
			orderBy: timestamp
			orderDirection: desc
			where: { %s }
		) { id action params timestamp account txhash blockNumber }
	}`, maxRows, where)

	logrus.Debugf("requesting actions %s", where)
	var data struct {
		Actions []actionRow `json:"actions"`
	}
	if err := client.Query(ctx, document, &data); err != nil {
		return nil, err
	}
	logrus.Debugf("loaded %d actions", len(data.Actions))

	entries := make([]model.ActionEntry, len(data.Actions))
	for i, row := range data.Actions {
		entries[i] = model.ActionEntry{
			ID: row.ID,
			Data: model.ActionData{
				Params:      row.Params,
				Timestamp:   row.Timestamp,
				Account:     row.Account,
				TxHash:      row.TxHash,
				Action:      row.Action,
				BlockNumber: row.BlockNumber,
			},
		}
	}
	return entries, nil
}
