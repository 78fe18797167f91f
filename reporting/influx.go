// Package reporting ships finished optimizer trials to external stores. The
// core never imports it; wire a reporter into optimize.Optimizer.Sink when
// results should outlive the process.
package reporting

import (
	"time"

	"github.com/fatih/structs"
	"github.com/google/uuid"
	client "github.com/influxdata/influxdb1-client/v2"

	"github.com/santiagogabrielcastillo/trading-bot/models"
)

// InfluxConfig points at the results database.
type InfluxConfig struct {
	Addr     string
	Username string
	Password string
	Database string
}

// InfluxReporter writes one point per trial into the "trials" measurement,
// tagged with a run id shared by every trial of the same sweep.
type InfluxReporter struct {
	cfg   InfluxConfig
	runID string
}

func NewInfluxReporter(cfg InfluxConfig) *InfluxReporter {
	return &InfluxReporter{cfg: cfg, runID: uuid.New().String()}
}

// RunID identifies this sweep in the results database.
func (r *InfluxReporter) RunID() string {
	return r.runID
}

// Record implements optimize.PersistenceSink.
func (r *InfluxReporter) Record(trial models.TrialResult) error {
	influx, err := client.NewHTTPClient(client.HTTPConfig{
		Addr:     r.cfg.Addr,
		Username: r.cfg.Username,
		Password: r.cfg.Password,
	})
	if err != nil {
		return err
	}
	defer influx.Close()

	bp, err := client.NewBatchPoints(client.BatchPointsConfig{
		Database:  r.cfg.Database,
		Precision: "us",
	})
	if err != nil {
		return err
	}

	tags := map[string]string{
		"run_id":   r.runID,
		"trial_id": uuid.New().String(),
		"strategy": trial.Params.Strategy.String(),
	}
	fields := map[string]interface{}{
		"params":     trial.Params.Label(),
		"robustness": trial.Robustness,
	}
	for k, v := range structs.Map(trial.InSample) {
		fields["is_"+k] = v
	}
	if trial.OutOfSample != nil {
		for k, v := range structs.Map(*trial.OutOfSample) {
			fields["oos_"+k] = v
		}
	}

	pt, err := client.NewPoint("trials", tags, fields, time.Now())
	if err != nil {
		return err
	}
	bp.AddPoint(pt)
	return influx.Write(bp)
}
