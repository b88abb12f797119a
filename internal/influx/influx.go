// Package influx ships death and respawn telemetry to InfluxDB, falling back
// to a gzip line-protocol file while the server is unreachable.
package influx

import (
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	influxdb2_api "github.com/influxdata/influxdb-client-go/v2/api"
	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/influxdata/influxdb-client-go/v2/domain"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"

	"github.com/ripmod/rip/internal/death"
	"github.com/ripmod/rip/pkg/core"
)

// ErrDisabled is returned by Connect when influx.enabled is false.
var ErrDisabled = errors.New("influx disabled")

// Measurement names.
const (
	MeasurementDeath   = "rip_death"
	MeasurementRespawn = "rip_respawn"
)

// Manager handles the InfluxDB connection and writes.
type Manager struct {
	Client       influxdb2.Client
	Writer       influxdb2_api.WriteAPI
	BackupWriter *gzip.Writer
	IsValid      bool
	Bucket       string
	Logger       zerolog.Logger
	BackupPath   string

	mu         sync.Mutex
	backupFile *os.File
}

// NewManager creates a manager that is not yet connected.
func NewManager(log zerolog.Logger, backupPath string) *Manager {
	return &Manager{
		Bucket:     viper.GetString("influx.bucket"),
		Logger:     log,
		BackupPath: backupPath,
	}
}

// Connect establishes a connection to InfluxDB, or opens the backup file
// when the server does not answer.
func (m *Manager) Connect(ctx context.Context) error {
	if !viper.GetBool("influx.enabled") {
		return ErrDisabled
	}

	m.Client = influxdb2.NewClientWithOptions(
		fmt.Sprintf(
			"%s://%s:%s",
			viper.GetString("influx.protocol"),
			viper.GetString("influx.host"),
			viper.GetString("influx.port"),
		),
		viper.GetString("influx.token"),
		influxdb2.DefaultOptions().
			SetBatchSize(100).
			SetFlushInterval(5000),
	)

	running, err := m.Client.Ping(ctx)
	if err != nil || !running {
		m.IsValid = false
		if err := m.openBackup(); err != nil {
			return err
		}
		m.Logger.Warn().Str("backupPath", m.BackupPath).
			Msg("InfluxDB unreachable, writing to backup file")
		return nil
	}

	m.IsValid = true
	if err := m.ensureBucket(ctx); err != nil {
		return err
	}
	m.createWriter()
	m.Logger.Info().Str("bucket", m.Bucket).Msg("InfluxDB client initialized")
	return nil
}

func (m *Manager) openBackup() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.BackupWriter != nil {
		return nil
	}
	file, err := os.OpenFile(m.BackupPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("creating influx backup file: %w", err)
	}
	m.backupFile = file
	m.BackupWriter = gzip.NewWriter(file)
	return nil
}

func (m *Manager) ensureBucket(ctx context.Context) error {
	orgName := viper.GetString("influx.org")

	org, err := m.Client.OrganizationsAPI().FindOrganizationByName(ctx, orgName)
	if err != nil {
		m.Logger.Info().Str("org", orgName).Msg("Organization not found, creating")
		org, err = m.Client.OrganizationsAPI().CreateOrganizationWithName(ctx, orgName)
		if err != nil {
			return fmt.Errorf("creating influx org %s: %w", orgName, err)
		}
	}

	if _, err = m.Client.BucketsAPI().FindBucketByName(ctx, m.Bucket); err == nil {
		return nil
	}
	m.Logger.Info().Str("bucket", m.Bucket).Msg("Bucket not found, creating")
	rule := domain.RetentionRuleTypeExpire
	_, err = m.Client.BucketsAPI().CreateBucketWithName(ctx, org, m.Bucket, domain.RetentionRule{
		Type:         &rule,
		EverySeconds: 60 * 60 * 24 * 365,
	})
	if err != nil {
		return fmt.Errorf("creating influx bucket %s: %w", m.Bucket, err)
	}
	return nil
}

func (m *Manager) createWriter() {
	m.Writer = m.Client.WriteAPI(viper.GetString("influx.org"), m.Bucket)
	errorsCh := m.Writer.Errors()
	go func() {
		for writeErr := range errorsCh {
			m.Logger.Error().Err(writeErr).Str("bucket", m.Bucket).
				Msg("Error sending data to InfluxDB")
		}
	}()
}

// WritePoint writes a point to InfluxDB or the backup file.
func (m *Manager) WritePoint(point *influxdb2_write.Point) error {
	if m.IsValid {
		m.Writer.WritePoint(point)
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.BackupWriter == nil {
		return errors.New("influx client not initialized and backup writer not available")
	}
	line := strings.TrimSuffix(influxdb2_write.PointToLineProtocol(point, time.Nanosecond), "\n")
	if _, err := m.BackupWriter.Write([]byte(line + "\n")); err != nil {
		return fmt.Errorf("writing influx backup: %w", err)
	}
	return nil
}

// Close flushes pending points and releases the connection.
func (m *Manager) Close() error {
	if m.Writer != nil {
		m.Writer.Flush()
	}
	if m.Client != nil {
		m.Client.Close()
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	var errs []error
	if m.BackupWriter != nil {
		errs = append(errs, m.BackupWriter.Close())
		m.BackupWriter = nil
	}
	if m.backupFile != nil {
		errs = append(errs, m.backupFile.Close())
		m.backupFile = nil
	}
	return errors.Join(errs...)
}

// RecordDeath writes the outcome of one death. Failures are logged.
func (m *Manager) RecordDeath(out death.Outcome, area core.Area, livesLeft int) {
	now := time.Now()
	for _, p := range Points(out, area, livesLeft, now) {
		if err := m.WritePoint(p); err != nil {
			m.Logger.Error().Err(err).Msg("Failed to record death telemetry")
			return
		}
	}
}

// Points converts a death outcome to line-protocol points: one death point
// and, when the character woke up, one respawn point.
func Points(out death.Outcome, area core.Area, livesLeft int, ts time.Time) []*influxdb2_write.Point {
	tags := map[string]string{
		"region": fmt.Sprint(area.Region),
		"map":    fmt.Sprint(area.MapID),
	}
	deathPoint := influxdb2.NewPoint(MeasurementDeath, tags, map[string]any{
		"permanent":  out.Permanent,
		"reason":     string(out.Reason),
		"livesLeft":  livesLeft,
		"corpseSlot": out.CorpseSlot,
	}, ts)
	if out.Permanent {
		return []*influxdb2_write.Point{deathPoint}
	}

	respawn := influxdb2.NewPointWithMeasurement(MeasurementRespawn).
		AddTag("region", tags["region"]).
		AddTag("map", tags["map"]).
		AddTag("result", out.Respawn.String()).
		AddField("hoursPassed", out.TimePassed.Hours()).
		SetTime(ts)
	return []*influxdb2_write.Point{deathPoint, respawn}
}
