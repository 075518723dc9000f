package trajectory

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
	// registers the "sqlite" database/sql driver.
	_ "modernc.org/sqlite"

	"go.viam.com/laserodometry/logging"
	"go.viam.com/laserodometry/odometry"
	"go.viam.com/laserodometry/spatialmath"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Store records odometry runs in a sqlite database.
type Store struct {
	db     *sql.DB
	logger logging.Logger
}

// Open opens, creating if needed, the sqlite database at path and brings its schema up to date.
func Open(path string, logger logging.Logger) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open trajectory database %q", path)
	}
	s := &Store{db: db, logger: logger}
	if err := s.migrateUp(); err != nil {
		return nil, errors.Wrap(multiClose(db, err), "failed to migrate trajectory database")
	}
	return s, nil
}

func multiClose(db *sql.DB, err error) error {
	if closeErr := db.Close(); closeErr != nil {
		return errors.Wrapf(err, "also failed to close database: %v", closeErr)
	}
	return err
}

func (s *Store) migrateUp() error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return errors.Wrap(err, "failed to read embedded migrations")
	}
	driver, err := sqlite.WithInstance(s.db, &sqlite.Config{})
	if err != nil {
		return errors.Wrap(err, "failed to create sqlite driver")
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return errors.Wrap(err, "failed to create migrate instance")
	}
	m.Log = &migrateLogger{logger: s.logger}
	// m is not closed: closing it would close the shared database handle.
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return errors.Wrap(err, "migration up failed")
	}
	version, dirty, err := m.Version()
	if err != nil {
		return errors.Wrap(err, "failed to read schema version")
	}
	s.logger.Debugw("trajectory schema ready", "version", version, "dirty", dirty)
	return nil
}

type migrateLogger struct {
	logger logging.Logger
}

func (l *migrateLogger) Printf(format string, v ...interface{}) {
	l.logger.Debugf("[migrate] "+format, v...)
}

func (l *migrateLogger) Verbose() bool {
	return false
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Run is one recorded pass over a scan source.
type Run struct {
	ID    uuid.UUID
	store *Store
	seq   int
}

// BeginRun records the start of a run over the scans of topic in source.
func (s *Store) BeginRun(ctx context.Context, source, topic string, cfg *odometry.Config) (*Run, error) {
	cfgJSON, err := json.Marshal(cfg)
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode config")
	}
	run := &Run{ID: uuid.New(), store: s}
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (run_id, started_at, source, topic, config_json) VALUES (?, ?, ?, ?, ?)`,
		run.ID.String(), time.Now().UnixNano(), source, topic, string(cfgJSON),
	); err != nil {
		return nil, errors.Wrap(err, "failed to insert run")
	}
	s.logger.Debugw("began run", "run_id", run.ID.String())
	return run, nil
}

// Step is one recorded odometry step.
type Step struct {
	Seq        int
	Timestamp  time.Time
	Valid      bool
	Keyframe   bool
	Increment  *spatialmath.PlanarPose
	Pose       *spatialmath.PlanarPose
	Covariance *mat.SymDense
}

// Record appends a step to the run.
func (r *Run) Record(ctx context.Context, step Step) error {
	var stamp sql.NullInt64
	if !step.Timestamp.IsZero() {
		stamp = sql.NullInt64{Int64: step.Timestamp.UnixNano(), Valid: true}
	}
	var covX, covY, covYaw sql.NullFloat64
	if step.Covariance != nil {
		covX = sql.NullFloat64{Float64: step.Covariance.At(0, 0), Valid: true}
		covY = sql.NullFloat64{Float64: step.Covariance.At(1, 1), Valid: true}
		covYaw = sql.NullFloat64{Float64: step.Covariance.At(5, 5), Valid: true}
	}
	inc := step.Increment
	if inc == nil {
		inc = spatialmath.NewPlanarIdentity()
	}
	pose := step.Pose
	if pose == nil {
		pose = spatialmath.NewPlanarIdentity()
	}
	r.seq++
	if _, err := r.store.db.ExecContext(ctx,
		`INSERT INTO steps (run_id, seq, stamp_ns, valid, keyframe, inc_x, inc_y, inc_yaw,
			pose_x, pose_y, pose_yaw, cov_x, cov_y, cov_yaw)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID.String(), r.seq, stamp, step.Valid, step.Keyframe, inc.X, inc.Y, inc.Theta,
		pose.X, pose.Y, pose.Theta, covX, covY, covYaw,
	); err != nil {
		return errors.Wrapf(err, "failed to record step %d", r.seq)
	}
	return nil
}

// Finish marks the run finished with the odometer's counters.
func (r *Run) Finish(ctx context.Context, stats odometry.Stats) error {
	if _, err := r.store.db.ExecContext(ctx,
		`UPDATE runs SET finished_at = ?, scans = ?, failed = ?, keyframes = ? WHERE run_id = ?`,
		time.Now().UnixNano(), stats.ScansProcessed, stats.MatchesFailed, stats.Keyframes, r.ID.String(),
	); err != nil {
		return errors.Wrap(err, "failed to finish run")
	}
	return nil
}

// RunInfo describes a recorded run.
type RunInfo struct {
	ID       uuid.UUID
	Started  time.Time
	Finished time.Time
	Source   string
	Topic    string
	Stats    odometry.Stats
	Config   *odometry.Config
}

// Runs lists recorded runs, oldest first.
func (s *Store) Runs(ctx context.Context) ([]RunInfo, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT run_id, started_at, finished_at, source, topic, config_json, scans, failed, keyframes
		FROM runs ORDER BY started_at, run_id`)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query runs")
	}
	defer rows.Close() //nolint:errcheck

	var runs []RunInfo
	for rows.Next() {
		var (
			id, source, topic, cfgJSON string
			started                    int64
			finished                   sql.NullInt64
			info                       RunInfo
		)
		if err := rows.Scan(&id, &started, &finished, &source, &topic, &cfgJSON,
			&info.Stats.ScansProcessed, &info.Stats.MatchesFailed, &info.Stats.Keyframes); err != nil {
			return nil, errors.Wrap(err, "failed to scan run")
		}
		if info.ID, err = uuid.Parse(id); err != nil {
			return nil, errors.Wrapf(err, "bad run id %q", id)
		}
		info.Started = time.Unix(0, started)
		if finished.Valid {
			info.Finished = time.Unix(0, finished.Int64)
		}
		info.Source, info.Topic = source, topic
		info.Config = &odometry.Config{}
		if err := json.Unmarshal([]byte(cfgJSON), info.Config); err != nil {
			return nil, errors.Wrapf(err, "bad config for run %s", id)
		}
		runs = append(runs, info)
	}
	return runs, rows.Err()
}

// Steps returns the recorded steps of a run in order.
func (s *Store) Steps(ctx context.Context, runID uuid.UUID) ([]Step, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT seq, stamp_ns, valid, keyframe, inc_x, inc_y, inc_yaw, pose_x, pose_y, pose_yaw,
			cov_x, cov_y, cov_yaw
		FROM steps WHERE run_id = ? ORDER BY seq`, runID.String())
	if err != nil {
		return nil, errors.Wrap(err, "failed to query steps")
	}
	defer rows.Close() //nolint:errcheck

	var steps []Step
	for rows.Next() {
		var (
			step               Step
			stamp              sql.NullInt64
			inc, pose          spatialmath.PlanarPose
			covX, covY, covYaw sql.NullFloat64
		)
		if err := rows.Scan(&step.Seq, &stamp, &step.Valid, &step.Keyframe,
			&inc.X, &inc.Y, &inc.Theta, &pose.X, &pose.Y, &pose.Theta,
			&covX, &covY, &covYaw); err != nil {
			return nil, errors.Wrap(err, "failed to scan step")
		}
		if stamp.Valid {
			step.Timestamp = time.Unix(0, stamp.Int64)
		}
		step.Increment, step.Pose = &inc, &pose
		if covX.Valid {
			step.Covariance = mat.NewSymDense(6, nil)
			step.Covariance.SetSym(0, 0, covX.Float64)
			step.Covariance.SetSym(1, 1, covY.Float64)
			step.Covariance.SetSym(5, 5, covYaw.Float64)
		}
		steps = append(steps, step)
	}
	return steps, rows.Err()
}

// Samples converts recorded steps back to path samples.
func Samples(steps []Step) []Sample {
	samples := make([]Sample, 0, len(steps))
	for _, step := range steps {
		samples = append(samples, Sample{Timestamp: step.Timestamp, Pose: step.Pose, Valid: step.Valid, Keyframe: step.Keyframe})
	}
	return samples
}
