package journal

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// RunsCollection is the collection run documents live in.
const RunsCollection = "runs"

// DefaultMaxPath bounds the transitions kept on a run document. A script
// looping between two states forever would otherwise grow it without limit.
const DefaultMaxPath = 1000

// Config selects the journal database.
type Config struct {
	URI      string
	Database string
	// Timeout bounds connecting, the initial ping and index setup.
	Timeout time.Duration
	// MaxPath is the number of most recent transitions kept per run.
	MaxPath int
}

// DefaultConfig returns default configuration.
func DefaultConfig() *Config {
	return &Config{
		URI:      "mongodb://localhost:27017",
		Database: "autopad",
		Timeout:  10 * time.Second,
		MaxPath:  DefaultMaxPath,
	}
}

// runDocument is the MongoDB document structure for runs.
type runDocument struct {
	ID          string               `bson:"_id"`
	Script      string               `bson:"script"`
	Initial     string               `bson:"initial"`
	StartedAt   time.Time            `bson:"started_at"`
	EndedAt     *time.Time           `bson:"ended_at,omitempty"`
	State       string               `bson:"state,omitempty"`
	Reason      string               `bson:"reason,omitempty"`
	ExitCode    int                  `bson:"exit_code"`
	Polls       int                  `bson:"polls"`
	Transitions int                  `bson:"transitions"`
	Error       string               `bson:"error,omitempty"`
	Path        []transitionDocument `bson:"path"`
}

// transitionDocument is the MongoDB document structure for transitions.
type transitionDocument struct {
	From    string    `bson:"from"`
	To      string    `bson:"to"`
	At      time.Time `bson:"at"`
	DwellMS int64     `bson:"dwell_ms"`
}

// runIndexes lists the secondary indexes of the runs collection. Run IDs are
// the document _id and need none.
func runIndexes() []mongo.IndexModel {
	return []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "started_at", Value: -1}},
			Options: options.Index().SetName("started_at_desc"),
		},
		{
			Keys:    bson.D{{Key: "script", Value: 1}, {Key: "started_at", Value: -1}},
			Options: options.Index().SetName("script_started_at"),
		},
		{
			Keys:    bson.D{{Key: "reason", Value: 1}},
			Options: options.Index().SetName("reason").SetSparse(true),
		},
	}
}

// MongoRunRepository implements Store using MongoDB.
type MongoRunRepository struct {
	client     *mongo.Client
	collection *mongo.Collection
	maxPath    int
	logger     *slog.Logger
}

// Open connects to the journal database and makes sure the runs collection
// and its indexes exist. Close releases the connection.
func Open(ctx context.Context, cfg *Config, logger *slog.Logger) (*MongoRunRepository, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if logger == nil {
		logger = slog.Default()
	}
	maxPath := cfg.MaxPath
	if maxPath <= 0 {
		maxPath = DefaultMaxPath
	}

	ctx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()

	opts := options.Client().
		ApplyURI(cfg.URI).
		SetConnectTimeout(cfg.Timeout).
		SetServerSelectionTimeout(cfg.Timeout)
	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to journal: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to reach journal at %s: %w", cfg.URI, err)
	}

	// Creating the indexes also creates the collection.
	coll := client.Database(cfg.Database).Collection(RunsCollection)
	if _, err := coll.Indexes().CreateMany(ctx, runIndexes()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to create journal indexes: %w", err)
	}

	logger.Info("Journal opened", "database", cfg.Database, "collection", RunsCollection)
	return &MongoRunRepository{
		client:     client,
		collection: coll,
		maxPath:    maxPath,
		logger:     logger,
	}, nil
}

// Close disconnects from the journal database.
func (r *MongoRunRepository) Close(ctx context.Context) error {
	if r.client == nil {
		return nil
	}
	return r.client.Disconnect(ctx)
}

// StartRun inserts the opening document.
func (r *MongoRunRepository) StartRun(ctx context.Context, run Run) error {
	if _, err := r.collection.InsertOne(ctx, runToDocument(run)); err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}
	r.logger.Debug("Run recorded", "run_id", run.ID, "script", run.Script)
	return nil
}

// AppendTransition pushes a transition onto the run's path, dropping the
// oldest entries beyond the configured maximum.
func (r *MongoRunRepository) AppendTransition(ctx context.Context, runID string, t Transition) error {
	update := pathUpdate(transitionToDocument(t), r.maxPath)
	result, err := r.collection.UpdateByID(ctx, runID, update)
	if err != nil {
		return fmt.Errorf("failed to append transition: %w", err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("run not found: %s", runID)
	}
	return nil
}

// FinishRun writes the outcome fields.
func (r *MongoRunRepository) FinishRun(ctx context.Context, runID string, o Outcome) error {
	update := bson.M{"$set": outcomeToUpdate(o)}
	result, err := r.collection.UpdateByID(ctx, runID, update)
	if err != nil {
		return fmt.Errorf("failed to finish run: %w", err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("run not found: %s", runID)
	}
	r.logger.Debug("Run finished", "run_id", runID, "reason", o.Reason)
	return nil
}

func runToDocument(run Run) *runDocument {
	return &runDocument{
		ID:        run.ID,
		Script:    run.Script,
		Initial:   run.Initial,
		StartedAt: run.StartedAt,
		Path:      []transitionDocument{},
	}
}

func transitionToDocument(t Transition) transitionDocument {
	return transitionDocument{
		From:    t.From,
		To:      t.To,
		At:      t.At,
		DwellMS: t.Dwell.Milliseconds(),
	}
}

func pathUpdate(td transitionDocument, maxPath int) bson.M {
	return bson.M{"$push": bson.M{"path": bson.M{
		"$each":  bson.A{td},
		"$slice": -maxPath,
	}}}
}

func outcomeToUpdate(o Outcome) bson.M {
	m := bson.M{
		"ended_at":    o.EndedAt,
		"state":       o.State,
		"reason":      o.Reason,
		"exit_code":   o.ExitCode,
		"polls":       o.Polls,
		"transitions": o.Transitions,
	}
	if o.Error != "" {
		m["error"] = o.Error
	}
	return m
}

var _ Store = (*MongoRunRepository)(nil)
