// mongodb.go - Optional MongoDB archive of processed extraction runs

package storage

import (
	"context"
	"fmt"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/pagomovil/comprobante-ocr/configs"
)

const runCollection = "extraction_runs"

// RunRecord is the archived summary of one extraction run
type RunRecord struct {
	RunID             string                 `bson:"run_id"`
	ImageID           string                 `bson:"image_id"`
	Status            string                 `bson:"status"`
	Reason            string                 `bson:"reason,omitempty"`
	ExtractionMethod  string                 `bson:"extraction_method,omitempty"`
	OverallConfidence float64                `bson:"overall_confidence"`
	Fields            map[string]interface{} `bson:"campos_extraidos,omitempty"`
	Quality           interface{}            `bson:"initial_image_quality,omitempty"`
	Steps             interface{}            `bson:"steps,omitempty"`
	CreatedAt         time.Time              `bson:"created_at"`
}

// Archive persists run history to MongoDB. A nil Archive is valid and
// drops every write, which is how standalone CLI runs operate.
type Archive struct {
	client *mongo.Client
	db     *mongo.Database
}

// NewArchive connects to MongoDB when MONGO_URI is configured. Returns
// nil with no error when archiving is disabled.
func NewArchive() (*Archive, error) {
	if configs.MONGO_URI == "" {
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	clientOptions := options.Client().ApplyURI(configs.MONGO_URI)
	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	log.Println("✅ Connected to MongoDB successfully!")
	return &Archive{
		client: client,
		db:     client.Database(configs.MONGO_DB_NAME),
	}, nil
}

// SaveRun archives a run record. Nil receiver is a no-op.
func (a *Archive) SaveRun(ctx context.Context, record RunRecord) error {
	if a == nil {
		return nil
	}
	record.CreatedAt = time.Now()

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	_, err := a.db.Collection(runCollection).InsertOne(ctx, record)
	if err != nil {
		return fmt.Errorf("failed to archive run %s: %w", record.RunID, err)
	}
	return nil
}

// RecentRuns lists the latest archived runs, newest first
func (a *Archive) RecentRuns(ctx context.Context, limit int64) ([]RunRecord, error) {
	if a == nil {
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(limit)

	cursor, err := a.db.Collection(runCollection).Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer cursor.Close(ctx)

	records := []RunRecord{}
	if err := cursor.All(ctx, &records); err != nil {
		return nil, fmt.Errorf("failed to decode runs: %w", err)
	}
	return records, nil
}

// Close disconnects from MongoDB. Nil receiver is a no-op.
func (a *Archive) Close() {
	if a == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	a.client.Disconnect(ctx)
	log.Println("MongoDB connection closed")
}
