package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/farmview/farmview-api/internal/damage"
	"github.com/farmview/farmview-api/internal/pipeline"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	fieldsCollection   = "fields"
	analysesCollection = "analyses"
)

// FieldRecord is a registered field boundary with its insurance coverage.
type FieldRecord struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"-"`
	FarmerID      string             `bson:"farmer_id" json:"farmer_id"`
	Crop          string             `bson:"crop" json:"crop"`
	Coordinates   [][]float64        `bson:"coordinates" json:"coordinates"`
	AreaHectares  float64            `bson:"area_hectares" json:"area_hectares"`
	InsuredAmount float64            `bson:"insured_amount,omitempty" json:"insured_amount,omitempty"`
	CreatedAt     time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt     time.Time          `bson:"updated_at" json:"updated_at"`
}

// AnalysisRecord stores one completed assessment verbatim: the aggregate
// statistics the pipeline produced, keyed by the originating farmer.
type AnalysisRecord struct {
	ID               primitive.ObjectID      `bson:"_id,omitempty" json:"-"`
	FarmerID         string                  `bson:"farmer_id" json:"farmer_id"`
	Crop             string                  `bson:"crop" json:"crop"`
	DamageStatistics damage.Statistics       `bson:"damage_statistics" json:"damage_statistics"`
	AreaStatistics   pipeline.AreaStatistics `bson:"area_statistics" json:"area_statistics"`
	CurrentMeanNDVI  float64                 `bson:"current_mean_ndvi" json:"current_mean_ndvi"`
	BaselineMeanNDVI float64                 `bson:"baseline_mean_ndvi" json:"baseline_mean_ndvi"`
	EstimatedClaim   *float64                `bson:"estimated_claim,omitempty" json:"estimated_claim,omitempty"`
	HeatmapPath      string                  `bson:"heatmap_path,omitempty" json:"heatmap_path,omitempty"`
	CreatedAt        time.Time               `bson:"created_at" json:"created_at"`
}

// Store is the persistence collaborator. The client is explicit, passed in by
// the entrypoint; nothing here is process-global.
type Store struct {
	db *mongo.Database
}

// Connect dials MongoDB and verifies the connection with a ping.
func Connect(ctx context.Context, uri, database string) (*Store, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("mongodb ping failed: %w", err)
	}
	return &Store{db: client.Database(database)}, nil
}

func (s *Store) Close(ctx context.Context) error {
	return s.db.Client().Disconnect(ctx)
}

func (s *Store) CreateField(ctx context.Context, rec FieldRecord) (string, error) {
	now := time.Now().UTC()
	rec.CreatedAt = now
	rec.UpdatedAt = now
	result, err := s.db.Collection(fieldsCollection).InsertOne(ctx, rec)
	if err != nil {
		return "", fmt.Errorf("failed to insert field: %w", err)
	}
	return result.InsertedID.(primitive.ObjectID).Hex(), nil
}

func (s *Store) FieldByFarmer(ctx context.Context, farmerID string) (*FieldRecord, error) {
	var rec FieldRecord
	err := s.db.Collection(fieldsCollection).FindOne(ctx, bson.M{"farmer_id": farmerID}).Decode(&rec)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load field: %w", err)
	}
	return &rec, nil
}

func (s *Store) CreateAnalysis(ctx context.Context, rec AnalysisRecord) (string, error) {
	rec.CreatedAt = time.Now().UTC()
	result, err := s.db.Collection(analysesCollection).InsertOne(ctx, rec)
	if err != nil {
		return "", fmt.Errorf("failed to insert analysis: %w", err)
	}
	return result.InsertedID.(primitive.ObjectID).Hex(), nil
}

func (s *Store) AnalysesByFarmer(ctx context.Context, farmerID string) ([]AnalysisRecord, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}).SetLimit(50)
	cursor, err := s.db.Collection(analysesCollection).Find(ctx, bson.M{"farmer_id": farmerID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query analyses: %w", err)
	}
	defer cursor.Close(ctx)

	var records []AnalysisRecord
	if err := cursor.All(ctx, &records); err != nil {
		return nil, fmt.Errorf("failed to decode analyses: %w", err)
	}
	return records, nil
}

func (s *Store) LatestAnalysis(ctx context.Context, farmerID string) (*AnalysisRecord, error) {
	opts := options.FindOne().SetSort(bson.D{{Key: "created_at", Value: -1}})
	var rec AnalysisRecord
	err := s.db.Collection(analysesCollection).FindOne(ctx, bson.M{"farmer_id": farmerID}, opts).Decode(&rec)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load latest analysis: %w", err)
	}
	return &rec, nil
}
