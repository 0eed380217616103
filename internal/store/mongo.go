package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/leadnotes/leadnotes/internal/models"
)

// noteDoc is the persisted shape of a note. The store-assigned ObjectID
// lives in _id; everything else mirrors models.Note field for field.
type noteDoc struct {
	ID          primitive.ObjectID `bson:"_id,omitempty"`
	Text        string             `bson:"text"`
	UserID      string             `bson:"userId"`
	UserEmail   string             `bson:"userEmail,omitempty"`
	CreatedAt   time.Time          `bson:"createdAt"`
	EmailSent   bool               `bson:"emailSent"`
	EmailSentAt *time.Time         `bson:"emailSentAt,omitempty"`
}

func (d noteDoc) toModel() models.Note {
	return models.Note{
		ID:          d.ID.Hex(),
		Text:        d.Text,
		UserID:      d.UserID,
		UserEmail:   d.UserEmail,
		CreatedAt:   d.CreatedAt,
		EmailSent:   d.EmailSent,
		EmailSentAt: d.EmailSentAt,
	}
}

// Mongo implements Store on a MongoDB collection.
type Mongo struct {
	coll *mongo.Collection
}

// NewMongo creates a durable store backed by the given collection.
func NewMongo(coll *mongo.Collection) *Mongo {
	return &Mongo{coll: coll}
}

// Create inserts the note and returns it with the ObjectID hex as id.
func (s *Mongo) Create(ctx context.Context, note *models.Note) (*models.Note, error) {
	doc := noteDoc{
		Text:      note.Text,
		UserID:    note.UserID,
		UserEmail: note.UserEmail,
		CreatedAt: note.CreatedAt,
	}
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Now().UTC()
	}
	res, err := s.coll.InsertOne(ctx, doc)
	if err != nil {
		return nil, fmt.Errorf("store: insert note: %w", err)
	}
	oid, ok := res.InsertedID.(primitive.ObjectID)
	if !ok {
		return nil, fmt.Errorf("store: unexpected inserted id type %T", res.InsertedID)
	}
	doc.ID = oid
	stored := doc.toModel()
	return &stored, nil
}

// ListByOwner returns the owner's notes sorted createdAt descending.
func (s *Mongo) ListByOwner(ctx context.Context, userID string) ([]models.Note, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cur, err := s.coll.Find(ctx, bson.M{"userId": userID}, opts)
	if err != nil {
		return nil, fmt.Errorf("store: find notes: %w", err)
	}
	defer cur.Close(ctx)

	notes := make([]models.Note, 0)
	for cur.Next(ctx) {
		var doc noteDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("store: decode note: %w", err)
		}
		notes = append(notes, doc.toModel())
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("store: cursor: %w", err)
	}
	return notes, nil
}

// DeleteByOwnerAndID deletes the note matching both _id and userId. An id
// that is not a valid ObjectID hex cannot match anything, so it reports
// false rather than an error.
func (s *Mongo) DeleteByOwnerAndID(ctx context.Context, userID, id string) (bool, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return false, nil
	}
	err = s.coll.FindOneAndDelete(ctx, bson.M{"_id": oid, "userId": userID}).Err()
	if errors.Is(err, mongo.ErrNoDocuments) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("store: delete note: %w", err)
	}
	return true, nil
}

// MarkEmailSent sets emailSent/emailSentAt on the note. The filter includes
// emailSent=false so the flag stays monotonic even under a replay.
func (s *Mongo) MarkEmailSent(ctx context.Context, id string, at time.Time) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("store: invalid note id %q", id)
	}
	_, err = s.coll.UpdateOne(ctx,
		bson.M{"_id": oid, "emailSent": false},
		bson.M{"$set": bson.M{"emailSent": true, "emailSentAt": at}},
	)
	if err != nil {
		return fmt.Errorf("store: mark email sent: %w", err)
	}
	return nil
}
