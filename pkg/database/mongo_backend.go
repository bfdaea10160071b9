package database

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/PancyStudios/PancyModlog/pkg/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoBackend persists modlog documents in MongoDB
type MongoBackend struct {
	db *Database
}

// NewMongoBackend creates a backend over a connected Database
func NewMongoBackend(db *Database) *MongoBackend {
	return &MongoBackend{db: db}
}

func (b *MongoBackend) collection(name string) (*mongo.Collection, error) {
	col := b.db.GetCollection(name)
	if col == nil {
		return nil, fmt.Errorf("collection %s unavailable: not connected", name)
	}
	return col, nil
}

// findOne decodes a single document into out, reporting whether it existed
func findOne(ctx context.Context, col *mongo.Collection, filter bson.M, out interface{}) (bool, error) {
	err := col.FindOne(ctx, filter).Decode(out)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func findInfractions(ctx context.Context, col *mongo.Collection, filter interface{}) ([]*models.Infraction, error) {
	opts := options.Find().SetSort(bson.D{{Key: "guild_id", Value: 1}, {Key: "infraction_id", Value: 1}})
	cursor, err := col.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer func() { _ = cursor.Close(ctx) }()

	var out []*models.Infraction
	if err := cursor.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (b *MongoBackend) FindInfraction(ctx context.Context, guildID string, id int64) (*models.Infraction, error) {
	col, err := b.collection(CollectionInfractions)
	if err != nil {
		return nil, err
	}
	var inf models.Infraction
	ok, err := findOne(ctx, col, bson.M{"guild_id": guildID, "infraction_id": id}, &inf)
	if !ok || err != nil {
		return nil, err
	}
	return &inf, nil
}

func (b *MongoBackend) FindInfractions(ctx context.Context, guildID string, ids []int64) ([]*models.Infraction, error) {
	col, err := b.collection(CollectionInfractions)
	if err != nil {
		return nil, err
	}
	return findInfractions(ctx, col, bson.M{"guild_id": guildID, "infraction_id": bson.M{"$in": ids}})
}

func (b *MongoBackend) InsertInfractions(ctx context.Context, infs []*models.Infraction) error {
	col, err := b.collection(CollectionInfractions)
	if err != nil {
		return err
	}
	docs := make([]interface{}, len(infs))
	for i, inf := range infs {
		if inf.GlobalID.IsZero() {
			inf.GlobalID = primitive.NewObjectID()
		}
		docs[i] = inf
	}
	_, err = col.InsertMany(ctx, docs)
	return err
}

func (b *MongoBackend) SaveInfraction(ctx context.Context, inf *models.Infraction) error {
	col, err := b.collection(CollectionInfractions)
	if err != nil {
		return err
	}
	filter := bson.M{"guild_id": inf.GuildID, "infraction_id": inf.InfractionID}
	_, err = col.ReplaceOne(ctx, filter, inf, options.Replace().SetUpsert(true))
	return err
}

func (b *MongoBackend) SetMessageID(ctx context.Context, guildID string, ids []int64, messageID string) error {
	col, err := b.collection(CollectionInfractions)
	if err != nil {
		return err
	}
	filter := bson.M{"guild_id": guildID, "infraction_id": bson.M{"$in": ids}}
	_, err = col.UpdateMany(ctx, filter, bson.M{"$set": bson.M{"message_id": messageID}})
	return err
}

func (b *MongoBackend) ActiveExpiring(ctx context.Context, before time.Time) ([]*models.Infraction, error) {
	col, err := b.collection(CollectionInfractions)
	if err != nil {
		return nil, err
	}
	return findInfractions(ctx, col, bson.M{"active": true, "ends_at": bson.M{"$ne": nil, "$lte": before}})
}

// searchFilter translates a SearchQuery into a Mongo filter scoped to guildID
func searchFilter(guildID string, q SearchQuery) bson.M {
	var clauses bson.A
	if len(q.Keywords) > 0 {
		var alts bson.A
		for _, kw := range q.Keywords {
			re := primitive.Regex{Pattern: regexp.QuoteMeta(kw), Options: "i"}
			alts = append(alts, bson.M{"reason": re}, bson.M{"note": re})
		}
		clauses = append(clauses, bson.M{"$or": alts})
	}
	if q.UserID != "" {
		clauses = append(clauses, bson.M{"user_id": q.UserID})
	}
	if q.ModID != "" {
		clauses = append(clauses, bson.M{"mod_id": q.ModID})
	}
	if q.Type != "" {
		clauses = append(clauses, bson.M{"type": q.Type.Stored()})
	}
	if q.Active != nil {
		clauses = append(clauses, bson.M{"active": *q.Active})
	}

	filter := bson.M{"guild_id": guildID}
	if len(clauses) == 0 {
		return filter
	}

	op := "$and"
	if q.Or {
		op = "$or"
	}
	combined := bson.M{op: clauses}
	if q.Not {
		combined = bson.M{"$nor": bson.A{combined}}
	}
	return bson.M{"$and": bson.A{filter, combined}}
}

func (b *MongoBackend) SearchInfractions(ctx context.Context, guildID string, q SearchQuery) ([]*models.Infraction, error) {
	col, err := b.collection(CollectionInfractions)
	if err != nil {
		return nil, err
	}
	return findInfractions(ctx, col, searchFilter(guildID, q))
}

func (b *MongoBackend) CountInfractions(ctx context.Context, guildID string, q SearchQuery) (int64, error) {
	col, err := b.collection(CollectionInfractions)
	if err != nil {
		return 0, err
	}
	return col.CountDocuments(ctx, searchFilter(guildID, q))
}

func (b *MongoBackend) FindHistory(ctx context.Context, guildID, userID string) (*models.History, error) {
	col, err := b.collection(CollectionHistories)
	if err != nil {
		return nil, err
	}
	var h models.History
	ok, err := findOne(ctx, col, bson.M{"guild_id": guildID, "user_id": userID}, &h)
	if !ok || err != nil {
		return nil, err
	}
	return &h, nil
}

func (b *MongoBackend) SaveHistory(ctx context.Context, h *models.History) error {
	col, err := b.collection(CollectionHistories)
	if err != nil {
		return err
	}
	filter := bson.M{"guild_id": h.GuildID, "user_id": h.UserID}
	_, err = col.ReplaceOne(ctx, filter, h, options.Replace().SetUpsert(true))
	return err
}

func (b *MongoBackend) DeleteHistory(ctx context.Context, guildID, userID string) error {
	col, err := b.collection(CollectionHistories)
	if err != nil {
		return err
	}
	_, err = col.DeleteOne(ctx, bson.M{"guild_id": guildID, "user_id": userID})
	return err
}

func (b *MongoBackend) LoadMiscData(ctx context.Context, guildID string) (*models.MiscData, error) {
	col, err := b.collection(CollectionMiscData)
	if err != nil {
		return nil, err
	}
	var misc models.MiscData
	ok, err := findOne(ctx, col, bson.M{"_id": guildID}, &misc)
	if !ok || err != nil {
		return nil, err
	}
	return &misc, nil
}

func (b *MongoBackend) SaveMiscData(ctx context.Context, misc *models.MiscData) error {
	col, err := b.collection(CollectionMiscData)
	if err != nil {
		return err
	}
	_, err = col.ReplaceOne(ctx, bson.M{"_id": misc.GuildID}, misc, options.Replace().SetUpsert(true))
	return err
}

func (b *MongoBackend) FindGuildConfig(ctx context.Context, guildID string) (*models.GuildConfig, error) {
	col, err := b.collection(CollectionGuildConfigs)
	if err != nil {
		return nil, err
	}
	var cfg models.GuildConfig
	ok, err := findOne(ctx, col, bson.M{"_id": guildID}, &cfg)
	if !ok || err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (b *MongoBackend) SaveGuildConfig(ctx context.Context, cfg *models.GuildConfig) error {
	col, err := b.collection(CollectionGuildConfigs)
	if err != nil {
		return err
	}
	_, err = col.ReplaceOne(ctx, bson.M{"_id": cfg.GuildID}, cfg, options.Replace().SetUpsert(true))
	return err
}

func (b *MongoBackend) AllGuildConfigs(ctx context.Context) ([]*models.GuildConfig, error) {
	col, err := b.collection(CollectionGuildConfigs)
	if err != nil {
		return nil, err
	}
	cursor, err := col.Find(ctx, bson.M{})
	if err != nil {
		return nil, err
	}
	defer func() { _ = cursor.Close(ctx) }()

	var out []*models.GuildConfig
	if err := cursor.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}
