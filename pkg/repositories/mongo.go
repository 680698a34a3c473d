package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/cbodonnell/hexconquest/pkg/game/types"
	"github.com/cbodonnell/hexconquest/pkg/log"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const (
	DefaultMongoDatabase = "hexconquest"

	gamesCollection = "games"
	usersCollection = "users"
)

// MongoRepository stores one document per game, matching the layout used by
// the web frontend's database. Ids that look like ObjectIDs are stored as
// such so documents created elsewhere can be found.
type MongoRepository struct {
	client *mongo.Client
	games  *mongo.Collection
	users  *mongo.Collection
}

type NewMongoRepositoryOptions struct {
	URI      string
	Database string
}

func NewMongoRepository(ctx context.Context, opts NewMongoRepositoryOptions) (Repository, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(opts.URI))
	if err != nil {
		return nil, fmt.Errorf("unable to connect to database: %v", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		client.Disconnect(ctx)
		return nil, fmt.Errorf("unable to ping database: %v", err)
	}

	database := opts.Database
	if database == "" {
		database = DefaultMongoDatabase
	}
	log.Info("Connected to mongo database %s", database)

	db := client.Database(database)
	return &MongoRepository{
		client: client,
		games:  db.Collection(gamesCollection),
		users:  db.Collection(usersCollection),
	}, nil
}

type gameDocument struct {
	ID         interface{} `bson:"_id"`
	types.Game `bson:",inline"`
}

type userDocument struct {
	ID       interface{} `bson:"_id"`
	Username string      `bson:"username"`
}

// documentID converts an id to the value stored in _id.
func documentID(id string) interface{} {
	if oid, err := primitive.ObjectIDFromHex(id); err == nil {
		return oid
	}
	return id
}

func idString(id interface{}) string {
	switch v := id.(type) {
	case primitive.ObjectID:
		return v.Hex()
	case string:
		return v
	default:
		return fmt.Sprint(v)
	}
}

func (r *MongoRepository) Close(ctx context.Context) error {
	return r.client.Disconnect(ctx)
}

func (r *MongoRepository) FindGameByID(ctx context.Context, gameID string) (*types.Game, error) {
	doc := &gameDocument{}
	err := r.games.FindOne(ctx, bson.M{"_id": documentID(gameID)}).Decode(doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, &ErrNotFound{}
		}
		return nil, fmt.Errorf("failed to find game: %v", err)
	}

	game := doc.Game
	game.ID = idString(doc.ID)
	return &game, nil
}

func (r *MongoRepository) SaveGame(ctx context.Context, game *types.Game) error {
	doc := &gameDocument{
		ID:   documentID(game.ID),
		Game: *game,
	}
	_, err := r.games.ReplaceOne(ctx, bson.M{"_id": doc.ID}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to save game: %v", err)
	}
	return nil
}

func (r *MongoRepository) UpdateGameState(ctx context.Context, game *types.Game) error {
	id := documentID(game.ID)
	var version interface{} = game.Version
	if game.Version == 0 {
		version = bson.M{"$in": bson.A{0, nil}}
	}
	filter := bson.M{
		"_id":     id,
		"version": version,
	}
	update := bson.M{
		"$set": bson.M{
			"figures":            game.Figures,
			"players":            game.Players,
			"currentPlayerIndex": game.CurrentPlayerIndex,
			"turnCount":          game.TurnCount,
			"gamePhase":          game.GamePhase,
			"lastActivity":       game.LastActivity,
		},
		"$inc": bson.M{"version": 1},
	}

	res, err := r.games.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to update game: %v", err)
	}
	if res.MatchedCount == 0 {
		n, err := r.games.CountDocuments(ctx, bson.M{"_id": id})
		if err != nil {
			return fmt.Errorf("failed to check game: %v", err)
		}
		if n == 0 {
			return &ErrNotFound{}
		}
		return &ErrVersionConflict{GameID: game.ID, Version: game.Version}
	}

	game.Version++
	return nil
}

func (r *MongoRepository) SwapAutoPlayController(ctx context.Context, gameID, from, to string) (bool, error) {
	id := documentID(gameID)
	var current interface{} = from
	if from == "" {
		// documents written by other tools may hold null or no field at all
		current = bson.M{"$in": bson.A{"", nil}}
	}
	filter := bson.M{
		"_id":                  id,
		"autoPlayControllerId": current,
	}
	update := bson.M{"$set": bson.M{"autoPlayControllerId": to}}

	res, err := r.games.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, fmt.Errorf("failed to update auto play controller: %v", err)
	}
	if res.MatchedCount == 0 {
		n, err := r.games.CountDocuments(ctx, bson.M{"_id": id})
		if err != nil {
			return false, fmt.Errorf("failed to check game: %v", err)
		}
		if n == 0 {
			return false, &ErrNotFound{}
		}
		return false, nil
	}
	return true, nil
}

func (r *MongoRepository) ResetAutoPlayControllers(ctx context.Context) (int, error) {
	filter := bson.M{"autoPlayControllerId": bson.M{"$nin": bson.A{"", nil}}}
	update := bson.M{"$set": bson.M{"autoPlayControllerId": ""}}
	res, err := r.games.UpdateMany(ctx, filter, update)
	if err != nil {
		return 0, fmt.Errorf("failed to reset auto play controllers: %v", err)
	}
	return int(res.ModifiedCount), nil
}

func (r *MongoRepository) FindUserByID(ctx context.Context, userID string) (*types.User, error) {
	doc := &userDocument{}
	err := r.users.FindOne(ctx, bson.M{"_id": documentID(userID)}).Decode(doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, &ErrNotFound{}
		}
		return nil, fmt.Errorf("failed to find user: %v", err)
	}
	return &types.User{
		ID:       idString(doc.ID),
		Username: doc.Username,
	}, nil
}

func (r *MongoRepository) SaveUser(ctx context.Context, user *types.User) error {
	doc := &userDocument{
		ID:       documentID(user.ID),
		Username: user.Username,
	}
	_, err := r.users.ReplaceOne(ctx, bson.M{"_id": doc.ID}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to save user: %v", err)
	}
	return nil
}
