package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pribylovaa/go-media-hub/internal/models"
	"github.com/pribylovaa/go-media-hub/internal/storage"

	"go.mongodb.org/mongo-driver/bson"
	mongodriver "go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Subscribe создаёт ребро через upsert по уникальной паре (subscriber, channel).
func (m *Mongo) Subscribe(ctx context.Context, subscriberID, channelID uuid.UUID) error {
	const op = "storage.mongo.Subscribe"

	filter := bson.M{"subscriber": subscriberID.String(), "channel": channelID.String()}
	update := bson.M{"$setOnInsert": bson.M{"createdAt": toMS(time.Now())}}

	_, err := m.subscriptions.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	if err != nil {
		// Параллельный upsert той же пары: ребро уже есть.
		if mongodriver.IsDuplicateKeyError(err) {
			return nil
		}

		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// Unsubscribe удаляет ребро, если оно есть.
func (m *Mongo) Unsubscribe(ctx context.Context, subscriberID, channelID uuid.UUID) error {
	const op = "storage.mongo.Unsubscribe"

	filter := bson.M{"subscriber": subscriberID.String(), "channel": channelID.String()}
	if _, err := m.subscriptions.DeleteOne(ctx, filter); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// VideoByID находит видео по ID.
func (m *Mongo) VideoByID(ctx context.Context, id uuid.UUID) (*models.Video, error) {
	const op = "storage.mongo.VideoByID"

	var doc videoDoc
	if err := m.videos.FindOne(ctx, bson.M{"_id": id.String()}).Decode(&doc); err != nil {
		if errors.Is(err, mongodriver.ErrNoDocuments) {
			return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	v := doc.toModel()

	return &v, nil
}

// ChannelProfile - pipeline:
//  1. $match по username;
//  2. два $lookup в subscriptions: кто подписан на канал и на кого подписан канал;
//  3. $addFields: размеры массивов и признак вхождения viewerID в подписчиков;
//  4. $project только публичных полей.
func (m *Mongo) ChannelProfile(ctx context.Context, username string, viewerID uuid.UUID) (*models.ChannelProfile, error) {
	const op = "storage.mongo.ChannelProfile"

	pipeline := mongodriver.Pipeline{
		{{Key: "$match", Value: bson.M{"username": username}}},
		{{Key: "$lookup", Value: bson.M{
			"from":         subscriptionsCollection,
			"localField":   "_id",
			"foreignField": "channel",
			"as":           "subscribers",
		}}},
		{{Key: "$lookup", Value: bson.M{
			"from":         subscriptionsCollection,
			"localField":   "_id",
			"foreignField": "subscriber",
			"as":           "subscribedTo",
		}}},
		{{Key: "$addFields", Value: bson.M{
			"subscribersCount":          bson.M{"$size": "$subscribers"},
			"channelsSubscribedToCount": bson.M{"$size": "$subscribedTo"},
			"isSubscribed":              bson.M{"$in": bson.A{viewerID.String(), "$subscribers.subscriber"}},
		}}},
		{{Key: "$project", Value: bson.M{
			"username":                  1,
			"fullname":                  1,
			"avatar":                    1,
			"coverImage":                1,
			"createdAt":                 1,
			"subscribersCount":          1,
			"channelsSubscribedToCount": 1,
			"isSubscribed":              1,
		}}},
	}

	cur, err := m.users.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("%s: aggregate: %w", op, err)
	}
	defer cur.Close(ctx)

	var docs []channelDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("%s: decode: %w", op, err)
	}

	if len(docs) == 0 {
		return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	return docs[0].toModel(), nil
}

// WatchHistory - pipeline:
//  1. $match пользователя;
//  2. $lookup видео из watchHistory, внутри - $lookup владельца с проекцией
//     публичных полей и свёртка owner в один объект ($first);
//  3. $project: $map по исходному массиву id восстанавливает порядок хранения
//     (и повторы), $filter убирает ссылки на отсутствующие видео.
func (m *Mongo) WatchHistory(ctx context.Context, userID uuid.UUID) ([]models.WatchedVideo, error) {
	const op = "storage.mongo.WatchHistory"

	ownerLookup := bson.M{
		"from":         usersCollection,
		"localField":   "owner",
		"foreignField": "_id",
		"as":           "owner",
		"pipeline": bson.A{
			bson.M{"$project": bson.M{"_id": 0, "username": 1, "fullname": 1, "avatar": 1}},
		},
	}

	ordered := bson.M{"$map": bson.M{
		"input": "$watchHistory",
		"as":    "vid",
		"in": bson.M{"$first": bson.M{"$filter": bson.M{
			"input": "$videos",
			"as":    "v",
			"cond":  bson.M{"$eq": bson.A{"$$v._id", "$$vid"}},
		}}},
	}}

	pipeline := mongodriver.Pipeline{
		{{Key: "$match", Value: bson.M{"_id": userID.String()}}},
		{{Key: "$lookup", Value: bson.M{
			"from":         videosCollection,
			"localField":   "watchHistory",
			"foreignField": "_id",
			"as":           "videos",
			"pipeline": bson.A{
				bson.M{"$lookup": ownerLookup},
				bson.M{"$addFields": bson.M{"owner": bson.M{"$first": "$owner"}}},
			},
		}}},
		{{Key: "$project", Value: bson.M{
			"_id": 0,
			"history": bson.M{"$filter": bson.M{
				"input": ordered,
				"as":    "h",
				"cond":  bson.M{"$ne": bson.A{"$$h", nil}},
			}},
		}}},
	}

	cur, err := m.users.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("%s: aggregate: %w", op, err)
	}
	defer cur.Close(ctx)

	var docs []historyDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("%s: decode: %w", op, err)
	}

	if len(docs) == 0 {
		return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	out := make([]models.WatchedVideo, 0, len(docs[0].History))
	for _, d := range docs[0].History {
		out = append(out, d.toModel())
	}

	return out, nil
}
