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

// CreateUser создаёт нового пользователя.
// Нарушение уникальных индексов username/email -> storage.ErrAlreadyExists.
func (m *Mongo) CreateUser(ctx context.Context, user *models.User) error {
	const op = "storage.mongo.CreateUser"

	if _, err := m.users.InsertOne(ctx, userToDoc(user)); err != nil {
		if mongodriver.IsDuplicateKeyError(err) {
			return fmt.Errorf("%s: %w", op, storage.ErrAlreadyExists)
		}

		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// UserByID находит пользователя по ID.
func (m *Mongo) UserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	const op = "storage.mongo.UserByID"

	return m.findUser(ctx, op, bson.M{"_id": id.String()})
}

// UserByUsername находит пользователя по username.
func (m *Mongo) UserByUsername(ctx context.Context, username string) (*models.User, error) {
	const op = "storage.mongo.UserByUsername"

	return m.findUser(ctx, op, bson.M{"username": username})
}

// UserByLogin находит пользователя по username или email ($or).
func (m *Mongo) UserByLogin(ctx context.Context, username, email string) (*models.User, error) {
	const op = "storage.mongo.UserByLogin"

	or := bson.A{}
	if username != "" {
		or = append(or, bson.M{"username": username})
	}

	if email != "" {
		or = append(or, bson.M{"email": email})
	}

	if len(or) == 0 {
		return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	return m.findUser(ctx, op, bson.M{"$or": or})
}

func (m *Mongo) findUser(ctx context.Context, op string, filter bson.M) (*models.User, error) {
	var doc userDoc
	if err := m.users.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongodriver.ErrNoDocuments) {
			return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return doc.toModel(), nil
}

// SetRefreshToken перезаписывает хэш refresh-токена; пустой hash снимает поле ($unset).
func (m *Mongo) SetRefreshToken(ctx context.Context, id uuid.UUID, hash string) error {
	const op = "storage.mongo.SetRefreshToken"

	now := toMS(time.Now())

	update := bson.M{"$set": bson.M{"refreshToken": hash, "updatedAt": now}}
	if hash == "" {
		update = bson.M{
			"$unset": bson.M{"refreshToken": ""},
			"$set":   bson.M{"updatedAt": now},
		}
	}

	res, err := m.users.UpdateOne(ctx, bson.M{"_id": id.String()}, update)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if res.MatchedCount == 0 {
		return fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	return nil
}

// SwapRefreshToken - compare-and-swap по (id, refreshToken == oldHash).
// Если документ не совпал по условию, обновление не применяется.
func (m *Mongo) SwapRefreshToken(ctx context.Context, id uuid.UUID, oldHash, newHash string) error {
	const op = "storage.mongo.SwapRefreshToken"

	if oldHash == "" || newHash == "" {
		return fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	filter := bson.M{"_id": id.String(), "refreshToken": oldHash}
	update := bson.M{"$set": bson.M{"refreshToken": newHash, "updatedAt": toMS(time.Now())}}

	res, err := m.users.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if res.MatchedCount == 0 {
		return fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	return nil
}

// UpdatePassword пишет только поле password.
func (m *Mongo) UpdatePassword(ctx context.Context, id uuid.UUID, hash string) error {
	const op = "storage.mongo.UpdatePassword"

	update := bson.M{"$set": bson.M{"password": hash, "updatedAt": toMS(time.Now())}}

	res, err := m.users.UpdateOne(ctx, bson.M{"_id": id.String()}, update)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if res.MatchedCount == 0 {
		return fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	return nil
}

// UpdateAccount меняет fullname/email и возвращает документ после обновления.
func (m *Mongo) UpdateAccount(ctx context.Context, id uuid.UUID, fullName, email string) (*models.User, error) {
	const op = "storage.mongo.UpdateAccount"

	update := bson.M{"$set": bson.M{
		"fullname":  fullName,
		"email":     email,
		"updatedAt": toMS(time.Now()),
	}}

	return m.updateAndReturn(ctx, op, id, update)
}

// UpdateImage меняет avatar или coverImage.
func (m *Mongo) UpdateImage(ctx context.Context, id uuid.UUID, kind models.ImageKind, url string) (*models.User, error) {
	const op = "storage.mongo.UpdateImage"

	field := "avatar"
	if kind == models.ImageCover {
		field = "coverImage"
	}

	update := bson.M{"$set": bson.M{field: url, "updatedAt": toMS(time.Now())}}

	return m.updateAndReturn(ctx, op, id, update)
}

func (m *Mongo) updateAndReturn(ctx context.Context, op string, id uuid.UUID, update bson.M) (*models.User, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var doc userDoc
	err := m.users.FindOneAndUpdate(ctx, bson.M{"_id": id.String()}, update, opts).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongodriver.ErrNoDocuments) {
			return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
		}

		if mongodriver.IsDuplicateKeyError(err) {
			return nil, fmt.Errorf("%s: %w", op, storage.ErrAlreadyExists)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return doc.toModel(), nil
}

// AppendWatchHistory добавляет videoID в конец watchHistory.
func (m *Mongo) AppendWatchHistory(ctx context.Context, id, videoID uuid.UUID) error {
	const op = "storage.mongo.AppendWatchHistory"

	update := bson.M{
		"$push": bson.M{"watchHistory": videoID.String()},
		"$set":  bson.M{"updatedAt": toMS(time.Now())},
	}

	res, err := m.users.UpdateOne(ctx, bson.M{"_id": id.String()}, update)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if res.MatchedCount == 0 {
		return fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	return nil
}
