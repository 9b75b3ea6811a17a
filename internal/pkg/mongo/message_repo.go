package mongo

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// ErrNotFound 按 ID 定位消息失败时返回
var ErrNotFound = errors.New("message not found")

type MessageRepo interface {
	Insert(ctx context.Context, msg *Message) (string, error)
	ListByConversation(ctx context.Context, convID string) ([]*Message, error)
	ListAll(ctx context.Context) (map[string][]*Message, error)
	SetRead(ctx context.Context, convID, msgID string, read bool) error
	Delete(ctx context.Context, convID, msgID string) error
}

type messageRepoImpl struct {
	col *mongo.Collection
}

func NewMessageRepo(db *mongo.Database) MessageRepo {
	return &messageRepoImpl{
		col: db.Collection("messages"),
	}
}

// Insert 追加一条消息并返回存储侧分配的 ID
func (s *messageRepoImpl) Insert(ctx context.Context, msg *Message) (string, error) {
	if msg.ID == "" {
		msg.ID = primitive.NewObjectID().Hex()
	}
	if _, err := s.col.InsertOne(ctx, msg); err != nil {
		return "", err
	}
	return msg.ID, nil
}

// ListByConversation 读取单个会话的全部消息，不保证顺序
func (s *messageRepoImpl) ListByConversation(ctx context.Context, convID string) ([]*Message, error) {
	cursor, err := s.col.Find(ctx, bson.M{"conversation_id": convID})
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = cursor.Close(ctx)
	}()

	var messages []*Message
	if err := cursor.All(ctx, &messages); err != nil {
		return nil, err
	}
	return messages, nil
}

// ListAll 全量读取并按会话分组，不保证组内顺序
func (s *messageRepoImpl) ListAll(ctx context.Context) (map[string][]*Message, error) {
	cursor, err := s.col.Find(ctx, bson.M{})
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = cursor.Close(ctx)
	}()

	grouped := make(map[string][]*Message)
	for cursor.Next(ctx) {
		var msg Message
		if err := cursor.Decode(&msg); err != nil {
			return nil, err
		}
		grouped[msg.ConversationID] = append(grouped[msg.ConversationID], &msg)
	}
	if err := cursor.Err(); err != nil {
		return nil, err
	}
	return grouped, nil
}

// SetRead 更新单条消息的已读标志，彼此独立、不构成事务
func (s *messageRepoImpl) SetRead(ctx context.Context, convID, msgID string, read bool) error {
	filter := bson.M{"_id": msgID, "conversation_id": convID}
	res, err := s.col.UpdateOne(ctx, filter, bson.M{"$set": bson.M{"read": read}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete 删除单条消息
func (s *messageRepoImpl) Delete(ctx context.Context, convID, msgID string) error {
	res, err := s.col.DeleteOne(ctx, bson.M{"_id": msgID, "conversation_id": convID})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}
