package mongo

// Message MongoDB 消息明细模型
// 除 Read 外所有字段一经写入不再变更；Read 由运营者查看会话时置位
type Message struct {
	ID             string `bson:"_id,omitempty" json:"id"`               // 存储侧分配，会话内插入序的决胜键
	ConversationID string `bson:"conversation_id" json:"conversationId"` // 访客会话 ID
	Name           string `bson:"name" json:"name"`                      // 访客称呼（运营者消息为固定署名）
	Email          string `bson:"email" json:"email"`                    // 联系邮箱
	Content        string `bson:"message" json:"message"`                // 正文
	Sender         string `bson:"sender" json:"sender"`                  // visitor | operator
	Read           bool   `bson:"read" json:"read"`                      // 运营者是否已读（访客消息）
	CreatedAt      int64  `bson:"created_at" json:"createdAt"`           // 客户端毫秒时间戳
}
