package kafka

// NotifyEvent 离线通知事件：消息送达时接收方不在看对应会话则入队，
// 由消费侧转发到推送网关
type NotifyEvent struct {
	ConversationID string `json:"conversation_id"`
	Target         string `json:"target"` // visitor | operator
	Name           string `json:"name"`
	Preview        string `json:"preview"`
	SentAt         int64  `json:"sent_at"`
}
