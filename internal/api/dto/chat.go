package dto

// IntakeReq 访客首次提交的联系表单
type IntakeReq struct {
	Name    string `json:"name" binding:"required"`
	Email   string `json:"email" binding:"required"`
	Message string `json:"message" binding:"required"`
}

// IntakeResp 身份确立结果：令牌即客户端的持久身份缓存
type IntakeResp struct {
	ConversationID string `json:"conversation_id"`
	Token          string `json:"token"`
	Submitted      bool   `json:"submitted"`
}

// SessionResp 匿名会话签发结果
type SessionResp struct {
	SessionID string `json:"session_id"`
	Token     string `json:"token"`
}

// SendMessageReq 发送消息请求体（访客与运营者通用）
type SendMessageReq struct {
	ConversationID string `json:"conversation_id"` // 访客侧留空，取自身份令牌
	Content        string `json:"message" binding:"required"`
}

// TypingReq typing 状态上报
type TypingReq struct {
	ConversationID string `json:"conversation_id"`
	Active         bool   `json:"active"`
}

// PanelReq 访客聊天面板开合上报
type PanelReq struct {
	State string `json:"state" binding:"required,oneof=open closed"`
}

// MarkReadReq 运营者选中会话
type MarkReadReq struct {
	ConversationID string `json:"conversation_id" binding:"required"`
}

// DeleteMessageReq 运营者删除单条消息
type DeleteMessageReq struct {
	ConversationID string `json:"conversation_id" binding:"required"`
	MessageID      string `json:"message_id" binding:"required"`
}

// MessageDTO 消息明细
type MessageDTO struct {
	ID             string `json:"id"`
	ConversationID string `json:"conversation_id"`
	Name           string `json:"name"`
	Email          string `json:"email"`
	Content        string `json:"message"`
	Sender         string `json:"sender"`
	Read           bool   `json:"read"`
	CreatedAt      int64  `json:"createdAt"`
}

// TypingStateDTO 按角色区分的 typing 标志
type TypingStateDTO struct {
	Visitor  bool `json:"visitor"`
	Operator bool `json:"operator"`
}

// SignalDTO 单会话的即时信号快照
type SignalDTO struct {
	ConversationID string         `json:"conversation_id"`
	Typing         TypingStateDTO `json:"typing"`
	Online         TypingStateDTO `json:"online"`
}

// ConversationSummaryDTO 收件箱侧栏条目
type ConversationSummaryDTO struct {
	ConversationID string `json:"conversation_id"`
	Name           string `json:"name"`
	Email          string `json:"email"`
	LastMessage    string `json:"last_message"`
	LastMessageAt  int64  `json:"last_message_at"`
	UnreadCount    int    `json:"unread_count"`
	HasUnread      bool   `json:"has_unread"`
	Online         bool   `json:"online"`
	Typing         bool   `json:"typing"`
}

// SnapshotFrame WS 推送：某会话的全量消息快照
type SnapshotFrame struct {
	Type           string        `json:"type"` // snapshot
	ConversationID string        `json:"conversation_id"`
	Messages       []*MessageDTO `json:"messages"`
	Badge          int           `json:"badge,omitempty"` // 访客侧未读角标
}

// SignalFrame WS 推送：typing/presence 信号
type SignalFrame struct {
	Type   string    `json:"type"` // signal
	Signal SignalDTO `json:"signal"`
}

// InboxFrame WS 推送：收件箱全量快照
type InboxFrame struct {
	Type          string                    `json:"type"` // inbox
	Conversations []*ConversationSummaryDTO `json:"conversations"`
}
