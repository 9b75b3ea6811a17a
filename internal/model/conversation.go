package model

import "time"

// Conversation 会话登记表：一个访客身份对应一行
// email 仅建普通索引：两个标签页并发首次提交仍可能各建一条，属已知限制
type Conversation struct {
	ID            string    `gorm:"primaryKey;type:varchar(64)" json:"id"` // 取自访客匿名会话 ID
	Name          string    `gorm:"type:varchar(64);not null" json:"name"`
	Email         string    `gorm:"index;type:varchar(128);not null" json:"email"`
	LastMessageAt time.Time `gorm:"index" json:"lastMessageAt"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

func (Conversation) TableName() string { return "conversations" }
