package consts

const (
	// ChatConversationKey 单会话变更频道，后接会话 ID
	ChatConversationKey = "chat:conversation:"
	// ChatFirehoseKey 全量变更频道，任何会话变更都会广播；
	// 与单会话频道命名空间保持不相交，避免会话 ID 撞名
	ChatFirehoseKey = "chat:conversations"
	// ChatSignalKey 单会话 typing/presence 信号频道，后接会话 ID
	ChatSignalKey = "chat:signal:"
	// ChatSignalFirehoseKey 信号全量频道，同样独立于单会话命名空间
	ChatSignalFirehoseKey = "chat:signals"

	// ChatTypingKey typing 标志键，后接 {会话ID}:{角色}
	ChatTypingKey = "chat:typing:"
	// ChatPresenceKey 在线标志键，后接 {会话ID}:{角色}
	ChatPresenceKey = "chat:presence:"
)

const (
	TokenBlockKey = "token:block:"
)
