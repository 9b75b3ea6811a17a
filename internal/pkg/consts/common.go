package consts

// 会话参与方角色
const (
	RoleVisitor  = "visitor"
	RoleOperator = "operator"
)

// 聊天面板状态上报
const (
	PanelOpen   = "open"
	PanelClosed = "closed"
)

const (
	NotifyTargetVisitor  = "visitor"
	NotifyTargetOperator = "operator"
)
