package dto

// OperatorLoginReq 运营者登录
type OperatorLoginReq struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// OperatorLoginResp 登录结果
type OperatorLoginResp struct {
	Token string `json:"token"`
	Email string `json:"email"`
}
