package service

import (
	"errors"
)

const (
	BadRequest          = 400
	Unauthorized        = 401
	Forbidden           = 403
	NotFound            = 404
	Conflict            = 409
	InternalServerError = 500
)

var (
	ErrParamInvalid        = errors.New("参数错误")
	ErrNameRequired        = errors.New("请填写称呼")
	ErrEmailInvalid        = errors.New("邮箱格式不正确")
	ErrMessageRequired     = errors.New("请填写留言内容")
	ErrIdentityNotReady    = errors.New("会话初始化中，请稍后重试")
	ErrIdentityNotResolved = errors.New("请先提交联系表单")
	ErrMessageNotFound     = errors.New("消息不存在")
	ErrStoreWrite          = errors.New("消息发送失败，请重试")
	ErrCredentialInvalid   = errors.New("账号或密码错误")
	ErrNotOperator         = errors.New("无权访问收件箱")
	UnauthorizedError      = errors.New("权限不足")
	UnExpectedError        = errors.New("系统异常，请稍后重试")
)

var ErrorMap = map[error]int{
	ErrParamInvalid:        BadRequest,
	ErrNameRequired:        BadRequest,
	ErrEmailInvalid:        BadRequest,
	ErrMessageRequired:     BadRequest,
	ErrIdentityNotReady:    Conflict,
	ErrIdentityNotResolved: Unauthorized,
	ErrMessageNotFound:     NotFound,
	ErrStoreWrite:          InternalServerError,
	ErrCredentialInvalid:   Unauthorized,
	ErrNotOperator:         Forbidden,
	UnauthorizedError:      Unauthorized,
	UnExpectedError:        InternalServerError,
}
