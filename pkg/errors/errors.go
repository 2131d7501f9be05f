package errors

func (d Definition) Error() string {
	return d.Message
}

// Definition 表示业务错误码及默认信息。
type Definition struct {
	Code    string
	Message string
}

// 联系人模块错误。
var (
	ContactsNotFound        = Definition{Code: "CONTACTS_NOT_FOUND", Message: "User contacts not found"}
	ContactNotFound         = Definition{Code: "CONTACT_NOT_FOUND", Message: "Contact not found"}
	ContactLimitReached     = Definition{Code: "CONTACT_LIMIT_REACHED", Message: "Contact limit reached"}
	ContactNameRequired     = Definition{Code: "CONTACT_NAME_REQUIRED", Message: "Contact name is required"}
	ContactPhoneRequired    = Definition{Code: "CONTACT_PHONE_REQUIRED", Message: "Contact phone is required"}
	ContactRelationRequired = Definition{Code: "CONTACT_RELATION_REQUIRED", Message: "Contact relation is required"}
	InvalidUserID           = Definition{Code: "INVALID_USER_ID", Message: "Invalid user ID"}
)

// 告警模块错误。
var (
	AlertNoContacts = Definition{Code: "ALERT_NO_CONTACTS", Message: "No emergency contacts configured"}
)

// 认证相关错误。
var (
	Unauthorized = Definition{Code: "UNAUTHORIZED", Message: "Unauthorized"}
)

// 短信服务错误。
var (
	ErrSignNameRequired     = Definition{Code: "SMS_SIGN_NAME_REQUIRED", Message: "SMS sign name is required"}
	ErrTemplateCodeRequired = Definition{Code: "SMS_TEMPLATE_CODE_REQUIRED", Message: "SMS template code is required"}
)

// Lookup 提供错误码查询能力。
var Lookup = map[string]Definition{
	ContactsNotFound.Code:        ContactsNotFound,
	ContactNotFound.Code:         ContactNotFound,
	ContactLimitReached.Code:     ContactLimitReached,
	ContactNameRequired.Code:     ContactNameRequired,
	ContactPhoneRequired.Code:    ContactPhoneRequired,
	ContactRelationRequired.Code: ContactRelationRequired,
	InvalidUserID.Code:           InvalidUserID,
	AlertNoContacts.Code:         AlertNoContacts,
	Unauthorized.Code:            Unauthorized,
}

// Get 根据错误码返回 Definition，若不存在则返回空 Definition。
func Get(code string) Definition {
	if def, ok := Lookup[code]; ok {
		return def
	}
	return Definition{Code: code, Message: "Unexpected error"}
}

// SkipMessageError 表示消费者应当确认并跳过的消息，不再重回队列。
type SkipMessageError struct {
	Reason string
}

func (e *SkipMessageError) Error() string {
	return e.Reason
}
