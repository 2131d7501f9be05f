package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// MaxContactEntries 每个用户最多保存的紧急联系人数量
const MaxContactEntries = 5

// ContactRecord 每个用户一行的联系人聚合
// userId 由外部身份平台签发，首次添加联系人时惰性创建整行
type ContactRecord struct {
	BaseModel
	UserID   string         `gorm:"uniqueIndex;type:varchar(128);not null" json:"user_id"`
	Contacts ContactEntries `gorm:"type:jsonb;not null;default:'[]'" json:"contacts"`
}

// TableName 指定表名
func (ContactRecord) TableName() string {
	return "contact_records"
}

// ContactEntries 联系人数组（JSONB）
type ContactEntries []ContactEntry

// ContactEntry 单个紧急联系人（存储在 contact_records.contacts JSONB 中）
// ID 由存储侧分配，客户端视为不透明字符串
type ContactEntry struct {
	ID       int64  `json:"id,string"`
	Name     string `json:"name"`
	Phone    string `json:"phone"`
	Relation string `json:"relation"`
}

// Value 实现 driver.Valuer，序列化为 JSONB
func (e ContactEntries) Value() (driver.Value, error) {
	if e == nil {
		return "[]", nil
	}
	data, err := json.Marshal(e)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

// Scan 实现 sql.Scanner，反序列化 JSONB
func (e *ContactEntries) Scan(value interface{}) error {
	if value == nil {
		*e = ContactEntries{}
		return nil
	}

	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported type for ContactEntries: %T", value)
	}

	return json.Unmarshal(data, e)
}

// FindByID 按条目 ID 线性查找，返回索引；不存在时返回 -1
func (e ContactEntries) FindByID(id int64) int {
	for i, entry := range e {
		if entry.ID == id {
			return i
		}
	}
	return -1
}

// Clone 返回深拷贝，避免调用方修改聚合内部切片
func (e ContactEntries) Clone() ContactEntries {
	if e == nil {
		return ContactEntries{}
	}
	out := make(ContactEntries, len(e))
	copy(out, e)
	return out
}
