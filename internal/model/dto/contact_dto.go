package dto

// ========== Contact 相关 DTO ==========

// ContactFields 创建和更新共用的联系人字段
// 更新是整体替换而不是部分 patch，所以两个操作用同一个请求体
type ContactFields struct {
	Name     string `json:"name"`
	Phone    string `json:"phone"`
	Relation string `json:"relation"`
}

// ========== Alert 相关 DTO ==========

// TriggerAlertRequest 触发紧急告警请求
// message 为空时使用默认求救文案，坐标来自设备定位
type TriggerAlertRequest struct {
	Message   string  `json:"message"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// TriggerAlertResponse 触发紧急告警响应
type TriggerAlertResponse struct {
	AlertID      string `json:"alert_id"`
	ContactCount int    `json:"contact_count"`
}
