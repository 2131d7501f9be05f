package model

// AlertDispatchMessage 紧急告警派发消息
// server 端发布，worker 消费后批量发送短信
type AlertDispatchMessage struct {
	AlertID   string   `json:"alert_id"`
	UserID    string   `json:"user_id"`
	Phones    []string `json:"phones"`
	Message   string   `json:"message"`
	Latitude  float64  `json:"latitude"`
	Longitude float64  `json:"longitude"`
	QueuedAt  string   `json:"queued_at"`
}
