package queue

import (
	"fmt"

	"go.uber.org/zap"

	"StaySafe/internal/model"
	"StaySafe/pkg/logger"
	"StaySafe/storage/mq"
)

// AlertDispatchQueue 告警派发队列，默认交换机直投
const AlertDispatchQueue = "alert.dispatch"

// Producer 基于 RabbitMQ 的告警发布端，实现 service.AlertPublisher
type Producer struct{}

func NewProducer() *Producer {
	return &Producer{}
}

// Setup 声明所需队列，server 启动时调用一次
func (p *Producer) Setup() error {
	if err := mq.DeclareQueue(AlertDispatchQueue); err != nil {
		return fmt.Errorf("failed to declare alert dispatch queue: %w", err)
	}
	return nil
}

// PublishAlertDispatch 发布告警派发消息
func (p *Producer) PublishAlertDispatch(msg model.AlertDispatchMessage) error {
	err := mq.PublishMessage("", AlertDispatchQueue, msg)
	if err != nil {
		logger.Logger.Error("Failed to publish alert dispatch message",
			zap.String("alert_id", msg.AlertID),
			zap.String("user_id", msg.UserID),
			zap.Error(err),
		)
		return err
	}

	logger.Logger.Info("Published alert dispatch message",
		zap.String("alert_id", msg.AlertID),
		zap.String("user_id", msg.UserID),
		zap.Int("phone_count", len(msg.Phones)),
	)

	return nil
}
