package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"StaySafe/config"
	"StaySafe/internal/model"
	pkgerrors "StaySafe/pkg/errors"
	"StaySafe/pkg/logger"
	"StaySafe/storage/mq"
)

// SMSSender worker 侧的短信发送依赖（pkg/sms 或测试替身）
type SMSSender interface {
	SendBatch(ctx context.Context, phones []string, signName, templateCode string, templateParams []string) error
}

var smsSender SMSSender

// SetSMSSender 设置短信发送实现（worker 启动时调用）
func SetSMSSender(s SMSSender) {
	smsSender = s
}

// HandleAlertDispatch 处理一条告警派发消息
// 单独导出便于测试，消费循环只是它的薄包装
func HandleAlertDispatch(ctx context.Context, body []byte) error {
	var msg model.AlertDispatchMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		// 解不开的消息重投也没有意义，直接跳过
		return &pkgerrors.SkipMessageError{Reason: fmt.Sprintf("malformed alert dispatch message: %v", err)}
	}

	if len(msg.Phones) == 0 {
		return &pkgerrors.SkipMessageError{Reason: fmt.Sprintf("alert %s has no phones", msg.AlertID)}
	}

	if smsSender == nil {
		return fmt.Errorf("SMS sender is not configured")
	}

	param, err := json.Marshal(map[string]string{
		"message":   msg.Message,
		"latitude":  strconv.FormatFloat(msg.Latitude, 'f', -1, 64),
		"longitude": strconv.FormatFloat(msg.Longitude, 'f', -1, 64),
	})
	if err != nil {
		return fmt.Errorf("failed to build template param: %w", err)
	}

	params := make([]string, len(msg.Phones))
	for i := range params {
		params[i] = string(param)
	}

	cfg := config.Cfg
	if err := smsSender.SendBatch(ctx, msg.Phones, cfg.SMSSignName, cfg.SMSTemplateCode, params); err != nil {
		logger.Logger.Error("Failed to send alert SMS batch",
			zap.String("alert_id", msg.AlertID),
			zap.String("user_id", msg.UserID),
			zap.Int("phone_count", len(msg.Phones)),
			zap.Error(err),
		)
		return fmt.Errorf("failed to send alert SMS: %w", err)
	}

	logger.Logger.Info("Alert SMS batch sent",
		zap.String("alert_id", msg.AlertID),
		zap.String("user_id", msg.UserID),
		zap.Int("phone_count", len(msg.Phones)),
	)

	return nil
}

// StartAlertDispatchConsumer 启动告警派发消费者，断线后自动重连
func StartAlertDispatchConsumer(ctx context.Context) {
	for {
		err := mq.Consume(mq.ConsumeOptions{
			Queue:         AlertDispatchQueue,
			ConsumerTag:   "alert_dispatch_consumer",
			PrefetchCount: 10,
			Handler: func(body []byte) error {
				return HandleAlertDispatch(ctx, body)
			},
		})

		select {
		case <-ctx.Done():
			logger.Logger.Info("Alert dispatch consumer stopped")
			return
		default:
		}

		logger.Logger.Warn("Alert dispatch consumer exited, retrying",
			zap.Error(err),
		)
		time.Sleep(5 * time.Second)
	}
}

// StartAllConsumers 启动全部消费者并阻塞到 ctx 取消
func StartAllConsumers(ctx context.Context) {
	go StartAlertDispatchConsumer(ctx)

	<-ctx.Done()
}
