package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"StaySafe/internal/model"
	"StaySafe/internal/model/dto"
	pkgerrors "StaySafe/pkg/errors"
	"StaySafe/pkg/logger"
)

// DefaultAlertMessage 未提供自定义文案时发送的默认求救内容
const DefaultAlertMessage = "I need help! Please come to my location immediately."

// AlertPublisher 告警派发消息的发布端，worker 侧消费
type AlertPublisher interface {
	PublishAlertDispatch(msg model.AlertDispatchMessage) error
}

var (
	alertService *AlertService
	alertOnce    sync.Once
)

// SetAlertPublisher 配置默认告警服务的发布端（server 启动时调用）
var defaultAlertPublisher AlertPublisher

func SetAlertPublisher(p AlertPublisher) {
	defaultAlertPublisher = p
}

// Alert 返回默认的告警服务
func Alert() *AlertService {
	alertOnce.Do(func() {
		alertService = NewAlertService(Contact(), defaultAlertPublisher)
	})

	return alertService
}

type AlertService struct {
	contacts  *ContactService
	publisher AlertPublisher
}

func NewAlertService(contacts *ContactService, publisher AlertPublisher) *AlertService {
	return &AlertService{contacts: contacts, publisher: publisher}
}

// Trigger 向用户的全部紧急联系人派发求救短信
// 只负责入队，真正的发送由 worker 完成；没有联系人时直接拒绝
func (s *AlertService) Trigger(ctx context.Context, userID string, req dto.TriggerAlertRequest) (*dto.TriggerAlertResponse, error) {
	entries, err := s.contacts.Fetch(ctx, userID)
	if err != nil {
		return nil, err
	}

	if len(entries) == 0 {
		return nil, pkgerrors.AlertNoContacts
	}

	message := req.Message
	if message == "" {
		message = DefaultAlertMessage
	}

	phones := make([]string, 0, len(entries))
	for _, entry := range entries {
		phones = append(phones, entry.Phone)
	}

	msg := model.AlertDispatchMessage{
		AlertID:   uuid.NewString(),
		UserID:    userID,
		Phones:    phones,
		Message:   message,
		Latitude:  req.Latitude,
		Longitude: req.Longitude,
		QueuedAt:  time.Now().UTC().Format(time.RFC3339),
	}

	if err := s.publisher.PublishAlertDispatch(msg); err != nil {
		return nil, fmt.Errorf("failed to queue alert dispatch: %w", err)
	}

	logger.Logger.Info("Alert dispatch queued",
		zap.String("alert_id", msg.AlertID),
		zap.String("user_id", userID),
		zap.Int("contact_count", len(phones)),
	)

	return &dto.TriggerAlertResponse{
		AlertID:      msg.AlertID,
		ContactCount: len(phones),
	}, nil
}
