package sms

import (
	"context"
	"encoding/json"
	"fmt"

	openapi "github.com/alibabacloud-go/darabonba-openapi/v2/client"
	openapiutil "github.com/alibabacloud-go/openapi-util/service"
	util "github.com/alibabacloud-go/tea-utils/v2/service"
	"github.com/alibabacloud-go/tea/tea"
	credential "github.com/aliyun/credentials-go/credentials"
	"go.uber.org/zap"

	"StaySafe/pkg/errors"
	"StaySafe/pkg/logger"
)

type AliyunClient struct {
	client *openapi.Client
}

// NewAliyunClient 创建阿里云 SMS 客户端
// 凭据通过环境变量自动获取：ALIBABA_CLOUD_ACCESS_KEY_ID 和 ALIBABA_CLOUD_ACCESS_KEY_SECRET
func NewAliyunClient() (*AliyunClient, error) {
	cred, err := credential.NewCredential(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create aliyun credential: %w", err)
	}

	openapiConfig := &openapi.Config{
		Credential: cred,
		Endpoint:   tea.String("dysmsapi.aliyuncs.com"),
	}

	client, err := openapi.NewClient(openapiConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create aliyun client: %w", err)
	}

	return &AliyunClient{
		client: client,
	}, nil
}

func (c *AliyunClient) createApiInfo(action string) *openapi.Params {
	return &openapi.Params{
		Action:      tea.String(action),
		Version:     tea.String("2017-05-25"),
		Protocol:    tea.String("HTTPS"),
		Method:      tea.String("POST"),
		AuthType:    tea.String("AK"),
		Style:       tea.String("RPC"),
		Pathname:    tea.String("/"),
		ReqBodyType: tea.String("json"),
		BodyType:    tea.String("json"),
	}
}

// SendSingle 发送单条短信
func (c *AliyunClient) SendSingle(ctx context.Context, phone, signName, templateCode, templateParam string) (*SendResponse, error) {
	if signName == "" {
		return nil, errors.ErrSignNameRequired
	}
	if templateCode == "" {
		return nil, errors.ErrTemplateCodeRequired
	}

	params := c.createApiInfo("SendSms")

	queries := map[string]interface{}{
		"PhoneNumbers":  tea.String(phone),
		"SignName":      tea.String(signName),
		"TemplateCode":  tea.String(templateCode),
		"TemplateParam": tea.String(templateParam),
	}

	runtime := &util.RuntimeOptions{}
	request := &openapi.OpenApiRequest{
		Query: openapiutil.Query(queries),
	}

	resp, err := c.client.CallApi(params, request, runtime)
	if err != nil {
		logger.Logger.Error("Failed to send SMS",
			zap.String("phone", phone),
			zap.String("template", templateCode),
			zap.Error(err),
		)
		return nil, fmt.Errorf("failed to send SMS: %w", err)
	}

	response, err := parseSendResponse(resp, templateCode)
	if err != nil {
		return nil, err
	}

	logger.Logger.Info("SMS sent successfully",
		zap.String("phone", phone),
		zap.String("template", templateCode),
		zap.String("message_id", response.MessageID),
	)

	return response, nil
}

// SendBatch 批量发送短信
// 阿里云 SendBatchSms API：
// - PhoneNumberJson: JSON 数组格式的手机号列表
// - SignNameJson: JSON 数组格式的签名列表，每个手机号对应一个签名
// - TemplateParamJson: JSON 数组格式的模板参数列表，每个元素对应一个手机号
func (c *AliyunClient) SendBatch(ctx context.Context, phones []string, signName, templateCode string, templateParams []string) error {
	if signName == "" {
		return errors.ErrSignNameRequired
	}
	if templateCode == "" {
		return errors.ErrTemplateCodeRequired
	}
	if len(phones) == 0 {
		return fmt.Errorf("phones list is empty")
	}
	if len(templateParams) != len(phones) {
		return fmt.Errorf("templateParams count (%d) must match phones count (%d)", len(templateParams), len(phones))
	}

	phoneJSON, err := json.Marshal(phones)
	if err != nil {
		return fmt.Errorf("failed to marshal phones: %w", err)
	}

	signNames := make([]string, len(phones))
	for i := range signNames {
		signNames[i] = signName
	}
	signJSON, err := json.Marshal(signNames)
	if err != nil {
		return fmt.Errorf("failed to marshal sign names: %w", err)
	}

	paramJSON, err := json.Marshal(templateParams)
	if err != nil {
		return fmt.Errorf("failed to marshal template params: %w", err)
	}

	params := c.createApiInfo("SendBatchSms")

	queries := map[string]interface{}{
		"PhoneNumberJson":   tea.String(string(phoneJSON)),
		"SignNameJson":      tea.String(string(signJSON)),
		"TemplateCode":      tea.String(templateCode),
		"TemplateParamJson": tea.String(string(paramJSON)),
	}

	runtime := &util.RuntimeOptions{}
	request := &openapi.OpenApiRequest{
		Query: openapiutil.Query(queries),
	}

	resp, err := c.client.CallApi(params, request, runtime)
	if err != nil {
		logger.Logger.Error("Failed to send batch SMS",
			zap.Int("phone_count", len(phones)),
			zap.String("template", templateCode),
			zap.Error(err),
		)
		return fmt.Errorf("failed to send batch SMS: %w", err)
	}

	if _, err := parseSendResponse(resp, templateCode); err != nil {
		return err
	}

	logger.Logger.Info("Batch SMS sent successfully",
		zap.Int("phone_count", len(phones)),
		zap.String("template", templateCode),
	)

	return nil
}

// parseSendResponse 解析阿里云 OpenAPI 的泛化响应
func parseSendResponse(resp map[string]interface{}, templateCode string) (*SendResponse, error) {
	if resp["statusCode"] != nil {
		statusCode, ok := resp["statusCode"].(int)
		if ok && statusCode != 200 {
			logger.Logger.Error("SMS API returned error",
				zap.Int("statusCode", statusCode),
				zap.Any("body", resp["body"]),
			)
			return nil, fmt.Errorf("SMS API error: statusCode=%d", statusCode)
		}
	}

	response := &SendResponse{
		Provider: "aliyun",
		Template: templateCode,
	}

	if resp["body"] != nil {
		bodyBytes, err := json.Marshal(resp["body"])
		if err != nil {
			return nil, fmt.Errorf("failed to marshal response body: %w", err)
		}

		var bodyMap map[string]interface{}
		if err := json.Unmarshal(bodyBytes, &bodyMap); err == nil {
			if bizID, ok := bodyMap["BizId"].(string); ok {
				response.MessageID = bizID
			}
			if code, ok := bodyMap["Code"].(string); ok {
				response.Code = code
				response.StatusCode = code
			}
			if msg, ok := bodyMap["Message"].(string); ok {
				response.Message = msg
			}
			if requestID, ok := bodyMap["RequestId"].(string); ok {
				response.RequestID = requestID
			}

			if response.Code != "" && response.Code != "OK" {
				logger.Logger.Error("SMS send failed",
					zap.String("code", response.Code),
					zap.String("message", response.Message),
				)
				return nil, fmt.Errorf("SMS send failed: %s - %s", response.Code, response.Message)
			}
		}
	}

	return response, nil
}
