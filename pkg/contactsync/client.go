// Package contactsync 是紧急联系人服务的客户端 SDK。
// 它在内存中维护当前用户联系人列表的唯一快照，所有变更操作成功后都会
// 重新全量拉取一次，而不是信任变更接口的返回值，保证缓存始终来自最新读取。
package contactsync

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/cloudwego/hertz/pkg/app/client"
	"github.com/cloudwego/hertz/pkg/protocol"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
)

// MaxContacts 单个用户最多可登记的联系人数量
const MaxContacts = 5

// Entry 服务端返回的联系人条目，ID 是服务端生成的不透明字符串
type Entry struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Phone    string `json:"phone"`
	Relation string `json:"relation"`
}

// Fields 创建 / 修改联系人时提交的字段
type Fields struct {
	Name     string `json:"name"`
	Phone    string `json:"phone"`
	Relation string `json:"relation"`
}

// ValidationError 提交前的本地校验失败
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Reason
}

// APIError 服务端返回的非 2xx 响应
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("contacts API returned status %d", e.StatusCode)
}

type errorBody struct {
	Error string `json:"error"`
}

// Option 配置 Client
type Option func(*Client)

// WithHTTPClient 替换底层 hertz client（主要用于测试）
func WithHTTPClient(hc *client.Client) Option {
	return func(c *Client) {
		c.hc = hc
	}
}

// WithAuthToken 为每个请求附加 Bearer token
func WithAuthToken(token string) Option {
	return func(c *Client) {
		c.authToken = token
	}
}

// WithOnChange 注册缓存更新回调（UI 重渲染入口），
// 回调在锁外执行，入参是快照副本
func WithOnChange(fn func([]Entry)) Option {
	return func(c *Client) {
		c.onChange = fn
	}
}

// Client 联系人同步客户端
// 并发调用时不做请求排序：最后完成的拉取决定最终缓存内容
type Client struct {
	baseURL   string
	hc        *client.Client
	authToken string
	onChange  func([]Entry)

	mu        sync.Mutex
	contacts  []Entry
	loading   bool
	lastError string
}

// New 创建指向 baseURL 的客户端，例如 "http://localhost:5000"
func New(baseURL string, opts ...Option) (*Client, error) {
	c := &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		contacts: []Entry{},
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.hc == nil {
		hc, err := client.NewClient(
			client.WithDialTimeout(5*time.Second),
			client.WithClientReadTimeout(10*time.Second),
		)
		if err != nil {
			return nil, err
		}
		c.hc = hc
	}

	return c, nil
}

// Contacts 返回当前缓存快照的副本
func (c *Client) Contacts() []Entry {
	c.mu.Lock()
	defer c.mu.Unlock()
	return cloneEntries(c.contacts)
}

// Loading 是否有操作在进行中
func (c *Client) Loading() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loading
}

// LastError 最近一次失败的可读信息，成功的操作开始时会清空
func (c *Client) LastError() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastError
}

// Load 全量拉取联系人并替换缓存（空列表也是合法结果）
func (c *Client) Load(ctx context.Context, userID string) error {
	c.begin()
	err := c.fetch(ctx, userID)
	c.finish(err)
	return err
}

// Create 新增联系人；服务端成功后丢弃其返回值，重新 Load 一次
func (c *Client) Create(ctx context.Context, userID string, fields Fields) error {
	c.begin()
	err := c.create(ctx, userID, fields)
	c.finish(err)
	return err
}

// Modify 整体替换指定条目的字段，然后重新 Load
func (c *Client) Modify(ctx context.Context, userID, entryID string, fields Fields) error {
	c.begin()
	err := c.modify(ctx, userID, entryID, fields)
	c.finish(err)
	return err
}

// Remove 删除指定条目，然后重新 Load
func (c *Client) Remove(ctx context.Context, userID, entryID string) error {
	c.begin()
	err := c.remove(ctx, userID, entryID)
	c.finish(err)
	return err
}

func (c *Client) begin() {
	c.mu.Lock()
	c.loading = true
	c.lastError = ""
	c.mu.Unlock()
}

// finish 无论成功失败都要释放 loading，失败时记录 lastError
func (c *Client) finish(err error) {
	c.mu.Lock()
	c.loading = false
	if err != nil {
		c.lastError = err.Error()
	}
	c.mu.Unlock()
}

func (c *Client) fetch(ctx context.Context, userID string) error {
	body, err := c.do(ctx, consts.MethodGet, c.contactsPath(userID), nil)
	if err != nil {
		return err
	}

	var entries []Entry
	if err := json.Unmarshal(body, &entries); err != nil {
		return fmt.Errorf("decode contacts response: %w", err)
	}
	if entries == nil {
		entries = []Entry{}
	}

	c.mu.Lock()
	c.contacts = entries
	snapshot := cloneEntries(entries)
	onChange := c.onChange
	c.mu.Unlock()

	if onChange != nil {
		onChange(snapshot)
	}
	return nil
}

func (c *Client) create(ctx context.Context, userID string, fields Fields) error {
	if err := validateFields(fields); err != nil {
		return err
	}

	c.mu.Lock()
	count := len(c.contacts)
	c.mu.Unlock()
	if count >= MaxContacts {
		return &ValidationError{Reason: fmt.Sprintf("you can only register up to %d contacts", MaxContacts)}
	}

	if _, err := c.do(ctx, consts.MethodPost, c.contactsPath(userID), fields); err != nil {
		return err
	}
	return c.fetch(ctx, userID)
}

func (c *Client) modify(ctx context.Context, userID, entryID string, fields Fields) error {
	if err := validateFields(fields); err != nil {
		return err
	}
	if _, err := c.do(ctx, consts.MethodPut, c.entryPath(userID, entryID), fields); err != nil {
		return err
	}
	return c.fetch(ctx, userID)
}

func (c *Client) remove(ctx context.Context, userID, entryID string) error {
	if _, err := c.do(ctx, consts.MethodDelete, c.entryPath(userID, entryID), nil); err != nil {
		return err
	}
	return c.fetch(ctx, userID)
}

func (c *Client) contactsPath(userID string) string {
	return c.baseURL + "/api/contacts/" + url.PathEscape(userID)
}

func (c *Client) entryPath(userID, entryID string) string {
	return c.contactsPath(userID) + "/" + url.PathEscape(entryID)
}

// do 发送一次请求，非 2xx 一律转换为 *APIError
func (c *Client) do(ctx context.Context, method, uri string, payload any) ([]byte, error) {
	req := protocol.AcquireRequest()
	res := protocol.AcquireResponse()
	defer func() {
		protocol.ReleaseRequest(req)
		protocol.ReleaseResponse(res)
	}()

	req.SetMethod(method)
	req.SetRequestURI(uri)
	if c.authToken != "" {
		req.SetHeader("Authorization", "Bearer "+c.authToken)
	}

	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encode request body: %w", err)
		}
		req.SetHeader("Content-Type", "application/json")
		req.SetBody(data)
	}

	if err := c.hc.Do(ctx, req, res); err != nil {
		return nil, fmt.Errorf("contacts API request failed: %w", err)
	}

	status := res.StatusCode()
	body := append([]byte(nil), res.Body()...)

	if status < 200 || status > 299 {
		apiErr := &APIError{StatusCode: status}
		var eb errorBody
		if err := json.Unmarshal(body, &eb); err == nil && eb.Error != "" {
			apiErr.Message = eb.Error
		}
		return nil, apiErr
	}
	return body, nil
}

func validateFields(fields Fields) error {
	if strings.TrimSpace(fields.Name) == "" {
		return &ValidationError{Reason: "contact name is required"}
	}
	if strings.TrimSpace(fields.Phone) == "" {
		return &ValidationError{Reason: "contact phone is required"}
	}
	if strings.TrimSpace(fields.Relation) == "" {
		return &ValidationError{Reason: "contact relation is required"}
	}
	return nil
}

func cloneEntries(entries []Entry) []Entry {
	out := make([]Entry, len(entries))
	copy(out, entries)
	return out
}
