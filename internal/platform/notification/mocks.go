package notification

import (
	"context"
	"sync"
)

// MockEmailSender records SendEmail calls for tests.
type MockEmailSender struct {
	mu    sync.Mutex
	Err   error
	Calls []MockEmailCall
}

// MockEmailCall captures the arguments of one SendEmail invocation.
type MockEmailCall struct {
	To      string
	Subject string
	Body    string
}

func (m *MockEmailSender) SendEmail(_ context.Context, to, subject, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, MockEmailCall{To: to, Subject: subject, Body: body})
	return m.Err
}

// Sent returns a copy of the recorded calls.
func (m *MockEmailSender) Sent() []MockEmailCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]MockEmailCall, len(m.Calls))
	copy(out, m.Calls)
	return out
}

// MockSMSSender records SendSMS calls for tests.
type MockSMSSender struct {
	mu    sync.Mutex
	Err   error
	Calls []MockSMSCall
}

// MockSMSCall captures the arguments of one SendSMS invocation.
type MockSMSCall struct {
	To   string
	Body string
}

func (m *MockSMSSender) SendSMS(_ context.Context, to, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, MockSMSCall{To: to, Body: body})
	return m.Err
}

// Sent returns a copy of the recorded calls.
func (m *MockSMSSender) Sent() []MockSMSCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]MockSMSCall, len(m.Calls))
	copy(out, m.Calls)
	return out
}

// MockPushSender records SendPush calls for tests.
type MockPushSender struct {
	mu    sync.Mutex
	Err   error
	Calls []MockPushCall
}

// MockPushCall captures the arguments of one SendPush invocation.
type MockPushCall struct {
	Tokens []string
	Title  string
	Body   string
	Data   map[string]string
}

func (m *MockPushSender) SendPush(_ context.Context, tokens []string, title, body string, data map[string]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, MockPushCall{Tokens: tokens, Title: title, Body: body, Data: data})
	return m.Err
}

// Sent returns a copy of the recorded calls.
func (m *MockPushSender) Sent() []MockPushCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]MockPushCall, len(m.Calls))
	copy(out, m.Calls)
	return out
}
