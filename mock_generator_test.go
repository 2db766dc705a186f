package tryon

import (
	"context"
	"sync"
	"time"
)

// MockGenerator is a mock implementation of ContentGenerator.
// GenerateFunc wins over Replies; Replies are consumed in order and the last
// one repeats.
type MockGenerator struct {
	GenerateFunc func(ctx context.Context, req *Request) (*Response, error)
	Replies      []MockReply
	ModelsFunc   func() []ModelInfo
	CloseFunc    func() error

	mu       sync.Mutex
	requests []*Request
}

// MockReply is one scripted GenerateContent result.
type MockReply struct {
	Resp *Response
	Err  error
}

func (m *MockGenerator) GenerateContent(ctx context.Context, req *Request) (*Response, error) {
	m.mu.Lock()
	m.requests = append(m.requests, req)
	n := len(m.requests)
	m.mu.Unlock()

	if m.GenerateFunc != nil {
		return m.GenerateFunc(ctx, req)
	}
	if len(m.Replies) == 0 {
		return &Response{}, nil
	}
	reply := m.Replies[min(n, len(m.Replies))-1]
	return reply.Resp, reply.Err
}

func (m *MockGenerator) Models() []ModelInfo {
	if m.ModelsFunc != nil {
		return m.ModelsFunc()
	}
	return []ModelInfo{}
}

func (m *MockGenerator) Close() error {
	if m.CloseFunc != nil {
		return m.CloseFunc()
	}
	return nil
}

// Requests returns the requests received so far.
func (m *MockGenerator) Requests() []*Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*Request(nil), m.requests...)
}

// Calls returns the number of GenerateContent calls.
func (m *MockGenerator) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}

// recordingSleep records requested delays without waiting.
type recordingSleep struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (r *recordingSleep) sleep(ctx context.Context, d time.Duration) error {
	r.mu.Lock()
	r.delays = append(r.delays, d)
	r.mu.Unlock()
	return ctx.Err()
}

func (r *recordingSleep) Delays() []time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]time.Duration(nil), r.delays...)
}

func imageResponse(mime string, data []byte) *Response {
	return &Response{
		Candidates: []Candidate{{
			FinishReason: FinishReasonStop,
			Parts:        []Part{{Image: &GeneratedImage{Data: data, MIMEType: mime}}},
		}},
	}
}

func textResponse(text string) *Response {
	return &Response{
		Candidates: []Candidate{{
			FinishReason: FinishReasonStop,
			Parts:        []Part{{Text: text}},
		}},
		Text: text,
	}
}

func unavailableErr() error {
	return &APIError{Code: 503, Status: "UNAVAILABLE", Message: "The model is overloaded."}
}
