package llm_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/papercomputeco/tabula/pkg/llm"
)

var _ = Describe("Client", func() {
	var (
		ctx   context.Context
		calls atomic.Int32
	)

	BeforeEach(func() {
		ctx = context.Background()
		calls.Store(0)
	})

	newClient := func(url string) *llm.Client {
		return llm.NewClient(llm.ClientConfig{
			BaseURL: url,
			APIKey:  "sk-test",
			Backoff: time.Millisecond,
		}, zap.NewNop())
	}

	okBody := func(w http.ResponseWriter) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(llm.ChatResponse{
			Model: "gpt-test",
			Choices: []llm.Choice{{
				Message: llm.AssistantMessage("", llm.ToolCall{
					ID: "call_1", Type: "function",
					Function: llm.ToolCallFunction{Name: "get_datetime", Arguments: "{}"},
				}),
			}},
		})
	}

	It("posts the request and decodes tool calls", func() {
		var got llm.ChatRequest
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer GinkgoRecover()
			Expect(r.URL.Path).To(Equal("/v1/chat/completions"))
			Expect(r.Header.Get("Authorization")).To(Equal("Bearer sk-test"))
			Expect(json.NewDecoder(r.Body).Decode(&got)).To(Succeed())
			okBody(w)
		}))
		defer srv.Close()

		resp, err := newClient(srv.URL).Complete(ctx, &llm.ChatRequest{
			Model:    "gpt-test",
			Messages: []llm.Message{llm.UserMessage("what time is it?")},
			Options:  &llm.Options{Temperature: llm.Float(0)},
		})
		Expect(err).NotTo(HaveOccurred())

		reply, err := resp.Reply()
		Expect(err).NotTo(HaveOccurred())
		Expect(reply.WantsTools()).To(BeTrue())
		Expect(reply.ToolCalls[0].Function.Name).To(Equal("get_datetime"))

		Expect(got.Messages).To(HaveLen(1))
		Expect(*got.Temperature).To(Equal(0.0))
	})

	It("retries unavailable responses with backoff", func() {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if calls.Add(1) < 3 {
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
			okBody(w)
		}))
		defer srv.Close()

		_, err := newClient(srv.URL).Complete(ctx, &llm.ChatRequest{Model: "gpt-test"})
		Expect(err).NotTo(HaveOccurred())
		Expect(calls.Load()).To(Equal(int32(3)))
	})

	It("gives up after the retry budget", func() {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusTooManyRequests)
		}))
		defer srv.Close()

		_, err := newClient(srv.URL).Complete(ctx, &llm.ChatRequest{Model: "gpt-test"})
		Expect(err).To(MatchError(llm.ErrRateLimited))
		Expect(calls.Load()).To(Equal(int32(4)))
	})

	It("does not retry unauthorized responses", func() {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusUnauthorized)
		}))
		defer srv.Close()

		_, err := newClient(srv.URL).Complete(ctx, &llm.ChatRequest{Model: "gpt-test"})
		Expect(err).To(MatchError(llm.ErrUnauthorized))
		Expect(calls.Load()).To(Equal(int32(1)))
	})

	It("treats an empty choice list as an error", func() {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"id":"x","choices":[]}`))
		}))
		defer srv.Close()

		_, err := newClient(srv.URL).Complete(ctx, &llm.ChatRequest{Model: "gpt-test"})
		Expect(err).To(MatchError(llm.ErrEmptyReply))
	})
})
