package mcpcmder

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/papercomputeco/tabula/pkg/agent"
	"github.com/papercomputeco/tabula/pkg/answer"
	"github.com/papercomputeco/tabula/pkg/catalog"
	"github.com/papercomputeco/tabula/pkg/llm/llmtest"
	"github.com/papercomputeco/tabula/pkg/selector"
	"github.com/papercomputeco/tabula/pkg/source"
	"github.com/papercomputeco/tabula/pkg/tools"
)

type noSource struct{}

func (noSource) Fetch(context.Context, []string) (map[string]json.RawMessage, error) {
	return nil, errors.New("offline")
}

type stubRefresher struct{}

func (stubRefresher) Refresh(context.Context) (*source.RefreshReport, error) {
	return &source.RefreshReport{Succeeded: 9}, nil
}

var _ = Describe("MCP server", func() {
	var (
		ctx     context.Context
		session *mcp.ClientSession
	)

	connect := func(refresher Refresher, responders ...llmtest.Responder) {
		logger := zap.NewNop()
		oracle := llmtest.NewScripted(responders...)
		cat := catalog.Default()
		reg := tools.Default()
		a := agent.New(agent.Config{},
			selector.New(oracle, cat, "m", logger),
			source.NewFetcher(nil, noSource{}, logger),
			answer.New(answer.Config{Model: "m"}, oracle, cat, reg, logger),
			reg,
			logger,
		)

		serverTransport, clientTransport := mcp.NewInMemoryTransports()
		_, err := NewServer(a, refresher).Connect(ctx, serverTransport, nil)
		Expect(err).NotTo(HaveOccurred())

		client := mcp.NewClient(&mcp.Implementation{Name: "test-client", Version: "v0"}, nil)
		session, err = client.Connect(ctx, clientTransport, nil)
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(session.Close)
	}

	BeforeEach(func() {
		ctx = context.Background()
	})

	It("lists the tools", func() {
		connect(nil)
		res, err := session.ListTools(ctx, nil)
		Expect(err).NotTo(HaveOccurred())

		names := []string{}
		for _, t := range res.Tools {
			names = append(names, t.Name)
		}
		Expect(names).To(ConsistOf("ask", "refresh_cache"))
	})

	It("answers through ask", func() {
		connect(nil, llmtest.Text("{}"), llmtest.Text("Hello from Diya"))

		res, err := session.CallTool(ctx, &mcp.CallToolParams{
			Name:      "ask",
			Arguments: map[string]any{"message": "hi", "session_id": "mcp-1"},
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(res.IsError).To(BeFalse())

		raw, err := json.Marshal(res.StructuredContent)
		Expect(err).NotTo(HaveOccurred())
		var out AskOutput
		Expect(json.Unmarshal(raw, &out)).To(Succeed())
		Expect(out.Reply).To(Equal("Hello from Diya"))
		Expect(out.SessionID).To(Equal("mcp-1"))
	})

	It("reports a tool error when refresh is not configured", func() {
		connect(nil)
		res, err := session.CallTool(ctx, &mcp.CallToolParams{Name: "refresh_cache", Arguments: map[string]any{}})
		Expect(err).NotTo(HaveOccurred())
		Expect(res.IsError).To(BeTrue())
	})

	It("refreshes the cache", func() {
		connect(stubRefresher{})
		res, err := session.CallTool(ctx, &mcp.CallToolParams{Name: "refresh_cache", Arguments: map[string]any{}})
		Expect(err).NotTo(HaveOccurred())
		Expect(res.IsError).To(BeFalse())
	})
})
