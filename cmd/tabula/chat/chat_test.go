package chatcmder

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/tabula/cmd/tabula/bootstrap"
)

// fakeOracle answers chat completions with canned replies, in order.
type fakeOracle struct {
	mu      sync.Mutex
	replies []string
}

func (f *fakeOracle) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	content := "out of replies"
	if len(f.replies) > 0 {
		content, f.replies = f.replies[0], f.replies[1:]
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"id":    "cmpl-1",
		"model": "gpt-test",
		"choices": []map[string]any{{
			"index":         0,
			"message":       map[string]any{"role": "assistant", "content": content},
			"finish_reason": "stop",
		}},
	})
}

var _ = Describe("Chat Command", func() {
	var (
		tmpDir  string
		oracle  *httptest.Server
		backend *httptest.Server
		replies *fakeOracle
	)

	BeforeEach(func() {
		tmpDir = GinkgoT().TempDir()
		GinkgoT().Setenv("HOME", tmpDir)
		for _, k := range []string{"TABULA_CONFIG", "OPENAI_API_KEY", "OPENAI_BASE_URL", "APPS_SCRIPT_URL", "TABULA_MODEL"} {
			GinkgoT().Setenv(k, "")
		}

		replies = &fakeOracle{}
		oracle = httptest.NewServer(replies)
		backend = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{"Checklist": {"rows": [{"Task ID": "T-1"}]}}`)
		}))
	})

	AfterEach(func() {
		oracle.Close()
		backend.Close()
	})

	newCmd := func(stdin string, args ...string) (*bytes.Buffer, error) {
		body := fmt.Sprintf(`
[oracle]
base_url = %q
api_key = "sk-test"
max_retries = -1

[source]
url = %q

[cache]
dir = ""

[transcript]
db_path = "off"
`, oracle.URL, backend.URL)
		path := filepath.Join(tmpDir, "tabula.toml")
		Expect(os.WriteFile(path, []byte(body), 0o644)).To(Succeed())

		cmd := NewChatCmd()
		bootstrap.AddFlags(cmd)
		out := &bytes.Buffer{}
		cmd.SetOut(out)
		cmd.SetErr(out)
		cmd.SetIn(strings.NewReader(stdin))
		cmd.SetArgs(append([]string{"--config", path}, args...))
		return out, cmd.Execute()
	}

	It("answers a single message", func() {
		replies.replies = []string{`{"Checklist": ["Task ID"]}`, "Checklist has 1 row."}

		out, err := newCmd("", "-m", "how many rows in Checklist")
		Expect(err).NotTo(HaveOccurred())
		Expect(out.String()).To(Equal("Checklist has 1 row.\n"))
	})

	It("runs a session until exit", func() {
		replies.replies = []string{"{}", "Hello!", "{}", "Goodbye!"}

		out, err := newCmd("hi\n\nbye\nexit\n", "--session", "repl")
		Expect(err).NotTo(HaveOccurred())
		Expect(out.String()).To(ContainSubstring("Diya - session repl"))
		Expect(out.String()).To(ContainSubstring("Hello!"))
		Expect(out.String()).To(ContainSubstring("Goodbye!"))
	})

	It("reports failed turns and keeps going", func() {
		replies.replies = []string{"{}", "Hi"}
		oracle.Close()

		out, err := newCmd("hi\n")
		Expect(err).NotTo(HaveOccurred())
		Expect(out.String()).To(ContainSubstring("error:"))
	})

	It("requires an API key", func() {
		GinkgoT().Setenv("OPENAI_API_KEY", "")
		path := filepath.Join(tmpDir, "nokey.toml")
		Expect(os.WriteFile(path, []byte(fmt.Sprintf("[source]\nurl = %q\n", backend.URL)), 0o644)).To(Succeed())

		cmd := NewChatCmd()
		bootstrap.AddFlags(cmd)
		cmd.SetOut(&bytes.Buffer{})
		cmd.SetErr(&bytes.Buffer{})
		cmd.SetArgs([]string{"--config", path, "-m", "hi"})
		Expect(cmd.Execute()).To(MatchError(ContainSubstring("api_key")))
	})
})
