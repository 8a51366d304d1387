package cache_test

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/papercomputeco/tabula/pkg/source/cache"
)

var _ = Describe("Store", func() {
	var (
		dir   string
		store *cache.Store
	)

	BeforeEach(func() {
		dir = GinkgoT().TempDir()
		var err error
		store, err = cache.NewStore(dir, zap.NewNop())
		Expect(err).NotTo(HaveOccurred())
	})

	It("names files after the sheet with underscores", func() {
		Expect(cache.FileName("Job Card Production")).To(Equal("Job_Card_Production.json"))
	})

	It("reports a miss for a sheet never saved", func() {
		_, ok, err := store.Load("Checklist")
		Expect(err).NotTo(HaveOccurred())
		Expect(ok).To(BeFalse())
	})

	It("saves and loads a sheet", func() {
		path, err := store.Save("Purchase Receipt", json.RawMessage(`{"rows":[{"Lift Number":"L-1"},{"Lift Number":"L-2"}]}`))
		Expect(err).NotTo(HaveOccurred())
		Expect(path).To(Equal(filepath.Join(dir, "Purchase_Receipt.json")))

		snap, ok, err := store.Load("Purchase Receipt")
		Expect(err).NotTo(HaveOccurred())
		Expect(ok).To(BeTrue())
		Expect(snap.TotalRows).To(Equal(2))
	})

	It("leaves no temporary files behind", func() {
		_, err := store.Save("Checklist", json.RawMessage(`{"rows":[]}`))
		Expect(err).NotTo(HaveOccurred())

		entries, err := os.ReadDir(dir)
		Expect(err).NotTo(HaveOccurred())
		Expect(entries).To(HaveLen(1))

		files, err := store.Cached()
		Expect(err).NotTo(HaveOccurred())
		Expect(files).To(Equal([]string{"Checklist.json"}))
	})

	It("serves the new content after a save", func() {
		_, err := store.Save("Checklist", json.RawMessage(`{"rows":[{"Task ID":"T-1"}]}`))
		Expect(err).NotTo(HaveOccurred())
		snap, _, _ := store.Load("Checklist")
		Expect(snap.TotalRows).To(Equal(1))

		_, err = store.Save("Checklist", json.RawMessage(`{"rows":[{"Task ID":"T-1"},{"Task ID":"T-2"}]}`))
		Expect(err).NotTo(HaveOccurred())
		snap, _, _ = store.Load("Checklist")
		Expect(snap.TotalRows).To(Equal(2))
	})

	It("rejects a payload that is not JSON", func() {
		_, err := store.Save("Checklist", json.RawMessage(`not json`))
		Expect(err).To(HaveOccurred())
	})

	It("reports a corrupt cache file", func() {
		Expect(os.WriteFile(filepath.Join(dir, "Checklist.json"), []byte(`{"rows":`), 0o644)).To(Succeed())
		_, ok, err := store.Load("Checklist")
		Expect(err).To(HaveOccurred())
		Expect(ok).To(BeFalse())
	})

	Describe("Watch", func() {
		It("picks up files rewritten by another process", func() {
			_, err := store.Save("Checklist", json.RawMessage(`{"rows":[{"Task ID":"T-1"}]}`))
			Expect(err).NotTo(HaveOccurred())
			snap, _, _ := store.Load("Checklist")
			Expect(snap.TotalRows).To(Equal(1))

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			done := make(chan error, 1)
			go func() { done <- store.Watch(ctx) }()
			time.Sleep(100 * time.Millisecond)

			Expect(os.WriteFile(filepath.Join(dir, "Checklist.json"),
				[]byte(`{"rows":[{"Task ID":"T-1"},{"Task ID":"T-2"},{"Task ID":"T-3"}]}`), 0o644)).To(Succeed())

			Eventually(func() int {
				snap, _, _ := store.Load("Checklist")
				return snap.TotalRows
			}).WithTimeout(2 * time.Second).Should(Equal(3))

			cancel()
			Eventually(done).Should(Receive(BeNil()))
		})
	})
})
