package source_test

import (
	"context"
	"encoding/json"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/papercomputeco/tabula/pkg/sheets"
	"github.com/papercomputeco/tabula/pkg/source"
)

var _ = Describe("Decode", func() {
	It("decodes a rows document", func() {
		snap, err := source.Decode([]byte(`{"rows":[{"Task ID":"T-1"},{"Task ID":"T-2"}]}`))
		Expect(err).NotTo(HaveOccurred())
		Expect(snap.TotalRows).To(Equal(2))
	})

	It("decodes a bare array", func() {
		snap, err := source.Decode([]byte(`[{"Qty": 12}]`))
		Expect(err).NotTo(HaveOccurred())
		Expect(snap.Rows[0]["Qty"]).To(Equal(json.Number("12")))
	})

	It("rejects a document without rows", func() {
		_, err := source.Decode([]byte(`{"error":"no such sheet"}`))
		Expect(err).To(MatchError(source.ErrMissingRows))
	})

	It("rejects garbage", func() {
		_, err := source.Decode([]byte(`<html>`))
		Expect(err).To(HaveOccurred())
	})
})

var _ = Describe("Fetcher", func() {
	var (
		ctx   context.Context
		cache *memCache
		src   *fakeSource
	)

	BeforeEach(func() {
		ctx = context.Background()
		cache = newMemCache()
		src = &fakeSource{payloads: map[string]string{
			"Checklist":  `{"rows":[{"Task ID":"T-1"},{"Task ID":"T-2"},{"Task ID":"T-3"}]}`,
			"Delegation": `{"rows":[{"Task ID":"D-1"}]}`,
		}}
	})

	It("serves cache hits without touching the source", func() {
		cache.snaps["Checklist"] = sheets.NewSnapshot([]sheets.Row{{"Task ID": "cached"}})
		f := source.NewFetcher(cache, src, zap.NewNop())

		data := f.Fetch(ctx, []string{"Checklist"})
		Expect(data["Checklist"].Rows[0]["Task ID"]).To(Equal("cached"))
		Expect(src.calls).To(BeEmpty())
	})

	It("fetches all misses in one batch", func() {
		f := source.NewFetcher(cache, src, zap.NewNop())

		data := f.Fetch(ctx, []string{"Checklist", "Delegation"})
		Expect(src.calls).To(Equal([][]string{{"Checklist", "Delegation"}}))
		Expect(data["Checklist"].TotalRows).To(Equal(3))
		Expect(data["Delegation"].TotalRows).To(Equal(1))
	})

	It("returns an empty snapshot for a sheet the source lacks", func() {
		f := source.NewFetcher(cache, src, zap.NewNop())

		data := f.Fetch(ctx, []string{"Checklist", "Sales Invoices"})
		Expect(data).To(HaveKey("Sales Invoices"))
		Expect(data["Sales Invoices"].Rows).To(BeEmpty())
		Expect(data["Sales Invoices"].TotalRows).To(Equal(0))
		Expect(data["Sales Invoices"].Unavailable).To(BeTrue())
		Expect(data["Checklist"].TotalRows).To(Equal(3))
		Expect(data["Checklist"].Unavailable).To(BeFalse())
	})

	It("does not fail the turn when the source is down", func() {
		src.err = errors.New("connection refused")
		f := source.NewFetcher(cache, src, zap.NewNop())

		data := f.Fetch(ctx, []string{"Checklist"})
		Expect(data["Checklist"]).To(Equal(sheets.Empty()))
	})

	It("works from the cache alone", func() {
		cache.snaps["Delegation"] = sheets.NewSnapshot([]sheets.Row{{"Task ID": "D-9"}})
		f := source.NewFetcher(cache, nil, zap.NewNop())

		data := f.Fetch(ctx, []string{"Delegation", "Checklist"})
		Expect(data["Delegation"].TotalRows).To(Equal(1))
		Expect(data["Checklist"].Rows).To(BeEmpty())
	})

	It("returns nothing for an empty request", func() {
		f := source.NewFetcher(cache, src, zap.NewNop())
		Expect(f.Fetch(ctx, nil)).To(BeEmpty())
		Expect(src.calls).To(BeEmpty())
	})
})

var _ = Describe("Refresher", func() {
	var (
		ctx   context.Context
		cache *memCache
		src   *fakeSource
		names []string
	)

	BeforeEach(func() {
		ctx = context.Background()
		cache = newMemCache()
		names = []string{"Checklist", "Delegation", "Orders Pending"}
		src = &fakeSource{
			payloads: map[string]string{
				"Checklist":      `{"rows":[{"Task ID":"T-1"}]}`,
				"Delegation":     `{"rows":[{"Task ID":"D-1"},{"Task ID":"D-2"}]}`,
				"Orders Pending": `{"rows":[]}`,
			},
			failing: map[string]bool{},
		}
	})

	It("refreshes every sheet individually", func() {
		r := source.NewRefresher(names, src, cache, zap.NewNop())

		report, err := r.Refresh(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(src.calls).To(HaveLen(3))
		Expect(report.Succeeded).To(Equal(3))
		Expect(report.Failed).To(Equal(0))
		Expect(report.Sheets[1].Rows).To(Equal(2))
		Expect(cache.saved).To(HaveLen(3))
	})

	It("continues past a failing sheet and reports it", func() {
		src.failing["Delegation"] = true
		r := source.NewRefresher(names, src, cache, zap.NewNop())

		report, err := r.Refresh(ctx)
		Expect(err).To(MatchError(ContainSubstring("sheet Delegation")))
		Expect(report.Succeeded).To(Equal(2))
		Expect(report.Failed).To(Equal(1))
		Expect(report.Sheets[1].Status).To(Equal(source.StatusError))
		Expect(cache.saved).To(HaveKey("Checklist"))
		Expect(cache.saved).To(HaveKey("Orders Pending"))
		Expect(cache.saved).NotTo(HaveKey("Delegation"))
	})

	It("reports sheets the source does not return", func() {
		delete(src.payloads, "Orders Pending")
		r := source.NewRefresher(names, src, cache, zap.NewNop())

		report, err := r.Refresh(ctx)
		Expect(err).To(HaveOccurred())
		Expect(report.Sheets[2].Error).To(ContainSubstring("not returned by source"))
	})

	It("does not overwrite the cache with an undecodable payload", func() {
		src.payloads["Checklist"] = `{"error":"quota exceeded"}`
		r := source.NewRefresher(names, src, cache, zap.NewNop())

		_, err := r.Refresh(ctx)
		Expect(err).To(HaveOccurred())
		Expect(cache.saved).NotTo(HaveKey("Checklist"))
	})
})
