package selector_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/tabula/pkg/catalog"
	"github.com/papercomputeco/tabula/pkg/selector"
	"github.com/papercomputeco/tabula/pkg/sheets"
)

var _ = Describe("Parse", func() {
	cat := catalog.Default()

	It("parses a sheet to fields mapping", func() {
		res := selector.Parse(`{"Checklist": ["Task ID", "Status"]}`, cat)
		Expect(res.Outcome).To(Equal(selector.Parsed))
		Expect(res.Selection).To(Equal(sheets.Selection{"Checklist": {"Task ID", "Status"}}))
	})

	It("parses the plain list of sheet names", func() {
		res := selector.Parse(`["Checklist", "Delegation"]`, cat)
		Expect(res.Outcome).To(Equal(selector.Parsed))
		Expect(res.Selection).To(Equal(sheets.Selection{
			"Checklist":  {"Task ID"},
			"Delegation": {"Task ID"},
		}))
	})

	It("strips a markdown code fence", func() {
		res := selector.Parse("```json\n{\"Sales Invoices\": [\"Bill No.\"]}\n```", cat)
		Expect(res.Outcome).To(Equal(selector.Parsed))
		Expect(res.Selection).To(HaveKey("Sales Invoices"))
	})

	It("returns an empty selection for greetings", func() {
		res := selector.Parse(`{}`, cat)
		Expect(res.Outcome).To(Equal(selector.Parsed))
		Expect(res.Selection.Empty()).To(BeTrue())
	})

	It("never lets an unknown sheet through", func() {
		res := selector.Parse(`{"Payroll": ["Salary"], "Checklist": ["Status"]}`, cat)
		Expect(res.Selection).NotTo(HaveKey("Payroll"))
		Expect(res.Dropped).To(ContainElement("Payroll"))
	})

	It("flags JSON of the wrong shape as invalid", func() {
		for _, reply := range []string{`"Checklist"`, `{"Checklist": "Status"}`, `null`, `42`} {
			res := selector.Parse(reply, cat)
			Expect(res.Outcome).To(Equal(selector.Invalid), reply)
			Expect(res.Selection.Empty()).To(BeTrue())
		}
	})

	It("flags prose as unparsable", func() {
		res := selector.Parse("The relevant sheet is Checklist.", cat)
		Expect(res.Outcome).To(Equal(selector.Unparsable))
		Expect(res.Selection.Empty()).To(BeTrue())
	})
})
