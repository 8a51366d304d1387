package catalog

// defaultSheets is the workbook tabula ships with: the operations tracker of
// a small manufacturing firm.
var defaultSheets = []SheetDescriptor{
	{
		Name:        "Checklist",
		Description: "recurring tasks",
		Identity:    "Task ID",
		Fields: []string{
			"Timestamp", "Task ID", "Firm", "Given By", "Name", "Task Description",
			"Task Start Date", "Freq", "Enable Reminders", "Require Attachment",
			"Actual", "Delay", "Status", "Remarks", "Uploaded Image",
		},
	},
	{
		Name:        "Delegation",
		Description: "task delegation",
		Identity:    "Task ID",
		Fields: []string{
			"Timestamp", "Task ID", "Firm", "Given By", "Name", "Task Description",
			"Task Start Date", "Freq", "Enable Reminders", "Require Attachment",
			"Planned Date", "Actual", "Delay", "Status", "Update Date", "Reasons",
			"Total Extent",
		},
	},
	{
		Name:        "Purchase Intransit",
		Description: "material not yet received",
		Identity:    "LN-Lift Number",
		Fields: []string{
			"Timestamp", "LN-Lift Number", "Type", "Po Number", "Bill No.", "Party Name",
			"Product Name", "Qty", "Area Lifting", "Lead Time To Reach Factory",
			"Truck No.", "Driver No.", "Transporter Name", "Bill Image", "Bilty No.",
			"Type Of Rate", "Rate", "Truck Qty", "Material Rate", "Bilty Image",
			"Expected Date To Reach",
		},
	},
	{
		Name:        "Purchase Receipt",
		Description: "material received",
		Identity:    "Lift Number",
		Fields: []string{
			"Timestamp", "Lift Number", "PO Number", "Bill Number", "Party Name",
			"Product Name", "Date Of Receiving", "Total Bill Quantity", "Actual Quantity",
			"Qty Difference", "Physical Condition", "Moisture", "Physical Image Of Product",
			"Image Of Weight Slip", "Bilty Image", "Bilty No.", "Qty Difference Status",
			"Difference Qty", "Type",
		},
	},
	{
		Name:        "Orders Pending",
		Description: "pending sales orders",
		Identity:    "DO-Delivery Order No.",
		Fields: []string{
			"Timestamp", "DO-Delivery Order No.", "PARTY PO NO (As Per Po Exact)",
			"Party PO Date", "Party Names", "Product Name", "Quantity", "Rate Of Material",
			"Type Of Transporting", "Upload SO", "Is This Order Through Some Agent",
			"Order Received From", "Type Of Measurement", "Contact Person Name",
			"Contact Person WhatsApp No.", "Alumina%", "Iron%", "Type Of PI",
			"Lead Time For Collection Of Final Payment", "Quantity Delivered",
			"Order Cancel", "Pending Qty", "Material Return", "Status",
		},
	},
	{
		Name:        "Sales Invoices",
		Description: "delivery details",
		Identity:    "Bill No.",
		Fields: []string{
			"Timestamp", "Bill Date", "Delivery Order No.", "Party Name", "Product Name",
			"Quantity Delivered.", "Bill No.", "Logistic No.", "Rate Of Material",
			"Type Of Transporting", "Transporter Name", "Vehicle Number.",
		},
	},
	{
		Name:        "Collection Pending",
		Description: "collections to be received",
		Identity:    "Party Names",
		Fields: []string{
			"Party Names", "Total Pending Amount", "Expected Date Of Payment",
			"Collection Remarks",
		},
	},
	{
		Name:        "Production Orders",
		Description: "production orders",
		Identity:    "Delivery Order No.",
		Fields: []string{
			"Timestamp", "Delivery Order No.", "Party Name", "Product Name",
			"Order Quantity", "Expected Delivery Date", "Order Cancel",
			"Actual Production Planned", "Actual Production Done", "Stock Transfered",
			"Quantity Delivered", "Quantity In Stock", "Planning Pending",
			"Production Pending", "Status",
		},
	},
	{
		Name:        "Job Card Production",
		Description: "job card details",
		Identity:    "Job Card No.",
		Fields: []string{
			"Timestamp", "Do Number", "Party Name", "Machine Name", "Job Card No.",
			"Date Of Production", "Name Of Supervisor", "Product Name", "Quantity Of FG",
		},
	},
}

// Default returns the built-in catalog.
func Default() *Catalog {
	c, err := New(defaultSheets)
	if err != nil {
		panic("invalid built-in catalog: " + err.Error())
	}
	return c
}
