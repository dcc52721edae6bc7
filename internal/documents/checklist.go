package documents

// ChecklistEntry is one line of an assistance type's document checklist.
type ChecklistEntry struct {
	Name     string `json:"name"`
	Required bool   `json:"required"`
}

var checklists = map[AssistanceType][]ChecklistEntry{
	AssistanceMedical: {
		{Name: "Valid ID", Required: true},
		{Name: "Barangay Indigency", Required: true},
		{Name: "Medical Abstract (≤3 months)", Required: true},
		{Name: "SOA/Certificate of Balance", Required: true},
		{Name: "Prescription/Quotation"},
		{Name: "Provider Contact"},
	},
	AssistanceBurial: {
		{Name: "Valid ID", Required: true},
		{Name: "Death Certificate", Required: true},
		{Name: "Funeral Contract/Quotation", Required: true},
		{Name: "Cause of Death"},
		{Name: "Transfer Permit"},
	},
	AssistanceEducation: {
		{Name: "Valid ID", Required: true},
		{Name: "COR/Assessment", Required: true},
		{Name: "Statement of Account/Fees", Required: true},
		{Name: "School ID"},
	},
	AssistanceTransport: {
		{Name: "Valid ID", Required: true},
		{Name: "Travel Itinerary/Ticket", Required: true},
	},
	AssistanceFood: {
		{Name: "Valid ID", Required: true},
		{Name: "Barangay Indigency", Required: true},
	},
	AssistanceFinancial: {
		{Name: "Valid ID", Required: true},
		{Name: "Barangay Indigency", Required: true},
	},
}

// Checklist returns a copy of the ordered checklist for t.
func Checklist(t AssistanceType) []ChecklistEntry {
	return append([]ChecklistEntry(nil), checklists[t]...)
}
