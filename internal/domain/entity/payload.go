package entity

// Payload is the requester-supplied form data. The workflow only reads
// HasOptionalStage; everything else is carried verbatim, including document
// references which are stored as given.
type Payload struct {
	FullName           string   `json:"full_name" validate:"required,max=120"`
	FatherName         string   `json:"father_name" validate:"required,max=120"`
	PhoneNumber        string   `json:"phone_number" validate:"required,phone"`
	Address            string   `json:"address" validate:"required,max=500"`
	PassOutYear        int      `json:"pass_out_year" validate:"required,gte=1950,lte=2100"`
	Course             string   `json:"course" validate:"required,max=120"`
	CGPA               float64  `json:"cgpa" validate:"gte=0,lte=10"`
	HasOptionalStage   bool     `json:"is_hostel_resident"`
	HostelName         string   `json:"hostel_name,omitempty" validate:"required_if=HasOptionalStage true,max=120"`
	RoomNumber         string   `json:"room_number,omitempty" validate:"required_if=HasOptionalStage true,max=20"`
	CautionMoneyRefund bool     `json:"caution_money_refund"`
	ReceiptNumber      string   `json:"receipt_number,omitempty" validate:"max=60"`
	FeeReceipts        []string `json:"fee_receipts,omitempty" validate:"dive,url"`
	Marksheet          string   `json:"marksheet,omitempty" validate:"omitempty,url"`
	BankDetails        string   `json:"bank_details,omitempty" validate:"omitempty,url"`
	CollegeID          string   `json:"college_id,omitempty" validate:"omitempty,url"`
}
