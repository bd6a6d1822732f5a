package labapi

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"
)

// Scalar accepts both JSON numbers and strings; the lab API is inconsistent
// about identifier and measured-value types.
type Scalar string

func (id *Scalar) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = Scalar(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*id = Scalar(n.String())
	return nil
}

func (id Scalar) String() string { return string(id) }

// Profile is the signed-in patient.
type Profile struct {
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	Email       string `json:"email"`
	Gender      string `json:"gender"`
	DateOfBirth string `json:"date_of_birth"`
}

// FullName joins first and last name, skipping empty parts.
func (p Profile) FullName() string {
	return strings.TrimSpace(strings.TrimSpace(p.FirstName) + " " + strings.TrimSpace(p.LastName))
}

var dobLayouts = []string{"2006-01-02", time.RFC3339, "2006-01-02T15:04:05", "02/01/2006"}

// Age returns completed years at now. A birthday later this year does not count yet.
func (p Profile) Age(now time.Time) (int, bool) {
	raw := strings.TrimSpace(p.DateOfBirth)
	if raw == "" {
		return 0, false
	}
	var dob time.Time
	var err error
	for _, layout := range dobLayouts {
		if dob, err = time.Parse(layout, raw); err == nil {
			break
		}
	}
	if err != nil || dob.After(now) {
		return 0, false
	}
	age := now.Year() - dob.Year()
	if now.Month() < dob.Month() || (now.Month() == dob.Month() && now.Day() < dob.Day()) {
		age--
	}
	return age, true
}

// Slot is one bookable collection window.
type Slot struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// TestInfo is a test search hit.
type TestInfo struct {
	TestName        string  `json:"test_name"`
	TestCode        string  `json:"test_code"`
	FastingRequired bool    `json:"fasting_required"`
	FastingHours    int     `json:"fasting_hours"`
	BasePrice       float64 `json:"base_price"`
}

// Appointment type values accepted by the booking endpoint.
const (
	AppointmentTypeHomeCollection = "home_collection"
	AppointmentTypeLabVisit       = "lab_visit"
)

// BookingPayload is the body of POST /appointments.
type BookingPayload struct {
	TestCode            string  `json:"test_code"`
	AppointmentDate     string  `json:"appointment_date"`
	AppointmentTime     string  `json:"appointment_time"`
	AppointmentType     string  `json:"appointment_type"`
	CollectionAddressID *string `json:"collection_address_id"`
	PatientName         string  `json:"patient_name"`
	PatientGender       string  `json:"patient_gender"`
	PatientAge          int     `json:"patient_age"`
	SpecialInstructions string  `json:"special_instructions"`
}

// BookingConfirmation is returned when an appointment is created.
type BookingConfirmation struct {
	Appointment     Appointment     `json:"appointment"`
	AppointmentTest json.RawMessage `json:"appointment_test,omitempty"`
}

// Appointment is a booked visit or home collection.
type Appointment struct {
	ID              Scalar `json:"appointment_id"`
	Date            string `json:"appointment_date"`
	Time            string `json:"appointment_time,omitempty"`
	Type            string `json:"appointment_type,omitempty"`
	Status          string `json:"status"`
	TestName        string `json:"test_name,omitempty"`
	TestCode        string `json:"test_code,omitempty"`
	CollectorName   string `json:"collector_name,omitempty"`
	PaymentStatus   string `json:"payment_status,omitempty"`
	SpecialRequests string `json:"special_instructions,omitempty"`
}

// TestResult is a processed report.
type TestResult struct {
	ID             Scalar            `json:"result_id"`
	TestName       string            `json:"test_name,omitempty"`
	TestCode       string            `json:"test_code,omitempty"`
	ProcessedAt    string            `json:"processed_at,omitempty"`
	Status         string            `json:"status,omitempty"`
	Interpretation string            `json:"interpretation,omitempty"`
	Parameters     []ResultParameter `json:"parameters,omitempty"`
}

// DisplayName prefers the test name over the code.
func (r TestResult) DisplayName() string {
	if strings.TrimSpace(r.TestName) != "" {
		return r.TestName
	}
	return r.TestCode
}

// AbnormalParameters returns parameters flagged outside their reference range.
func (r TestResult) AbnormalParameters() []ResultParameter {
	var out []ResultParameter
	for _, p := range r.Parameters {
		if p.Abnormal() {
			out = append(out, p)
		}
	}
	return out
}

// ResultParameter is one measured value of a report. Flag comes from the
// lab's reference-range check ("H", "L", "critical"); empty or "normal" means in range.
type ResultParameter struct {
	Name           string `json:"name"`
	Value          Scalar `json:"value"`
	Unit           string `json:"unit,omitempty"`
	ReferenceRange string `json:"reference_range,omitempty"`
	Flag           string `json:"flag,omitempty"`
}

// Abnormal reports whether the parameter carries an out-of-range flag.
func (p ResultParameter) Abnormal() bool {
	switch strings.ToLower(strings.TrimSpace(p.Flag)) {
	case "", "n", "normal":
		return false
	}
	return true
}
