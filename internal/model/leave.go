package model

// LeaveStatus is the lifecycle state of a leave application.
type LeaveStatus string

const (
	LeaveStatusPending   LeaveStatus = "PENDING"
	LeaveStatusApproved  LeaveStatus = "APPROVED"
	LeaveStatusRejected  LeaveStatus = "REJECTED"
	LeaveStatusCancelled LeaveStatus = "CANCELLED"
)

// LeaveType is an administrable category of leave (annual, sick, ...).
type LeaveType struct {
	ID          int64   `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description,omitempty"`
	DefaultDays float64 `json:"defaultDays,omitempty"`
	Color       string  `json:"color,omitempty"`
}

// LeaveApplication is a request for time off and its approval state.
type LeaveApplication struct {
	// ID is the backend identifier.
	ID int64 `json:"id"`

	// User is the applicant.
	User User `json:"user"`

	// LeaveType is the category being requested.
	LeaveType LeaveType `json:"leaveType"`

	// StartDate and EndDate bound the requested period, inclusive.
	StartDate Date `json:"startDate"`
	EndDate   Date `json:"endDate"`

	// TotalDays is the business-day count computed by the backend.
	TotalDays float64 `json:"totalDays"`

	// Reason is the applicant's justification.
	Reason string `json:"reason"`

	// Status is the current approval state.
	Status LeaveStatus `json:"status"`

	// ApprovedBy is set once a manager has acted on the application.
	ApprovedBy *User `json:"approvedBy,omitempty"`

	RejectionReason    string `json:"rejectionReason,omitempty"`
	CancellationReason string `json:"cancellationReason,omitempty"`

	CreatedAt Timestamp `json:"createdAt"`
	UpdatedAt Timestamp `json:"updatedAt"`
}

// LeaveApplicationRequest is the body used to create a leave application.
type LeaveApplicationRequest struct {
	LeaveType LeaveTypeRef `json:"leaveType"`
	StartDate Date         `json:"startDate"`
	EndDate   Date         `json:"endDate"`
	Reason    string       `json:"reason"`
}

// LeaveTypeRef references a leave type by ID inside a request body.
type LeaveTypeRef struct {
	ID int64 `json:"id"`
}

// LeaveBalance is a user's entitlement for one leave type in one year.
type LeaveBalance struct {
	ID              int64     `json:"id"`
	LeaveType       LeaveType `json:"leaveType"`
	Year            int       `json:"year"`
	TotalDays       float64   `json:"totalDays"`
	UsedDays        float64   `json:"usedDays"`
	RemainingDays   float64   `json:"remainingDays"`
	CarriedOverDays float64   `json:"carriedOverDays"`
	ExpiryDate      Date      `json:"expiryDate"`
}

// UsedPercent is the share of TotalDays already taken, clamped to
// [0, 100].
func (b LeaveBalance) UsedPercent() float64 {
	if b.TotalDays <= 0 {
		return 0
	}
	return min(100, max(0, b.UsedDays/b.TotalDays*100))
}
