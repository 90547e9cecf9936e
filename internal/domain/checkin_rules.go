package domain

type baggageMustBeValid struct {
	count  int32
	weight float64
}

func (r baggageMustBeValid) Check() error {
	if r.count < 0 || r.weight < 0 {
		return NewValidation("baggage", "baggage count and weight must be non-negative")
	}
	return nil
}

type checkinMustBePending struct {
	status CheckinStatus
}

func (r checkinMustBePending) Check() error {
	if r.status != CheckinStatusPending {
		return NewBusinessRule("checkin is not pending")
	}
	return nil
}
